package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// artifactStoreInMemory хранит артефакты в map; используется в тестах воркера.
type artifactStoreInMemory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewArtifactStore возвращает in-memory хранилище артефактов.
func NewArtifactStore() domain.ArtifactStore {
	return &artifactStoreInMemory{
		items: make(map[string][]byte),
	}
}

// Put сохраняет байты под именем; перезапись идемпотентна.
func (s *artifactStoreInMemory) Put(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.items[name] = buf
	return nil
}

// Get возвращает байты или ErrArtifactNotFound.
func (s *artifactStoreInMemory) Get(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.items[name]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Exists сообщает, существует ли артефакт.
func (s *artifactStoreInMemory) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.items[name]
	return ok
}

var _ domain.ArtifactStore = (*artifactStoreInMemory)(nil)
