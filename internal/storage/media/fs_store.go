package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// Store — файловое хранилище артефактов. Имя артефакта — плоское имя файла
// внутри каталога; подкаталоги и выход из каталога запрещены.
type Store struct {
	dir string
}

// New создаёт хранилище в каталоге dir, создавая его при необходимости.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("media dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put сохраняет артефакт атомарно: сначала во временный файл, затем rename.
// Читатель никогда не увидит наполовину записанный PDF.
func (s *Store) Put(name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Get возвращает содержимое артефакта или ErrArtifactNotFound.
func (s *Store) Get(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// Exists сообщает, существует ли артефакт.
func (s *Store) Exists(name string) bool {
	path, err := s.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// resolve проверяет имя и строит абсолютный путь внутри каталога.
func (s *Store) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", domain.ErrArtifactNotFound
	}
	return filepath.Join(s.dir, name), nil
}

var _ domain.ArtifactStore = (*Store)(nil)
