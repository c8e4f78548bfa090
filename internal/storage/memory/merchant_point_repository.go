package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// merchantPointRepositoryInMemory — простая in-memory реализация MerchantPointRepository.
type merchantPointRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.MerchantPoint
}

// NewMerchantPointRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewMerchantPointRepository() domain.MerchantPointRepository {
	return &merchantPointRepositoryInMemory{
		items: make(map[string]domain.MerchantPoint),
	}
}

// Create сохраняет новую точку.
func (r *merchantPointRepositoryInMemory) Create(point domain.MerchantPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[point.ID] = point
	return nil
}

// Get возвращает точку или ErrMerchantPointNotFound, если её нет.
func (r *merchantPointRepositoryInMemory) Get(id string) (domain.MerchantPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	point, ok := r.items[id]
	if !ok {
		return domain.MerchantPoint{}, domain.ErrMerchantPointNotFound
	}
	return point, nil
}

// List возвращает точки в порядке создания.
func (r *merchantPointRepositoryInMemory) List() ([]domain.MerchantPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.MerchantPoint, 0, len(r.items))
	for _, point := range r.items {
		result = append(result, point)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Save перезаписывает точку или возвращает ErrMerchantPointNotFound.
func (r *merchantPointRepositoryInMemory) Save(point domain.MerchantPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[point.ID]; !ok {
		return domain.ErrMerchantPointNotFound
	}
	r.items[point.ID] = point
	return nil
}

// Delete удаляет точку. Блокирующие ссылки проверяет сервисный слой.
func (r *merchantPointRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrMerchantPointNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.MerchantPointRepository = (*merchantPointRepositoryInMemory)(nil)
