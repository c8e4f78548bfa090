package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// checkRepositoryInMemory — in-memory реализация CheckRepository.
// Атомарность CreateBatch обеспечивается единственной блокировкой.
type checkRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Check
	// seq фиксирует порядок вставки: created_at у чеков одного заказа совпадает.
	seq     map[string]int64
	nextSeq int64
}

// NewCheckRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCheckRepository() domain.CheckRepository {
	return &checkRepositoryInMemory{
		items: make(map[string]domain.Check),
		seq:   make(map[string]int64),
	}
}

// CreateBatch атомарно сохраняет все чеки одного заказа.
func (r *checkRepositoryInMemory) CreateBatch(checks []domain.Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Сначала проверяем весь батч: частичный fan-out не должен быть виден.
	for i := range checks {
		if _, exists := r.items[checks[i].ID]; exists {
			return domain.ErrDuplicateCheck
		}
	}
	for i := range checks {
		r.items[checks[i].ID] = checks[i]
		r.nextSeq++
		r.seq[checks[i].ID] = r.nextSeq
	}
	return nil
}

// Get возвращает чек или ErrCheckNotFound, если его нет.
func (r *checkRepositoryInMemory) Get(id string) (domain.Check, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	check, ok := r.items[id]
	if !ok {
		return domain.Check{}, domain.ErrCheckNotFound
	}
	return check, nil
}

// List возвращает чеки по фильтру в порядке создания.
func (r *checkRepositoryInMemory) List(filter domain.CheckFilter) ([]domain.Check, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Check, 0, len(r.items))
	for _, check := range r.items {
		if filter.PrinterID != "" && check.PrinterID != filter.PrinterID {
			continue
		}
		if filter.Kind != "" && check.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && check.Status != filter.Status {
			continue
		}
		result = append(result, check)
	}

	r.sortChecks(result)
	return result, nil
}

// ListByOrder возвращает чеки заказа в заданном статусе.
func (r *checkRepositoryInMemory) ListByOrder(orderUUID string, status domain.CheckStatus) ([]domain.Check, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Check, 0)
	for _, check := range r.items {
		if check.Order.UUID != orderUUID {
			continue
		}
		if status != "" && check.Status != status {
			continue
		}
		result = append(result, check)
	}

	r.sortChecks(result)
	return result, nil
}

// ListForPrint возвращает rendered-чеки принтера с limit/offset пагинацией.
func (r *checkRepositoryInMemory) ListForPrint(printerID string, limit, offset int) ([]domain.Check, error) {
	checks, err := r.List(domain.CheckFilter{PrinterID: printerID, Status: domain.CheckStatusRendered})
	if err != nil {
		return nil, err
	}

	if offset > 0 {
		if offset >= len(checks) {
			return []domain.Check{}, nil
		}
		checks = checks[offset:]
	}
	if limit > 0 && len(checks) > limit {
		checks = checks[:limit]
	}
	return checks, nil
}

// MarkRendered атомарно проставляет артефакт и статус rendered,
// только если чек всё ещё new.
func (r *checkRepositoryInMemory) MarkRendered(id, artifactName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	check, ok := r.items[id]
	if !ok {
		return domain.ErrCheckNotFound
	}
	if check.Status != domain.CheckStatusNew {
		return domain.ErrCheckStateChanged
	}

	check.Status = domain.CheckStatusRendered
	check.ArtifactName = artifactName
	check.UpdatedAt = time.Now().UTC()
	r.items[id] = check
	return nil
}

// UpdateStatus двигает статус только вперёд; rendered и printed
// недостижимы для чека без артефакта.
func (r *checkRepositoryInMemory) UpdateStatus(id string, status domain.CheckStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	check, ok := r.items[id]
	if !ok {
		return domain.ErrCheckNotFound
	}
	if err := check.CanAdvanceTo(status); err != nil {
		return err
	}

	check.Status = status
	check.UpdatedAt = time.Now().UTC()
	r.items[id] = check
	return nil
}

// Delete удаляет чек.
func (r *checkRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrCheckNotFound
	}
	delete(r.items, id)
	delete(r.seq, id)
	return nil
}

// ListByPrinter возвращает все чеки принтера независимо от статуса.
func (r *checkRepositoryInMemory) ListByPrinter(printerID string) ([]domain.Check, error) {
	return r.List(domain.CheckFilter{PrinterID: printerID})
}

// sortChecks упорядочивает чеки по порядку вставки. Вызывать под блокировкой.
func (r *checkRepositoryInMemory) sortChecks(checks []domain.Check) {
	sort.Slice(checks, func(i, j int) bool {
		return r.seq[checks[i].ID] < r.seq[checks[j].ID]
	})
}

var _ domain.CheckRepository = (*checkRepositoryInMemory)(nil)
