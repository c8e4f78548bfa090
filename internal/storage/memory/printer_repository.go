package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// printerRepositoryInMemory — простая in-memory реализация PrinterRepository.
type printerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Printer
}

// NewPrinterRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewPrinterRepository() domain.PrinterRepository {
	return &printerRepositoryInMemory{
		items: make(map[string]domain.Printer),
	}
}

// Create сохраняет новый принтер.
func (r *printerRepositoryInMemory) Create(printer domain.Printer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[printer.ID] = printer
	return nil
}

// Get возвращает принтер или ErrPrinterNotFound, если его нет.
func (r *printerRepositoryInMemory) Get(id string) (domain.Printer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	printer, ok := r.items[id]
	if !ok {
		return domain.Printer{}, domain.ErrPrinterNotFound
	}
	return printer, nil
}

// GetByAPIKey резолвит api_key; неизвестный ключ — ErrPrinterNotFound.
func (r *printerRepositoryInMemory) GetByAPIKey(key string) (domain.Printer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if key == "" {
		return domain.Printer{}, domain.ErrPrinterNotFound
	}
	for _, printer := range r.items {
		if printer.APIKey == key {
			return printer, nil
		}
	}
	return domain.Printer{}, domain.ErrPrinterNotFound
}

// List возвращает принтеры по фильтру в порядке создания.
func (r *printerRepositoryInMemory) List(filter domain.PrinterFilter) ([]domain.Printer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Printer, 0, len(r.items))
	for _, printer := range r.items {
		if filter.MerchantPointID != "" && printer.MerchantPointID != filter.MerchantPointID {
			continue
		}
		if filter.Kind != "" && printer.Kind != filter.Kind {
			continue
		}
		result = append(result, printer)
	}

	sortPrinters(result)
	return result, nil
}

// ListByMerchantPoint возвращает принтеры точки в стабильном порядке.
func (r *printerRepositoryInMemory) ListByMerchantPoint(merchantPointID string) ([]domain.Printer, error) {
	return r.List(domain.PrinterFilter{MerchantPointID: merchantPointID})
}

// Save перезаписывает принтер или возвращает ErrPrinterNotFound.
func (r *printerRepositoryInMemory) Save(printer domain.Printer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[printer.ID]; !ok {
		return domain.ErrPrinterNotFound
	}
	r.items[printer.ID] = printer
	return nil
}

// Delete удаляет принтер. Блокирующие чеки проверяет сервисный слой.
func (r *printerRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrPrinterNotFound
	}
	delete(r.items, id)
	return nil
}

func sortPrinters(printers []domain.Printer) {
	sort.Slice(printers, func(i, j int) bool {
		if !printers[i].CreatedAt.Equal(printers[j].CreatedAt) {
			return printers[i].CreatedAt.Before(printers[j].CreatedAt)
		}
		return printers[i].ID < printers[j].ID
	})
}

var _ domain.PrinterRepository = (*printerRepositoryInMemory)(nil)
