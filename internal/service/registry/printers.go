package registry

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// PrinterInput — входные данные создания и обновления принтера.
// Пустой APIKey означает, что ключ сгенерирует сервис.
type PrinterInput struct {
	Name            string           `json:"name"`
	APIKey          string           `json:"api_key"`
	Kind            domain.CheckKind `json:"check_type"`
	MerchantPointID string           `json:"merchant_point"`
}

func (in PrinterInput) validate() error {
	if in.Name == "" {
		return domain.NewValidationError("name")
	}
	if !in.Kind.Valid() {
		return domain.NewValidationError("check_type")
	}
	if in.MerchantPointID == "" {
		return domain.NewValidationError("merchant_point")
	}
	return nil
}

// CreatePrinter создаёт принтер; торговая точка должна существовать.
func (s *Service) CreatePrinter(in PrinterInput) (domain.Printer, error) {
	if err := in.validate(); err != nil {
		return domain.Printer{}, err
	}
	if _, err := s.points.Get(in.MerchantPointID); err != nil {
		return domain.Printer{}, err
	}

	apiKey := in.APIKey
	if apiKey == "" {
		apiKey = newAPIKey()
	}

	now := s.now()
	printer := domain.Printer{
		ID:              uuid.NewString(),
		Name:            in.Name,
		APIKey:          apiKey,
		Kind:            in.Kind,
		MerchantPointID: in.MerchantPointID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.printers.Create(printer); err != nil {
		return domain.Printer{}, err
	}

	s.logger.WithFields(log.Fields{
		"printer_id":        printer.ID,
		"merchant_point_id": printer.MerchantPointID,
	}).Info("printer created")
	return printer, nil
}

// GetPrinter возвращает принтер по идентификатору.
func (s *Service) GetPrinter(id string) (domain.Printer, error) {
	return s.printers.Get(id)
}

// ListPrinters возвращает принтеры по фильтру. Неизвестное значение
// check_type в фильтре — ошибка валидации, а не пустая выборка.
func (s *Service) ListPrinters(filter domain.PrinterFilter) ([]domain.Printer, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.NewValidationError("check_type")
	}
	return s.printers.List(filter)
}

// UpdatePrinter обновляет принтер; перенос на другую точку разрешён,
// если целевая точка существует.
func (s *Service) UpdatePrinter(id string, in PrinterInput) (domain.Printer, error) {
	if err := in.validate(); err != nil {
		return domain.Printer{}, err
	}

	printer, err := s.printers.Get(id)
	if err != nil {
		return domain.Printer{}, err
	}
	if in.MerchantPointID != printer.MerchantPointID {
		if _, err := s.points.Get(in.MerchantPointID); err != nil {
			return domain.Printer{}, err
		}
	}

	printer.Name = in.Name
	printer.Kind = in.Kind
	printer.MerchantPointID = in.MerchantPointID
	if in.APIKey != "" {
		printer.APIKey = in.APIKey
	}
	printer.UpdatedAt = s.now()

	if err := s.printers.Save(printer); err != nil {
		return domain.Printer{}, err
	}
	return printer, nil
}

// DeletePrinter удаляет принтер, если на него не ссылается ни один чек.
// Иначе возвращает ProtectedError со списком блокирующих чеков.
func (s *Service) DeletePrinter(id string) error {
	if _, err := s.printers.Get(id); err != nil {
		return err
	}

	checks, err := s.checks.ListByPrinter(id)
	if err != nil {
		return err
	}
	if len(checks) > 0 {
		refs := make([]domain.ProtectedRef, 0, len(checks))
		for _, check := range checks {
			refs = append(refs, domain.ProtectedRef{
				ID:   check.ID,
				Name: fmt.Sprintf("check for order %s", check.Order.UUID),
			})
		}
		return &domain.ProtectedError{Refs: refs}
	}

	if err := s.printers.Delete(id); err != nil {
		return err
	}

	s.logger.WithField("printer_id", id).Info("printer deleted")
	return nil
}
