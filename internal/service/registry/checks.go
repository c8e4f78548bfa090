package registry

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// CheckInput — входные данные ручного создания чека.
// Обычный путь появления чеков — fan-out заказа; ручное создание нужно
// оператору для повторной печати и исправления инцидентов.
type CheckInput struct {
	PrinterID string              `json:"printer"`
	Kind      domain.CheckKind    `json:"check_type"`
	Order     domain.OrderPayload `json:"order"`
}

// CreateCheck создаёт одиночный чек в статусе new.
// Пустой check_type наследуется от принтера.
func (s *Service) CreateCheck(in CheckInput) (domain.Check, error) {
	if in.PrinterID == "" {
		return domain.Check{}, domain.NewValidationError("printer")
	}
	printer, err := s.printers.Get(in.PrinterID)
	if err != nil {
		return domain.Check{}, err
	}

	kind := in.Kind
	if kind == "" {
		kind = printer.Kind
	}
	if !kind.Valid() {
		return domain.Check{}, domain.NewValidationError("check_type")
	}
	if err := in.Order.Validate(); err != nil {
		return domain.Check{}, err
	}
	if in.Order.UUID == "" {
		return domain.Check{}, domain.NewValidationError("order.uuid")
	}

	now := s.now()
	check := domain.Check{
		ID:        uuid.NewString(),
		PrinterID: printer.ID,
		Kind:      kind,
		Order:     in.Order,
		Status:    domain.CheckStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.checks.CreateBatch([]domain.Check{check}); err != nil {
		return domain.Check{}, err
	}

	s.logger.WithFields(log.Fields{
		"check_id":   check.ID,
		"printer_id": check.PrinterID,
	}).Info("check created manually")
	return check, nil
}

// GetCheck возвращает чек по идентификатору.
func (s *Service) GetCheck(id string) (domain.Check, error) {
	return s.checks.Get(id)
}

// ListChecks возвращает чеки по фильтру. Неизвестные значения enum-полей
// фильтра — ошибка валидации, а не пустая выборка.
func (s *Service) ListChecks(filter domain.CheckFilter) ([]domain.Check, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.NewValidationError("check_type")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status")
	}
	return s.checks.List(filter)
}

// AdvanceCheckStatus двигает статус чека вперёд; повторная установка
// текущего статуса идемпотентна.
func (s *Service) AdvanceCheckStatus(id string, status domain.CheckStatus) (domain.Check, error) {
	if !status.Valid() {
		return domain.Check{}, domain.NewValidationError("status")
	}

	if err := s.checks.UpdateStatus(id, status); err != nil {
		return domain.Check{}, err
	}
	return s.checks.Get(id)
}

// DeleteCheck удаляет чек; на чеки никто не ссылается, защита не нужна.
func (s *Service) DeleteCheck(id string) error {
	if err := s.checks.Delete(id); err != nil {
		return err
	}
	s.logger.WithField("check_id", id).Info("check deleted")
	return nil
}

// ListChecksForPrint возвращает rendered-чеки принтера, найденного по api_key,
// в порядке создания. Неизвестный ключ — ErrPrinterNotFound без деталей.
func (s *Service) ListChecksForPrint(apiKey string, limit, offset int) ([]domain.Check, error) {
	printer, err := s.printers.GetByAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	return s.checks.ListForPrint(printer.ID, limit, offset)
}
