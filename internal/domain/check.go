package domain

import "time"

// CheckKind определяет тип чека, закреплённый за принтером.
type CheckKind string

const (
	// CheckKindKitchen — чек для кухни.
	CheckKindKitchen CheckKind = "kitchen"
	// CheckKindClient — чек для клиента.
	CheckKindClient CheckKind = "client"
)

// Valid проверяет, что тип чека относится к поддерживаемым значениям.
func (k CheckKind) Valid() bool {
	switch k {
	case CheckKindKitchen, CheckKindClient:
		return true
	default:
		return false
	}
}

// CheckStatus описывает жизненный цикл чека.
type CheckStatus string

const (
	// CheckStatusNew — чек создан, PDF ещё не отрисован.
	CheckStatusNew CheckStatus = "new"
	// CheckStatusRendered — PDF сформирован и доступен принтеру.
	CheckStatusRendered CheckStatus = "rendered"
	// CheckStatusPrinted — принтер подтвердил печать.
	CheckStatusPrinted CheckStatus = "printed"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s CheckStatus) Valid() bool {
	switch s {
	case CheckStatusNew, CheckStatusRendered, CheckStatusPrinted:
		return true
	default:
		return false
	}
}

// rank задаёт порядок статусов: статус двигается только вперёд.
func (s CheckStatus) rank() int {
	switch s {
	case CheckStatusNew:
		return 0
	case CheckStatusRendered:
		return 1
	case CheckStatusPrinted:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo сообщает, допустим ли переход в статус next.
// Повторная установка того же статуса допускается (идемпотентный PATCH).
func (s CheckStatus) CanTransitionTo(next CheckStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// CanAdvanceTo проверяет явный перевод чека в статус next. Помимо
// движения только вперёд, rendered и printed требуют артефакта:
// его проставляет MarkRendered, поэтому new-чек нельзя «допечатать»
// мимо отрисовки.
func (c *Check) CanAdvanceTo(next CheckStatus) error {
	if !next.Valid() {
		return ErrCheckStatusInvalid
	}
	if !c.Status.CanTransitionTo(next) {
		return ErrCheckStatusRegression
	}
	if next != CheckStatusNew && c.ArtifactName == "" {
		return ErrArtifactStateMismatch
	}
	return nil
}

// Check — один печатный документ, порождённый заказом для конкретного принтера.
type Check struct {
	ID string
	// PrinterID не меняется после создания чека.
	PrinterID string
	// Kind копируется из принтера в момент создания.
	Kind   CheckKind
	Order  OrderPayload
	Status CheckStatus
	// ArtifactName заполняется только при переходе в rendered.
	ArtifactName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateInvariants проверяет согласованность статуса и ссылки на артефакт.
func (c *Check) ValidateInvariants() []error {
	var errs []error

	if c.PrinterID == "" {
		errs = append(errs, ErrPrinterIDRequired)
	}
	if !c.Kind.Valid() {
		errs = append(errs, ErrCheckKindInvalid)
	}
	if !c.Status.Valid() {
		errs = append(errs, ErrCheckStatusInvalid)
	}
	if c.Order.UUID == "" {
		errs = append(errs, ErrOrderUUIDRequired)
	}

	// Артефакт существует тогда и только тогда, когда чек отрисован.
	hasArtifact := c.ArtifactName != ""
	wantArtifact := c.Status == CheckStatusRendered || c.Status == CheckStatusPrinted
	if hasArtifact != wantArtifact {
		errs = append(errs, ErrArtifactStateMismatch)
	}

	return errs
}
