package domain

import "time"

// MerchantPoint — торговая точка, которой принадлежат принтеры.
type MerchantPoint struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет обязательные поля торговой точки.
func (m *MerchantPoint) ValidateInvariants() []error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if m.Address == "" {
		errs = append(errs, ErrAddressRequired)
	}
	return errs
}

// Printer — устройство печати, закреплённое за одной торговой точкой.
type Printer struct {
	ID   string
	Name string
	// APIKey — непрозрачный токен: одновременно идентификатор и авторизация
	// при опросе чеков на печать.
	APIKey string
	Kind   CheckKind
	// MerchantPointID не меняется пайплайном рендеринга.
	MerchantPointID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateInvariants проверяет обязательные поля принтера.
func (p *Printer) ValidateInvariants() []error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if !p.Kind.Valid() {
		errs = append(errs, ErrCheckKindInvalid)
	}
	if p.MerchantPointID == "" {
		errs = append(errs, ErrMerchantPointRequired)
	}
	return errs
}
