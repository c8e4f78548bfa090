// Package order содержит валидацию входящих заказов и fan-out заказа
// в чеки по принтерам торговой точки.
package order

import (
	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// ValidatedOrder — неизменяемый результат валидации: заказ плюс резолвнутый
// набор принтеров. Передаётся в fan-out явно, без скрытого состояния валидатора.
type ValidatedOrder struct {
	Order    domain.OrderPayload
	Printers []domain.Printer
}

// Validate проверяет форму заказа и резолвит принтеры торговой точки.
// Порядок проверок фиксирован: items, total_price, merchant_point, принтеры.
func Validate(payload domain.OrderPayload, printers domain.PrinterRepository) (ValidatedOrder, error) {
	if err := payload.Validate(); err != nil {
		return ValidatedOrder{}, err
	}

	resolved, err := printers.ListByMerchantPoint(payload.MerchantPointID)
	if err != nil {
		return ValidatedOrder{}, err
	}
	if len(resolved) == 0 {
		return ValidatedOrder{}, domain.NewValidationError("no printers found")
	}

	return ValidatedOrder{Order: payload, Printers: resolved}, nil
}
