package domain

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// Name — название позиции в чеке.
	Name string `json:"name"`
	// Price — цена за единицу.
	Price float64 `json:"price"`
	// Count — количество единиц.
	Count int `json:"count"`
}

// OrderPayload — данные заказа, встраиваемые в каждый чек.
// Заказ не хранится отдельной сущностью: UUID связывает все чеки одного заказа.
type OrderPayload struct {
	// UUID проставляется сервисом fan-out при создании чеков.
	UUID            string      `json:"uuid,omitempty"`
	MerchantPointID string      `json:"merchant_point"`
	TotalPrice      float64     `json:"total_price"`
	Items           []OrderItem `json:"items"`
}

// Validate проверяет форму заказа в порядке, который видит клиент:
// сначала items, затем total_price, затем merchant_point.
// Наличие принтеров у точки проверяется выше, на уровне валидатора.
func (o *OrderPayload) Validate() error {
	if len(o.Items) == 0 {
		return NewValidationError("items")
	}
	for _, item := range o.Items {
		if item.Name == "" || item.Price <= 0 || item.Count <= 0 {
			return NewValidationError("items")
		}
	}
	if o.TotalPrice <= 0 {
		return NewValidationError("total_price")
	}
	if o.MerchantPointID == "" {
		return NewValidationError("merchant_point")
	}
	return nil
}
