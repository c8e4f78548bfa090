package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/service/order"
)

// createOrder принимает заказ, валидирует его и атомарно разворачивает в чеки.
// Ответ 201 означает, что чеки созданы; отрисовка идёт асинхронно.
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var payload domain.OrderPayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	// UUID назначает сервис, клиентский игнорируется.
	payload.UUID = ""

	validated, err := order.Validate(payload, s.printers)
	if err != nil {
		s.writeError(w, err)
		return
	}

	orderUUID, checks, err := s.orders.Create(r.Context(), validated)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, orderCreatedResponse{
		OrderUUID: orderUUID,
		Checks:    toCheckResponses(checks),
	})
}
