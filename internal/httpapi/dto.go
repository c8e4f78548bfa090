package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// merchantPointResponse — представление торговой точки в API.
type merchantPointResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toMerchantPointResponse(point domain.MerchantPoint) merchantPointResponse {
	return merchantPointResponse{
		ID:        point.ID,
		Name:      point.Name,
		Address:   point.Address,
		CreatedAt: point.CreatedAt,
		UpdatedAt: point.UpdatedAt,
	}
}

// printerResponse — представление принтера в API. APIKey отдаётся целиком:
// API закрыт для внешних клиентов, ключи нужны для настройки устройств.
type printerResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	APIKey        string           `json:"api_key"`
	CheckType     domain.CheckKind `json:"check_type"`
	MerchantPoint string           `json:"merchant_point"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func toPrinterResponse(printer domain.Printer) printerResponse {
	return printerResponse{
		ID:            printer.ID,
		Name:          printer.Name,
		APIKey:        printer.APIKey,
		CheckType:     printer.Kind,
		MerchantPoint: printer.MerchantPointID,
		CreatedAt:     printer.CreatedAt,
		UpdatedAt:     printer.UpdatedAt,
	}
}

// checkResponse — представление чека в API. PDFMedia заполняется после
// отрисовки и указывает на эндпоинт /media/{name}.
type checkResponse struct {
	ID        string              `json:"id"`
	Printer   string              `json:"printer"`
	CheckType domain.CheckKind    `json:"check_type"`
	Order     domain.OrderPayload `json:"order"`
	Status    domain.CheckStatus  `json:"status"`
	PDFMedia  string              `json:"pdf_media,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toCheckResponse(check domain.Check) checkResponse {
	resp := checkResponse{
		ID:        check.ID,
		Printer:   check.PrinterID,
		CheckType: check.Kind,
		Order:     check.Order,
		Status:    check.Status,
		CreatedAt: check.CreatedAt,
		UpdatedAt: check.UpdatedAt,
	}
	if check.ArtifactName != "" {
		resp.PDFMedia = "/media/" + check.ArtifactName
	}
	return resp
}

func toCheckResponses(checks []domain.Check) []checkResponse {
	result := make([]checkResponse, 0, len(checks))
	for _, check := range checks {
		result = append(result, toCheckResponse(check))
	}
	return result
}

// orderCreatedResponse — ответ на постановку заказа.
type orderCreatedResponse struct {
	OrderUUID string          `json:"order_uuid"`
	Checks    []checkResponse `json:"checks"`
}
