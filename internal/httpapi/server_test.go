package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/httpapi"
	"github.com/vladislavdragonenkov/checks/internal/service/order"
	"github.com/vladislavdragonenkov/checks/internal/service/registry"
	"github.com/vladislavdragonenkov/checks/internal/storage/memory"
)

type recordingQueue struct {
	mu     sync.Mutex
	orders []string
}

func (q *recordingQueue) Enqueue(_ context.Context, orderUUID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.orders = append(q.orders, orderUUID)
	return nil
}

func (q *recordingQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.orders...)
}

type env struct {
	server   *httptest.Server
	queue    *recordingQueue
	checks   domain.CheckRepository
	media    domain.ArtifactStore
	registry *registry.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	entry := logger.WithField("component", "test")

	points := memory.NewMerchantPointRepository()
	printers := memory.NewPrinterRepository()
	checks := memory.NewCheckRepository()
	media := memory.NewArtifactStore()
	queue := &recordingQueue{}

	orders := order.NewService(checks, queue, nil, entry)
	reg := registry.NewService(points, printers, checks, entry)
	api := httpapi.NewServer(orders, reg, printers, media, entry)

	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)

	return &env{server: srv, queue: queue, checks: checks, media: media, registry: reg}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func (e *env) createPoint(t *testing.T) map[string]interface{} {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/merchant-points/", map[string]string{
		"name":    "Кафе",
		"address": "Невский 1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var point map[string]interface{}
	decodeBody(t, resp, &point)
	return point
}

func (e *env) createPrinter(t *testing.T, pointID, kind string) map[string]interface{} {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/printers/", map[string]string{
		"name":           "Printer",
		"check_type":     kind,
		"merchant_point": pointID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var printer map[string]interface{}
	decodeBody(t, resp, &printer)
	return printer
}

func orderBody(pointID string) map[string]interface{} {
	return map[string]interface{}{
		"merchant_point": pointID,
		"total_price":    30,
		"items": []map[string]interface{}{
			{"name": "Coffee", "price": 15.0, "count": 2},
		},
	}
}

func TestCreateOrder_FansOutChecks(t *testing.T) {
	e := newEnv(t)
	point := e.createPoint(t)
	pointID := point["id"].(string)
	e.createPrinter(t, pointID, "kitchen")
	e.createPrinter(t, pointID, "client")

	resp := e.do(t, http.MethodPost, "/api/v1/orders", orderBody(pointID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		OrderUUID string `json:"order_uuid"`
		Checks    []struct {
			ID        string `json:"id"`
			Status    string `json:"status"`
			CheckType string `json:"check_type"`
		} `json:"checks"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.OrderUUID)
	require.Len(t, created.Checks, 2)
	for _, check := range created.Checks {
		require.Equal(t, "new", check.Status)
	}

	require.Equal(t, []string{created.OrderUUID}, e.queue.enqueued())
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	e := newEnv(t)
	point := e.createPoint(t)
	pointID := point["id"].(string)
	e.createPrinter(t, pointID, "kitchen")

	cases := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{
			name:  "empty items",
			body:  map[string]interface{}{"merchant_point": pointID, "total_price": 30, "items": []interface{}{}},
			field: "items",
		},
		{
			name: "non-positive total",
			body: map[string]interface{}{
				"merchant_point": pointID,
				"total_price":    0,
				"items":          []map[string]interface{}{{"name": "Tea", "price": 10.0, "count": 1}},
			},
			field: "total_price",
		},
		{
			name: "missing merchant point",
			body: map[string]interface{}{
				"total_price": 10,
				"items":       []map[string]interface{}{{"name": "Tea", "price": 10.0, "count": 1}},
			},
			field: "merchant_point",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := e.do(t, http.MethodPost, "/api/v1/orders", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body struct {
				Field string `json:"field"`
			}
			decodeBody(t, resp, &body)
			require.Equal(t, tc.field, body.Field)
		})
	}

	// Чеки не созданы, задания не ставились.
	require.Empty(t, e.queue.enqueued())
}

func TestCreateOrder_PointWithoutPrinters(t *testing.T) {
	e := newEnv(t)
	point := e.createPoint(t)
	pointID := point["id"].(string)

	resp := e.do(t, http.MethodPost, "/api/v1/orders", orderBody(pointID))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body struct {
		Field string `json:"field"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, "no printers found", body.Field)
}

func TestMerchantPointDelete_Protected(t *testing.T) {
	e := newEnv(t)
	point := e.createPoint(t)
	pointID := point["id"].(string)
	printer := e.createPrinter(t, pointID, "kitchen")

	resp := e.do(t, http.MethodDelete, "/api/v1/merchant-points/"+pointID+"/", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		ProtectedObjects []struct {
			ID string `json:"id"`
		} `json:"protected_objects"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.ProtectedObjects, 1)
	require.Equal(t, printer["id"].(string), body.ProtectedObjects[0].ID)

	// Удаляем принтер, затем точку.
	resp = e.do(t, http.MethodDelete, "/api/v1/printers/"+printer["id"].(string)+"/", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodDelete, "/api/v1/merchant-points/"+pointID+"/", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/api/v1/merchant-points/"+pointID+"/", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPrinterFilters(t *testing.T) {
	e := newEnv(t)
	point := e.createPoint(t)
	pointID := point["id"].(string)
	e.createPrinter(t, pointID, "kitchen")
	e.createPrinter(t, pointID, "client")

	resp := e.do(t, http.MethodGet, "/api/v1/printers/?check_type=kitchen", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var printers []map[string]interface{}
	decodeBody(t, resp, &printers)
	require.Len(t, printers, 1)
	require.Equal(t, "kitchen", printers[0]["check_type"])

	// Неизвестное значение enum — 400, а не пустой список.
	resp = e.do(t, http.MethodGet, "/api/v1/printers/?check_type=fiscal", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetCheck_QueryFilters(t *testing.T) {
	e := newEnv(t)
	point := e.createPoint(t)
	pointID := point["id"].(string)
	printer := e.createPrinter(t, pointID, "kitchen")
	printerID := printer["id"].(string)

	resp := e.do(t, http.MethodPost, "/api/v1/orders", orderBody(pointID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Checks []struct {
			ID string `json:"id"`
		} `json:"checks"`
	}
	decodeBody(t, resp, &created)
	require.Len(t, created.Checks, 1)
	checkID := created.Checks[0].ID

	resp = e.do(t, http.MethodGet, "/api/v1/checks/"+checkID+"/?status=new&printer="+printerID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check map[string]interface{}
	decodeBody(t, resp, &check)
	require.Equal(t, checkID, check["id"])

	// Чек есть, но фильтру не соответствует — для клиента его нет.
	resp = e.do(t, http.MethodGet, "/api/v1/checks/"+checkID+"/?status=printed", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/api/v1/checks/"+checkID+"/?check_type=client", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/api/v1/checks/"+checkID+"/?printer=other", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Неизвестное значение enum — 400, как и в списочном фильтре.
	resp = e.do(t, http.MethodGet, "/api/v1/checks/"+checkID+"/?status=fiscal", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestChecksForPrintFlow(t *testing.T) {
	e := newEnv(t)
	point := e.createPoint(t)
	pointID := point["id"].(string)
	printer := e.createPrinter(t, pointID, "kitchen")
	apiKey := printer["api_key"].(string)

	resp := e.do(t, http.MethodPost, "/api/v1/orders", orderBody(pointID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		OrderUUID string `json:"order_uuid"`
		Checks    []struct {
			ID string `json:"id"`
		} `json:"checks"`
	}
	decodeBody(t, resp, &created)
	require.Len(t, created.Checks, 1)
	checkID := created.Checks[0].ID

	// До отрисовки принтеру нечего печатать.
	resp = e.do(t, http.MethodGet, "/api/v1/checks/for-print/"+apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var forPrint []map[string]interface{}
	decodeBody(t, resp, &forPrint)
	require.Empty(t, forPrint)

	// И напечатать тоже нельзя: без артефакта printed недостижим.
	resp = e.do(t, http.MethodPatch, "/api/v1/checks/"+checkID+"/", map[string]string{"status": "printed"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Отрисовка: артефакт и статус rendered.
	artifact := fmt.Sprintf("check_%s_%s.pdf", created.OrderUUID, printer["id"].(string))
	require.NoError(t, e.media.Put(artifact, []byte("%PDF-1.4")))
	require.NoError(t, e.checks.MarkRendered(checkID, artifact))

	resp = e.do(t, http.MethodGet, "/api/v1/checks/for-print/"+apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &forPrint)
	require.Len(t, forPrint, 1)
	require.Equal(t, "/media/"+artifact, forPrint[0]["pdf_media"])

	// Неизвестный api_key — 404 без деталей.
	resp = e.do(t, http.MethodGet, "/api/v1/checks/for-print/bogus", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Подтверждение печати двигает статус вперёд.
	resp = e.do(t, http.MethodPatch, "/api/v1/checks/"+checkID+"/", map[string]string{"status": "printed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var patched map[string]interface{}
	decodeBody(t, resp, &patched)
	require.Equal(t, "printed", patched["status"])

	// Напечатанный чек больше не отдаётся в for-print.
	resp = e.do(t, http.MethodGet, "/api/v1/checks/for-print/"+apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &forPrint)
	require.Empty(t, forPrint)

	// Откат статуса запрещён.
	resp = e.do(t, http.MethodPatch, "/api/v1/checks/"+checkID+"/", map[string]string{"status": "new"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestMediaDownload(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.media.Put("check_o_p.pdf", []byte("%PDF-1.4 test")))

	resp := e.do(t, http.MethodGet, "/media/check_o_p.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "inline")
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/media/missing.pdf", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMalformedJSONBody(t *testing.T) {
	e := newEnv(t)

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/v1/orders", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
