package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/service/registry"
)

// listChecks поддерживает фильтры ?printer=, ?check_type= и ?status=.
func (s *Server) listChecks(w http.ResponseWriter, r *http.Request) {
	filter := domain.CheckFilter{
		PrinterID: r.URL.Query().Get("printer"),
		Kind:      domain.CheckKind(r.URL.Query().Get("check_type")),
		Status:    domain.CheckStatus(r.URL.Query().Get("status")),
	}

	checks, err := s.registry.ListChecks(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toCheckResponses(checks))
}

func (s *Server) createCheck(w http.ResponseWriter, r *http.Request) {
	var in registry.CheckInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	check, err := s.registry.CreateCheck(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toCheckResponse(check))
}

// getCheck принимает те же фильтры, что и listChecks: чек, не прошедший
// фильтр, для клиента не существует.
func (s *Server) getCheck(w http.ResponseWriter, r *http.Request) {
	check, err := s.registry.GetCheck(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if kind := domain.CheckKind(r.URL.Query().Get("check_type")); kind != "" {
		if !kind.Valid() {
			s.writeError(w, domain.NewValidationError("check_type"))
			return
		}
		if check.Kind != kind {
			s.writeError(w, domain.ErrCheckNotFound)
			return
		}
	}
	if status := domain.CheckStatus(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			s.writeError(w, domain.NewValidationError("status"))
			return
		}
		if check.Status != status {
			s.writeError(w, domain.ErrCheckNotFound)
			return
		}
	}
	if printerID := r.URL.Query().Get("printer"); printerID != "" && check.PrinterID != printerID {
		s.writeError(w, domain.ErrCheckNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, toCheckResponse(check))
}

// advanceCheckStatus двигает статус чека вперёд; единственное изменяемое
// через PATCH поле — status.
func (s *Server) advanceCheckStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status domain.CheckStatus `json:"status"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}

	check, err := s.registry.AdvanceCheckStatus(chi.URLParam(r, "id"), in.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toCheckResponse(check))
}

func (s *Server) deleteCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteCheck(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

// listChecksForPrint — опрос принтером готовых к печати чеков по api_key.
// Ключ передаётся в пути, ответ — rendered-чеки в порядке создания.
func (s *Server) listChecksForPrint(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	checks, err := s.registry.ListChecksForPrint(chi.URLParam(r, "apiKey"), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toCheckResponses(checks))
}

// queryInt парсит числовой query-параметр; кривое значение трактуется как дефолт.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	return value
}
