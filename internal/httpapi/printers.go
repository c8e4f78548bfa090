package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/service/registry"
)

// listPrinters поддерживает фильтры ?check_type= и ?merchant_point=.
// Неизвестное значение check_type — 400, а не пустой список.
func (s *Server) listPrinters(w http.ResponseWriter, r *http.Request) {
	filter := domain.PrinterFilter{
		MerchantPointID: r.URL.Query().Get("merchant_point"),
		Kind:            domain.CheckKind(r.URL.Query().Get("check_type")),
	}

	printers, err := s.registry.ListPrinters(filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := make([]printerResponse, 0, len(printers))
	for _, printer := range printers {
		result = append(result, toPrinterResponse(printer))
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) createPrinter(w http.ResponseWriter, r *http.Request) {
	var in registry.PrinterInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	printer, err := s.registry.CreatePrinter(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPrinterResponse(printer))
}

func (s *Server) getPrinter(w http.ResponseWriter, r *http.Request) {
	printer, err := s.registry.GetPrinter(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPrinterResponse(printer))
}

func (s *Server) updatePrinter(w http.ResponseWriter, r *http.Request) {
	var in registry.PrinterInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	printer, err := s.registry.UpdatePrinter(chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPrinterResponse(printer))
}

func (s *Server) deletePrinter(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeletePrinter(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}
