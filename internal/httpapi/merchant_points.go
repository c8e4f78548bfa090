package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/checks/internal/service/registry"
)

func (s *Server) listMerchantPoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.registry.ListMerchantPoints()
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := make([]merchantPointResponse, 0, len(points))
	for _, point := range points {
		result = append(result, toMerchantPointResponse(point))
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) createMerchantPoint(w http.ResponseWriter, r *http.Request) {
	var in registry.MerchantPointInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	point, err := s.registry.CreateMerchantPoint(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toMerchantPointResponse(point))
}

func (s *Server) getMerchantPoint(w http.ResponseWriter, r *http.Request) {
	point, err := s.registry.GetMerchantPoint(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMerchantPointResponse(point))
}

func (s *Server) updateMerchantPoint(w http.ResponseWriter, r *http.Request) {
	var in registry.MerchantPointInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	point, err := s.registry.UpdateMerchantPoint(chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMerchantPointResponse(point))
}

func (s *Server) deleteMerchantPoint(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteMerchantPoint(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}
