package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// errorResponse — единый формат тела ошибки.
type errorResponse struct {
	Error            string                `json:"error"`
	Field            string                `json:"field,omitempty"`
	ProtectedObjects []domain.ProtectedRef `json:"protected_objects,omitempty"`
}

// writeJSON сериализует тело ответа; ошибки кодирования уже не исправить,
// только залогировать.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// writeError переводит доменную ошибку в HTTP-статус.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Field: ve.Field})
		return
	}

	if pe, ok := domain.IsProtected(err); ok {
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), ProtectedObjects: pe.Refs})
		return
	}

	switch {
	case domain.IsNotFound(err):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrCheckStatusRegression),
		errors.Is(err, domain.ErrCheckStatusInvalid),
		errors.Is(err, domain.ErrArtifactStateMismatch):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "status"})
	case errors.Is(err, domain.ErrDuplicateCheck):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		s.logger.WithError(err).Error("request failed")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON читает тело запроса; кривой JSON — это 400 без поля.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed json body"})
		return false
	}
	return true
}
