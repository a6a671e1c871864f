package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// ErrorResponse は全エンドポイント共通のエラー形式。
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Warn("JSON エンコードに失敗", zap.Error(err))
	}
}

// WriteMessage writes {"error": message} with status.
func WriteMessage(logger *zap.Logger, w http.ResponseWriter, status int, message string) {
	WriteJSON(logger, w, status, ErrorResponse{Error: message})
}

// WriteError maps service errors onto HTTP statuses. Unknown errors are logged and
// reported as 500 without leaking their text.
func WriteError(logger *zap.Logger, w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		WriteJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: validation.Message, Field: validation.Field})
	case errors.Is(err, domain.ErrForbidden):
		WriteMessage(logger, w, http.StatusForbidden, "action non autorisée")
	case errors.Is(err, domain.ErrNotFound):
		WriteMessage(logger, w, http.StatusNotFound, "ressource introuvable")
	case errors.Is(err, domain.ErrConflict):
		WriteMessage(logger, w, http.StatusConflict, "la ressource a été modifiée entre-temps, veuillez réessayer")
	default:
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		WriteMessage(logger, w, http.StatusInternalServerError, "erreur interne")
	}
}
