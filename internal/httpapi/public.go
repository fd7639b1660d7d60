package httpapi

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/loanwise/platform/internal/domain/predictions"
)

// registerPublicRoutes exposes the unauthenticated scoring endpoint. Nothing
// submitted here is stored.
func registerPublicRoutes(mux *http.ServeMux, logger *slog.Logger, service predictions.Service) {
	mux.HandleFunc("/v1/api/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Only POST method allowed")
			return
		}

		var payload applicantRequest
		if err := decodeJSON(r, &payload); err != nil {
			respondPublicError(w, http.StatusBadRequest, err.Error())
			return
		}
		applicant, err := payload.toApplicant()
		if err != nil {
			respondPublicError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, applicant, err := service.Evaluate(r.Context(), applicant)
		if err != nil {
			if errors.Is(err, predictions.ErrInvalidInput) {
				respondPublicError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("public prediction failed", "err", err)
			respondPublicError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"result":          result,
			"prediction_data": applicant,
		})
	})
}

func respondPublicError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
