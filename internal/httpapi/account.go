package httpapi

import (
	"net/http"

	"log/slog"

	"github.com/loanwise/platform/internal/auth"
	"github.com/loanwise/platform/internal/domain/predictions"
)

func registerAccountRoutes(mux *http.ServeMux, logger *slog.Logger, service predictions.Service, tokens *auth.Issuer) {
	mux.Handle("/v1/home", tokens.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		principal, _ := auth.FromContext(r.Context())

		summary, err := service.Summary(r.Context(), principal.UserID)
		if err != nil {
			logger.Error("home summary failed", "err", err, "user_id", principal.UserID)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"username":           principal.Username,
			"recent_predictions": toPredictionResponses(summary.Recent),
			"total_predictions":  summary.Total,
			"eligible_count":     summary.Eligible,
			"not_eligible_count": summary.NotEligible,
			"success_rate":       summary.SuccessRate,
		})
	})))

	mux.Handle("/v1/dashboard", tokens.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		principal, _ := auth.FromContext(r.Context())

		d, err := service.Dashboard(r.Context(), principal.UserID)
		if err != nil {
			logger.Error("dashboard failed", "err", err, "user_id", principal.UserID)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"total_predictions":  d.Total,
			"eligible_count":     d.Eligible,
			"not_eligible_count": d.NotEligible,
			"avg_income":         d.AverageIncome,
			"max_income":         d.MaxIncome,
			"min_income":         d.MinIncome,
			"recent_predictions": toPredictionResponses(d.Recent),
		})
	})))
}
