package httpapi

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/loanwise/platform/internal/auth"
	"github.com/loanwise/platform/internal/domain/predictions"
)

func registerAdminRoutes(mux *http.ServeMux, logger *slog.Logger, service predictions.Service, tokens *auth.Issuer) {
	mux.Handle("/v1/admin/predictions", tokens.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		query := r.URL.Query()
		var offset, limit int
		if v := query.Get("offset"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				respondError(w, http.StatusBadRequest, "invalid offset parameter")
				return
			}
			offset = parsed
		}
		if v := query.Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				respondError(w, http.StatusBadRequest, "invalid limit parameter")
				return
			}
			limit = parsed
		}

		result, err := service.Search(r.Context(), predictions.SearchQuery{
			Query:      query.Get("q"),
			Result:     query.Get("result"),
			Profession: query.Get("profession"),
			Offset:     offset,
			Limit:      limit,
		})
		if err != nil {
			logger.Error("admin search failed", "err", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"items":  toPredictionResponses(result.Items),
			"total":  result.Total,
			"offset": result.Offset,
			"limit":  result.Limit,
		})
	})))
}
