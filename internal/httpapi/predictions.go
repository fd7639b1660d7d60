package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/loanwise/platform/internal/auth"
	"github.com/loanwise/platform/internal/domain/predictions"
	"github.com/loanwise/platform/internal/reports"
)

const timestampLayout = "2006-01-02 15:04:05"

type predictionResponse struct {
	predictions.Prediction
	IncomeCategory string `json:"income_category"`
	AgeCategory    string `json:"age_category"`
	QRCode         string `json:"qr_code,omitempty"`
	Timestamp      string `json:"generated_at"`
}

func toPredictionResponse(p predictions.Prediction) predictionResponse {
	return predictionResponse{
		Prediction:     p,
		IncomeCategory: p.IncomeCategory(),
		AgeCategory:    p.AgeCategory(),
		Timestamp:      p.CreatedAt.Format(timestampLayout),
	}
}

func toPredictionResponses(list []predictions.Prediction) []predictionResponse {
	out := make([]predictionResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPredictionResponse(p))
	}
	return out
}

func registerPredictionRoutes(mux *http.ServeMux, logger *slog.Logger, service predictions.Service, tokens *auth.Issuer) {
	mux.Handle("/v1/predictions", tokens.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlePredictionHistory(w, r, logger, service)
		case http.MethodPost:
			handlePredictionCreate(w, r, logger, service)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/v1/predictions/{id}", tokens.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p, ok := loadPrediction(w, r, logger, service)
		if !ok {
			return
		}
		respondJSON(w, http.StatusOK, toPredictionResponse(p))
	})))

	mux.Handle("/v1/predictions/{id}/{format}", tokens.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		format := r.PathValue("format")
		if format != "pdf" && format != "excel" && format != "qr" {
			respondError(w, http.StatusNotFound, "unknown report format")
			return
		}
		p, ok := loadPrediction(w, r, logger, service)
		if !ok {
			return
		}
		handleReport(w, logger, p, format)
	})))
}

func handlePredictionCreate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service predictions.Service) {
	principal, _ := auth.FromContext(r.Context())

	var payload applicantRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	applicant, err := payload.toApplicant()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := service.Predict(r.Context(), principal.UserID, applicant)
	if err != nil {
		if errors.Is(err, predictions.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("create prediction failed", "err", err, "user_id", principal.UserID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := toPredictionResponse(p)
	qr, err := reports.QRCodeBase64(predictions.QRPayload(p))
	if err != nil {
		// The prediction is stored; the QR code can be fetched later.
		logger.Warn("qr code generation failed", "err", err, "prediction_id", p.PredictionID)
	}
	resp.QRCode = qr

	logger.Info("prediction_created", "prediction_id", p.PredictionID, "user_id", p.UserID, "result", p.Result)
	respondJSON(w, http.StatusCreated, resp)
}

func handlePredictionHistory(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service predictions.Service) {
	principal, _ := auth.FromContext(r.Context())
	query := r.URL.Query()

	page, err := service.History(r.Context(), principal.UserID, predictions.HistoryQuery{
		Result:     query.Get("result"),
		Profession: query.Get("profession"),
		City:       query.Get("city"),
		Page:       query.Get("page"),
	})
	if err != nil {
		if errors.Is(err, predictions.ErrNotImplemented) {
			respondError(w, http.StatusNotImplemented, "prediction history not yet implemented")
			return
		}
		logger.Error("prediction history failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items": toPredictionResponses(page.Items),
		"pagination": map[string]any{
			"page":         page.Page,
			"page_size":    page.PageSize,
			"num_pages":    page.NumPages,
			"has_next":     page.HasNext,
			"has_previous": page.HasPrevious,
		},
		"total_count":        page.TotalCount,
		"eligible_count":     page.EligibleCount,
		"not_eligible_count": page.NotEligibleCount,
		"filtered_count":     page.FilteredCount,
		"professions":        page.Professions,
		"cities":             page.Cities,
		"current_filters":    page.Filters,
	})
}

func loadPrediction(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service predictions.Service) (predictions.Prediction, bool) {
	principal, _ := auth.FromContext(r.Context())
	p, err := service.Get(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, predictions.ErrNotFound):
			respondError(w, http.StatusNotFound, "prediction not found")
		case errors.Is(err, predictions.ErrNotImplemented):
			respondError(w, http.StatusNotImplemented, "get prediction not yet implemented")
		default:
			logger.Error("get prediction failed", "err", err)
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return predictions.Prediction{}, false
	}
	return p, true
}

func handleReport(w http.ResponseWriter, logger *slog.Logger, p predictions.Prediction, format string) {
	var (
		buf         bytes.Buffer
		contentType string
		filename    string
		err         error
	)
	switch format {
	case "pdf":
		contentType, filename = reports.ContentTypePDF, reports.PDFFilename(p.PredictionID)
		err = reports.PDF(&buf, reports.FromPrediction(p))
	case "excel":
		contentType, filename = reports.ContentTypeExcel, reports.ExcelFilename(p.PredictionID)
		err = reports.Excel(&buf, reports.FromPrediction(p))
	case "qr":
		contentType = reports.ContentTypePNG
		var png []byte
		png, err = reports.QRCode(predictions.QRPayload(p))
		buf.Write(png)
	}
	if err != nil {
		logger.Error("render report failed", "err", err, "format", format, "prediction_id", p.PredictionID)
		respondError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("write report failed", "err", err)
	}
}
