package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/loanwise/platform/internal/auth"
	"github.com/loanwise/platform/internal/classifier"
	"github.com/loanwise/platform/internal/domain"
	"github.com/loanwise/platform/internal/domain/predictions"
	"github.com/loanwise/platform/internal/httpapi"
	"github.com/loanwise/platform/internal/reports"
	memstore "github.com/loanwise/platform/internal/storage/memory"
)

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	services domain.Container
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	model, err := classifier.Default()
	if err != nil {
		t.Fatalf("default model: %v", err)
	}
	userRepo := memstore.NewUserRepository()
	services := domain.New(domain.Options{
		UserRepo:       userRepo,
		PredictionRepo: memstore.NewPredictionRepository().WithUsers(userRepo),
		Classifier:     model,
		PageSize:       2,
		HashCost:       bcrypt.MinCost,
	})
	tokens, err := auth.NewIssuer(auth.IssuerConfig{Secret: []byte("test"), Issuer: "loanwise", Expiry: time.Hour})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	mux := http.NewServeMux()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpapi.Register(mux, logger, services, tokens)
	return &testAPI{t: t, handler: mux, services: services}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "correct-horse",
		"password_confirm": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token auth.Token `json:"token"`
	}
	decode(a.t, rec, &resp)
	return resp.Token.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

var eligibleForm = map[string]any{
	"marital":    "married",
	"house_O":    "owned",
	"car_O":      "yes",
	"profession": "Surgeon",
	"city":       "Pune",
	"state":      "Maharashtra",
	"current_jy": 10,
	"current_hy": "12",
	"income":     1_000_000,
	"age":        40,
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("ifeoma")

	dup := api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": "IFEOMA", "password": "correct-horse", "password_confirm": "correct-horse",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", dup.Code)
	}

	weak := api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": "new", "password": "12345678", "password_confirm": "12345678",
	})
	if weak.Code != http.StatusBadRequest {
		t.Fatalf("numeric password: %d", weak.Code)
	}

	bad := api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "ifeoma", "password": "nope"})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", bad.Code)
	}
	good := api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "ifeoma", "password": "correct-horse"})
	if good.Code != http.StatusOK {
		t.Fatalf("login: %d %s", good.Code, good.Body.String())
	}

	if rec := api.do(http.MethodGet, "/v1/home", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("home before logout: %d", rec.Code)
	}
	if rec := api.do(http.MethodPost, "/v1/auth/logout", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, "/v1/home", token, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("home after logout: %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, "/v1/home", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("home without token: %d", rec.Code)
	}
}

func TestPredictionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("musa")
	other := api.register("zainab")

	rec := api.do(http.MethodPost, "/v1/predictions", token, eligibleForm)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		PredictionID   string `json:"prediction_id"`
		Result         string `json:"result"`
		QRCode         string `json:"qr_code"`
		IncomeCategory string `json:"income_category"`
	}
	decode(t, rec, &created)
	if created.Result != "eligible" || created.PredictionID == "" || created.QRCode == "" {
		t.Fatalf("unexpected create response %+v", created)
	}
	if created.IncomeCategory != "High Income" {
		t.Fatalf("income category = %q", created.IncomeCategory)
	}

	invalid := map[string]any{"marital": "married", "current_jy": "ten"}
	if rec := api.do(http.MethodPost, "/v1/predictions", token, invalid); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid form: %d", rec.Code)
	}
	missing := map[string]any{"marital": "married", "house_O": "owned"}
	if rec := api.do(http.MethodPost, "/v1/predictions", token, missing); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d", rec.Code)
	}

	path := "/v1/predictions/" + created.PredictionID
	if rec := api.do(http.MethodGet, path, token, nil); rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, path, other, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("other user get: %d", rec.Code)
	}

	pdf := api.do(http.MethodGet, path+"/pdf", token, nil)
	if pdf.Code != http.StatusOK || pdf.Header().Get("Content-Type") != reports.ContentTypePDF {
		t.Fatalf("pdf: %d %s", pdf.Code, pdf.Header().Get("Content-Type"))
	}
	wantDisposition := `attachment; filename="loan_prediction_` + created.PredictionID + `.pdf"`
	if got := pdf.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Fatalf("disposition = %q", got)
	}

	xlsx := api.do(http.MethodGet, path+"/excel", token, nil)
	if xlsx.Code != http.StatusOK || !bytes.HasPrefix(xlsx.Body.Bytes(), []byte("PK")) {
		t.Fatalf("excel: %d", xlsx.Code)
	}

	qr := api.do(http.MethodGet, path+"/qr", token, nil)
	if qr.Code != http.StatusOK || qr.Header().Get("Content-Type") != reports.ContentTypePNG {
		t.Fatalf("qr: %d", qr.Code)
	}

	if rec := api.do(http.MethodGet, path+"/docx", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown format: %d", rec.Code)
	}
	if rec := api.do(http.MethodGet, path+"/pdf", other, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("other user pdf: %d", rec.Code)
	}
}

func TestHistoryAndDashboard(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("chidi")

	for i := 0; i < 3; i++ {
		if rec := api.do(http.MethodPost, "/v1/predictions", token, eligibleForm); rec.Code != http.StatusCreated {
			t.Fatalf("create %d: %d", i, rec.Code)
		}
	}

	rec := api.do(http.MethodGet, "/v1/predictions?page=9&city=pun", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
	var history struct {
		Items      []json.RawMessage `json:"items"`
		Pagination struct {
			Page     int  `json:"page"`
			NumPages int  `json:"num_pages"`
			HasNext  bool `json:"has_next"`
		} `json:"pagination"`
		FilteredCount int      `json:"filtered_count"`
		Cities        []string `json:"cities"`
	}
	decode(t, rec, &history)
	if history.Pagination.Page != 2 || history.Pagination.NumPages != 2 || len(history.Items) != 1 || history.Pagination.HasNext {
		t.Fatalf("unexpected pagination %+v (%d items)", history.Pagination, len(history.Items))
	}
	if history.FilteredCount != 3 || len(history.Cities) != 1 {
		t.Fatalf("unexpected history %+v", history)
	}

	rec = api.do(http.MethodGet, "/v1/dashboard", token, nil)
	var dash struct {
		Total     int   `json:"total_predictions"`
		AvgIncome int64 `json:"avg_income"`
	}
	decode(t, rec, &dash)
	if dash.Total != 3 || dash.AvgIncome != 1_000_000 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	rec = api.do(http.MethodGet, "/v1/home", token, nil)
	var home struct {
		SuccessRate int `json:"success_rate"`
	}
	decode(t, rec, &home)
	if home.SuccessRate != 100 {
		t.Fatalf("success rate = %d", home.SuccessRate)
	}
}

func TestPublicPredict(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/v1/api/predict", "", nil)
	if rec.Code != http.StatusMethodNotAllowed || !strings.Contains(rec.Body.String(), "Only POST method allowed") {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(http.MethodPost, "/v1/api/predict", "", eligibleForm)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict: %d %s", rec.Code, rec.Body.String())
	}
	var ok struct {
		Success        bool           `json:"success"`
		Result         string         `json:"result"`
		PredictionData map[string]any `json:"prediction_data"`
	}
	decode(t, rec, &ok)
	if !ok.Success || ok.Result != "eligible" || ok.PredictionData["house_O"] != "owned" {
		t.Fatalf("unexpected response %+v", ok)
	}

	rec = api.do(http.MethodPost, "/v1/api/predict", "", "{not json")
	var failed struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decode(t, rec, &failed)
	if rec.Code != http.StatusBadRequest || failed.Success || failed.Error == "" {
		t.Fatalf("bad json: %d %+v", rec.Code, failed)
	}

	castle := map[string]any{}
	for k, v := range eligibleForm {
		castle[k] = v
	}
	castle["house_O"] = "castle"
	if rec := api.do(http.MethodPost, "/v1/api/predict", "", castle); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown category: %d", rec.Code)
	}

	n, err := api.services.Predictions.Search(context.Background(), predictions.SearchQuery{})
	if err != nil || n.Total != 0 {
		t.Fatalf("public predictions must not be stored: %d, %v", n.Total, err)
	}
}

func TestAdminSearch(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("user")
	if rec := api.do(http.MethodPost, "/v1/predictions", token, eligibleForm); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	if rec := api.do(http.MethodGet, "/v1/admin/predictions", token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: %d", rec.Code)
	}

	api.register("boss")
	ctx := context.Background()
	u, err := api.services.Users.Authenticate(ctx, "boss", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := api.services.Users.Promote(ctx, u.ID); err != nil {
		t.Fatalf("promote: %v", err)
	}
	// Admin status is read from the token, so log in again.
	rec := api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "boss", "password": "correct-horse"})
	var login struct {
		Token auth.Token `json:"token"`
	}
	decode(t, rec, &login)

	rec = api.do(http.MethodGet, "/v1/admin/predictions?q=maharashtra&limit=10", login.Token.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin search: %d %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Total int `json:"total"`
	}
	decode(t, rec, &result)
	if result.Total != 1 {
		t.Fatalf("total = %d", result.Total)
	}

	// Free text also matches the owner's username.
	for q, want := range map[string]int{"USE": 1, "boss": 0} {
		rec = api.do(http.MethodGet, "/v1/admin/predictions?q="+q, login.Token.AccessToken, nil)
		var byName struct {
			Total int `json:"total"`
		}
		decode(t, rec, &byName)
		if byName.Total != want {
			t.Fatalf("q=%s: total = %d, want %d", q, byName.Total, want)
		}
	}

	rec = api.do(http.MethodGet, "/v1/admin/predictions?limit=0", login.Token.AccessToken, nil)
	var window struct {
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	}
	decode(t, rec, &window)
	if window.Offset != 0 || window.Limit != 50 {
		t.Fatalf("expected applied window 0/50, got %+v", window)
	}

	if rec := api.do(http.MethodGet, "/v1/admin/predictions?limit=-1", login.Token.AccessToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative limit: %d", rec.Code)
	}
}

func TestPublicPredictAcceptsWholeDecimals(t *testing.T) {
	api := newTestAPI(t)
	const form = `{"marital":"married","house_O":"owned","car_O":"yes","profession":"Surgeon",
		"city":"Pune","state":"Maharashtra","current_jy":10.0,"current_hy":"12","income":1e6,"age":%s}`

	rec := api.do(http.MethodPost, "/v1/api/predict", "", fmt.Sprintf(form, "40.0"))
	if rec.Code != http.StatusOK {
		t.Fatalf("whole decimal: %d %s", rec.Code, rec.Body.String())
	}
	var ok struct {
		PredictionData map[string]any `json:"prediction_data"`
	}
	decode(t, rec, &ok)
	if ok.PredictionData["age"] != float64(40) || ok.PredictionData["income"] != float64(1_000_000) {
		t.Fatalf("unexpected prediction data %+v", ok.PredictionData)
	}

	for _, age := range []string{"40.5", `"forty"`} {
		if rec := api.do(http.MethodPost, "/v1/api/predict", "", fmt.Sprintf(form, age)); rec.Code != http.StatusBadRequest {
			t.Fatalf("age %s: %d", age, rec.Code)
		}
	}
}
