package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fintrackhq/fintrack-bff-go/internal/domain"
	"github.com/fintrackhq/fintrack-bff-go/internal/handler"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/cache"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/memstore"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/observability"
	"github.com/fintrackhq/fintrack-bff-go/internal/infra/resilience"
	"github.com/fintrackhq/fintrack-bff-go/internal/insight"
	"github.com/fintrackhq/fintrack-bff-go/internal/report"
	"github.com/fintrackhq/fintrack-bff-go/internal/service"
)

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) Generate(context.Context, string) (*domain.Generation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &domain.Generation{Text: g.text}, nil
}

// newTestServer wires the whole stack over the in-memory store.
func newTestServer(t *testing.T, gen *stubGenerator) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memstore.New()

	insightCache := cache.New[[]string](time.Minute)
	t.Cleanup(insightCache.Close)

	insights := insight.NewRequestor(
		gen, insightCache, resilience.NewBulkhead(4), metrics,
		logger, time.Second, 3,
	)
	txSvc := service.NewTransactionService(store, insights, logger)
	reportSvc := service.NewReportService(store, report.NewEngine(logger), insights, logger)
	authSvc := service.NewAuthService(store, []byte("test-secret"), 15*time.Minute, logger)

	router := handler.NewRouter(txSvc, reportSvc, authSvc, insights, store, metrics, logger)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

// signUp registers a user and returns an access token.
func signUp(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/auth/signup", "", domain.SignUpRequest{
		Email: email, Password: "hunter22!!", Name: "Test User",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("sign-up failed: %d %s", resp.StatusCode, body)
	}
	var auth domain.AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return auth.AccessToken
}

func TestAuthFlow(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- tip"})

	token := signUp(t, server, "flow@test.co")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me failed: %d %s", resp.StatusCode, body)
	}
	var user domain.User
	json.Unmarshal(body, &user)
	if user.Email != "flow@test.co" {
		t.Errorf("unexpected user: %+v", user)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/v1/auth/signout", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("sign-out failed: %d", resp.StatusCode)
	}

	// The token still parses, but the provider session is gone.
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after sign-out, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- tip"})

	for _, route := range []string{
		"/v1/transactions",
		"/v1/reports/summary",
		"/v1/dashboard",
		"/v1/insights",
	} {
		resp, _ := doJSON(t, http.MethodGet, server.URL+route, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without token, got %d", route, resp.StatusCode)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- tip"})
	token := signUp(t, server, "tx@test.co")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/transactions", token, domain.CreateTransactionRequest{
		Kind: domain.KindIncome, Amount: 1234.56, Description: "salary", Category: "work",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d %s", resp.StatusCode, body)
	}
	var created domain.Transaction
	json.Unmarshal(body, &created)
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/transactions", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list failed: %d", resp.StatusCode)
	}
	var list struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	json.Unmarshal(body, &list)
	if len(list.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(list.Transactions))
	}

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/v1/transactions/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/v1/transactions/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for repeat delete, got %d", resp.StatusCode)
	}
}

func TestCreateTransaction_ValidationMapsTo400(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- tip"})
	token := signUp(t, server, "val@test.co")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/transactions", token, domain.CreateTransactionRequest{
		Kind: "transfer", Amount: 10, Description: "nope",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "kind") {
		t.Errorf("expected field name in error, got %s", body)
	}
}

func TestReportsEndpoints(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- tip"})
	token := signUp(t, server, "reports@test.co")

	doJSON(t, http.MethodPost, server.URL+"/v1/transactions", token, domain.CreateTransactionRequest{
		Kind: domain.KindIncome, Amount: 1000, Description: "salary",
	})
	doJSON(t, http.MethodPost, server.URL+"/v1/transactions", token, domain.CreateTransactionRequest{
		Kind: domain.KindExpense, Amount: 250, Description: "rent",
	})

	resp, body := doJSON(t, http.MethodGet, server.URL+"/v1/reports/summary", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary failed: %d", resp.StatusCode)
	}
	var summary domain.SummaryReport
	json.Unmarshal(body, &summary)
	if summary.Balance != 750 || summary.Count != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	now := time.Now().UTC()
	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/reports/daily?month="+now.Format("2006-01"), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("daily failed: %d", resp.StatusCode)
	}
	var daily domain.SeriesReport
	json.Unmarshal(body, &daily)
	wantDays := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if len(daily.Buckets) != wantDays {
		t.Errorf("expected %d day buckets, got %d", wantDays, len(daily.Buckets))
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/v1/reports/daily?month=July", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed month, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/v1/reports/monthly", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("monthly failed: %d", resp.StatusCode)
	}
	var monthly domain.SeriesReport
	json.Unmarshal(body, &monthly)
	if len(monthly.Buckets) != 1 {
		t.Errorf("expected 1 month bucket, got %d", len(monthly.Buckets))
	}
}

func TestDashboardEndpoint(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- plan your budget"})
	token := signUp(t, server, "dash@test.co")

	doJSON(t, http.MethodPost, server.URL+"/v1/transactions", token, domain.CreateTransactionRequest{
		Kind: domain.KindIncome, Amount: 500, Description: "salary",
	})

	resp, body := doJSON(t, http.MethodGet, server.URL+"/v1/dashboard", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard failed: %d %s", resp.StatusCode, body)
	}
	var dash domain.Dashboard
	json.Unmarshal(body, &dash)
	if dash.Summary == nil || dash.Daily == nil {
		t.Fatalf("incomplete dashboard: %s", body)
	}
	if len(dash.Suggestions) == 0 {
		t.Error("expected suggestions on the dashboard")
	}
}

func TestInsightsEndpoint_FallbackOnGeneratorFailure(t *testing.T) {
	server := newTestServer(t, &stubGenerator{err: errors.New("llm down")})
	token := signUp(t, server, "ins@test.co")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/v1/insights", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("insights must degrade gracefully, got %d", resp.StatusCode)
	}
	var insights domain.InsightsResponse
	json.Unmarshal(body, &insights)
	if !insights.Fallback || len(insights.Suggestions) == 0 {
		t.Errorf("expected fallback suggestions, got %+v", insights)
	}
}

func TestChatEndpoint(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "Spend less than you earn."})
	token := signUp(t, server, "chat@test.co")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/chat", token, domain.ChatRequest{Message: "how do I save?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat failed: %d", resp.StatusCode)
	}
	var chat domain.ChatResponse
	json.Unmarshal(body, &chat)
	if chat.Reply == "" || chat.Fallback {
		t.Errorf("unexpected chat response: %+v", chat)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/v1/chat", token, domain.ChatRequest{Message: "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty message, got %d", resp.StatusCode)
	}
}

func TestCategoryEndpoint(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "Transportation"})
	token := signUp(t, server, "cat@test.co")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/v1/categories/recommend", token, domain.CategoryRequest{Description: "uber ride"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("category failed: %d", resp.StatusCode)
	}
	var cat domain.CategoryResponse
	json.Unmarshal(body, &cat)
	if cat.Category != "Transportation" {
		t.Errorf("unexpected category: %+v", cat)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- tip"})

	for _, route := range []string{"/healthz", "/readyz", "/metrics", "/ping"} {
		resp, err := http.Get(server.URL + route)
		if err != nil {
			t.Fatalf("%s: %v", route, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", route, resp.StatusCode)
		}
	}
}

func TestInsightMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, &stubGenerator{text: "- tip"})
	token := signUp(t, server, "metrics@test.co")

	doJSON(t, http.MethodGet, server.URL+"/v1/insights", token, nil)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/v1/metrics/insights", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics snapshot failed: %d", resp.StatusCode)
	}
	var snapshot domain.InsightMetrics
	json.Unmarshal(body, &snapshot)
	if snapshot.TotalRequests < 1 {
		t.Errorf("expected at least one recorded insight request, got %+v", snapshot)
	}
}
