package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smart-budget-planner/internal/auth"
	"smart-budget-planner/internal/events"
	"smart-budget-planner/internal/forecast"
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"
	"smart-budget-planner/internal/regression"
	"smart-budget-planner/internal/store"
	"smart-budget-planner/internal/transactions"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "secret-token"

type fixture struct {
	server    *Server
	store     *store.MockStore
	publisher *events.RecordingPublisher
	logger    *logging.MockLogger
}

func newFixture(t *testing.T, cfg Config, opts ...forecast.Option) *fixture {
	t.Helper()
	logger := logging.NewMockLogger()
	st := store.NewMockStore()
	pub := &events.RecordingPublisher{}
	seed := int64(1)

	base := []forecast.Option{
		forecast.WithClock(func() time.Time { return time.Date(2024, 10, 6, 12, 0, 0, 0, time.UTC) }),
		forecast.WithModelFactory(forecast.NewForestModelFactory(regression.Config{Trees: 20, Seed: &seed}, logger)),
	}
	orch := forecast.NewOrchestrator(store.History{Store: st}, logger, append(base, opts...)...)
	svc := transactions.NewService(st, pub, logger)
	resolver := auth.NewStaticResolver(map[string]string{token: "user-1"})

	return &fixture{
		server:    NewServer(cfg, resolver, orch, svc, logger),
		store:     st,
		publisher: pub,
		logger:    logger,
	}
}

func (f *fixture) do(method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) seed(t *testing.T, id string, ts time.Time, amount int64) {
	t.Helper()
	require.NoError(t, f.store.Insert(context.Background(), models.Transaction{
		ID: id, UserID: "user-1", Amount: decimal.NewFromInt(amount), Timestamp: ts,
	}))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

const forecastBody = `{"budget": 1200, "current_month_transactions": [{"Date": "2024-10-05", "Amount": 300}]}`

func TestForecast_EndToEnd(t *testing.T) {
	f := newFixture(t, Config{})
	f.seed(t, "h1", time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC), 1000)

	rr := f.do(http.MethodPost, "/forecast", forecastBody, true)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`{"budget_status":"Under Budget","budget_difference":"900","model_accuracy_r_squared":1}`,
		rr.Body.String())
}

func TestForecast_OverBudget(t *testing.T) {
	f := newFixture(t, Config{})
	f.seed(t, "h1", time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC), 1000)

	rr := f.do(http.MethodPost, "/forecast",
		`{"budget": 100, "current_month_transactions": [{"Date": "2024-10-05", "Amount": 300}]}`, true)

	require.Equal(t, http.StatusOK, rr.Code)
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "Over Budget", res["budget_status"])
	assert.Equal(t, "200", res["budget_difference"])
}

func TestForecast_FractionalAmounts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"headroom",
			`{"budget": 2000, "current_month_transactions": [{"Date": "2024-10-05", "Amount": 300.10}]}`,
			`{"budget_status":"Under Budget","budget_difference":"1699.9","model_accuracy_r_squared":1}`,
		},
		{
			"budget equals projection",
			`{"budget": 300.10, "current_month_transactions": [{"Date": "2024-10-05", "Amount": 300.10}]}`,
			`{"budget_status":"Under Budget","budget_difference":"0","model_accuracy_r_squared":1}`,
		},
		{
			"sub-cent total",
			`{"budget": 1, "current_month_transactions": [{"Date": "2024-10-05", "Amount": 0.1}, {"Date": "2024-10-06", "Amount": 0.2}]}`,
			`{"budget_status":"Under Budget","budget_difference":"0.7","model_accuracy_r_squared":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			rr := f.do(http.MethodPost, "/forecast", tt.body, true)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.JSONEq(t, tt.want, rr.Body.String())
		})
	}
}

func TestForecast_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		authorized bool
		wantStatus int
		wantKind   forecasterror.Kind
	}{
		{"missing credential", forecastBody, false, http.StatusUnauthorized, forecasterror.Unauthorized},
		{"invalid json", `{"budget":`, true, http.StatusBadRequest, forecasterror.MalformedInput},
		{"missing budget", `{"current_month_transactions": [{"Date": "2024-10-05", "Amount": 1}]}`, true, http.StatusBadRequest, forecasterror.MalformedInput},
		{"missing entries", `{"budget": 10}`, true, http.StatusBadRequest, forecasterror.MalformedInput},
		{"empty entries", `{"budget": 10, "current_month_transactions": []}`, true, http.StatusBadRequest, forecasterror.MalformedInput},
		{"bad date", `{"budget": 10, "current_month_transactions": [{"Date": "05/10/2024", "Amount": 1}]}`, true, http.StatusBadRequest, forecasterror.MalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			rr := f.do(http.MethodPost, "/forecast", tt.body, tt.authorized)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantKind, decodeError(t, rr).Kind)
		})
	}
}

func TestForecast_UnknownCredentialSkipsStore(t *testing.T) {
	f := newFixture(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/forecast", strings.NewReader(forecastBody))
	req.Header.Set("Authorization", "Bearer nope")
	rr := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, f.store.ListCalls)
}

func TestForecast_InsufficientData(t *testing.T) {
	// Current-month entries always reach the series, so the model is stubbed.
	f := newFixture(t, Config{}, forecast.WithModelFactory(func() forecast.Model {
		return noDataModel{}
	}))

	rr := f.do(http.MethodPost, "/forecast", forecastBody, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, forecasterror.InsufficientData, decodeError(t, rr).Kind)
}

type noDataModel struct{}

func (noDataModel) FitAndProject(models.TrainingSeries, int) (forecast.Projection, error) {
	return forecast.Projection{}, forecasterror.NoData("fit")
}

func TestForecast_Timeout(t *testing.T) {
	f := newFixture(t, Config{}, forecast.WithTimeout(20*time.Millisecond))
	f.store.ListDelay = time.Second

	rr := f.do(http.MethodPost, "/forecast", forecastBody, true)
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, forecasterror.Timeout, decodeError(t, rr).Kind)
}

func TestForecast_StorageFailureHidesCause(t *testing.T) {
	f := newFixture(t, Config{})
	f.store.ListError = errors.New("dial tcp 10.0.0.5:5432: connection refused")

	rr := f.do(http.MethodPost, "/forecast", forecastBody, true)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, forecasterror.Storage, body.Kind)
	assert.NotContains(t, body.Error, "10.0.0.5")
	assert.True(t, f.logger.HasEntry("ERROR", "Request failed"))
}

func TestTransactions_CreateAndList(t *testing.T) {
	f := newFixture(t, Config{})

	rr := f.do(http.MethodPost, "/transactions", `{"amount": 42.5, "description": "groceries", "type": "expense"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created createTransactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Transaction created successfully", created.Message)
	assert.NotEmpty(t, created.Transaction.ID)
	assert.Equal(t, "user-1", created.Transaction.UserID)
	assert.True(t, decimal.RequireFromString("42.5").Equal(created.Transaction.Amount))
	require.Len(t, f.publisher.Events(), 1)
	assert.Equal(t, created.Transaction.ID, f.publisher.Events()[0].ID)

	day := created.Transaction.Timestamp.Format("2006-01-02")
	rr = f.do(http.MethodGet, "/transactions?from="+day+"&to="+day, "", true)
	require.Equal(t, http.StatusOK, rr.Code)

	var listed transactionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed.Transactions, 1)
	assert.Equal(t, created.Transaction.ID, listed.Transactions[0].ID)
}

func TestTransactions_ListEmptyIsArray(t *testing.T) {
	f := newFixture(t, Config{})
	rr := f.do(http.MethodGet, "/transactions?from=2024-01-01&to=2024-01-31", "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"transactions":[]}`, rr.Body.String())
}

func TestTransactions_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		authorized bool
		wantStatus int
	}{
		{"list without credential", http.MethodGet, "/transactions?from=2024-01-01&to=2024-01-31", "", false, http.StatusUnauthorized},
		{"list without range", http.MethodGet, "/transactions", "", true, http.StatusBadRequest},
		{"list with bad date", http.MethodGet, "/transactions?from=2024-13-01&to=2024-01-31", "", true, http.StatusBadRequest},
		{"create without credential", http.MethodPost, "/transactions", `{"amount": 1}`, false, http.StatusUnauthorized},
		{"create without amount", http.MethodPost, "/transactions", `{"description": "x"}`, true, http.StatusBadRequest},
		{"create with invalid json", http.MethodPost, "/transactions", `[`, true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			rr := f.do(tt.method, tt.target, tt.body, tt.authorized)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestTransactions_CreateStorageFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.store.InsertError = errors.New("disk full")

	rr := f.do(http.MethodPost, "/transactions", `{"amount": 1}`, true)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, f.publisher.Events())
}

func TestHealthAndRouting(t *testing.T) {
	f := newFixture(t, Config{})

	rr := f.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = f.do(http.MethodGet, "/forecast", "", true)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = f.do(http.MethodGet, "/nope", "", true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, Config{})

	rr := f.do(http.MethodGet, "/healthz", "", false)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))

	v, ok := f.logger.FieldValue("HTTP request completed", logging.FieldRequestID)
	require.True(t, ok)
	assert.NotEmpty(t, v)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Config{RequestsPerSecond: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", false).Code)
	}
	rr := f.do(http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	l := newClientLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	now = now.Add(time.Hour)
	assert.True(t, l.allow("b"))
	assert.Len(t, l.clients, 1)
}

type panicForecaster struct{}

func (panicForecaster) Run(context.Context, string, models.ForecastRequest) (models.ForecastResult, error) {
	panic("boom")
}

func TestRecoverFromPanic(t *testing.T) {
	logger := logging.NewMockLogger()
	srv := NewServer(Config{}, auth.NewStaticResolver(map[string]string{token: "u"}), panicForecaster{}, nil, logger)

	req := httptest.NewRequest(http.MethodPost, "/forecast", strings.NewReader(forecastBody))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, logger.HasEntry("ERROR", "Handler panicked"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(forecasterror.MalformedInput))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(forecasterror.Unauthorized))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(forecasterror.InsufficientData))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(forecasterror.Timeout))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(forecasterror.Storage))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(forecasterror.Internal))
}

func TestServer_GracefulShutdown(t *testing.T) {
	f := newFixture(t, Config{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.ServeOn(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
