package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/strategist/internal/clients/engine"
	"github.com/aristath/strategist/internal/domain"
	testingpkg "github.com/aristath/strategist/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEngineClient is a mock engine client for testing
type MockEngineClient struct {
	mock.Mock
}

func (m *MockEngineClient) Execute(ctx context.Context, call engine.ExecuteCall) (*engine.Response, error) {
	args := m.Called(ctx, call)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Response), args.Error(1)
}

func validRequest() ExecuteRequest {
	return ExecuteRequest{
		PortfolioUID: "p-1",
		UserID:       "user-1",
		StrategyID:   "s-1",
		StrategyCode: "def run(ctx): return 42",
		StartDate:    "2024-01-01",
		EndDate:      "2024-12-31",
	}
}

func seededStores() (*testingpkg.MockPortfolioStore, *testingpkg.MockTransactionStore) {
	portfolios := testingpkg.NewMockPortfolioStore(testingpkg.NewPortfolioFixture("p-1"))
	history := testingpkg.NewMockTransactionStore()
	history.SetLedger("p-1", testingpkg.NewLedgerFixture("p-1"))
	return portfolios, history
}

func engineResponse(status int, body string) *engine.Response {
	return &engine.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
		RequestID:  "req-1",
	}
}

func requireExecError(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var execErr *Error
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, kind, execErr.Kind, "unexpected kind, error: %v", err)
	return execErr
}

func TestDispatcher_SuccessReturnsBodyUnchanged(t *testing.T) {
	portfolios, history := seededStores()
	engineClient := new(MockEngineClient)
	engineClient.On("Execute", mock.Anything, mock.MatchedBy(func(call engine.ExecuteCall) bool {
		payload, ok := call.Payload.(Payload)
		return ok &&
			call.UserID == "user-1" &&
			call.StrategyID == "s-1" &&
			call.StartDate == "2024-01-01" &&
			call.EndDate == "2024-12-31" &&
			payload.Portfolio.UID == "p-1" &&
			len(payload.Portfolio.Assets) == 3 &&
			payload.StrategyCode == "def run(ctx): return 42"
	})).Return(engineResponse(http.StatusOK, `{"result":42}`), nil)

	d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
	outcome, err := d.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Equal(t, `{"result":42}`, string(outcome.Body))
	assert.Equal(t, "application/json", outcome.ContentType)
	engineClient.AssertExpectations(t)
}

func TestDispatcher_RejectedUsesDetailVerbatim(t *testing.T) {
	portfolios, history := seededStores()
	engineClient := new(MockEngineClient)
	engineClient.On("Execute", mock.Anything, mock.Anything).
		Return(engineResponse(http.StatusBadRequest, `{"detail":"Invalid strategy code"}`), nil)

	d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
	outcome, err := d.Execute(context.Background(), validRequest())

	assert.Nil(t, outcome)
	execErr := requireExecError(t, err, KindEngineRejected)
	assert.Equal(t, "Invalid strategy code", execErr.Message)
	assert.Equal(t, http.StatusBadRequest, execErr.UpstreamStatus)
	assert.ErrorIs(t, err, ErrEngineRejected)
}

func TestDispatcher_MalformedFailureBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>Bad Gateway</html>`},
		{"empty", ``},
		{"no detail", `{"error":"boom"}`},
		{"detail not a string", `{"detail":[{"loc":["body"],"msg":"field required"}]}`},
		{"array body", `["detail"]`},
		{"detail is a list of strings", `{"detail":["first","second"]}`},
		{"detail is a single-element list", `{"detail":["only"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portfolios, history := seededStores()
			engineClient := new(MockEngineClient)
			engineClient.On("Execute", mock.Anything, mock.Anything).
				Return(engineResponse(http.StatusBadGateway, tt.body), nil)

			d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
			_, err := d.Execute(context.Background(), validRequest())

			execErr := requireExecError(t, err, KindMalformedEngineResponse)
			assert.Equal(t, http.StatusBadGateway, execErr.UpstreamStatus)
			assert.ErrorIs(t, err, ErrMalformedEngineResponse)
		})
	}
}

func TestDispatcher_CustomDetailPath(t *testing.T) {
	portfolios, history := seededStores()
	engineClient := new(MockEngineClient)
	engineClient.On("Execute", mock.Anything, mock.Anything).
		Return(engineResponse(http.StatusUnprocessableEntity, `{"error":{"message":"Unknown indicator"}}`), nil)

	d := NewDispatcher(portfolios, history, engineClient, "$.error.message", zerolog.Nop())
	_, err := d.Execute(context.Background(), validRequest())

	execErr := requireExecError(t, err, KindEngineRejected)
	assert.Equal(t, "Unknown indicator", execErr.Message)
}

func TestDispatcher_WildcardDetailPath(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		kind    Kind
		message string
	}{
		{"single match", `{"errors":[{"message":"Unknown indicator"}]}`, KindEngineRejected, "Unknown indicator"},
		{"several matches", `{"errors":[{"message":"a"},{"message":"b"}]}`, KindMalformedEngineResponse, ""},
		{"no match", `{"errors":[]}`, KindMalformedEngineResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portfolios, history := seededStores()
			engineClient := new(MockEngineClient)
			engineClient.On("Execute", mock.Anything, mock.Anything).
				Return(engineResponse(http.StatusBadRequest, tt.body), nil)

			d := NewDispatcher(portfolios, history, engineClient, "$.errors[*].message", zerolog.Nop())
			_, err := d.Execute(context.Background(), validRequest())

			execErr := requireExecError(t, err, tt.kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, execErr.Message)
			}
		})
	}
}

func TestDispatcher_OversizedResponseIsTransportFailure(t *testing.T) {
	portfolios, history := seededStores()
	engineClient := new(MockEngineClient)
	engineClient.On("Execute", mock.Anything, mock.Anything).
		Return(nil, &engine.TransportError{Op: "read response", URL: "http://engine", Err: engine.ErrResponseTooLarge})

	d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
	outcome, err := d.Execute(context.Background(), validRequest())

	assert.Nil(t, outcome)
	execErr := requireExecError(t, err, KindTransportFailure)
	assert.Equal(t, "execution engine response too large", execErr.Message)
}

func TestDispatcher_TransportFailure(t *testing.T) {
	portfolios, history := seededStores()
	engineClient := new(MockEngineClient)
	engineClient.On("Execute", mock.Anything, mock.Anything).
		Return(nil, &engine.TransportError{Op: "POST", URL: "http://engine", Err: errors.New("connection refused")})

	d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
	_, err := d.Execute(context.Background(), validRequest())

	execErr := requireExecError(t, err, KindTransportFailure)
	assert.Contains(t, execErr.Message, "connection refused")
	assert.ErrorIs(t, err, ErrTransportFailure)
}

func TestDispatcher_PortfolioNotFound(t *testing.T) {
	_, history := seededStores()
	engineClient := new(MockEngineClient)

	d := NewDispatcher(testingpkg.NewMockPortfolioStore(), history, engineClient, "", zerolog.Nop())
	req := validRequest()
	req.PortfolioUID = "ghost"
	_, err := d.Execute(context.Background(), req)

	requireExecError(t, err, KindPortfolioNotFound)
	assert.ErrorIs(t, err, ErrPortfolioNotFound)
	assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)
	engineClient.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestDispatcher_InsufficientHoldingsNeverReachesEngine(t *testing.T) {
	portfolios, history := seededStores()
	history.SetLedger("p-1", []domain.Transaction{
		testingpkg.NewTransactionFixture("t1", "p-1", domain.Stock("AAPL"), domain.OperationBuy, "2", "10", 0),
		testingpkg.NewTransactionFixture("t2", "p-1", domain.Stock("AAPL"), domain.OperationSell, "5", "12", 1),
	})
	engineClient := new(MockEngineClient)

	d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
	_, err := d.Execute(context.Background(), validRequest())

	requireExecError(t, err, KindInsufficientHoldings)
	engineClient.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestDispatcher_StoreFailureIsInternal(t *testing.T) {
	portfolios, history := seededStores()
	history.SetError(errors.New("database is locked"))
	engineClient := new(MockEngineClient)

	d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
	_, err := d.Execute(context.Background(), validRequest())

	execErr := requireExecError(t, err, KindInternal)
	assert.NotContains(t, execErr.Message, "locked")
}

func TestDispatcher_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExecuteRequest)
	}{
		{"missing user", func(r *ExecuteRequest) { r.UserID = "" }},
		{"missing strategy", func(r *ExecuteRequest) { r.StrategyID = " " }},
		{"missing portfolio", func(r *ExecuteRequest) { r.PortfolioUID = "" }},
		{"bad start date", func(r *ExecuteRequest) { r.StartDate = "01/01/2024" }},
		{"missing end date", func(r *ExecuteRequest) { r.EndDate = "" }},
		{"inverted range", func(r *ExecuteRequest) { r.StartDate, r.EndDate = "2024-12-31", "2024-01-01" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portfolios, history := seededStores()
			engineClient := new(MockEngineClient)

			req := validRequest()
			tt.mutate(&req)
			d := NewDispatcher(portfolios, history, engineClient, "", zerolog.Nop())
			_, err := d.Execute(context.Background(), req)

			requireExecError(t, err, KindInvalidRequest)
			assert.Equal(t, 0, portfolios.Calls())
		})
	}
}

func TestDispatcher_SameDayRangeIsValid(t *testing.T) {
	req := validRequest()
	req.EndDate = req.StartDate
	assert.NoError(t, req.Validate())
}

// The remaining tests run the dispatcher against a real engine client

func TestDispatcher_WithEngineServer(t *testing.T) {
	var received Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &received)

		if r.URL.Path == "/users/user-1/strategies/broken/execute" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Invalid strategy code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":42}`))
	}))
	defer server.Close()

	portfolios, history := seededStores()
	client := engine.NewClient(server.URL, time.Second, zerolog.Nop())
	d := NewDispatcher(portfolios, history, client, "", zerolog.Nop())

	outcome, err := d.Execute(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"result":42}`, string(outcome.Body))

	require.Len(t, received.Portfolio.Assets, 3)
	assert.Equal(t, "BTC", received.Portfolio.Assets[0].Symbol)
	assert.True(t, received.Portfolio.Assets[0].AverageCost.Equal(mustDecimal("110")))
	assert.True(t, received.Portfolio.Assets[0].RealizedGain.Equal(mustDecimal("40")))

	req := validRequest()
	req.StrategyID = "broken"
	_, err = d.Execute(context.Background(), req)
	execErr := requireExecError(t, err, KindEngineRejected)
	assert.Equal(t, "Invalid strategy code", execErr.Message)
}

func TestDispatcher_ConnectionRefusedIsTransportFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	portfolios, history := seededStores()
	client := engine.NewClient("http://"+addr, time.Second, zerolog.Nop())
	d := NewDispatcher(portfolios, history, client, "", zerolog.Nop())

	_, err = d.Execute(context.Background(), validRequest())
	requireExecError(t, err, KindTransportFailure)
	assert.NotErrorIs(t, err, ErrMalformedEngineResponse)
}

func TestDispatcher_EngineTimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	portfolios, history := seededStores()
	client := engine.NewClient(server.URL, 50*time.Millisecond, zerolog.Nop())
	d := NewDispatcher(portfolios, history, client, "", zerolog.Nop())

	_, err := d.Execute(context.Background(), validRequest())
	execErr := requireExecError(t, err, KindTransportFailure)
	assert.Equal(t, "execution engine timed out", execErr.Message)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindEngineRejected, KindOf(fmtWrap(&Error{Kind: KindEngineRejected})))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	for _, s := range []State{StateSucceeded, StateRejected, StateTransportFailed, StateMalformedResponse} {
		assert.True(t, s.Terminal(), s)
	}
	assert.Equal(t, StateRejected, stateForKind(KindEngineRejected))
	assert.Equal(t, StatePending, stateForKind(KindPortfolioNotFound))
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fmtWrap(err error) error {
	return fmt.Errorf("dispatch: %w", err)
}
