package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/strategist/internal/modules/execution"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExecutor is a mock executor for testing
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, req execution.ExecuteRequest) (*execution.Outcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*execution.Outcome), args.Error(1)
}

const executeBody = `{"userId":"user-1","strategyCode":"run()","startDate":"2024-01-01","endDate":"2024-03-31"}`

func serve(t *testing.T, executor Executor, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	NewHandler(executor, zerolog.Nop()).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/portfolios/p-1/strategies/s-1/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleExecuteStrategy_RelaysEngineBody(t *testing.T) {
	executor := new(MockExecutor)
	executor.On("Execute", mock.Anything, execution.ExecuteRequest{
		PortfolioUID: "p-1",
		UserID:       "user-1",
		StrategyID:   "s-1",
		StrategyCode: "run()",
		StartDate:    "2024-01-01",
		EndDate:      "2024-03-31",
	}).Return(&execution.Outcome{
		State:       execution.StateSucceeded,
		Body:        []byte(`{"result":42}`),
		ContentType: "application/json; charset=utf-8",
		RequestID:   "req-9",
	}, nil)

	rec := serve(t, executor, executeBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"result":42}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-9", rec.Header().Get("X-Engine-Request-ID"))
	assert.Empty(t, rec.Header().Get(OutcomeHeader))
	executor.AssertExpectations(t)
}

func TestHandleExecuteStrategy_EveryFailureUsesFixedStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    string
		message string
	}{
		{
			name:    "rejected",
			err:     &execution.Error{Kind: execution.KindEngineRejected, Message: "Invalid strategy code", UpstreamStatus: 422},
			kind:    "rejected",
			message: "Invalid strategy code",
		},
		{
			name:    "transport",
			err:     &execution.Error{Kind: execution.KindTransportFailure, Message: "execution engine timed out"},
			kind:    "transport_failed",
			message: "execution engine timed out",
		},
		{
			name:    "malformed",
			err:     &execution.Error{Kind: execution.KindMalformedEngineResponse, Message: "engine returned status 502 with an unreadable error body", UpstreamStatus: 502},
			kind:    "malformed_response",
			message: "engine returned status 502 with an unreadable error body",
		},
		{
			name:    "portfolio not found",
			err:     &execution.Error{Kind: execution.KindPortfolioNotFound, Message: "portfolio p-1 not found"},
			kind:    "portfolio_not_found",
			message: "portfolio p-1 not found",
		},
		{
			name:    "insufficient holdings",
			err:     &execution.Error{Kind: execution.KindInsufficientHoldings, Message: "insufficient holdings for STOCK:AAPL"},
			kind:    "insufficient_holdings",
			message: "insufficient holdings for STOCK:AAPL",
		},
		{
			name:    "unexpected error type",
			err:     errors.New("secret internals"),
			kind:    "internal",
			message: "strategy execution failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := new(MockExecutor)
			executor.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(t, executor, executeBody)

			assert.Equal(t, FailureStatus, rec.Code)
			assert.Equal(t, tt.kind, rec.Header().Get(OutcomeHeader))
			assert.JSONEq(t, `{"detail":"`+tt.message+`"}`, rec.Body.String())
		})
	}
}

func TestHandleExecuteStrategy_MalformedBody(t *testing.T) {
	executor := new(MockExecutor)

	rec := serve(t, executor, `{"userId":`)

	assert.Equal(t, FailureStatus, rec.Code)
	assert.Equal(t, "invalid_request", rec.Header().Get(OutcomeHeader))
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewRouter()
	require.NotPanics(t, func() {
		NewHandler(new(MockExecutor), zerolog.Nop()).RegisterRoutes(router)
	})

	req := httptest.NewRequest(http.MethodGet, "/portfolios/p-1/strategies/s-1/execute", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
