package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aristath/strategist/internal/clients/engine"
	"github.com/aristath/strategist/internal/domain"
	"github.com/aristath/strategist/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// DefaultDetailPath locates the error message in a non-2xx engine body
const DefaultDetailPath = "$.detail"

// dateLayout is the wire format of startDate/endDate
const dateLayout = "2006-01-02"

// EngineClient sends one execution request and returns the raw response
type EngineClient interface {
	Execute(ctx context.Context, call engine.ExecuteCall) (*engine.Response, error)
}

// ExecuteRequest identifies one strategy run
type ExecuteRequest struct {
	PortfolioUID string
	UserID       string
	StrategyID   string
	StrategyCode string
	StartDate    string // YYYY-MM-DD
	EndDate      string // YYYY-MM-DD
}

// Validate checks the identifiers and the date range
func (r ExecuteRequest) Validate() error {
	if strings.TrimSpace(r.PortfolioUID) == "" {
		return errors.New("portfolio uid is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("userId is required")
	}
	if strings.TrimSpace(r.StrategyID) == "" {
		return errors.New("strategyId is required")
	}

	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return fmt.Errorf("startDate must be YYYY-MM-DD, got %q", r.StartDate)
	}
	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return fmt.Errorf("endDate must be YYYY-MM-DD, got %q", r.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("endDate %s is before startDate %s", r.EndDate, r.StartDate)
	}
	return nil
}

// Dispatcher runs a strategy against a portfolio's current holdings on the execution engine.
// It holds no per-call state and performs no writes, so one instance serves concurrent calls.
type Dispatcher struct {
	portfolios portfolio.PortfolioStore
	history    portfolio.TransactionHistoryStore
	engine     EngineClient
	detailPath string
	log        zerolog.Logger
}

// NewDispatcher creates a new dispatcher. An empty detailPath uses DefaultDetailPath.
func NewDispatcher(
	portfolios portfolio.PortfolioStore,
	history portfolio.TransactionHistoryStore,
	engineClient EngineClient,
	detailPath string,
	log zerolog.Logger,
) *Dispatcher {
	if detailPath == "" {
		detailPath = DefaultDetailPath
	}
	return &Dispatcher{
		portfolios: portfolios,
		history:    history,
		engine:     engineClient,
		detailPath: detailPath,
		log:        log.With().Str("service", "execution").Logger(),
	}
}

// Execute resolves the portfolio, aggregates its ledger, submits holdings and strategy code
// to the engine and normalizes the answer. A 2xx answer is returned as an Outcome with the
// body untouched; every failure is an *Error.
func (d *Dispatcher) Execute(ctx context.Context, req ExecuteRequest) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, newError(KindInvalidRequest, err.Error(), err)
	}

	log := d.log.With().
		Str("portfolio_uid", req.PortfolioUID).
		Str("user_id", req.UserID).
		Str("strategy_id", req.StrategyID).
		Logger()

	p, err := d.portfolios.FindByUID(ctx, req.PortfolioUID)
	if err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			return nil, newError(KindPortfolioNotFound,
				fmt.Sprintf("portfolio %s not found", req.PortfolioUID), err)
		}
		log.Error().Err(err).Msg("Failed to resolve portfolio")
		return nil, newError(KindInternal, "failed to load portfolio", err)
	}

	txs, err := d.history.FindByPortfolio(ctx, p)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load ledger")
		return nil, newError(KindInternal, "failed to load transaction history", err)
	}

	holdings, err := portfolio.Aggregate(txs)
	if err != nil {
		if errors.Is(err, portfolio.ErrInsufficientHoldings) {
			log.Warn().Err(err).Msg("Ledger sells more than it holds")
			return nil, newError(KindInsufficientHoldings, err.Error(), err)
		}
		return nil, newError(KindInternal, "failed to aggregate holdings", err)
	}

	payload := BuildPayload(p.UID, holdings, req.StrategyCode)

	resp, err := d.engine.Execute(ctx, engine.ExecuteCall{
		UserID:     req.UserID,
		StrategyID: req.StrategyID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Payload:    payload,
	})
	if err != nil {
		var transportErr *engine.TransportError
		if errors.As(err, &transportErr) {
			log.Warn().Err(err).Str("state", string(StateTransportFailed)).Msg("Engine unreachable")
			return nil, newError(KindTransportFailure, transportMessage(transportErr), err)
		}
		log.Error().Err(err).Msg("Failed to build engine request")
		return nil, newError(KindInternal, "failed to build engine request", err)
	}

	if resp.Success() {
		log.Info().
			Str("state", string(StateSucceeded)).
			Str("request_id", resp.RequestID).
			Int("assets", len(payload.Portfolio.Assets)).
			Dur("elapsed", resp.Elapsed).
			Msg("Strategy executed")

		return &Outcome{
			State:       StateSucceeded,
			Body:        resp.Body,
			ContentType: resp.Header.Get("Content-Type"),
			StatusCode:  resp.StatusCode,
			RequestID:   resp.RequestID,
			Elapsed:     resp.Elapsed,
		}, nil
	}

	execErr := d.interpretFailure(resp)
	log.Warn().
		Str("state", string(stateForKind(execErr.Kind))).
		Str("request_id", resp.RequestID).
		Int("upstream_status", resp.StatusCode).
		Str("detail", execErr.Message).
		Msg("Engine did not execute strategy")
	return nil, execErr
}

// interpretFailure turns a non-2xx response into EngineRejected, or
// MalformedEngineResponse when no string detail can be found
func (d *Dispatcher) interpretFailure(resp *engine.Response) *Error {
	detail, err := extractDetail(resp.Body, d.detailPath)
	if err != nil {
		return &Error{
			Kind:           KindMalformedEngineResponse,
			Message:        fmt.Sprintf("engine returned status %d with an unreadable error body", resp.StatusCode),
			UpstreamStatus: resp.StatusCode,
			Err:            err,
		}
	}
	return &Error{
		Kind:           KindEngineRejected,
		Message:        detail,
		UpstreamStatus: resp.StatusCode,
	}
}

// extractDetail decodes body as JSON and returns the string found at path
func extractDetail(body []byte, path string) (string, error) {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("error body is not JSON: %w", err)
	}

	value, err := jsonpath.Get(path, decoded)
	if err != nil {
		return "", fmt.Errorf("no %s in error body: %w", path, err)
	}
	// Wildcard and filter paths return their matches as a list
	if !isDefinitePath(path) {
		list, ok := value.([]interface{})
		if !ok || len(list) != 1 {
			return "", fmt.Errorf("%s must match exactly one value", path)
		}
		value = list[0]
	}

	detail, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, not a string", path, value)
	}
	return detail, nil
}

// isDefinitePath reports whether path names a single location
func isDefinitePath(path string) bool {
	return !strings.ContainsAny(path, "*?,:") && !strings.Contains(path, "..")
}

func transportMessage(err *engine.TransportError) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return "execution engine timed out"
	case errors.Is(err, context.Canceled):
		return "execution request was cancelled"
	case errors.Is(err, engine.ErrResponseTooLarge):
		return "execution engine response too large"
	}
	return fmt.Sprintf("execution engine unreachable: %v", err.Err)
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
