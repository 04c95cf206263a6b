package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// GuardConfig tunes the Guard.
type GuardConfig struct {
	Name string
	// Timeout bounds every ledger call.
	Timeout time.Duration
	// Retries is the number of extra attempts for idempotent calls.
	Retries int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
	// FailureThreshold consecutive transient failures open the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	Logger      *slog.Logger
}

// Guard wraps a Client with a timeout, a circuit breaker and retries. Only
// RecordVote is retried; a project registration is not idempotent.
type Guard struct {
	next   Client
	cb     *gobreaker.CircuitBreaker
	cfg    GuardConfig
	logger *slog.Logger
}

// NewGuard creates a Guard around next.
func NewGuard(next Client, cfg GuardConfig) *Guard {
	if cfg.Name == "" {
		cfg.Name = "ledger"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 10 * time.Second
	}

	g := &Guard{next: next, cfg: cfg, logger: cfg.Logger}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logger != nil {
				g.logger.Warn("ledger circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
	})
	return g
}

// State returns the circuit breaker state.
func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}

// RecordProject registers a project with a single bounded attempt.
func (g *Guard) RecordProject(ctx context.Context, title string) (string, error) {
	return g.execute(ctx, func(ctx context.Context) (string, error) {
		return g.next.RecordProject(ctx, title)
	})
}

// RecordVote records a vote, retrying transient failures.
func (g *Guard) RecordVote(ctx context.Context, projectRef, voteHash, voterAddress string) (string, error) {
	var lastErr error
	delay := g.cfg.Backoff
	for attempt := 0; attempt <= g.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrUnavailable, lastErr)
			case <-time.After(delay):
			}
			delay *= 2
		}

		ref, err := g.execute(ctx, func(ctx context.Context) (string, error) {
			return g.next.RecordVote(ctx, projectRef, voteHash, voterAddress)
		})
		if err == nil || errors.Is(err, ErrRejected) {
			return ref, err
		}
		lastErr = err
		if g.logger != nil {
			g.logger.Debug("ledger vote attempt failed", "attempt", attempt+1, "vote_hash", voteHash, "error", err)
		}
	}
	return "", lastErr
}

func (g *Guard) execute(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	res, err := g.cb.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
		return fn(callCtx)
	})
	if err != nil {
		return "", classify(err)
	}
	return res.(string), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrRejected), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: timeout", ErrUnavailable)
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}
