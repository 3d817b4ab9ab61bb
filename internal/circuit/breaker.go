// Package circuit implements the persisted scoring circuit breaker. Once
// tripped, the breaker stays open until the next daily reset boundary, even
// across process restarts, because its state lives in the injected store.
package circuit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// StateStore persists the single CircuitState record.
type StateStore interface {
	ReadCircuit(ctx context.Context) (models.CircuitState, error)
	WriteCircuit(ctx context.Context, state models.CircuitState) error
}

// Breaker decides whether the external scorer may be called.
type Breaker struct {
	store     StateStore
	resetHour int
	now       func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a Breaker that reopens at resetHourUTC each day.
func New(store StateStore, resetHourUTC int, opts ...Option) *Breaker {
	b := &Breaker{
		store:     store,
		resetHour: resetHourUTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsOpen reports whether scoring is currently disabled. The state is re-read
// on every call so that a trip written by another run is honored.
func (b *Breaker) IsOpen(ctx context.Context) (bool, error) {
	state, err := b.store.ReadCircuit(ctx)
	if err != nil {
		return false, fmt.Errorf("reading circuit state: %w", err)
	}
	return Open(state, b.now()), nil
}

// State returns the persisted state.
func (b *Breaker) State(ctx context.Context) (models.CircuitState, error) {
	state, err := b.store.ReadCircuit(ctx)
	if err != nil {
		return models.CircuitState{}, fmt.Errorf("reading circuit state: %w", err)
	}
	return state, nil
}

// Trip disables scoring until the next reset boundary strictly after now.
func (b *Breaker) Trip(ctx context.Context, reason string) (time.Time, error) {
	until := NextBoundary(b.now(), b.resetHour)
	state := models.CircuitState{DisabledUntil: &until, Reason: reason}
	if err := b.store.WriteCircuit(ctx, state); err != nil {
		return time.Time{}, fmt.Errorf("writing circuit state: %w", err)
	}
	slog.Warn("scoring circuit tripped", "until", until.Format(time.RFC3339), "reason", reason)
	return until, nil
}

// Reset clears the breaker immediately.
func (b *Breaker) Reset(ctx context.Context) error {
	if err := b.store.WriteCircuit(ctx, models.CircuitState{Reason: "manual reset"}); err != nil {
		return fmt.Errorf("writing circuit state: %w", err)
	}
	slog.Info("scoring circuit reset")
	return nil
}

// Open reports whether state disables scoring at instant now: true strictly
// before DisabledUntil, false at or after it.
func Open(state models.CircuitState, now time.Time) bool {
	return state.DisabledUntil != nil && now.Before(*state.DisabledUntil)
}

// NextBoundary returns the first instant at hourUTC:00 UTC strictly after now.
func NextBoundary(now time.Time, hourUTC int) time.Time {
	now = now.UTC()
	boundary := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !boundary.After(now) {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary
}
