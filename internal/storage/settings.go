package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// CircuitKey is the settings key holding the scoring circuit breaker state.
const CircuitKey = "scoring_circuit"

// ErrNotFound is returned when a setting does not exist.
var ErrNotFound = errors.New("not found")

// GetSetting retrieves a setting by key and JSON-unmarshals it into dest.
// Returns ErrNotFound if the key does not exist.
func (s *Store) GetSetting(ctx context.Context, key string, dest any) error {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("getting setting %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("unmarshaling setting %q: %w", key, err)
	}
	return nil
}

// SetSetting JSON-marshals value and stores it under key, overwriting any
// previous value.
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling setting %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at)
		 VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// ReadCircuit returns the persisted circuit state. A missing record is a
// closed circuit.
func (s *Store) ReadCircuit(ctx context.Context) (models.CircuitState, error) {
	var state models.CircuitState
	if err := s.GetSetting(ctx, CircuitKey, &state); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.CircuitState{}, nil
		}
		return models.CircuitState{}, err
	}
	return state, nil
}

// WriteCircuit persists the circuit state.
func (s *Store) WriteCircuit(ctx context.Context, state models.CircuitState) error {
	return s.SetSetting(ctx, CircuitKey, state)
}
