package models

import "time"

// CircuitState is the persisted scoring circuit breaker record.
type CircuitState struct {
	DisabledUntil *time.Time `json:"disabled_until,omitempty"`
	Reason        string     `json:"reason"`
}

// ScoringRun records an audit trail of each pipeline invocation.
type ScoringRun struct {
	ID                 string     `json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	ArticlesConsidered int        `json:"articles_considered"`
	ArticlesScored     int        `json:"articles_scored"`
	UnitsScored        int        `json:"units_scored"`
	FallbackUnits      int        `json:"fallback_units"`
	Batches            int        `json:"batches"`
	CircuitOpen        bool       `json:"circuit_open"`
	Bullish            int        `json:"bullish"`
	Bearish            int        `json:"bearish"`
	ModelUsed          string     `json:"model_used"`
	Error              string     `json:"error,omitempty"`
}
