package model

import (
	"encoding/json"
	"time"
)

// SnapshotKind names the analysis result stored in a snapshot.
type SnapshotKind string

const (
	// SnapshotPatterns holds a []RecurringPattern.
	SnapshotPatterns SnapshotKind = "patterns"
	// SnapshotIncome holds a []IncomeEvent.
	SnapshotIncome SnapshotKind = "income"
	// SnapshotHealth holds a HealthResult.
	SnapshotHealth SnapshotKind = "health"
)

// Valid reports whether k is a known snapshot kind.
func (k SnapshotKind) Valid() bool {
	switch k {
	case SnapshotPatterns, SnapshotIncome, SnapshotHealth:
		return true
	default:
		return false
	}
}

// AnalysisSnapshot is a persisted copy of one analysis result for a user.
type AnalysisSnapshot struct {
	CreatedAt time.Time       `json:"created_at"`
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Kind      SnapshotKind    `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// NewSnapshot marshals value into a snapshot of the given kind.
func NewSnapshot(userID string, kind SnapshotKind, value any) (*AnalysisSnapshot, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &AnalysisSnapshot{
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
	}, nil
}

// Decode unmarshals the snapshot payload into v.
func (s *AnalysisSnapshot) Decode(v any) error {
	return json.Unmarshal(s.Payload, v)
}
