package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/model"
)

func TestValidateContext(t *testing.T) {
	require.NoError(t, validateContext(context.Background()))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, validateContext(canceled), "canceled context is still a context")

	//nolint:staticcheck // nil context is the case under test
	require.ErrorIs(t, validateContext(nil), ErrNilContext)
}

func TestValidateString(t *testing.T) {
	require.NoError(t, validateString("alice", "userID"))

	err := validateString(" \t", "userID")
	require.ErrorIs(t, err, ErrEmptyString)
	assert.Contains(t, err.Error(), "userID")
}

func TestValidateSnapshot(t *testing.T) {
	payload := json.RawMessage(`[]`)

	tests := []struct {
		snapshot *model.AnalysisSnapshot
		wantErr  error
		name     string
	}{
		{name: "valid", snapshot: &model.AnalysisSnapshot{UserID: "alice", Kind: model.SnapshotIncome, Payload: payload}},
		{name: "nil", wantErr: ErrNilParameter},
		{name: "missing user", snapshot: &model.AnalysisSnapshot{Kind: model.SnapshotIncome, Payload: payload}, wantErr: ErrEmptyString},
		{name: "unknown kind", snapshot: &model.AnalysisSnapshot{UserID: "alice", Kind: "weather", Payload: payload}, wantErr: ErrInvalidSnapshot},
		{name: "empty payload", snapshot: &model.AnalysisSnapshot{UserID: "alice", Kind: model.SnapshotHealth}, wantErr: ErrInvalidSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSnapshot(tt.snapshot)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	require.NoError(t, validateDateRange(nil, nil))
	require.NoError(t, validateDateRange(&start, nil))
	require.NoError(t, validateDateRange(&start, &start))
	require.NoError(t, validateDateRange(&start, &end))
	require.ErrorIs(t, validateDateRange(&end, &start), ErrInvalidDateRange)
}
