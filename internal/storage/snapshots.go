package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// SaveSnapshot stores an analysis result. A missing ID or timestamp is filled in.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snapshot *model.AnalysisSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_snapshots (id, user_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		snapshot.ID,
		snapshot.UserID,
		string(snapshot.Kind),
		string(snapshot.Payload),
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", snapshot.Kind, err)
	}
	return nil
}

// GetLatestSnapshot returns the newest snapshot of kind for userID or common.ErrNotFound.
func (s *SQLiteStorage) GetLatestSnapshot(ctx context.Context, userID string, kind model.SnapshotKind) (*model.AnalysisSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSnapshot, kind)
	}

	var (
		snapshot model.AnalysisSnapshot
		payload  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, payload, created_at
		FROM analysis_snapshots
		WHERE user_id = ? AND kind = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, userID, string(kind)).Scan(
		&snapshot.ID,
		&snapshot.UserID,
		&snapshot.Kind,
		&payload,
		&snapshot.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s snapshot for user %s: %w", kind, userID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snapshot.Payload = []byte(payload)
	return &snapshot, nil
}
