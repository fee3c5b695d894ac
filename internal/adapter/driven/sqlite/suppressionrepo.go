package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SuppressionStore = (*SuppressionRepo)(nil)

// SuppressionRepo is the SQLite implementation of the SuppressionStore port
// interface. One row per (app, device); the port carries no delete operation
// and this repo implements none.
type SuppressionRepo struct {
	db *DB
}

// NewSuppressionRepo creates a new SuppressionRepo backed by the given DB.
func NewSuppressionRepo(db *DB) *SuppressionRepo {
	return &SuppressionRepo{db: db}
}

// Get retrieves the suppression record for an (app, device) pair.
// Returns (nil, nil) if the device never suppressed the prompt.
func (r *SuppressionRepo) Get(ctx context.Context, appID, deviceID string) (*model.SuppressionRecord, error) {
	const query = `
		SELECT app_id, device_id, dismissed_version, dismissed_at
		FROM suppressions
		WHERE app_id = ? AND device_id = ?
	`

	var record model.SuppressionRecord
	var dismissedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, appID, deviceID).Scan(
		&record.AppID, &record.DeviceID, &record.DismissedVersion, &dismissedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get suppression for %s/%s: %w", appID, deviceID, err)
	}

	record.DismissedAt, err = parseTime(dismissedAt)
	if err != nil {
		return nil, fmt.Errorf("parse dismissed_at: %w", err)
	}

	return &record, nil
}

// Set inserts or replaces the suppression record for its (app, device) pair.
// A later dismissal at a new version overwrites the old one.
func (r *SuppressionRepo) Set(ctx context.Context, record model.SuppressionRecord) error {
	const query = `
		INSERT INTO suppressions (app_id, device_id, dismissed_version, dismissed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(app_id, device_id) DO UPDATE SET
			dismissed_version = excluded.dismissed_version,
			dismissed_at = excluded.dismissed_at
	`

	dismissedAt := record.DismissedAt
	if dismissedAt.IsZero() {
		dismissedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		record.AppID, record.DeviceID, record.DismissedVersion, dismissedAt,
	)
	if err != nil {
		return fmt.Errorf("set suppression for %s/%s: %w", record.AppID, record.DeviceID, err)
	}

	return nil
}
