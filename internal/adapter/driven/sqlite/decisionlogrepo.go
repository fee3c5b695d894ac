package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DecisionLogStore = (*DecisionLogRepo)(nil)

// DecisionLogRepo is the SQLite implementation of the DecisionLogStore port
// interface. The log is append-only.
type DecisionLogRepo struct {
	db *DB
}

// NewDecisionLogRepo creates a new DecisionLogRepo backed by the given DB.
func NewDecisionLogRepo(db *DB) *DecisionLogRepo {
	return &DecisionLogRepo{db: db}
}

// Record appends one decision row.
func (r *DecisionLogRepo) Record(ctx context.Context, record model.DecisionRecord) error {
	const query = `
		INSERT INTO decision_log (app_id, device_id, session_id, decision, app_version, decided_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	decidedAt := record.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		record.AppID, record.DeviceID, record.SessionID,
		string(record.Decision), record.AppVersion, decidedAt,
	)
	if err != nil {
		return fmt.Errorf("record decision for %s/%s: %w", record.AppID, record.DeviceID, err)
	}

	return nil
}

// ListByApp returns the most recent decisions for an app, newest first.
func (r *DecisionLogRepo) ListByApp(ctx context.Context, appID string, limit int) ([]model.DecisionRecord, error) {
	const query = `
		SELECT id, app_id, device_id, session_id, decision, app_version, decided_at
		FROM decision_log
		WHERE app_id = ?
		ORDER BY decided_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, appID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions for %s: %w", appID, err)
	}
	defer rows.Close()

	var records []model.DecisionRecord
	for rows.Next() {
		var record model.DecisionRecord
		var decision, decidedAt string

		if err := rows.Scan(
			&record.ID, &record.AppID, &record.DeviceID, &record.SessionID,
			&decision, &record.AppVersion, &decidedAt,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}

		record.Decision = model.UserDecision(decision)
		record.DecidedAt, err = parseTime(decidedAt)
		if err != nil {
			return nil, fmt.Errorf("parse decided_at: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	return records, nil
}
