package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RuleStore = (*RuleRepo)(nil)

// RuleRepo is the SQLite implementation of the RuleStore port interface.
// Nullable columns map onto the RuleSet's nil-able pointer fields.
type RuleRepo struct {
	db *DB
}

// NewRuleRepo creates a new RuleRepo backed by the given DB.
func NewRuleRepo(db *DB) *RuleRepo {
	return &RuleRepo{db: db}
}

// GetRules retrieves the gate thresholds for an app. Returns (nil, nil) if no
// rules have been configured — callers treat that as "no thresholds".
func (r *RuleRepo) GetRules(ctx context.Context, appID string) (*model.RuleSet, error) {
	const query = `
		SELECT min_launch_count, min_install_age_days
		FROM app_rules
		WHERE app_id = ?
	`

	var launchCount, installAgeDays sql.NullInt64

	err := r.db.Reader.QueryRowContext(ctx, query, appID).Scan(&launchCount, &installAgeDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rules for %s: %w", appID, err)
	}

	var rules model.RuleSet
	if launchCount.Valid {
		v := int(launchCount.Int64)
		rules.MinLaunchCount = &v
	}
	if installAgeDays.Valid {
		v := int(installAgeDays.Int64)
		rules.MinInstallAgeDays = &v
	}

	return &rules, nil
}

// SetRules inserts or updates the gate thresholds for an app. On conflict
// both threshold columns are replaced, so setting a nil field clears it.
func (r *RuleRepo) SetRules(ctx context.Context, appID string, rules model.RuleSet) error {
	const query = `
		INSERT INTO app_rules (app_id, min_launch_count, min_install_age_days)
		VALUES (?, ?, ?)
		ON CONFLICT(app_id) DO UPDATE SET
			min_launch_count = excluded.min_launch_count,
			min_install_age_days = excluded.min_install_age_days
	`

	var launchCount, installAgeDays any
	if rules.MinLaunchCount != nil {
		launchCount = *rules.MinLaunchCount
	}
	if rules.MinInstallAgeDays != nil {
		installAgeDays = *rules.MinInstallAgeDays
	}

	_, err := r.db.Writer.ExecContext(ctx, query, appID, launchCount, installAgeDays)
	if err != nil {
		return fmt.Errorf("set rules for %s: %w", appID, err)
	}

	return nil
}
