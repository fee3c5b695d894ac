package driven

import (
	"context"

	"github.com/jmthornton/rategate/internal/domain/model"
)

// RuleStore defines the driven port for per-app gate threshold persistence.
type RuleStore interface {
	// GetRules returns the stored thresholds for the given app.
	// Returns (nil, nil) when no rules have been configured — callers treat
	// that as "no thresholds" and every condition is vacuously satisfied.
	GetRules(ctx context.Context, appID string) (*model.RuleSet, error)

	// SetRules inserts or replaces the thresholds for the given app.
	SetRules(ctx context.Context, appID string, rules model.RuleSet) error
}
