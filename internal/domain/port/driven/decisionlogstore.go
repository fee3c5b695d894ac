package driven

import (
	"context"

	"github.com/jmthornton/rategate/internal/domain/model"
)

// DecisionLogStore defines the driven port for the local decision audit log.
type DecisionLogStore interface {
	// Record appends one decision row.
	Record(ctx context.Context, record model.DecisionRecord) error

	// ListByApp returns the most recent decisions for an app, newest first,
	// capped at limit.
	ListByApp(ctx context.Context, appID string, limit int) ([]model.DecisionRecord, error)
}
