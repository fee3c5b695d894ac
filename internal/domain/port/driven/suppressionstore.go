package driven

import (
	"context"

	"github.com/jmthornton/rategate/internal/domain/model"
)

// SuppressionStore defines the driven port for suppression record persistence.
// The store is write-once-per-dismissal, read-once-per-evaluation; there is
// deliberately no delete operation — suppression has no expiry or reset.
type SuppressionStore interface {
	// Get retrieves the suppression record for the given app and device.
	// Returns (nil, nil) if the device never suppressed the prompt.
	Get(ctx context.Context, appID, deviceID string) (*model.SuppressionRecord, error)

	// Set inserts or replaces the suppression record for its (app, device) pair.
	Set(ctx context.Context, record model.SuppressionRecord) error
}
