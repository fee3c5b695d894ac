package driven

import (
	"context"
	"errors"

	"github.com/jmthornton/rategate/internal/domain/model"
)

// Sentinel errors returned by AppStore implementations.
var (
	// ErrAppNotFound indicates the requested application is not registered.
	ErrAppNotFound = errors.New("application not found")

	// ErrAppAlreadyExists indicates an application with the same ID is already registered.
	ErrAppAlreadyExists = errors.New("application already exists")
)

// AppStore defines the driven port for registered application persistence.
// Add returns ErrAppAlreadyExists if the application is already registered.
// Remove returns ErrAppNotFound if the application does not exist.
type AppStore interface {
	Add(ctx context.Context, app model.App) error
	Remove(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.App, error)
	ListAll(ctx context.Context) ([]model.App, error)
}
