package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AppStore = (*AppRepo)(nil)

// AppRepo is the SQLite implementation of the AppStore port interface.
type AppRepo struct {
	db *DB
}

// NewAppRepo creates a new AppRepo backed by the given DB.
func NewAppRepo(db *DB) *AppRepo {
	return &AppRepo{db: db}
}

// Add registers a new application. Returns ErrAppAlreadyExists if an
// application with the same ID is already registered.
func (r *AppRepo) Add(ctx context.Context, app model.App) error {
	const query = `INSERT INTO apps (id, name, store_url, feedback_url, added_at) VALUES (?, ?, ?, ?, ?)`

	addedAt := app.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query, app.ID, app.Name, app.StoreURL, app.FeedbackURL, addedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("add app %s: %w", app.ID, driven.ErrAppAlreadyExists)
		}
		return fmt.Errorf("add app %s: %w", app.ID, err)
	}

	return nil
}

// Remove deletes an application by ID. Returns ErrAppNotFound if the
// application does not exist. Per-app rules are removed by foreign key
// cascade; suppression records are intentionally left untouched.
func (r *AppRepo) Remove(ctx context.Context, id string) error {
	const query = `DELETE FROM apps WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove app %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove app %s: %w", id, driven.ErrAppNotFound)
	}

	return nil
}

// GetByID retrieves an application by ID. Returns (nil, nil) if the
// application is not registered.
func (r *AppRepo) GetByID(ctx context.Context, id string) (*model.App, error) {
	const query = `SELECT id, name, store_url, feedback_url, added_at FROM apps WHERE id = ?`

	app, err := scanApp(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get app %s: %w", id, err)
	}

	return app, nil
}

// ListAll returns all registered applications ordered by ID.
func (r *AppRepo) ListAll(ctx context.Context) ([]model.App, error) {
	const query = `SELECT id, name, store_url, feedback_url, added_at FROM apps ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	var apps []model.App
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		apps = append(apps, *app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apps: %w", err)
	}

	return apps, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanApp(s scanner) (*model.App, error) {
	var app model.App
	var addedAt string

	err := s.Scan(&app.ID, &app.Name, &app.StoreURL, &app.FeedbackURL, &addedAt)
	if err != nil {
		return nil, err
	}

	app.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &app, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
