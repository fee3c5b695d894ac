package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

func testApp(id string) model.App {
	return model.App{
		ID:          id,
		Name:        "Example Podcasts",
		StoreURL:    "https://store.example.com/" + id,
		FeedbackURL: "https://feedback.example.com/" + id,
		AddedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestAppRepo_AddAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRepo(db)
	ctx := context.Background()

	err := repo.Add(ctx, testApp("com.example.podcasts"))
	require.NoError(t, err)

	app, err := repo.GetByID(ctx, "com.example.podcasts")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, "com.example.podcasts", app.ID)
	assert.Equal(t, "Example Podcasts", app.Name)
	assert.Equal(t, "https://store.example.com/com.example.podcasts", app.StoreURL)
	assert.Equal(t, "https://feedback.example.com/com.example.podcasts", app.FeedbackURL)
	assert.False(t, app.AddedAt.IsZero())
}

func TestAppRepo_GetByIDMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRepo(db)

	app, err := repo.GetByID(context.Background(), "com.example.unknown")
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestAppRepo_AddDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testApp("com.example.podcasts")))

	err := repo.Add(ctx, testApp("com.example.podcasts"))
	assert.ErrorIs(t, err, driven.ErrAppAlreadyExists)
}

func TestAppRepo_Remove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testApp("com.example.podcasts")))
	require.NoError(t, repo.Remove(ctx, "com.example.podcasts"))

	app, err := repo.GetByID(ctx, "com.example.podcasts")
	require.NoError(t, err)
	assert.Nil(t, app)
}

func TestAppRepo_RemoveMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRepo(db)

	err := repo.Remove(context.Background(), "com.example.unknown")
	assert.ErrorIs(t, err, driven.ErrAppNotFound)
}

func TestAppRepo_RemoveLeavesSuppressions(t *testing.T) {
	db := setupTestDB(t)
	appRepo := NewAppRepo(db)
	suppressionRepo := NewSuppressionRepo(db)
	ctx := context.Background()

	require.NoError(t, appRepo.Add(ctx, testApp("com.example.podcasts")))
	require.NoError(t, suppressionRepo.Set(ctx, model.SuppressionRecord{
		AppID:            "com.example.podcasts",
		DeviceID:         "device-1",
		DismissedVersion: "1.2.0",
	}))

	require.NoError(t, appRepo.Remove(ctx, "com.example.podcasts"))

	// The device's opt-out survives app removal.
	record, err := suppressionRepo.Get(ctx, "com.example.podcasts", "device-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "1.2.0", record.DismissedVersion)
}

func TestAppRepo_ListAllOrdered(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAppRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testApp("com.example.zeta")))
	require.NoError(t, repo.Add(ctx, testApp("com.example.alpha")))

	apps, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "com.example.alpha", apps[0].ID)
	assert.Equal(t, "com.example.zeta", apps[1].ID)
}
