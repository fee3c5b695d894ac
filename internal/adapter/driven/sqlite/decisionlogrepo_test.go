package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmthornton/rategate/internal/domain/model"
)

func TestDecisionLogRepo_RecordAndListByApp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDecisionLogRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	decisions := []model.UserDecision{model.DecisionEndorse, model.DecisionDeflect, model.DecisionSuppress}
	for i, d := range decisions {
		err := repo.Record(ctx, model.DecisionRecord{
			AppID:      "com.example.podcasts",
			DeviceID:   "device-1",
			SessionID:  "session-" + string(d),
			Decision:   d,
			AppVersion: "1.2.0",
			DecidedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := repo.ListByApp(ctx, "com.example.podcasts", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, model.DecisionSuppress, records[0].Decision)
	assert.Equal(t, model.DecisionDeflect, records[1].Decision)
	assert.Equal(t, model.DecisionEndorse, records[2].Decision)
	assert.Equal(t, "1.2.0", records[0].AppVersion)
	assert.Equal(t, "device-1", records[0].DeviceID)
}

func TestDecisionLogRepo_ListByAppHonorsLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDecisionLogRepo(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, model.DecisionRecord{
			AppID:      "com.example.podcasts",
			DeviceID:   "device-1",
			SessionID:  "session",
			Decision:   model.DecisionEndorse,
			AppVersion: "1.0.0",
		}))
	}

	records, err := repo.ListByApp(ctx, "com.example.podcasts", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDecisionLogRepo_ListByAppEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDecisionLogRepo(db)

	records, err := repo.ListByApp(context.Background(), "com.example.unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecisionLogRepo_ScopedToApp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDecisionLogRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, model.DecisionRecord{
		AppID: "com.example.podcasts", DeviceID: "device-1",
		SessionID: "s1", Decision: model.DecisionEndorse, AppVersion: "1.0.0",
	}))
	require.NoError(t, repo.Record(ctx, model.DecisionRecord{
		AppID: "com.example.weather", DeviceID: "device-1",
		SessionID: "s2", Decision: model.DecisionDeflect, AppVersion: "2.0.0",
	}))

	records, err := repo.ListByApp(ctx, "com.example.podcasts", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "s1", records[0].SessionID)
}
