package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmthornton/rategate/internal/application"
	"github.com/jmthornton/rategate/internal/domain/model"
)

// memDecisionLog is an in-memory DecisionLogStore for handler tests.
type memDecisionLog struct {
	records   []model.DecisionRecord
	recordErr error
}

func (m *memDecisionLog) Record(_ context.Context, record model.DecisionRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memDecisionLog) ListByApp(_ context.Context, appID string, limit int) ([]model.DecisionRecord, error) {
	var out []model.DecisionRecord
	for _, r := range m.records {
		if r.AppID == appID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func auditSession() model.PromptSession {
	return model.PromptSession{
		ID:       "session-1",
		AppID:    "com.example.podcasts",
		DeviceID: "device-1",
		State:    model.SessionShown,
		Facts:    model.RuntimeFacts{AppVersion: "1.2.0"},
	}
}

func TestAuditHandler_RecordsEachOutcome(t *testing.T) {
	log := &memDecisionLog{}
	handler := application.NewAuditHandler(log)
	ctx := context.Background()

	handler.OnEndorse(ctx, auditSession())
	handler.OnDeflect(ctx, auditSession())
	handler.OnSuppress(ctx, auditSession())

	require.Len(t, log.records, 3)
	assert.Equal(t, model.DecisionEndorse, log.records[0].Decision)
	assert.Equal(t, model.DecisionDeflect, log.records[1].Decision)
	assert.Equal(t, model.DecisionSuppress, log.records[2].Decision)

	for _, r := range log.records {
		assert.Equal(t, "com.example.podcasts", r.AppID)
		assert.Equal(t, "device-1", r.DeviceID)
		assert.Equal(t, "session-1", r.SessionID)
		assert.Equal(t, "1.2.0", r.AppVersion)
		assert.False(t, r.DecidedAt.IsZero())
	}
}

func TestAuditHandler_UsesPinnedConfigVersion(t *testing.T) {
	log := &memDecisionLog{}
	handler := application.NewAuditHandler(log)

	session := auditSession()
	session.Config.AppVersion = "2.0.0"

	handler.OnSuppress(context.Background(), session)

	require.Len(t, log.records, 1)
	assert.Equal(t, "2.0.0", log.records[0].AppVersion)
}

func TestAuditHandler_WriteFailureSwallowed(t *testing.T) {
	log := &memDecisionLog{recordErr: errors.New("disk gone")}
	handler := application.NewAuditHandler(log)

	// Must not panic or surface the error anywhere.
	handler.OnEndorse(context.Background(), auditSession())
	assert.Empty(t, log.records)
}
