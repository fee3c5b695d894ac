package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmthornton/rategate/internal/application"
	"github.com/jmthornton/rategate/internal/domain/model"
)

func intPtr(v int) *int { return &v }

// factsFor returns RuntimeFacts for a device on the given version, installed
// the given number of days ago.
func factsFor(version string, launches, installAgeDays int) model.RuntimeFacts {
	return model.RuntimeFacts{
		AppVersion:  version,
		LaunchCount: launches,
		InstalledAt: time.Now().Add(-time.Duration(installAgeDays) * 24 * time.Hour),
	}
}

func TestEvaluate_NoThresholdsNoRecord(t *testing.T) {
	result := application.Evaluate(model.PromptConfig{}, nil, factsFor("1.0.0", 0, 0))

	assert.True(t, result.Eligible)
	assert.Empty(t, result.BlockedBy)
}

func TestEvaluate_LaunchCountThreshold(t *testing.T) {
	cfg := model.PromptConfig{Rules: model.RuleSet{MinLaunchCount: intPtr(5)}}

	t.Run("3 launches with threshold 5 -> blocked", func(t *testing.T) {
		result := application.Evaluate(cfg, nil, factsFor("1.0.0", 3, 0))
		assert.False(t, result.Eligible)
		assert.Contains(t, result.BlockedBy, model.BlockedByLaunchCount)
	})

	t.Run("exactly 5 launches with threshold 5 -> eligible (>= comparison)", func(t *testing.T) {
		result := application.Evaluate(cfg, nil, factsFor("1.0.0", 5, 0))
		assert.True(t, result.Eligible)
	})
}

func TestEvaluate_InstallAgeThreshold(t *testing.T) {
	cfg := model.PromptConfig{Rules: model.RuleSet{MinInstallAgeDays: intPtr(7)}}

	t.Run("installed 3 days ago with threshold 7 -> blocked", func(t *testing.T) {
		result := application.Evaluate(cfg, nil, factsFor("1.0.0", 0, 3))
		assert.False(t, result.Eligible)
		assert.Contains(t, result.BlockedBy, model.BlockedByInstallAge)
	})

	t.Run("installed 8 days ago with threshold 7 -> eligible", func(t *testing.T) {
		result := application.Evaluate(cfg, nil, factsFor("1.0.0", 0, 8))
		assert.True(t, result.Eligible)
	})

	t.Run("zero install time counts as day 0", func(t *testing.T) {
		facts := model.RuntimeFacts{AppVersion: "1.0.0"}
		result := application.Evaluate(cfg, nil, facts)
		assert.False(t, result.Eligible)
	})
}

func TestEvaluate_SuppressionByExactVersion(t *testing.T) {
	record := &model.SuppressionRecord{DismissedVersion: "1.2.0"}

	t.Run("same version -> blocked", func(t *testing.T) {
		result := application.Evaluate(model.PromptConfig{}, record, factsFor("1.2.0", 10, 30))
		assert.False(t, result.Eligible)
		assert.Equal(t, []model.BlockReason{model.BlockedBySuppression}, result.BlockedBy)
	})

	t.Run("newer version -> eligible again", func(t *testing.T) {
		result := application.Evaluate(model.PromptConfig{}, record, factsFor("1.3.0", 10, 30))
		assert.True(t, result.Eligible)
	})

	t.Run("comparison is literal, not semver", func(t *testing.T) {
		// "1.2" is a different string than "1.2.0" and must not match.
		result := application.Evaluate(model.PromptConfig{}, record, factsFor("1.2", 10, 30))
		assert.True(t, result.Eligible)
	})
}

func TestEvaluate_SuppressionIndependentOfThresholds(t *testing.T) {
	cfg := model.PromptConfig{Rules: model.RuleSet{MinLaunchCount: intPtr(5)}}
	record := &model.SuppressionRecord{DismissedVersion: "1.2.0"}

	// All thresholds satisfied, still blocked by suppression.
	result := application.Evaluate(cfg, record, factsFor("1.2.0", 100, 365))
	assert.False(t, result.Eligible)
	assert.Equal(t, []model.BlockReason{model.BlockedBySuppression}, result.BlockedBy)
}

func TestEvaluate_ReportsAllFailedConditions(t *testing.T) {
	cfg := model.PromptConfig{Rules: model.RuleSet{
		MinLaunchCount:    intPtr(5),
		MinInstallAgeDays: intPtr(7),
	}}
	record := &model.SuppressionRecord{DismissedVersion: "1.0.0"}

	result := application.Evaluate(cfg, record, factsFor("1.0.0", 1, 1))
	assert.False(t, result.Eligible)
	assert.ElementsMatch(t, []model.BlockReason{
		model.BlockedByLaunchCount,
		model.BlockedByInstallAge,
		model.BlockedBySuppression,
	}, result.BlockedBy)
}

func TestEvaluate_ConfigVersionPinWinsOverFacts(t *testing.T) {
	cfg := model.PromptConfig{AppVersion: "2.0.0"}
	record := &model.SuppressionRecord{DismissedVersion: "2.0.0"}

	// The device reports 1.0.0 but the config pins 2.0.0, which is suppressed.
	result := application.Evaluate(cfg, record, factsFor("1.0.0", 0, 0))
	assert.False(t, result.Eligible)
}

func TestNewSuppressionRecord(t *testing.T) {
	cfg := model.PromptConfig{AppID: "com.example.podcasts"}
	facts := factsFor("1.2.0", 5, 10)

	record := application.NewSuppressionRecord("com.example.podcasts", "device-1", cfg, facts)

	assert.Equal(t, "com.example.podcasts", record.AppID)
	assert.Equal(t, "device-1", record.DeviceID)
	assert.Equal(t, "1.2.0", record.DismissedVersion)
	assert.False(t, record.DismissedAt.IsZero())
}

// --- GateService ---

// memSuppressionStore is an in-memory SuppressionStore for service tests.
type memSuppressionStore struct {
	records map[string]model.SuppressionRecord
	getErr  error
	setErr  error
}

func newMemSuppressionStore() *memSuppressionStore {
	return &memSuppressionStore{records: make(map[string]model.SuppressionRecord)}
}

func (m *memSuppressionStore) Get(_ context.Context, appID, deviceID string) (*model.SuppressionRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if record, ok := m.records[appID+"/"+deviceID]; ok {
		return &record, nil
	}
	return nil, nil
}

func (m *memSuppressionStore) Set(_ context.Context, record model.SuppressionRecord) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.records[record.AppID+"/"+record.DeviceID] = record
	return nil
}

// memRuleStore is an in-memory RuleStore for service tests.
type memRuleStore struct {
	rules  map[string]model.RuleSet
	getErr error
}

func newMemRuleStore() *memRuleStore {
	return &memRuleStore{rules: make(map[string]model.RuleSet)}
}

func (m *memRuleStore) GetRules(_ context.Context, appID string) (*model.RuleSet, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if rules, ok := m.rules[appID]; ok {
		return &rules, nil
	}
	return nil, nil
}

func (m *memRuleStore) SetRules(_ context.Context, appID string, rules model.RuleSet) error {
	m.rules[appID] = rules
	return nil
}

func TestGateService_CheckUsesStoredRules(t *testing.T) {
	ruleStore := newMemRuleStore()
	ruleStore.rules["com.example.podcasts"] = model.RuleSet{MinLaunchCount: intPtr(5)}

	svc := application.NewGateService(ruleStore, newMemSuppressionStore())
	ctx := context.Background()

	result := svc.Check(ctx, "com.example.podcasts", "device-1", model.PromptConfig{}, factsFor("1.0.0", 3, 0))
	assert.False(t, result.Eligible)

	result = svc.Check(ctx, "com.example.podcasts", "device-1", model.PromptConfig{}, factsFor("1.0.0", 5, 0))
	assert.True(t, result.Eligible)
}

func TestGateService_RequestRulesOverrideStored(t *testing.T) {
	ruleStore := newMemRuleStore()
	ruleStore.rules["com.example.podcasts"] = model.RuleSet{MinLaunchCount: intPtr(10)}

	svc := application.NewGateService(ruleStore, newMemSuppressionStore())

	cfg := model.PromptConfig{Rules: model.RuleSet{MinLaunchCount: intPtr(2)}}
	result := svc.Check(context.Background(), "com.example.podcasts", "device-1", cfg, factsFor("1.0.0", 3, 0))
	assert.True(t, result.Eligible)
}

func TestGateService_RecordDismissalThenCheck(t *testing.T) {
	svc := application.NewGateService(newMemRuleStore(), newMemSuppressionStore())
	ctx := context.Background()
	facts := factsFor("1.2.0", 10, 30)

	before := svc.Check(ctx, "com.example.podcasts", "device-1", model.PromptConfig{}, facts)
	require.True(t, before.Eligible)

	record := svc.RecordDismissal(ctx, "com.example.podcasts", "device-1", model.PromptConfig{}, facts)
	assert.Equal(t, "1.2.0", record.DismissedVersion)

	// Same facts immediately after dismissal: always blocked.
	after := svc.Check(ctx, "com.example.podcasts", "device-1", model.PromptConfig{}, facts)
	assert.False(t, after.Eligible)
	assert.Equal(t, []model.BlockReason{model.BlockedBySuppression}, after.BlockedBy)

	// The next version re-asks.
	upgraded := svc.Check(ctx, "com.example.podcasts", "device-1", model.PromptConfig{}, factsFor("1.3.0", 10, 30))
	assert.True(t, upgraded.Eligible)
}

func TestGateService_StoreFailuresDegrade(t *testing.T) {
	ruleStore := newMemRuleStore()
	ruleStore.getErr = errors.New("disk gone")
	suppressionStore := newMemSuppressionStore()
	suppressionStore.getErr = errors.New("disk gone")

	svc := application.NewGateService(ruleStore, suppressionStore)

	// Both reads fail; the gate still answers, as if nothing were stored.
	result := svc.Check(context.Background(), "com.example.podcasts", "device-1", model.PromptConfig{}, factsFor("1.0.0", 0, 0))
	assert.True(t, result.Eligible)
}

func TestGateService_DismissalWriteFailureSwallowed(t *testing.T) {
	suppressionStore := newMemSuppressionStore()
	suppressionStore.setErr = errors.New("disk gone")

	svc := application.NewGateService(newMemRuleStore(), suppressionStore)

	// Fire-and-forget write: the record is still returned.
	record := svc.RecordDismissal(context.Background(), "com.example.podcasts", "device-1", model.PromptConfig{}, factsFor("1.2.0", 0, 0))
	assert.Equal(t, "1.2.0", record.DismissedVersion)
}
