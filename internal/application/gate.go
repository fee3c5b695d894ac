// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

// Evaluate decides whether the rating prompt may be shown. It is pure and
// total: every threshold is optional and an absent one is vacuously
// satisfied, so the function never fails. record is the previously persisted
// suppression record, or nil if the device never opted out.
//
// All failed conditions are reported in BlockedBy, and suppression is checked
// independently of the thresholds: a suppressed version stays blocked no
// matter how many launches the device has accumulated.
func Evaluate(cfg model.PromptConfig, record *model.SuppressionRecord, facts model.RuntimeFacts) model.GateResult {
	result := model.GateResult{}

	if cfg.Rules.MinLaunchCount != nil && facts.LaunchCount < *cfg.Rules.MinLaunchCount {
		result.BlockedBy = append(result.BlockedBy, model.BlockedByLaunchCount)
	}

	if cfg.Rules.MinInstallAgeDays != nil && facts.DaysSinceInstall() < *cfg.Rules.MinInstallAgeDays {
		result.BlockedBy = append(result.BlockedBy, model.BlockedByInstallAge)
	}

	if record != nil && record.Suppresses(cfg.EffectiveVersion(facts)) {
		result.BlockedBy = append(result.BlockedBy, model.BlockedBySuppression)
	}

	result.Eligible = len(result.BlockedBy) == 0
	return result
}

// NewSuppressionRecord builds the record produced by a "don't ask again"
// choice. The dismissed version is the config's effective version, so a
// pinned config version wins over the device-reported one. Persisting the
// record is the caller's job.
func NewSuppressionRecord(appID, deviceID string, cfg model.PromptConfig, facts model.RuntimeFacts) model.SuppressionRecord {
	return model.SuppressionRecord{
		AppID:            appID,
		DeviceID:         deviceID,
		DismissedVersion: cfg.EffectiveVersion(facts),
		DismissedAt:      time.Now().UTC(),
	}
}

// GateService wraps the pure gate with stored per-app rules and persisted
// suppression state. The gate path never returns an error: store failures
// degrade to "no stored rules" / "no record" with a warning, because an
// unavailable prompt must fail silent, not loud.
type GateService struct {
	ruleStore        driven.RuleStore
	suppressionStore driven.SuppressionStore
	logger           *slog.Logger
}

// NewGateService creates a new GateService.
func NewGateService(rules driven.RuleStore, suppressions driven.SuppressionStore) *GateService {
	return &GateService{
		ruleStore:        rules,
		suppressionStore: suppressions,
		logger:           slog.Default(),
	}
}

// Check evaluates the gate for one (app, device) pair. Stored per-app rules
// are merged with the request's rule overrides (non-nil request fields win),
// then evaluated together with the persisted suppression record.
func (s *GateService) Check(ctx context.Context, appID, deviceID string, cfg model.PromptConfig, facts model.RuntimeFacts) model.GateResult {
	cfg.Rules = s.effectiveRules(ctx, appID, cfg.Rules)

	record, err := s.suppressionStore.Get(ctx, appID, deviceID)
	if err != nil {
		s.logger.Warn("failed to read suppression record, treating as absent",
			"app", appID, "device", deviceID, "error", err)
		record = nil
	}

	return Evaluate(cfg, record, facts)
}

// RecordDismissal builds and persists the suppression record for a suppress
// outcome. The write is fire-and-forget: failures are logged and swallowed,
// matching the persistence collaborator's contract.
func (s *GateService) RecordDismissal(ctx context.Context, appID, deviceID string, cfg model.PromptConfig, facts model.RuntimeFacts) model.SuppressionRecord {
	record := NewSuppressionRecord(appID, deviceID, cfg, facts)

	if err := s.suppressionStore.Set(ctx, record); err != nil {
		s.logger.Error("failed to persist suppression record",
			"app", appID, "device", deviceID, "version", record.DismissedVersion, "error", err)
	}

	return record
}

// effectiveRules merges stored per-app rules with request overrides.
// A store read failure degrades to "no stored rules".
func (s *GateService) effectiveRules(ctx context.Context, appID string, override model.RuleSet) model.RuleSet {
	stored, err := s.ruleStore.GetRules(ctx, appID)
	if err != nil {
		s.logger.Warn("failed to read app rules, using request rules only", "app", appID, "error", err)
		stored = nil
	}

	if stored == nil {
		return override
	}

	return stored.Merge(override)
}
