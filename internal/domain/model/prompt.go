package model

import "time"

// PromptConfig describes one display attempt of the rating prompt. It is
// supplied by the caller and never mutated by the service; handlers receive
// it unchanged with every outcome.
type PromptConfig struct {
	AppID string

	// AppVersion optionally pins the version used as the suppression key.
	// When empty, the current version from RuntimeFacts is used.
	AppVersion string

	// StoreURL and FeedbackURL are the routing destinations returned with
	// endorse and deflect outcomes. The service never calls them.
	StoreURL    string
	FeedbackURL string

	Rules RuleSet
}

// EffectiveVersion returns the version string used for suppression matching:
// the config's pinned version when set, otherwise the current version
// reported by the device.
func (c PromptConfig) EffectiveVersion(facts RuntimeFacts) string {
	if c.AppVersion != "" {
		return c.AppVersion
	}
	return facts.AppVersion
}

// RuntimeFacts are ambient values supplied by the caller at evaluation time.
// The gate evaluates them against configured thresholds but does not own them.
type RuntimeFacts struct {
	AppVersion  string
	LaunchCount int
	InstalledAt time.Time
}

// DaysSinceInstall returns the number of whole days since the app was
// installed. A zero install time yields 0.
func (f RuntimeFacts) DaysSinceInstall() int {
	if f.InstalledAt.IsZero() {
		return 0
	}
	return int(time.Since(f.InstalledAt).Hours() / 24)
}

// BlockReason identifies a single failed gate condition.
type BlockReason string

const (
	BlockedByLaunchCount BlockReason = "launch_count"
	BlockedByInstallAge  BlockReason = "install_age"
	BlockedBySuppression BlockReason = "suppressed"
)

// GateResult is the outcome of one gate evaluation. BlockedBy lists every
// failed condition so callers can tell why a prompt was withheld; it is empty
// when Eligible is true.
type GateResult struct {
	Eligible  bool
	BlockedBy []BlockReason
}
