package model

// RuleSet holds optional gate thresholds. Nil pointer fields mean "no
// threshold" for that condition and are vacuously satisfied.
type RuleSet struct {
	MinLaunchCount    *int
	MinInstallAgeDays *int
}

// Merge returns a RuleSet where non-nil fields of override win over the
// receiver. The receiver is typically the stored per-app rules and the
// override comes from the request.
func (r RuleSet) Merge(override RuleSet) RuleSet {
	merged := r
	if override.MinLaunchCount != nil {
		merged.MinLaunchCount = override.MinLaunchCount
	}
	if override.MinInstallAgeDays != nil {
		merged.MinInstallAgeDays = override.MinInstallAgeDays
	}
	return merged
}

// IsEmpty reports whether no threshold is set.
func (r RuleSet) IsEmpty() bool {
	return r.MinLaunchCount == nil && r.MinInstallAgeDays == nil
}
