package model

import "time"

// SuppressionRecord marks the app version for which a device opted out of
// being asked again. It is written only by the suppress outcome, read once
// per gate evaluation, and never deleted by this service.
type SuppressionRecord struct {
	AppID            string
	DeviceID         string
	DismissedVersion string
	DismissedAt      time.Time
}

// Suppresses reports whether the record blocks the given version. The
// comparison is literal string equality; semver-aware matching is
// intentionally not performed, so any version string other than the exact
// dismissed one re-triggers eligibility.
func (r SuppressionRecord) Suppresses(version string) bool {
	return r.DismissedVersion == version
}
