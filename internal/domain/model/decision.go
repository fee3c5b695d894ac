package model

import "time"

// DecisionRecord is one audit row written when a prompt session resolves.
type DecisionRecord struct {
	ID         int64
	AppID      string
	DeviceID   string
	SessionID  string
	Decision   UserDecision
	AppVersion string
	DecidedAt  time.Time
}
