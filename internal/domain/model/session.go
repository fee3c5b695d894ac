package model

import (
	"fmt"
	"time"
)

// SessionState represents where a prompt session is in its lifecycle.
// The state machine is not_shown -> shown -> {endorsed | deflected |
// suppressed | cancelled}, terminal on any of the four outcomes.
type SessionState string

const (
	SessionNotShown   SessionState = "not_shown"
	SessionShown      SessionState = "shown"
	SessionEndorsed   SessionState = "endorsed"
	SessionDeflected  SessionState = "deflected"
	SessionSuppressed SessionState = "suppressed"
	SessionCancelled  SessionState = "cancelled"
)

// UserDecision is the outcome the user chose on the prompt.
type UserDecision string

const (
	DecisionEndorse  UserDecision = "endorse"  // route toward the store listing
	DecisionDeflect  UserDecision = "deflect"  // route toward the feedback mechanism
	DecisionSuppress UserDecision = "suppress" // don't ask again for this version
)

// ParseUserDecision converts a wire string into a UserDecision.
func ParseUserDecision(s string) (UserDecision, error) {
	switch UserDecision(s) {
	case DecisionEndorse, DecisionDeflect, DecisionSuppress:
		return UserDecision(s), nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// TerminalState returns the session state the decision transitions into.
func (d UserDecision) TerminalState() SessionState {
	switch d {
	case DecisionEndorse:
		return SessionEndorsed
	case DecisionDeflect:
		return SessionDeflected
	case DecisionSuppress:
		return SessionSuppressed
	default:
		return SessionCancelled
	}
}

// PromptSession is one live prompt instance for an (app, device) pair. At
// most one active session exists per pair; re-showing returns the existing
// session unchanged. Sessions are process-local and die with the process,
// matching the lifetime of the prompt they represent.
type PromptSession struct {
	ID       string
	AppID    string
	DeviceID string
	State    SessionState
	Config   PromptConfig
	Facts    RuntimeFacts
	ShownAt  time.Time
}

// Age returns how long the session has been showing.
func (s PromptSession) Age() time.Duration {
	return time.Since(s.ShownAt)
}
