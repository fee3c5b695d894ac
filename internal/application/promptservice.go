package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmthornton/rategate/internal/domain/model"
)

// ErrNoActiveSession indicates no prompt is currently showing for the
// (app, device) pair a decision or cancellation was submitted for.
var ErrNoActiveSession = errors.New("no active prompt session")

// DecisionHandler is the caller-supplied collaborator invoked with the user's
// chosen outcome. The service owns all three entry points and delegates every
// downstream behavior (store navigation, feedback submission) to it.
// Invocations are synchronous and single-shot per resolution; the session's
// config is never mutated, so handlers may safely be invoked again for a
// later session of the same pair.
type DecisionHandler interface {
	OnEndorse(ctx context.Context, session model.PromptSession)
	OnDeflect(ctx context.Context, session model.PromptSession)
	OnSuppress(ctx context.Context, session model.PromptSession)
}

// ShowResult reports the outcome of a show attempt.
type ShowResult struct {
	// Session is the active prompt session, or nil when the gate denied.
	Session *model.PromptSession

	// Gate carries the evaluation result. ShowAlways reports an eligible
	// result without consulting the gate.
	Gate model.GateResult

	// Reattached is true when an active session for the pair already existed
	// and was returned unchanged.
	Reattached bool
}

// sessionKey identifies the one active session allowed per (app, device) pair.
type sessionKey struct {
	appID    string
	deviceID string
}

// PromptService owns the registry of live prompt sessions and dispatches
// resolved outcomes to the registered decision handler. Sessions are
// process-local: a prompt's lifetime never exceeds the process hosting it,
// so there is nothing durable to recover.
type PromptService struct {
	gate    *GateService
	handler DecisionHandler

	mu       sync.RWMutex
	sessions map[sessionKey]model.PromptSession

	sessionTTL    time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger
}

// NewPromptService creates a PromptService. handler may be nil, in which case
// outcome dispatch is a no-op. sessionTTL bounds how long a session may stay
// unresolved before the sweeper cancels it.
func NewPromptService(gate *GateService, handler DecisionHandler, sessionTTL, sweepInterval time.Duration) *PromptService {
	return &PromptService{
		gate:          gate,
		handler:       handler,
		sessions:      make(map[sessionKey]model.PromptSession),
		sessionTTL:    sessionTTL,
		sweepInterval: sweepInterval,
		logger:        slog.Default(),
	}
}

// Show evaluates the gate and, when eligible, opens a prompt session. If an
// active session already exists for the pair it is returned unchanged —
// re-showing is idempotent by identity, which also covers a host UI
// re-attaching after a configuration change. When the gate denies, no session
// is created and the result carries the blocking reasons.
func (s *PromptService) Show(ctx context.Context, appID, deviceID string, cfg model.PromptConfig, facts model.RuntimeFacts) ShowResult {
	if existing := s.active(appID, deviceID); existing != nil {
		return ShowResult{Session: existing, Gate: model.GateResult{Eligible: true}, Reattached: true}
	}

	gate := s.gate.Check(ctx, appID, deviceID, cfg, facts)
	if !gate.Eligible {
		s.logger.Debug("prompt withheld", "app", appID, "device", deviceID, "blocked_by", gate.BlockedBy)
		return ShowResult{Gate: gate}
	}

	return s.open(appID, deviceID, cfg, facts, gate)
}

// ShowAlways opens a prompt session without consulting the gate. An existing
// active session is still returned unchanged.
func (s *PromptService) ShowAlways(ctx context.Context, appID, deviceID string, cfg model.PromptConfig, facts model.RuntimeFacts) ShowResult {
	if existing := s.active(appID, deviceID); existing != nil {
		return ShowResult{Session: existing, Gate: model.GateResult{Eligible: true}, Reattached: true}
	}

	return s.open(appID, deviceID, cfg, facts, model.GateResult{Eligible: true})
}

// Resolve transitions the active session for the pair to the decision's
// terminal state and removes it from the registry. A suppress decision
// records the per-version dismissal before dispatch. The registered handler
// entry point for the variant is then invoked synchronously with the resolved
// session; a nil handler is a no-op.
func (s *PromptService) Resolve(ctx context.Context, appID, deviceID string, decision model.UserDecision) (model.PromptSession, error) {
	session, ok := s.take(appID, deviceID)
	if !ok {
		return model.PromptSession{}, ErrNoActiveSession
	}

	session.State = decision.TerminalState()

	if decision == model.DecisionSuppress {
		s.gate.RecordDismissal(ctx, appID, deviceID, session.Config, session.Facts)
	}

	s.dispatch(ctx, decision, session)

	s.logger.Info("prompt resolved",
		"app", appID, "device", deviceID, "session", session.ID, "decision", string(decision))

	return session, nil
}

// Cancel drops the active session for the pair without invoking any handler.
// This is the host-UI-torn-down path; cancelling when nothing is active is a
// no-op.
func (s *PromptService) Cancel(ctx context.Context, appID, deviceID string) {
	session, ok := s.take(appID, deviceID)
	if !ok {
		return
	}

	s.logger.Info("prompt cancelled", "app", appID, "device", deviceID, "session", session.ID)
}

// Start runs the session sweeper until the context is canceled. Sessions
// older than the TTL are dropped the same way Cancel drops them: the host UI
// went away without an outcome, so no handler fires.
func (s *PromptService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("prompt sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// ActiveCount returns the number of live sessions.
func (s *PromptService) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// active returns a copy of the live session for the pair, or nil.
func (s *PromptService) active(appID, deviceID string) *model.PromptSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if session, ok := s.sessions[sessionKey{appID, deviceID}]; ok {
		return &session
	}
	return nil
}

// open registers a new session in the shown state. The existing-session
// check is repeated under the write lock: a concurrent show for the same
// pair may have opened a session after the read-locked fast path, and the
// incumbent must win.
func (s *PromptService) open(appID, deviceID string, cfg model.PromptConfig, facts model.RuntimeFacts, gate model.GateResult) ShowResult {
	key := sessionKey{appID, deviceID}

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return ShowResult{Session: &existing, Gate: model.GateResult{Eligible: true}, Reattached: true}
	}

	session := model.PromptSession{
		ID:       uuid.NewString(),
		AppID:    appID,
		DeviceID: deviceID,
		State:    model.SessionShown,
		Config:   cfg,
		Facts:    facts,
		ShownAt:  time.Now().UTC(),
	}
	s.sessions[key] = session
	s.mu.Unlock()

	s.logger.Info("prompt shown", "app", appID, "device", deviceID, "session", session.ID)

	return ShowResult{Session: &session, Gate: gate}
}

// take removes and returns the live session for the pair.
func (s *PromptService) take(appID, deviceID string) (model.PromptSession, bool) {
	key := sessionKey{appID, deviceID}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	return session, ok
}

// sweep cancels sessions that outlived the TTL.
func (s *PromptService) sweep() {
	cutoff := time.Now().Add(-s.sessionTTL)

	s.mu.Lock()
	var expired []model.PromptSession
	for key, session := range s.sessions {
		if session.ShownAt.Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.logger.Info("prompt session expired",
			"app", session.AppID, "device", session.DeviceID, "session", session.ID, "age", session.Age().Round(time.Second))
	}
}

// dispatch invokes the handler entry point for the decision. A nil handler
// is a no-op, not a failure.
func (s *PromptService) dispatch(ctx context.Context, decision model.UserDecision, session model.PromptSession) {
	if s.handler == nil {
		return
	}

	switch decision {
	case model.DecisionEndorse:
		s.handler.OnEndorse(ctx, session)
	case model.DecisionDeflect:
		s.handler.OnDeflect(ctx, session)
	case model.DecisionSuppress:
		s.handler.OnSuppress(ctx, session)
	}
}
