package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ DecisionHandler = (*AuditHandler)(nil)

// AuditHandler is the bundled decision handler: it writes one local audit row
// and a log line per outcome and performs no routing. Hosts that route users
// to stores or feedback flows register their own DecisionHandler instead.
type AuditHandler struct {
	decisions driven.DecisionLogStore
	logger    *slog.Logger
}

// NewAuditHandler creates an AuditHandler backed by the given decision log.
func NewAuditHandler(decisions driven.DecisionLogStore) *AuditHandler {
	return &AuditHandler{
		decisions: decisions,
		logger:    slog.Default(),
	}
}

// OnEndorse records an endorse outcome.
func (h *AuditHandler) OnEndorse(ctx context.Context, session model.PromptSession) {
	h.record(ctx, model.DecisionEndorse, session)
}

// OnDeflect records a deflect outcome.
func (h *AuditHandler) OnDeflect(ctx context.Context, session model.PromptSession) {
	h.record(ctx, model.DecisionDeflect, session)
}

// OnSuppress records a suppress outcome.
func (h *AuditHandler) OnSuppress(ctx context.Context, session model.PromptSession) {
	h.record(ctx, model.DecisionSuppress, session)
}

// record writes the audit row. Log writes are fire-and-forget: a failed
// append never surfaces to the prompt flow.
func (h *AuditHandler) record(ctx context.Context, decision model.UserDecision, session model.PromptSession) {
	record := model.DecisionRecord{
		AppID:      session.AppID,
		DeviceID:   session.DeviceID,
		SessionID:  session.ID,
		Decision:   decision,
		AppVersion: session.Config.EffectiveVersion(session.Facts),
		DecidedAt:  time.Now().UTC(),
	}

	if err := h.decisions.Record(ctx, record); err != nil {
		h.logger.Error("failed to record decision",
			"app", session.AppID, "device", session.DeviceID, "decision", string(decision), "error", err)
		return
	}

	h.logger.Info("decision recorded",
		"app", session.AppID, "device", session.DeviceID,
		"decision", string(decision), "version", record.AppVersion)
}
