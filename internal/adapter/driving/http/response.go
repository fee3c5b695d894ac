package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmthornton/rategate/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AppResponse is the JSON representation of a registered application.
type AppResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StoreURL    string `json:"store_url"`
	FeedbackURL string `json:"feedback_url"`
	AddedAt     string `json:"added_at"`
}

// AddAppRequest is the JSON body for the register application endpoint.
type AddAppRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StoreURL    string `json:"store_url"`
	FeedbackURL string `json:"feedback_url"`
}

// RulesPayload carries gate thresholds on the wire. Absent fields mean "no
// threshold" and round-trip as JSON null.
type RulesPayload struct {
	MinLaunchCount    *int `json:"min_launch_count"`
	MinInstallAgeDays *int `json:"min_install_age_days"`
}

// FactsPayload carries device-reported runtime facts. installed_at is
// RFC 3339 and optional.
type FactsPayload struct {
	AppVersion  string `json:"app_version"`
	LaunchCount int    `json:"launch_count"`
	InstalledAt string `json:"installed_at,omitempty"`
}

// EligibilityRequest is the JSON body for the gate check endpoint.
type EligibilityRequest struct {
	Facts FactsPayload  `json:"facts"`
	Rules *RulesPayload `json:"rules,omitempty"`
}

// EligibilityResponse is the gate check result.
type EligibilityResponse struct {
	Eligible  bool     `json:"eligible"`
	BlockedBy []string `json:"blocked_by"`
}

// ShowPromptRequest is the JSON body for the show prompt endpoint. Force
// bypasses the gate entirely.
type ShowPromptRequest struct {
	Facts FactsPayload  `json:"facts"`
	Rules *RulesPayload `json:"rules,omitempty"`
	Force bool          `json:"force,omitempty"`
}

// SessionResponse is the JSON representation of a prompt session, or of a
// denied show attempt (state "not_shown" with the blocking reasons).
type SessionResponse struct {
	SessionID  string   `json:"session_id,omitempty"`
	State      string   `json:"state"`
	BlockedBy  []string `json:"blocked_by,omitempty"`
	Reattached bool     `json:"reattached,omitempty"`
	ShownAt    string   `json:"shown_at,omitempty"`
}

// DecisionRequest is the JSON body for the resolve endpoint.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

// DecisionResponse reports a resolved session. Destination is the routing
// target the caller should send the user to: the store URL for endorse, the
// feedback URL for deflect, empty for suppress.
type DecisionResponse struct {
	SessionID   string `json:"session_id"`
	State       string `json:"state"`
	Decision    string `json:"decision"`
	Destination string `json:"destination,omitempty"`
}

// SuppressionResponse is the JSON representation of a suppression record.
type SuppressionResponse struct {
	AppID            string `json:"app_id"`
	DeviceID         string `json:"device_id"`
	DismissedVersion string `json:"dismissed_version"`
	DismissedAt      string `json:"dismissed_at"`
}

// DecisionRecordResponse is one audit log row.
type DecisionRecordResponse struct {
	DeviceID   string `json:"device_id"`
	SessionID  string `json:"session_id"`
	Decision   string `json:"decision"`
	AppVersion string `json:"app_version"`
	DecidedAt  string `json:"decided_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toAppResponse converts a domain App to its JSON response representation.
func toAppResponse(app model.App) AppResponse {
	return AppResponse{
		ID:          app.ID,
		Name:        app.Name,
		StoreURL:    app.StoreURL,
		FeedbackURL: app.FeedbackURL,
		AddedAt:     app.AddedAt.UTC().Format(time.RFC3339),
	}
}

// toRulesPayload converts a domain RuleSet to its JSON representation.
func toRulesPayload(rules model.RuleSet) RulesPayload {
	return RulesPayload{
		MinLaunchCount:    rules.MinLaunchCount,
		MinInstallAgeDays: rules.MinInstallAgeDays,
	}
}

// toRuleSet converts a wire rules payload to the domain RuleSet. A nil
// payload yields an empty RuleSet.
func toRuleSet(p *RulesPayload) model.RuleSet {
	if p == nil {
		return model.RuleSet{}
	}
	return model.RuleSet{
		MinLaunchCount:    p.MinLaunchCount,
		MinInstallAgeDays: p.MinInstallAgeDays,
	}
}

// toRuntimeFacts converts a wire facts payload to domain RuntimeFacts.
func toRuntimeFacts(p FactsPayload) (model.RuntimeFacts, error) {
	facts := model.RuntimeFacts{
		AppVersion:  p.AppVersion,
		LaunchCount: p.LaunchCount,
	}

	if p.InstalledAt != "" {
		installedAt, err := time.Parse(time.RFC3339, p.InstalledAt)
		if err != nil {
			return model.RuntimeFacts{}, err
		}
		facts.InstalledAt = installedAt
	}

	return facts, nil
}

// toEligibilityResponse converts a gate result to its JSON representation.
func toEligibilityResponse(result model.GateResult) EligibilityResponse {
	return EligibilityResponse{
		Eligible:  result.Eligible,
		BlockedBy: blockReasons(result.BlockedBy),
	}
}

// toSuppressionResponse converts a domain SuppressionRecord to its JSON representation.
func toSuppressionResponse(record model.SuppressionRecord) SuppressionResponse {
	return SuppressionResponse{
		AppID:            record.AppID,
		DeviceID:         record.DeviceID,
		DismissedVersion: record.DismissedVersion,
		DismissedAt:      record.DismissedAt.UTC().Format(time.RFC3339),
	}
}

// toDecisionRecordResponse converts a domain DecisionRecord to its JSON representation.
func toDecisionRecordResponse(record model.DecisionRecord) DecisionRecordResponse {
	return DecisionRecordResponse{
		DeviceID:   record.DeviceID,
		SessionID:  record.SessionID,
		Decision:   string(record.Decision),
		AppVersion: record.AppVersion,
		DecidedAt:  record.DecidedAt.UTC().Format(time.RFC3339),
	}
}

// blockReasons converts block reasons to plain strings, always returning a
// non-nil slice so the JSON field renders as [] rather than null.
func blockReasons(reasons []model.BlockReason) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, string(r))
	}
	return out
}
