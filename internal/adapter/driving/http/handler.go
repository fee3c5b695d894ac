package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jmthornton/rategate/internal/application"
	"github.com/jmthornton/rategate/internal/domain/model"
	"github.com/jmthornton/rategate/internal/domain/port/driven"
)

// defaultDecisionLimit caps the audit list endpoint when no limit is given.
const defaultDecisionLimit = 50

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	appStore         driven.AppStore
	ruleStore        driven.RuleStore
	suppressionStore driven.SuppressionStore
	decisionStore    driven.DecisionLogStore
	gateSvc          *application.GateService
	promptSvc        *application.PromptService
	logger           *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	appStore driven.AppStore,
	ruleStore driven.RuleStore,
	suppressionStore driven.SuppressionStore,
	decisionStore driven.DecisionLogStore,
	gateSvc *application.GateService,
	promptSvc *application.PromptService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		appStore:         appStore,
		ruleStore:        ruleStore,
		suppressionStore: suppressionStore,
		decisionStore:    decisionStore,
		gateSvc:          gateSvc,
		promptSvc:        promptSvc,
		logger:           logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("POST /api/v1/apps", h.AddApp)
	mux.HandleFunc("GET /api/v1/apps", h.ListApps)
	mux.HandleFunc("GET /api/v1/apps/{app}", h.GetApp)
	mux.HandleFunc("DELETE /api/v1/apps/{app}", h.RemoveApp)

	mux.HandleFunc("GET /api/v1/apps/{app}/rules", h.GetRules)
	mux.HandleFunc("PUT /api/v1/apps/{app}/rules", h.SetRules)

	mux.HandleFunc("POST /api/v1/apps/{app}/devices/{device}/eligibility", h.CheckEligibility)
	mux.HandleFunc("POST /api/v1/apps/{app}/devices/{device}/prompt", h.ShowPrompt)
	mux.HandleFunc("DELETE /api/v1/apps/{app}/devices/{device}/prompt", h.CancelPrompt)
	mux.HandleFunc("POST /api/v1/apps/{app}/devices/{device}/decision", h.ResolvePrompt)
	mux.HandleFunc("GET /api/v1/apps/{app}/devices/{device}/suppression", h.GetSuppression)

	mux.HandleFunc("GET /api/v1/apps/{app}/decisions", h.ListDecisions)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// AddApp registers an application.
func (h *Handler) AddApp(w http.ResponseWriter, r *http.Request) {
	var req AddAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !isValidAppID(req.ID) {
		writeError(w, http.StatusBadRequest, "invalid app id: expected a non-empty identifier like com.example.app")
		return
	}

	app := model.App{
		ID:          req.ID,
		Name:        req.Name,
		StoreURL:    req.StoreURL,
		FeedbackURL: req.FeedbackURL,
		AddedAt:     time.Now().UTC(),
	}

	if err := h.appStore.Add(r.Context(), app); err != nil {
		if errors.Is(err, driven.ErrAppAlreadyExists) {
			writeError(w, http.StatusConflict, "application already exists")
			return
		}
		h.logger.Error("failed to add app", "app", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toAppResponse(app))
}

// ListApps returns all registered applications.
func (h *Handler) ListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.appStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list apps", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AppResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, toAppResponse(app))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetApp returns a single registered application.
func (h *Handler) GetApp(w http.ResponseWriter, r *http.Request) {
	app, ok := h.lookupApp(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toAppResponse(*app))
}

// RemoveApp deletes an application registration. Suppression records for the
// app are left in place.
func (h *Handler) RemoveApp(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("app")

	if err := h.appStore.Remove(r.Context(), appID); err != nil {
		if errors.Is(err, driven.ErrAppNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		h.logger.Error("failed to remove app", "app", appID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetRules returns the stored gate thresholds for an app. Unconfigured
// thresholds render as null.
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	app, ok := h.lookupApp(w, r)
	if !ok {
		return
	}

	rules, err := h.ruleStore.GetRules(r.Context(), app.ID)
	if err != nil {
		h.logger.Error("failed to get rules", "app", app.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if rules == nil {
		rules = &model.RuleSet{}
	}

	writeJSON(w, http.StatusOK, toRulesPayload(*rules))
}

// SetRules replaces the stored gate thresholds for an app.
func (h *Handler) SetRules(w http.ResponseWriter, r *http.Request) {
	app, ok := h.lookupApp(w, r)
	if !ok {
		return
	}

	var req RulesPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if (req.MinLaunchCount != nil && *req.MinLaunchCount < 0) ||
		(req.MinInstallAgeDays != nil && *req.MinInstallAgeDays < 0) {
		writeError(w, http.StatusBadRequest, "thresholds must not be negative")
		return
	}

	rules := toRuleSet(&req)
	if err := h.ruleStore.SetRules(r.Context(), app.ID, rules); err != nil {
		h.logger.Error("failed to set rules", "app", app.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRulesPayload(rules))
}

// CheckEligibility runs the display gate without opening a session.
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	app, ok := h.lookupApp(w, r)
	if !ok {
		return
	}
	deviceID := r.PathValue("device")

	var req EligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	facts, err := toRuntimeFacts(req.Facts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid installed_at: expected RFC 3339 timestamp")
		return
	}

	cfg := promptConfig(*app, req.Rules)
	result := h.gateSvc.Check(r.Context(), app.ID, deviceID, cfg, facts)

	writeJSON(w, http.StatusOK, toEligibilityResponse(result))
}

// ShowPrompt evaluates the gate and opens a prompt session. A denied gate
// answers 200 with state "not_shown" and the blocking reasons; an existing
// session is returned unchanged; a new session answers 201.
func (h *Handler) ShowPrompt(w http.ResponseWriter, r *http.Request) {
	app, ok := h.lookupApp(w, r)
	if !ok {
		return
	}
	deviceID := r.PathValue("device")

	var req ShowPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	facts, err := toRuntimeFacts(req.Facts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid installed_at: expected RFC 3339 timestamp")
		return
	}

	cfg := promptConfig(*app, req.Rules)

	var result application.ShowResult
	if req.Force {
		result = h.promptSvc.ShowAlways(r.Context(), app.ID, deviceID, cfg, facts)
	} else {
		result = h.promptSvc.Show(r.Context(), app.ID, deviceID, cfg, facts)
	}

	if result.Session == nil {
		writeJSON(w, http.StatusOK, SessionResponse{
			State:     string(model.SessionNotShown),
			BlockedBy: blockReasons(result.Gate.BlockedBy),
		})
		return
	}

	status := http.StatusCreated
	if result.Reattached {
		status = http.StatusOK
	}

	writeJSON(w, status, SessionResponse{
		SessionID:  result.Session.ID,
		State:      string(result.Session.State),
		Reattached: result.Reattached,
		ShownAt:    result.Session.ShownAt.UTC().Format(time.RFC3339),
	})
}

// ResolvePrompt applies the user's decision to the active session.
func (h *Handler) ResolvePrompt(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("app")
	deviceID := r.PathValue("device")

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := model.ParseUserDecision(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown decision: expected endorse, deflect, or suppress")
		return
	}

	session, err := h.promptSvc.Resolve(r.Context(), appID, deviceID, decision)
	if err != nil {
		if errors.Is(err, application.ErrNoActiveSession) {
			writeError(w, http.StatusNotFound, "no active prompt session")
			return
		}
		h.logger.Error("failed to resolve prompt", "app", appID, "device", deviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, DecisionResponse{
		SessionID:   session.ID,
		State:       string(session.State),
		Decision:    string(decision),
		Destination: destinationFor(decision, session.Config),
	})
}

// CancelPrompt drops the active session without an outcome. Always 204:
// cancelling an absent session is a no-op.
func (h *Handler) CancelPrompt(w http.ResponseWriter, r *http.Request) {
	h.promptSvc.Cancel(r.Context(), r.PathValue("app"), r.PathValue("device"))
	w.WriteHeader(http.StatusNoContent)
}

// GetSuppression returns the suppression record for an (app, device) pair.
// The endpoint is read-only: suppression records are never deletable.
func (h *Handler) GetSuppression(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("app")
	deviceID := r.PathValue("device")

	record, err := h.suppressionStore.Get(r.Context(), appID, deviceID)
	if err != nil {
		h.logger.Error("failed to get suppression", "app", appID, "device", deviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if record == nil {
		writeError(w, http.StatusNotFound, "no suppression record")
		return
	}

	writeJSON(w, http.StatusOK, toSuppressionResponse(*record))
}

// ListDecisions returns the most recent decision audit rows for an app.
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("app")

	limit := defaultDecisionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.decisionStore.ListByApp(r.Context(), appID, limit)
	if err != nil {
		h.logger.Error("failed to list decisions", "app", appID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]DecisionRecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toDecisionRecordResponse(record))
	}

	writeJSON(w, http.StatusOK, resp)
}

// lookupApp resolves the {app} path value to a registered application,
// writing the error response itself when the lookup fails.
func (h *Handler) lookupApp(w http.ResponseWriter, r *http.Request) (*model.App, bool) {
	appID := r.PathValue("app")

	app, err := h.appStore.GetByID(r.Context(), appID)
	if err != nil {
		h.logger.Error("failed to get app", "app", appID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}

	if app == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return nil, false
	}

	return app, true
}

// promptConfig builds the display attempt config from the registered app plus
// the request's rule overrides.
func promptConfig(app model.App, rules *RulesPayload) model.PromptConfig {
	return model.PromptConfig{
		AppID:       app.ID,
		StoreURL:    app.StoreURL,
		FeedbackURL: app.FeedbackURL,
		Rules:       toRuleSet(rules),
	}
}

// destinationFor maps a decision to the routing destination handed back to
// the caller. Suppress has no destination.
func destinationFor(decision model.UserDecision, cfg model.PromptConfig) string {
	switch decision {
	case model.DecisionEndorse:
		return cfg.StoreURL
	case model.DecisionDeflect:
		return cfg.FeedbackURL
	default:
		return ""
	}
}

// isValidAppID validates an application identifier: non-empty, made of
// alphanumerics, hyphens, dots, or underscores.
func isValidAppID(id string) bool {
	if id == "" {
		return false
	}

	for _, ch := range id {
		if !isValidAppIDChar(ch) {
			return false
		}
	}

	return true
}

// isValidAppIDChar returns true if the rune is allowed in an app identifier.
func isValidAppIDChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
