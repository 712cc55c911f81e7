package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"shiftway.org/internal/audit"
	"shiftway.org/internal/auth"
	"shiftway.org/internal/obs"
	"shiftway.org/internal/orgaccess"
)

type orgScopeRequest struct {
	StakeholderID       string `json:"stakeholder_id"`
	PermissionMnemocode string `json:"permission_mnemocode,omitempty"`
	SkipOrgFilter       bool   `json:"skip_org_filter,omitempty"`
	At                  string `json:"at,omitempty"`
}

type orgScopeResponse struct {
	StakeholderID   string   `json:"stakeholder_id"`
	UnitIDs         []string `json:"unit_ids"`
	TradingPointIDs []string `json:"trading_point_ids"`
	ResolvedAt      string   `json:"resolved_at"`
}

func (a *API) handleOrgScope(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req orgScopeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	at, err := parseInstant(req.At)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	scope, err := a.access.OrgScopeByUser(r.Context(), orgaccess.OrgScopeQuery{
		StakeholderID:       req.StakeholderID,
		UserID:              userID,
		PermissionMnemocode: req.PermissionMnemocode,
		SkipOrgFilter:       req.SkipOrgFilter,
		At:                  at,
	})
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	obs.ObserveAccessDecision("org_scope", decisionOutcome(len(scope.UnitIDs)+len(scope.TradingPointIDs) > 0))
	_ = audit.LogEvent(r.Context(), "access.org_scope.resolved", map[string]any{
		"stakeholder_id": req.StakeholderID,
		"permission":     req.PermissionMnemocode,
		"unit_count":     len(scope.UnitIDs),
		"point_count":    len(scope.TradingPointIDs),
	})

	writeJSON(w, http.StatusOK, orgScopeResponse{
		StakeholderID:   req.StakeholderID,
		UnitIDs:         scope.UnitIDs,
		TradingPointIDs: scope.TradingPointIDs,
		ResolvedAt:      time.Now().UTC().Format(time.RFC3339),
	})
}

type jobPermissionsRequest struct {
	StakeholderID string `json:"stakeholder_id"`
	DateFromUTC   string `json:"date_from_utc"`
	DateToUTC     string `json:"date_to_utc"`
}

type jobPermissionsResponse struct {
	StakeholderID  string                         `json:"stakeholder_id"`
	IsFullAccess   bool                           `json:"is_full_access"`
	ByTradingPoint map[string]map[string][]string `json:"by_trading_point,omitempty"`
}

func (a *API) handleTradingPointPermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req jobPermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseInstant(req.DateFromUTC)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseInstant(req.DateToUTC)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	matrix, err := a.access.TradingPointJobPermissions(r.Context(), orgaccess.JobPermissionQuery{
		StakeholderID: req.StakeholderID,
		UserID:        userID,
		DateFromUTC:   from,
		DateToUTC:     to,
	})
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	obs.ObserveAccessDecision("job_matrix", decisionOutcome(matrix.IsFullAccess || len(matrix.ByTradingPoint) > 0))

	writeJSON(w, http.StatusOK, jobPermissionsResponse{
		StakeholderID:  req.StakeholderID,
		IsFullAccess:   matrix.IsFullAccess,
		ByTradingPoint: matrix.ByTradingPoint,
	})
}

type accessRoleResponse struct {
	StakeholderID string `json:"stakeholder_id"`
	Role          string `json:"role"`
}

func (a *API) handleAccessRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	stakeholderID := strings.TrimSpace(r.URL.Query().Get("stakeholder_id"))
	if stakeholderID == "" {
		writeError(w, r, http.StatusBadRequest, "stakeholder_id query parameter is required")
		return
	}

	role, err := a.access.ResolveRole(r.Context(), stakeholderID, userID, time.Now().UTC())
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	obs.ObserveAccessDecision("role", decisionOutcome(role != orgaccess.RoleNoAccess))

	writeJSON(w, http.StatusOK, accessRoleResponse{
		StakeholderID: stakeholderID,
		Role:          string(role),
	})
}

type scheduleCheckResponse struct {
	StakeholderID  string `json:"stakeholder_id"`
	TradingPointID string `json:"trading_point_id"`
	Required       bool   `json:"required"`
}

func (a *API) handleScheduleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	query := r.URL.Query()
	stakeholderID := strings.TrimSpace(query.Get("stakeholder_id"))
	tradingPointID := strings.TrimSpace(query.Get("trading_point_id"))
	if stakeholderID == "" || tradingPointID == "" {
		writeError(w, r, http.StatusBadRequest, "stakeholder_id and trading_point_id query parameters are required")
		return
	}
	from, err := parseInstant(query.Get("date_from_utc"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseInstant(query.Get("date_to_utc"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if from.IsZero() || to.IsZero() {
		writeError(w, r, http.StatusBadRequest, "date_from_utc and date_to_utc query parameters are required")
		return
	}

	required, err := a.access.HasScheduleCheckRequired(r.Context(), stakeholderID, userID, tradingPointID, from, to)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleCheckResponse{
		StakeholderID:  stakeholderID,
		TradingPointID: tradingPointID,
		Required:       required,
	})
}

type rolePermissionView struct {
	ID         string `json:"id"`
	Mnemocode  string `json:"mnemocode"`
	Name       string `json:"name"`
	Scope      string `json:"scope"`
	OrderIndex int    `json:"order_index"`
}

func (a *API) handleRolePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	perms, err := a.access.ListRolePermissions(r.Context())
	if err != nil {
		handleAccessError(w, r, err)
		return
	}

	items := make([]rolePermissionView, 0, len(perms))
	for _, p := range perms {
		items = append(items, rolePermissionView{
			ID:         p.ID,
			Mnemocode:  p.Mnemocode,
			Name:       p.Name,
			Scope:      string(p.Scope),
			OrderIndex: p.OrderIndex,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// parseInstant accepts RFC3339 timestamps or plain dates. Empty input yields
// the zero time, which downstream treats as "now" where that is meaningful.
func parseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("timestamps must be RFC3339 or YYYY-MM-DD")
	}
	return t.UTC(), nil
}

func decisionOutcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

func handleAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orgaccess.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, orgaccess.ErrNotFound):
		// Reference data the engine depends on is missing; that is a data
		// defect, not a caller mistake.
		_ = audit.LogEvent(r.Context(), "access.reference_data_missing", map[string]any{
			"error": err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "reference data missing")
	case errors.Is(err, orgaccess.ErrInvariant):
		_ = audit.LogEvent(r.Context(), "access.invariant_violation", map[string]any{
			"error": err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "org data invariant violated")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
