package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shiftway.org/internal/auth"
	"shiftway.org/internal/orgaccess"
)

// stubEngine is a canned AccessEngine for handler tests.
type stubEngine struct {
	role    orgaccess.RoleMnemocode
	scope   orgaccess.OrgScope
	matrix  orgaccess.JobPermissionMatrix
	catalog []orgaccess.RolePermission
	err     error

	lastScopeQuery orgaccess.OrgScopeQuery
}

func (s *stubEngine) ResolveRole(_ context.Context, _, _ string, _ time.Time) (orgaccess.RoleMnemocode, error) {
	if s.err != nil {
		return orgaccess.RoleNoAccess, s.err
	}
	if s.role == "" {
		return orgaccess.RoleMember, nil
	}
	return s.role, nil
}

func (s *stubEngine) OrgScopeByUser(_ context.Context, q orgaccess.OrgScopeQuery) (orgaccess.OrgScope, error) {
	s.lastScopeQuery = q
	if s.err != nil {
		return orgaccess.OrgScope{}, s.err
	}
	return s.scope, nil
}

func (s *stubEngine) TradingPointJobPermissions(_ context.Context, _ orgaccess.JobPermissionQuery) (orgaccess.JobPermissionMatrix, error) {
	if s.err != nil {
		return orgaccess.JobPermissionMatrix{}, s.err
	}
	return s.matrix, nil
}

func (s *stubEngine) HasScheduleCheckRequired(_ context.Context, _, _, _ string, _, _ time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return true, nil
}

func (s *stubEngine) ListRolePermissions(_ context.Context) ([]orgaccess.RolePermission, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.catalog, nil
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(auth.ContextWithUser(req.Context(), "user-1", nil))
	return req
}

func TestHandleOrgScope(t *testing.T) {
	engine := &stubEngine{scope: orgaccess.OrgScope{
		UnitIDs:         []string{"u-1", "u-2"},
		TradingPointIDs: []string{"tp-1"},
	}}
	api := New(ReadyProbe{}, "test", engine)

	body, _ := json.Marshal(orgScopeRequest{
		StakeholderID:       "st-1",
		PermissionMnemocode: "shift_plan_edit",
		At:                  "2024-06-01",
	})
	rr := httptest.NewRecorder()
	api.handleOrgScope(rr, authedRequest(http.MethodPost, "/v1/access/org-scope", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp orgScopeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.UnitIDs) != 2 || len(resp.TradingPointIDs) != 1 {
		t.Fatalf("unexpected scope: %+v", resp)
	}
	if engine.lastScopeQuery.UserID != "user-1" {
		t.Fatalf("user id not taken from token: %+v", engine.lastScopeQuery)
	}
	if engine.lastScopeQuery.At.IsZero() {
		t.Fatal("at instant not parsed")
	}
}

func TestHandleOrgScopeRequiresAuth(t *testing.T) {
	api := New(ReadyProbe{}, "test", &stubEngine{})

	body, _ := json.Marshal(orgScopeRequest{StakeholderID: "st-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/access/org-scope", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	api.handleOrgScope(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHandleOrgScopeErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{orgaccess.ErrInvalidInput, http.StatusBadRequest},
		// Missing reference data is a defect class, not a caller error.
		{orgaccess.ErrNotFound, http.StatusInternalServerError},
		{orgaccess.ErrInvariant, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		api := New(ReadyProbe{}, "test", &stubEngine{err: tc.err})
		body, _ := json.Marshal(orgScopeRequest{StakeholderID: "st-1"})
		rr := httptest.NewRecorder()
		api.handleOrgScope(rr, authedRequest(http.MethodPost, "/v1/access/org-scope", body))
		if rr.Code != tc.code {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.code, rr.Code)
		}
		if tc.err == orgaccess.ErrNotFound && !strings.Contains(rr.Body.String(), "reference data missing") {
			t.Fatalf("expected defect body for missing reference data, got %s", rr.Body.String())
		}
	}
}

func TestHandleOrgScopeRejectsBadBody(t *testing.T) {
	api := New(ReadyProbe{}, "test", &stubEngine{})

	rr := httptest.NewRecorder()
	api.handleOrgScope(rr, authedRequest(http.MethodPost, "/v1/access/org-scope", []byte(`{"nope":1}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	api.handleOrgScope(rr, authedRequest(http.MethodGet, "/v1/access/org-scope", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHandleTradingPointPermissions(t *testing.T) {
	engine := &stubEngine{matrix: orgaccess.JobPermissionMatrix{
		ByTradingPoint: map[string]map[string][]string{
			"tp-1": {"job-1": {"shift_plan_view"}},
		},
	}}
	api := New(ReadyProbe{}, "test", engine)

	body, _ := json.Marshal(jobPermissionsRequest{
		StakeholderID: "st-1",
		DateFromUTC:   "2024-06-01T00:00:00Z",
		DateToUTC:     "2024-06-30T00:00:00Z",
	})
	rr := httptest.NewRecorder()
	api.handleTradingPointPermissions(rr, authedRequest(http.MethodPost, "/v1/access/trading-point-permissions", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp jobPermissionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.IsFullAccess {
		t.Fatal("unexpected full access")
	}
	if got := resp.ByTradingPoint["tp-1"]["job-1"]; len(got) != 1 || got[0] != "shift_plan_view" {
		t.Fatalf("unexpected matrix: %+v", resp.ByTradingPoint)
	}
}

func TestHandleAccessRole(t *testing.T) {
	api := New(ReadyProbe{}, "test", &stubEngine{role: orgaccess.RoleAdmin})

	rr := httptest.NewRecorder()
	api.handleAccessRole(rr, authedRequest(http.MethodGet, "/v1/access/role?stakeholder_id=st-1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp accessRoleResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("unexpected role: %s", resp.Role)
	}

	rr = httptest.NewRecorder()
	api.handleAccessRole(rr, authedRequest(http.MethodGet, "/v1/access/role", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without stakeholder_id, got %d", rr.Code)
	}
}

func TestHandleScheduleCheck(t *testing.T) {
	api := New(ReadyProbe{}, "test", &stubEngine{})

	target := "/v1/access/schedule-check?stakeholder_id=st-1&trading_point_id=tp-1&date_from_utc=2024-06-01&date_to_utc=2024-06-30"
	rr := httptest.NewRecorder()
	api.handleScheduleCheck(rr, authedRequest(http.MethodGet, target, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp scheduleCheckResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Required {
		t.Fatal("expected required=true from stub")
	}

	rr = httptest.NewRecorder()
	api.handleScheduleCheck(rr, authedRequest(http.MethodGet, "/v1/access/schedule-check?stakeholder_id=st-1", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing params, got %d", rr.Code)
	}
}

func TestHandleRolePermissions(t *testing.T) {
	api := New(ReadyProbe{}, "test", &stubEngine{catalog: orgaccess.BuiltinRolePermissions})

	rr := httptest.NewRecorder()
	api.handleRolePermissions(rr, authedRequest(http.MethodGet, "/v1/role-permissions", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Items []rolePermissionView `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != len(orgaccess.BuiltinRolePermissions) {
		t.Fatalf("unexpected catalog size: %d", len(resp.Items))
	}
	if resp.Items[0].Mnemocode == "" || resp.Items[0].Scope == "" {
		t.Fatalf("catalog entry missing fields: %+v", resp.Items[0])
	}
}

func TestHealthEndpoints(t *testing.T) {
	api := New(ReadyProbe{}, "1.2.3", &stubEngine{})
	handler := api.Handler()

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestParseInstant(t *testing.T) {
	if ts, err := parseInstant("2024-06-01"); err != nil || ts.IsZero() {
		t.Fatalf("plain date rejected: %v %v", ts, err)
	}
	if ts, err := parseInstant("2024-06-01T12:30:00Z"); err != nil || ts.Hour() != 12 {
		t.Fatalf("rfc3339 rejected: %v %v", ts, err)
	}
	if ts, err := parseInstant(""); err != nil || !ts.IsZero() {
		t.Fatalf("empty input must yield zero time: %v %v", ts, err)
	}
	if _, err := parseInstant("June 1st"); err == nil {
		t.Fatal("expected error for unparseable input")
	}
}
