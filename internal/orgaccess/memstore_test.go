package orgaccess

import (
	"context"
	"time"
)

// memStore is an in-memory Store used by the engine tests.
type memStore struct {
	stakeholders map[string]Stakeholder
	participants []Participant
	units        map[string]OrgstructuralUnit
	points       map[string]TradingPoint
	jobs         map[string]Job
	employments  []Employment
	grants       []Grant
	catalog      []RolePermission
}

func newMemStore() *memStore {
	return &memStore{
		stakeholders: map[string]Stakeholder{},
		units:        map[string]OrgstructuralUnit{},
		points:       map[string]TradingPoint{},
		jobs:         map[string]Job{},
		catalog:      BuiltinRolePermissions,
	}
}

func (m *memStore) StakeholderByID(_ context.Context, id string) (*Stakeholder, error) {
	sh, ok := m.stakeholders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sh, nil
}

func (m *memStore) ParticipantsByUser(_ context.Context, stakeholderID, userID string) ([]Participant, error) {
	var out []Participant
	for _, p := range m.participants {
		if p.StakeholderID == stakeholderID && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) RootUnits(_ context.Context, stakeholderID string, includeBlocked bool) ([]OrgstructuralUnit, error) {
	var out []OrgstructuralUnit
	for _, u := range m.units {
		if u.StakeholderID != stakeholderID || u.ParentID != nil {
			continue
		}
		if !includeBlocked && u.BlockedAt != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) UnitsByParentIDs(_ context.Context, stakeholderID string, parentIDs []string, includeBlocked bool) ([]OrgstructuralUnit, error) {
	want := NewIDSet(parentIDs...)
	var out []OrgstructuralUnit
	for _, u := range m.units {
		if u.StakeholderID != stakeholderID || u.ParentID == nil || !want.Has(*u.ParentID) {
			continue
		}
		if !includeBlocked && u.BlockedAt != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) UnitsByIDs(_ context.Context, stakeholderID string, ids []string, includeBlocked bool) ([]OrgstructuralUnit, error) {
	want := NewIDSet(ids...)
	var out []OrgstructuralUnit
	for _, u := range m.units {
		if u.StakeholderID != stakeholderID || !want.Has(u.ID) {
			continue
		}
		if !includeBlocked && u.BlockedAt != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) TradingPointsByUnitIDs(_ context.Context, stakeholderID string, unitIDs []string) ([]TradingPoint, error) {
	want := NewIDSet(unitIDs...)
	var out []TradingPoint
	for _, tp := range m.points {
		if tp.StakeholderID == stakeholderID && want.Has(tp.OrgstructuralUnitID) {
			out = append(out, tp)
		}
	}
	return out, nil
}

func (m *memStore) EmploymentsByUser(_ context.Context, stakeholderID, userID string) ([]Employment, error) {
	var out []Employment
	for _, e := range m.employments {
		if e.StakeholderID == stakeholderID && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) EmploymentsAtTradingPoints(_ context.Context, stakeholderID string, tradingPointIDs []string, from, to time.Time) ([]Employment, error) {
	want := NewIDSet(tradingPointIDs...)
	var out []Employment
	for _, e := range m.employments {
		if e.StakeholderID != stakeholderID || e.TradingPointID == nil || !want.Has(*e.TradingPointID) {
			continue
		}
		if !e.Intersects(from, to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) JobsByIDs(_ context.Context, stakeholderID string, ids []string) ([]Job, error) {
	want := NewIDSet(ids...)
	var out []Job
	for _, j := range m.jobs {
		if j.StakeholderID == stakeholderID && want.Has(j.ID) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) GrantsByRoleIDs(_ context.Context, roleIDs []string) ([]Grant, error) {
	want := NewIDSet(roleIDs...)
	var out []Grant
	for _, g := range m.grants {
		if want.Has(g.StakeholderRoleID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) RolePermissionByMnemocode(_ context.Context, mnemocode string) (*RolePermission, error) {
	for _, p := range m.catalog {
		if p.Mnemocode == mnemocode {
			perm := p
			return &perm, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) RolePermissionsByIDs(_ context.Context, ids []string) ([]RolePermission, error) {
	want := NewIDSet(ids...)
	var out []RolePermission
	for _, p := range m.catalog {
		if want.Has(p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListRolePermissions(_ context.Context, includeUnused bool) ([]RolePermission, error) {
	var out []RolePermission
	for _, p := range m.catalog {
		if !includeUnused && p.Category == CategoryUnused {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

var _ Store = (*memStore)(nil)

// --- fixture helpers ---

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func permID(mnemocode string) string {
	for _, p := range BuiltinRolePermissions {
		if p.Mnemocode == mnemocode {
			return p.ID
		}
	}
	return ""
}
