package orgaccess

import (
	"sort"
	"time"
)

// RoleMnemocode is the membership role of a user account within a stakeholder.
type RoleMnemocode string

const (
	RoleOwner    RoleMnemocode = "owner"
	RoleAdmin    RoleMnemocode = "admin"
	RoleMember   RoleMnemocode = "member"
	RoleNoAccess RoleMnemocode = "no_access"
)

// FullAccess reports whether the role bypasses org-level scoping entirely.
func (m RoleMnemocode) FullAccess() bool {
	return m == RoleOwner || m == RoleAdmin
}

// PermissionScope classifies how a permission grant is applied.
type PermissionScope string

const (
	// ScopeGlobal permissions apply stakeholder-wide as a single boolean.
	ScopeGlobal PermissionScope = "global"
	// ScopeOrg permissions accumulate per orgstructural unit / trading point.
	ScopeOrg PermissionScope = "org"
	// ScopeOrgJob permissions behave like ScopeOrg but are additionally
	// narrowed by the grant's job-subject set.
	ScopeOrgJob PermissionScope = "org_job"
)

// PermissionCategory splits the catalog listing. Entries in the "unused"
// category stay enforceable but are hidden from the listing API.
type PermissionCategory string

const (
	CategoryGeneral PermissionCategory = "general"
	CategoryUnused  PermissionCategory = "unused"
)

// Stakeholder is a tenant owning an org hierarchy and staff records.
type Stakeholder struct {
	ID          string
	Name        string
	OwnerUserID string
	BlockedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Blocked reports whether the stakeholder has been blocked.
func (s Stakeholder) Blocked() bool { return s.BlockedAt != nil }

// OrgstructuralUnit is a node in the per-stakeholder org tree.
// Root units have no parent and nesting level 1.
type OrgstructuralUnit struct {
	ID            string
	StakeholderID string
	ParentID      *string
	Name          string
	NestingLevel  int
	BlockedAt     *time.Time
}

// Blocked reports whether the unit has been blocked.
func (u OrgstructuralUnit) Blocked() bool { return u.BlockedAt != nil }

// TradingPoint is a leaf resource attached to exactly one orgstructural unit.
type TradingPoint struct {
	ID                  string
	StakeholderID       string
	OrgstructuralUnitID string
	Name                string
	BlockedAt           *time.Time
}

// Job is a named title within a stakeholder, optionally carrying a
// stakeholder role for permission purposes and a default workline.
type Job struct {
	ID                      string
	StakeholderID           string
	Name                    string
	StakeholderRoleID       *string
	DefaultWorklineID       *string
	IsScheduleCheckRequired bool
}

// Employment links a user account to exactly one of orgstructural unit or
// trading point for a wall-clock date window. DateTo nil means open-ended.
type Employment struct {
	ID                  string
	StakeholderID       string
	UserID              string
	JobID               *string
	OrgstructuralUnitID *string
	TradingPointID      *string
	DateFrom            time.Time
	DateTo              *time.Time
}

// ActiveAt reports whether the employment window covers the given instant.
func (e Employment) ActiveAt(at time.Time) bool {
	if e.DateFrom.After(at) {
		return false
	}
	return e.DateTo == nil || !e.DateTo.Before(at)
}

// Intersects reports whether the employment window overlaps [from, to].
func (e Employment) Intersects(from, to time.Time) bool {
	if e.DateFrom.After(to) {
		return false
	}
	return e.DateTo == nil || !e.DateTo.Before(from)
}

// Participant is a membership record of a user within a stakeholder.
type Participant struct {
	ID            string
	StakeholderID string
	UserID        string
	Role          RoleMnemocode
	DateFrom      time.Time
	DateTo        *time.Time
}

// ActiveAt reports whether the participant window covers the given instant.
func (p Participant) ActiveAt(at time.Time) bool {
	if p.DateFrom.After(at) {
		return false
	}
	return p.DateTo == nil || !p.DateTo.Before(at)
}

// RolePermission is an immutable catalog entry, independent of any tenant.
type RolePermission struct {
	ID         string
	Mnemocode  string
	Name       string
	Scope      PermissionScope
	Category   PermissionCategory
	OrderIndex int
}

// StakeholderRole is a tenant-defined named role carrying permission grants.
type StakeholderRole struct {
	ID            string
	StakeholderID string
	Name          string
}

// Grant is one permission assignment of a stakeholder role, optionally
// restricted to a set of job subjects. An empty JobSubjectIDs set means the
// grant is unrestricted.
type Grant struct {
	StakeholderRoleID string
	RolePermissionID  string
	JobSubjectIDs     []string
}

// AppliesToJob reports whether the grant covers the given job. Grants with
// no job-subject restriction apply to any job, including employments with
// no job at all.
func (g Grant) AppliesToJob(jobID string) bool {
	if len(g.JobSubjectIDs) == 0 {
		return true
	}
	for _, id := range g.JobSubjectIDs {
		if id == jobID {
			return true
		}
	}
	return false
}

// IDSet is an unordered set of entity identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids, skipping empty strings.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s IDSet) Add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Values returns the ids sorted, so identical sets always render identically.
func (s IDSet) Values() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Footprint is the org attachment of a user's employments, partitioned by kind.
type Footprint struct {
	UnitIDs         IDSet
	TradingPointIDs IDSet
}

// Empty reports whether the footprint covers no org locations at all.
func (f Footprint) Empty() bool {
	return len(f.UnitIDs) == 0 && len(f.TradingPointIDs) == 0
}

// Period is the union envelope of a user's employment windows.
// A nil To means at least one employment is open-ended.
type Period struct {
	From time.Time
	To   *time.Time
}

// IsZero reports whether the period was built from no employments.
func (p Period) IsZero() bool { return p.From.IsZero() && p.To == nil }

// Intersects reports whether the period overlaps [from, to].
func (p Period) Intersects(from, to time.Time) bool {
	if p.IsZero() {
		return false
	}
	if p.From.After(to) {
		return false
	}
	return p.To == nil || !p.To.Before(from)
}

// OrgScope is the outcome of a scope resolution: the orgstructural units and
// trading points the user may act on. Both slices are sorted; empty slices
// mean access is denied everywhere, which is a fact rather than an error.
type OrgScope struct {
	UnitIDs         []string `json:"unit_ids"`
	TradingPointIDs []string `json:"trading_point_ids"`
}

// OrgScopeQuery describes one scope resolution request.
type OrgScopeQuery struct {
	StakeholderID       string
	UserID              string
	PermissionMnemocode string
	SkipOrgFilter       bool
	// At is the instant employments and participants are evaluated against.
	// The zero value means "now".
	At time.Time
}

// JobPermissionQuery describes a per-trading-point/per-job matrix request.
type JobPermissionQuery struct {
	StakeholderID string
	UserID        string
	DateFromUTC   time.Time
	DateToUTC     time.Time
}

// JobPermissionMatrix maps trading point id -> job id -> sorted permission
// mnemocodes. IsFullAccess true means the matrix lookup may be skipped
// entirely; ByTradingPoint is nil in that case.
type JobPermissionMatrix struct {
	IsFullAccess   bool
	ByTradingPoint map[string]map[string][]string
}
