package orgaccess

import (
	"context"
	"time"
)

// Store describes the read-only query capabilities the engine needs from the
// storage layer. Every query is scoped to one stakeholder; implementations
// must never return rows belonging to another tenant. All reads within one
// resolution are expected to see a single consistent snapshot.
type Store interface {
	// StakeholderByID returns the stakeholder or ErrNotFound.
	StakeholderByID(ctx context.Context, id string) (*Stakeholder, error)

	// ParticipantsByUser returns every membership record of the user within
	// the stakeholder, regardless of date window. Absence is an empty slice.
	ParticipantsByUser(ctx context.Context, stakeholderID, userID string) ([]Participant, error)

	// RootUnits returns the units with no parent (nesting level 1).
	RootUnits(ctx context.Context, stakeholderID string, includeBlocked bool) ([]OrgstructuralUnit, error)

	// UnitsByParentIDs returns the direct children of the given units.
	UnitsByParentIDs(ctx context.Context, stakeholderID string, parentIDs []string, includeBlocked bool) ([]OrgstructuralUnit, error)

	// UnitsByIDs returns the units with the given ids; unknown ids are
	// silently omitted.
	UnitsByIDs(ctx context.Context, stakeholderID string, ids []string, includeBlocked bool) ([]OrgstructuralUnit, error)

	// TradingPointsByUnitIDs returns the trading points attached to any of
	// the given units.
	TradingPointsByUnitIDs(ctx context.Context, stakeholderID string, unitIDs []string) ([]TradingPoint, error)

	// EmploymentsByUser returns every employment of the user within the
	// stakeholder, regardless of date window.
	EmploymentsByUser(ctx context.Context, stakeholderID, userID string) ([]Employment, error)

	// EmploymentsAtTradingPoints returns employments of any user attached
	// directly to the given trading points whose window intersects [from, to].
	EmploymentsAtTradingPoints(ctx context.Context, stakeholderID string, tradingPointIDs []string, from, to time.Time) ([]Employment, error)

	// JobsByIDs returns the jobs with the given ids; unknown ids are omitted.
	JobsByIDs(ctx context.Context, stakeholderID string, ids []string) ([]Job, error)

	// GrantsByRoleIDs returns every permission grant of the given stakeholder
	// roles, each carrying its job-subject restriction set.
	GrantsByRoleIDs(ctx context.Context, roleIDs []string) ([]Grant, error)

	// RolePermissionByMnemocode returns the catalog entry or ErrNotFound.
	RolePermissionByMnemocode(ctx context.Context, mnemocode string) (*RolePermission, error)

	// RolePermissionsByIDs returns catalog entries; unknown ids are omitted.
	RolePermissionsByIDs(ctx context.Context, ids []string) ([]RolePermission, error)

	// ListRolePermissions returns the catalog ordered by OrderIndex. Entries
	// in the unused category are included only when requested.
	ListRolePermissions(ctx context.Context, includeUnused bool) ([]RolePermission, error)
}
