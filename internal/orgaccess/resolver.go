package orgaccess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Resolver answers "which part of the org may this user touch" questions.
// It is a read-only, request-scoped computation over the Store; resolutions
// for different requests share no mutable state.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("orgaccess store is required")
	}
	return &Resolver{store: store}, nil
}

// ResolveRole returns the membership role of the user within the stakeholder
// at the given instant. The stakeholder's owner is always Owner, even without
// an explicit participant record. A blocked stakeholder yields NoAccess for
// everyone but the owner. Absence of an active participant record is the
// ordinary NoAccess outcome, not an error.
func (r *Resolver) ResolveRole(ctx context.Context, stakeholderID, userID string, at time.Time) (RoleMnemocode, error) {
	stakeholderID = strings.TrimSpace(stakeholderID)
	userID = strings.TrimSpace(userID)
	if stakeholderID == "" || userID == "" {
		return RoleNoAccess, fmt.Errorf("%w: stakeholder_id and user_id are required", ErrInvalidInput)
	}

	sh, err := r.store.StakeholderByID(ctx, stakeholderID)
	if err != nil {
		return RoleNoAccess, err
	}
	if sh.OwnerUserID == userID {
		return RoleOwner, nil
	}
	if sh.Blocked() {
		return RoleNoAccess, nil
	}

	participants, err := r.store.ParticipantsByUser(ctx, stakeholderID, userID)
	if err != nil {
		return RoleNoAccess, err
	}
	for _, p := range participants {
		if p.ActiveAt(at) {
			return p.Role, nil
		}
	}
	return RoleNoAccess, nil
}

// RolePermissionByMnemocode looks up a catalog entry. An unknown mnemocode is
// a programmer error surfaced as ErrNotFound, since mnemocodes are compiled
// into calling code rather than taken from user input.
func (r *Resolver) RolePermissionByMnemocode(ctx context.Context, mnemocode string) (RolePermission, error) {
	mnemocode = strings.TrimSpace(mnemocode)
	if mnemocode == "" {
		return RolePermission{}, fmt.Errorf("%w: permission mnemocode is required", ErrInvalidInput)
	}
	perm, err := r.store.RolePermissionByMnemocode(ctx, mnemocode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RolePermission{}, fmt.Errorf("%w: permission mnemocode %q", ErrNotFound, mnemocode)
		}
		return RolePermission{}, err
	}
	return *perm, nil
}

// ListRolePermissions returns the catalog in listing order, hiding the
// unused category. Enforcement paths go through RolePermissionByMnemocode
// and see the full catalog.
func (r *Resolver) ListRolePermissions(ctx context.Context) ([]RolePermission, error) {
	return r.store.ListRolePermissions(ctx, false)
}

// OrgScopeByUser resolves the orgstructural units and trading points the
// user may act on within the stakeholder. Owner/Admin roles and
// SkipOrgFilter short-circuit to the full tenant-wide set. Otherwise the
// user's active employment footprint is computed, optionally narrowed to the
// locations where the requested permission is actually granted, and
// surviving units are expanded to their descendant closure. An empty scope
// denies access; it is a fact, not an error.
func (r *Resolver) OrgScopeByUser(ctx context.Context, q OrgScopeQuery) (OrgScope, error) {
	q.StakeholderID = strings.TrimSpace(q.StakeholderID)
	q.UserID = strings.TrimSpace(q.UserID)
	if q.StakeholderID == "" || q.UserID == "" {
		return OrgScope{}, fmt.Errorf("%w: stakeholder_id and user_id are required", ErrInvalidInput)
	}
	at := q.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	role, err := r.ResolveRole(ctx, q.StakeholderID, q.UserID, at)
	if err != nil {
		return OrgScope{}, err
	}
	if role.FullAccess() || q.SkipOrgFilter {
		return r.fullOrgScope(ctx, q.StakeholderID)
	}
	if role == RoleNoAccess {
		return emptyOrgScope(), nil
	}

	footprint, err := r.ActiveOrgFootprint(ctx, q.StakeholderID, q.UserID, at)
	if err != nil {
		return OrgScope{}, err
	}

	if q.PermissionMnemocode != "" {
		perm, err := r.RolePermissionByMnemocode(ctx, q.PermissionMnemocode)
		if err != nil {
			return OrgScope{}, err
		}
		footprint, err = r.filterFootprintByPermission(ctx, q.StakeholderID, q.UserID, perm, footprint, at)
		if err != nil {
			return OrgScope{}, err
		}
	}

	if footprint.Empty() {
		return emptyOrgScope(), nil
	}

	// A grant at a unit implies access to everything beneath it; trading
	// points are leaves and pass through unchanged.
	units, err := r.DescendantClosure(ctx, q.StakeholderID, footprint.UnitIDs.Values(), false)
	if err != nil {
		return OrgScope{}, err
	}
	return OrgScope{
		UnitIDs:         units.Values(),
		TradingPointIDs: footprint.TradingPointIDs.Values(),
	}, nil
}

// fullOrgScope expands every root unit to its descendant closure and gathers
// all trading points beneath, yielding the tenant-wide set.
func (r *Resolver) fullOrgScope(ctx context.Context, stakeholderID string) (OrgScope, error) {
	roots, err := r.store.RootUnits(ctx, stakeholderID, false)
	if err != nil {
		return OrgScope{}, err
	}
	seed := make([]string, 0, len(roots))
	for _, u := range roots {
		if u.StakeholderID != stakeholderID {
			return OrgScope{}, fmt.Errorf("%w: unit %s belongs to stakeholder %s", ErrInvariant, u.ID, u.StakeholderID)
		}
		seed = append(seed, u.ID)
	}
	if len(seed) == 0 {
		return emptyOrgScope(), nil
	}
	units, err := r.DescendantClosure(ctx, stakeholderID, seed, false)
	if err != nil {
		return OrgScope{}, err
	}
	points, err := r.store.TradingPointsByUnitIDs(ctx, stakeholderID, units.Values())
	if err != nil {
		return OrgScope{}, err
	}
	pointIDs := NewIDSet()
	for _, tp := range points {
		if tp.StakeholderID != stakeholderID {
			return OrgScope{}, fmt.Errorf("%w: trading point %s belongs to stakeholder %s", ErrInvariant, tp.ID, tp.StakeholderID)
		}
		pointIDs.Add(tp.ID)
	}
	return OrgScope{UnitIDs: units.Values(), TradingPointIDs: pointIDs.Values()}, nil
}

// filterFootprintByPermission keeps only the footprint locations where some
// role held there grants the permission, applying the merge rules of the
// permission's scope class.
func (r *Resolver) filterFootprintByPermission(ctx context.Context, stakeholderID, userID string, perm RolePermission, footprint Footprint, at time.Time) (Footprint, error) {
	located, err := r.locatedRoles(ctx, stakeholderID, userID, at)
	if err != nil {
		return Footprint{}, err
	}
	if len(located) == 0 {
		return Footprint{UnitIDs: NewIDSet(), TradingPointIDs: NewIDSet()}, nil
	}

	roleIDs := make([]string, 0, len(located))
	for _, lr := range located {
		roleIDs = append(roleIDs, lr.roleID)
	}
	grants, err := r.LoadGrants(ctx, roleIDs)
	if err != nil {
		return Footprint{}, err
	}
	grantsByRole := make(map[string][]Grant, len(grants))
	for _, g := range grants {
		if g.RolePermissionID != perm.ID {
			continue
		}
		grantsByRole[g.StakeholderRoleID] = append(grantsByRole[g.StakeholderRoleID], g)
	}

	switch perm.Scope {
	case ScopeGlobal:
		// Tenant-wide boolean: any role granting it keeps the whole
		// footprint, otherwise the scope collapses.
		if len(grantsByRole) > 0 {
			return footprint, nil
		}
		return Footprint{UnitIDs: NewIDSet(), TradingPointIDs: NewIDSet()}, nil
	case ScopeOrg, ScopeOrgJob:
		kept := Footprint{UnitIDs: NewIDSet(), TradingPointIDs: NewIDSet()}
		for _, lr := range located {
			roleGrants := grantsByRole[lr.roleID]
			if len(roleGrants) == 0 {
				continue
			}
			if perm.Scope == ScopeOrgJob && !anyGrantAppliesToJob(roleGrants, lr.jobID) {
				continue
			}
			if lr.unitID != "" && footprint.UnitIDs.Has(lr.unitID) {
				kept.UnitIDs.Add(lr.unitID)
			}
			if lr.tradingPointID != "" && footprint.TradingPointIDs.Has(lr.tradingPointID) {
				kept.TradingPointIDs.Add(lr.tradingPointID)
			}
		}
		return kept, nil
	default:
		return Footprint{}, fmt.Errorf("%w: unknown permission scope %q for %s", ErrInvariant, perm.Scope, perm.Mnemocode)
	}
}

func anyGrantAppliesToJob(grants []Grant, jobID string) bool {
	for _, g := range grants {
		if g.AppliesToJob(jobID) {
			return true
		}
	}
	return false
}

func emptyOrgScope() OrgScope {
	return OrgScope{UnitIDs: []string{}, TradingPointIDs: []string{}}
}
