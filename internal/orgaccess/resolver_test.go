package orgaccess

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// scenarioFixture builds tenant st-1 with units Root(level 1) and
// Branch(level 2), a trading point under Root, and user-member employed at
// Branch with job job-j carrying stakeholder role sr-1.
func scenarioFixture() *memStore {
	store := newMemStore()
	store.stakeholders["st-1"] = Stakeholder{ID: "st-1", OwnerUserID: "owner-1"}
	store.units["u-root"] = OrgstructuralUnit{ID: "u-root", StakeholderID: "st-1", NestingLevel: 1}
	store.units["u-branch"] = OrgstructuralUnit{ID: "u-branch", StakeholderID: "st-1", ParentID: strPtr("u-root"), NestingLevel: 2}
	store.points["tp-root"] = TradingPoint{ID: "tp-root", StakeholderID: "st-1", OrgstructuralUnitID: "u-root"}
	store.jobs["job-j"] = Job{ID: "job-j", StakeholderID: "st-1", StakeholderRoleID: strPtr("sr-1")}
	store.participants = []Participant{
		{ID: "pt-1", StakeholderID: "st-1", UserID: "user-member", Role: RoleMember, DateFrom: date(2023, time.January, 1)},
	}
	store.employments = []Employment{
		{
			ID: "emp-1", StakeholderID: "st-1", UserID: "user-member",
			OrgstructuralUnitID: strPtr("u-branch"), JobID: strPtr("job-j"),
			DateFrom: date(2024, time.January, 1),
		},
	}
	store.grants = []Grant{
		{StakeholderRoleID: "sr-1", RolePermissionID: permID(PermShiftPlanEdit)},
	}
	return store
}

func TestResolveRole(t *testing.T) {
	store := scenarioFixture()
	store.participants = append(store.participants, Participant{
		ID: "pt-expired", StakeholderID: "st-1", UserID: "user-expired", Role: RoleAdmin,
		DateFrom: date(2023, time.January, 1),
		DateTo:   timePtr(date(2024, time.May, 31)),
	})
	resolver, _ := NewResolver(store)
	ctx := context.Background()
	now := date(2024, time.June, 1)

	cases := []struct {
		name   string
		userID string
		want   RoleMnemocode
	}{
		{"owner without participant record", "owner-1", RoleOwner},
		{"active member", "user-member", RoleMember},
		{"participant expired yesterday", "user-expired", RoleNoAccess},
		{"stranger", "user-nobody", RoleNoAccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.ResolveRole(ctx, "st-1", tc.userID, now)
			if err != nil {
				t.Fatalf("ResolveRole: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestResolveRoleBlockedStakeholder(t *testing.T) {
	store := scenarioFixture()
	sh := store.stakeholders["st-1"]
	sh.BlockedAt = timePtr(date(2024, time.May, 1))
	store.stakeholders["st-1"] = sh
	resolver, _ := NewResolver(store)
	ctx := context.Background()
	now := date(2024, time.June, 1)

	// Blocking denies everyone but the owner.
	got, err := resolver.ResolveRole(ctx, "st-1", "user-member", now)
	if err != nil {
		t.Fatalf("ResolveRole: %v", err)
	}
	if got != RoleNoAccess {
		t.Fatalf("expected no_access for member of blocked stakeholder, got %s", got)
	}
	got, err = resolver.ResolveRole(ctx, "st-1", "owner-1", now)
	if err != nil {
		t.Fatalf("ResolveRole: %v", err)
	}
	if got != RoleOwner {
		t.Fatalf("owner lost access to blocked stakeholder: %s", got)
	}
}

func TestResolveRoleUnknownStakeholder(t *testing.T) {
	resolver, _ := NewResolver(newMemStore())
	_, err := resolver.ResolveRole(context.Background(), "st-missing", "user-1", time.Now().UTC())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrgScopeOwnerFullAccess(t *testing.T) {
	// The owner has no employment records at all and still receives every
	// unit and trading point of the tenant.
	resolver, _ := NewResolver(scenarioFixture())

	scope, err := resolver.OrgScopeByUser(context.Background(), OrgScopeQuery{
		StakeholderID: "st-1", UserID: "owner-1",
		PermissionMnemocode: PermShiftPlanEdit,
		At:                  date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if !reflect.DeepEqual(scope.UnitIDs, []string{"u-branch", "u-root"}) {
		t.Fatalf("unexpected units: %v", scope.UnitIDs)
	}
	if !reflect.DeepEqual(scope.TradingPointIDs, []string{"tp-root"}) {
		t.Fatalf("unexpected points: %v", scope.TradingPointIDs)
	}
}

func TestOrgScopeSkipOrgFilter(t *testing.T) {
	resolver, _ := NewResolver(scenarioFixture())

	scope, err := resolver.OrgScopeByUser(context.Background(), OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		SkipOrgFilter: true,
		At:            date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if len(scope.UnitIDs) != 2 || len(scope.TradingPointIDs) != 1 {
		t.Fatalf("expected tenant-wide scope, got %+v", scope)
	}
}

func TestOrgScopeMemberWithUnrestrictedGrant(t *testing.T) {
	resolver, _ := NewResolver(scenarioFixture())

	scope, err := resolver.OrgScopeByUser(context.Background(), OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		PermissionMnemocode: PermShiftPlanEdit,
		At:                  date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if !reflect.DeepEqual(scope.UnitIDs, []string{"u-branch"}) {
		t.Fatalf("unexpected units: %v", scope.UnitIDs)
	}
	if len(scope.TradingPointIDs) != 0 {
		t.Fatalf("unexpected points: %v", scope.TradingPointIDs)
	}
}

func TestOrgScopeJobRestrictedGrantExcludes(t *testing.T) {
	store := scenarioFixture()
	// The grant only covers job-other, not the user's job-j.
	store.grants = []Grant{
		{StakeholderRoleID: "sr-1", RolePermissionID: permID(PermShiftPlanEdit), JobSubjectIDs: []string{"job-other"}},
	}
	resolver, _ := NewResolver(store)

	scope, err := resolver.OrgScopeByUser(context.Background(), OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		PermissionMnemocode: PermShiftPlanEdit,
		At:                  date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if len(scope.UnitIDs) != 0 || len(scope.TradingPointIDs) != 0 {
		t.Fatalf("expected empty scope, got %+v", scope)
	}
}

func TestOrgScopeGlobalGrantKeepsWholeFootprint(t *testing.T) {
	store := scenarioFixture()
	store.grants = append(store.grants, Grant{StakeholderRoleID: "sr-1", RolePermissionID: permID(PermParticipantEdit)})
	resolver, _ := NewResolver(store)
	ctx := context.Background()

	scope, err := resolver.OrgScopeByUser(ctx, OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		PermissionMnemocode: PermParticipantEdit,
		At:                  date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if !reflect.DeepEqual(scope.UnitIDs, []string{"u-branch"}) {
		t.Fatalf("unexpected units: %v", scope.UnitIDs)
	}

	// Without the grant the global permission collapses the scope.
	scope, err = resolver.OrgScopeByUser(ctx, OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		PermissionMnemocode: PermStakeholderRoleEdit,
		At:                  date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if len(scope.UnitIDs) != 0 {
		t.Fatalf("expected empty scope without grant, got %v", scope.UnitIDs)
	}
}

func TestOrgScopeIdempotent(t *testing.T) {
	resolver, _ := NewResolver(scenarioFixture())
	q := OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		PermissionMnemocode: PermShiftPlanEdit,
		At:                  date(2024, time.June, 1),
	}

	first, err := resolver.OrgScopeByUser(context.Background(), q)
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	second, err := resolver.OrgScopeByUser(context.Background(), q)
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolution not idempotent: %+v vs %+v", first, second)
	}
}

func TestOrgScopeUnknownMnemocode(t *testing.T) {
	resolver, _ := NewResolver(scenarioFixture())
	_, err := resolver.OrgScopeByUser(context.Background(), OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		PermissionMnemocode: "no_such_permission",
		At:                  date(2024, time.June, 1),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnusedCategoryHiddenButEnforceable(t *testing.T) {
	store := scenarioFixture()
	store.grants = append(store.grants, Grant{StakeholderRoleID: "sr-1", RolePermissionID: permID(PermTimesheetExport)})
	resolver, _ := NewResolver(store)
	ctx := context.Background()

	listed, err := resolver.ListRolePermissions(ctx)
	if err != nil {
		t.Fatalf("ListRolePermissions: %v", err)
	}
	for _, p := range listed {
		if p.Mnemocode == PermTimesheetExport {
			t.Fatal("unused-category permission leaked into listing")
		}
	}

	// Enforcement still sees it.
	scope, err := resolver.OrgScopeByUser(ctx, OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-member",
		PermissionMnemocode: PermTimesheetExport,
		At:                  date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if !reflect.DeepEqual(scope.UnitIDs, []string{"u-branch"}) {
		t.Fatalf("unexpected units for unused-category permission: %v", scope.UnitIDs)
	}
}

func TestOrgScopeNoAccessYieldsEmpty(t *testing.T) {
	resolver, _ := NewResolver(scenarioFixture())
	scope, err := resolver.OrgScopeByUser(context.Background(), OrgScopeQuery{
		StakeholderID: "st-1", UserID: "user-nobody",
		At: date(2024, time.June, 1),
	})
	if err != nil {
		t.Fatalf("OrgScopeByUser: %v", err)
	}
	if len(scope.UnitIDs) != 0 || len(scope.TradingPointIDs) != 0 {
		t.Fatalf("expected empty scope for no_access, got %+v", scope)
	}
}
