package orgaccess

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TradingPointJobPermissions builds the per-trading-point/per-job permission
// matrix for job-scoped permissions: which job-scoped actions the user may
// perform at which point, for jobs whose holders' employment windows
// intersect [DateFromUTC, DateToUTC]. Owner/Admin short-circuit to
// IsFullAccess=true and callers must skip the matrix lookup entirely.
func (r *Resolver) TradingPointJobPermissions(ctx context.Context, q JobPermissionQuery) (JobPermissionMatrix, error) {
	q.StakeholderID = strings.TrimSpace(q.StakeholderID)
	q.UserID = strings.TrimSpace(q.UserID)
	if q.StakeholderID == "" || q.UserID == "" {
		return JobPermissionMatrix{}, fmt.Errorf("%w: stakeholder_id and user_id are required", ErrInvalidInput)
	}
	if q.DateFromUTC.IsZero() || q.DateToUTC.IsZero() || q.DateFromUTC.After(q.DateToUTC) {
		return JobPermissionMatrix{}, fmt.Errorf("%w: date window is required and must be ordered", ErrInvalidInput)
	}

	role, err := r.ResolveRole(ctx, q.StakeholderID, q.UserID, time.Now().UTC())
	if err != nil {
		return JobPermissionMatrix{}, err
	}
	if role.FullAccess() {
		return JobPermissionMatrix{IsFullAccess: true}, nil
	}

	matrix := JobPermissionMatrix{ByTradingPoint: map[string]map[string][]string{}}
	if role == RoleNoAccess {
		return matrix, nil
	}

	rolesAtPoint, err := r.rolesByTradingPoint(ctx, q)
	if err != nil {
		return JobPermissionMatrix{}, err
	}
	if len(rolesAtPoint) == 0 {
		return matrix, nil
	}

	grantsByRole, mnemocodeByPermID, err := r.jobScopedGrants(ctx, rolesAtPoint)
	if err != nil {
		return JobPermissionMatrix{}, err
	}
	if len(grantsByRole) == 0 {
		return matrix, nil
	}

	pointIDs := make([]string, 0, len(rolesAtPoint))
	for id := range rolesAtPoint {
		pointIDs = append(pointIDs, id)
	}
	sort.Strings(pointIDs)

	staff, err := r.store.EmploymentsAtTradingPoints(ctx, q.StakeholderID, pointIDs, q.DateFromUTC, q.DateToUTC)
	if err != nil {
		return JobPermissionMatrix{}, err
	}

	for _, e := range staff {
		if e.TradingPointID == nil || e.JobID == nil {
			continue
		}
		pointID, jobID := *e.TradingPointID, *e.JobID
		roles, ok := rolesAtPoint[pointID]
		if !ok {
			continue
		}
		for roleID := range roles {
			for _, g := range grantsByRole[roleID] {
				if !g.AppliesToJob(jobID) {
					continue
				}
				byJob := matrix.ByTradingPoint[pointID]
				if byJob == nil {
					byJob = map[string][]string{}
					matrix.ByTradingPoint[pointID] = byJob
				}
				byJob[jobID] = appendUnique(byJob[jobID], mnemocodeByPermID[g.RolePermissionID])
			}
		}
	}

	for _, byJob := range matrix.ByTradingPoint {
		for _, codes := range byJob {
			sort.Strings(codes)
		}
	}
	return matrix, nil
}

// rolesByTradingPoint maps every trading point inside the user's windowed
// footprint to the stakeholder roles the user holds there. A role held at an
// orgstructural unit reaches every trading point beneath the unit's
// descendant closure.
func (r *Resolver) rolesByTradingPoint(ctx context.Context, q JobPermissionQuery) (map[string]IDSet, error) {
	employments, err := r.userEmployments(ctx, q.StakeholderID, q.UserID)
	if err != nil {
		return nil, err
	}

	jobIDs := NewIDSet()
	var windowed []Employment
	for _, e := range employments {
		if !e.Intersects(q.DateFromUTC, q.DateToUTC) {
			continue
		}
		windowed = append(windowed, e)
		if e.JobID != nil {
			jobIDs.Add(*e.JobID)
		}
	}
	if len(jobIDs) == 0 {
		return nil, nil
	}

	jobs, err := r.store.JobsByIDs(ctx, q.StakeholderID, jobIDs.Values())
	if err != nil {
		return nil, err
	}
	roleByJob := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if j.StakeholderRoleID != nil && *j.StakeholderRoleID != "" {
			roleByJob[j.ID] = *j.StakeholderRoleID
		}
	}

	result := map[string]IDSet{}
	addRole := func(pointID, roleID string) {
		set, ok := result[pointID]
		if !ok {
			set = NewIDSet()
			result[pointID] = set
		}
		set.Add(roleID)
	}

	closureCache := map[string][]string{}
	for _, e := range windowed {
		if e.JobID == nil {
			continue
		}
		roleID, ok := roleByJob[*e.JobID]
		if !ok {
			continue
		}
		unitID, pointID, err := employmentAttachment(e)
		if err != nil {
			return nil, err
		}
		if pointID != "" {
			addRole(pointID, roleID)
			continue
		}
		reachable, ok := closureCache[unitID]
		if !ok {
			closure, err := r.DescendantClosure(ctx, q.StakeholderID, []string{unitID}, false)
			if err != nil {
				return nil, err
			}
			points, err := r.store.TradingPointsByUnitIDs(ctx, q.StakeholderID, closure.Values())
			if err != nil {
				return nil, err
			}
			reachable = make([]string, 0, len(points))
			for _, tp := range points {
				reachable = append(reachable, tp.ID)
			}
			closureCache[unitID] = reachable
		}
		for _, tpID := range reachable {
			addRole(tpID, roleID)
		}
	}
	return result, nil
}

// jobScopedGrants loads the grants of every role appearing in the point map
// and keeps the ones whose permission carries the org-job scope class.
func (r *Resolver) jobScopedGrants(ctx context.Context, rolesAtPoint map[string]IDSet) (map[string][]Grant, map[string]string, error) {
	roleIDs := NewIDSet()
	for _, roles := range rolesAtPoint {
		for id := range roles {
			roleIDs.Add(id)
		}
	}
	grants, err := r.LoadGrants(ctx, roleIDs.Values())
	if err != nil {
		return nil, nil, err
	}
	if len(grants) == 0 {
		return nil, nil, nil
	}

	permIDs := NewIDSet()
	for _, g := range grants {
		permIDs.Add(g.RolePermissionID)
	}
	perms, err := r.store.RolePermissionsByIDs(ctx, permIDs.Values())
	if err != nil {
		return nil, nil, err
	}
	mnemocodeByPermID := make(map[string]string, len(perms))
	for _, p := range perms {
		if p.Scope == ScopeOrgJob {
			mnemocodeByPermID[p.ID] = p.Mnemocode
		}
	}

	grantsByRole := map[string][]Grant{}
	for _, g := range grants {
		if _, ok := mnemocodeByPermID[g.RolePermissionID]; !ok {
			continue
		}
		grantsByRole[g.StakeholderRoleID] = append(grantsByRole[g.StakeholderRoleID], g)
	}
	return grantsByRole, mnemocodeByPermID, nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
