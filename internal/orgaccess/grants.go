package orgaccess

import (
	"context"
	"time"
)

// LoadGrants returns every permission grant of the given stakeholder roles,
// deduplicating the role id list first. Merging grants across the several
// roles a user may hold is left to the resolution paths, because the correct
// merge differs by permission scope class.
func (r *Resolver) LoadGrants(ctx context.Context, roleIDs []string) ([]Grant, error) {
	ids := NewIDSet(roleIDs...)
	if len(ids) == 0 {
		return nil, nil
	}
	return r.store.GrantsByRoleIDs(ctx, ids.Values())
}

// locatedRole ties one employment's org location to the stakeholder role the
// employment's job carries. Employments without a job, or with a job not
// linked to a role, contribute no locatedRole.
type locatedRole struct {
	roleID         string
	jobID          string
	unitID         string
	tradingPointID string
}

// locatedRoles resolves the user's employments active at the instant into
// (role, job, location) triples via each employment's job.
func (r *Resolver) locatedRoles(ctx context.Context, stakeholderID, userID string, at time.Time) ([]locatedRole, error) {
	employments, err := r.userEmployments(ctx, stakeholderID, userID)
	if err != nil {
		return nil, err
	}

	jobIDs := NewIDSet()
	active := employments[:0]
	for _, e := range employments {
		if !e.ActiveAt(at) {
			continue
		}
		active = append(active, e)
		if e.JobID != nil {
			jobIDs.Add(*e.JobID)
		}
	}
	if len(jobIDs) == 0 {
		return nil, nil
	}

	jobs, err := r.store.JobsByIDs(ctx, stakeholderID, jobIDs.Values())
	if err != nil {
		return nil, err
	}
	roleByJob := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if j.StakeholderRoleID != nil && *j.StakeholderRoleID != "" {
			roleByJob[j.ID] = *j.StakeholderRoleID
		}
	}

	var located []locatedRole
	for _, e := range active {
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
		located = append(located, locatedRole{
			roleID:         roleID,
			jobID:          *e.JobID,
			unitID:         unitID,
			tradingPointID: pointID,
		})
	}
	return located, nil
}
