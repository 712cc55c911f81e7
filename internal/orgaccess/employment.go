package orgaccess

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ActiveOrgFootprint partitions the user's employments active at the given
// instant by their org attachment kind. An employment attached to both or
// neither of unit and trading point is data corruption and fails the whole
// resolution.
func (r *Resolver) ActiveOrgFootprint(ctx context.Context, stakeholderID, userID string, at time.Time) (Footprint, error) {
	employments, err := r.userEmployments(ctx, stakeholderID, userID)
	if err != nil {
		return Footprint{}, err
	}
	fp := Footprint{UnitIDs: NewIDSet(), TradingPointIDs: NewIDSet()}
	for _, e := range employments {
		if !e.ActiveAt(at) {
			continue
		}
		unitID, pointID, err := employmentAttachment(e)
		if err != nil {
			return Footprint{}, err
		}
		if unitID != "" {
			fp.UnitIDs.Add(unitID)
		} else {
			fp.TradingPointIDs.Add(pointID)
		}
	}
	return fp, nil
}

// EmploymentPeriod returns the union envelope of the user's employment
// windows: the earliest date-from and the latest date-to, open-ended if any
// employment is. A user with no employments yields the zero Period.
func (r *Resolver) EmploymentPeriod(ctx context.Context, stakeholderID, userID string) (Period, error) {
	employments, err := r.userEmployments(ctx, stakeholderID, userID)
	if err != nil {
		return Period{}, err
	}
	var p Period
	openEnded := false
	for i, e := range employments {
		if i == 0 || e.DateFrom.Before(p.From) {
			p.From = e.DateFrom
		}
		if e.DateTo == nil {
			openEnded = true
			continue
		}
		if p.To == nil || e.DateTo.After(*p.To) {
			to := *e.DateTo
			p.To = &to
		}
	}
	if openEnded {
		p.To = nil
	}
	return p, nil
}

// HasScheduleCheckRequired reports whether any of the user's employments at
// the trading point carries a job flagged for schedule checking while its
// window intersects [from, to]. Consumers use this to gate stricter
// shift-overlap validation.
func (r *Resolver) HasScheduleCheckRequired(ctx context.Context, stakeholderID, userID, tradingPointID string, from, to time.Time) (bool, error) {
	tradingPointID = strings.TrimSpace(tradingPointID)
	if tradingPointID == "" {
		return false, fmt.Errorf("%w: trading_point_id is required", ErrInvalidInput)
	}
	employments, err := r.userEmployments(ctx, stakeholderID, userID)
	if err != nil {
		return false, err
	}

	var candidate []Employment
	jobIDs := NewIDSet()
	for _, e := range employments {
		if e.TradingPointID == nil || *e.TradingPointID != tradingPointID {
			continue
		}
		if e.JobID == nil || !e.Intersects(from, to) {
			continue
		}
		candidate = append(candidate, e)
		jobIDs.Add(*e.JobID)
	}
	if len(candidate) == 0 {
		return false, nil
	}

	jobs, err := r.store.JobsByIDs(ctx, stakeholderID, jobIDs.Values())
	if err != nil {
		return false, err
	}
	required := NewIDSet()
	for _, j := range jobs {
		if j.IsScheduleCheckRequired {
			required.Add(j.ID)
		}
	}
	for _, e := range candidate {
		if required.Has(*e.JobID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) userEmployments(ctx context.Context, stakeholderID, userID string) ([]Employment, error) {
	stakeholderID = strings.TrimSpace(stakeholderID)
	userID = strings.TrimSpace(userID)
	if stakeholderID == "" || userID == "" {
		return nil, fmt.Errorf("%w: stakeholder_id and user_id are required", ErrInvalidInput)
	}
	return r.store.EmploymentsByUser(ctx, stakeholderID, userID)
}

// employmentAttachment validates the mutually-exclusive attachment invariant
// and returns whichever side is set.
func employmentAttachment(e Employment) (unitID, tradingPointID string, err error) {
	hasUnit := e.OrgstructuralUnitID != nil && *e.OrgstructuralUnitID != ""
	hasPoint := e.TradingPointID != nil && *e.TradingPointID != ""
	switch {
	case hasUnit && hasPoint:
		return "", "", fmt.Errorf("%w: employment %s attached to both unit and trading point", ErrInvariant, e.ID)
	case hasUnit:
		return *e.OrgstructuralUnitID, "", nil
	case hasPoint:
		return "", *e.TradingPointID, nil
	default:
		return "", "", fmt.Errorf("%w: employment %s attached to neither unit nor trading point", ErrInvariant, e.ID)
	}
}
