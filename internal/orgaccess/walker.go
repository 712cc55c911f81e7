package orgaccess

import (
	"context"
	"fmt"
	"strings"
)

// DescendantClosure returns the seed units plus every unit reachable from
// them by following parent->child edges within the stakeholder. Traversal is
// iterative frontier expansion, one batched child fetch per tree level, so
// arbitrarily deep trees cannot exhaust the stack. Already-visited ids are
// never re-queried, which also terminates the walk should the stored tree be
// accidentally cyclic.
func (r *Resolver) DescendantClosure(ctx context.Context, stakeholderID string, seed []string, includeBlocked bool) (IDSet, error) {
	stakeholderID = strings.TrimSpace(stakeholderID)
	if stakeholderID == "" {
		return nil, fmt.Errorf("%w: stakeholder_id is required", ErrInvalidInput)
	}
	result := NewIDSet(seed...)
	frontier := result.Values()

	for len(frontier) > 0 {
		children, err := r.store.UnitsByParentIDs(ctx, stakeholderID, frontier, includeBlocked)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, u := range children {
			if u.StakeholderID != stakeholderID {
				return nil, fmt.Errorf("%w: unit %s belongs to stakeholder %s", ErrInvariant, u.ID, u.StakeholderID)
			}
			if result.Has(u.ID) {
				continue
			}
			result.Add(u.ID)
			next = append(next, u.ID)
		}
		frontier = next
	}
	return result, nil
}

// AncestorClosure returns the seed units plus every unit reachable by
// following child->parent edges within the stakeholder, using the same
// frontier expansion and visited-set guard as DescendantClosure. Parent ids
// enter the result only after a stakeholder-scoped fetch confirms them: a
// parent reference that resolves to another stakeholder's unit, or to no unit
// at all, is corrupt tree data and fails with ErrInvariant. Blocked parents
// are skipped (their own ancestors stay unreachable) unless includeBlocked
// is set.
func (r *Resolver) AncestorClosure(ctx context.Context, stakeholderID string, seed []string, includeBlocked bool) (IDSet, error) {
	stakeholderID = strings.TrimSpace(stakeholderID)
	if stakeholderID == "" {
		return nil, fmt.Errorf("%w: stakeholder_id is required", ErrInvalidInput)
	}
	result := NewIDSet(seed...)
	frontier, err := r.store.UnitsByIDs(ctx, stakeholderID, result.Values(), includeBlocked)
	if err != nil {
		return nil, err
	}

	for len(frontier) > 0 {
		var want []string
		wantSet := NewIDSet()
		for _, u := range frontier {
			if u.StakeholderID != stakeholderID {
				return nil, fmt.Errorf("%w: unit %s belongs to stakeholder %s", ErrInvariant, u.ID, u.StakeholderID)
			}
			if u.ParentID == nil {
				continue
			}
			parent := strings.TrimSpace(*u.ParentID)
			if parent == "" || result.Has(parent) || wantSet.Has(parent) {
				continue
			}
			wantSet.Add(parent)
			want = append(want, parent)
		}
		if len(want) == 0 {
			break
		}

		// Fetch blocked parents too so a missing id always means the
		// reference points outside the stakeholder's tree.
		parents, err := r.store.UnitsByIDs(ctx, stakeholderID, want, true)
		if err != nil {
			return nil, err
		}
		resolved := NewIDSet()
		var next []OrgstructuralUnit
		for _, p := range parents {
			if p.StakeholderID != stakeholderID {
				return nil, fmt.Errorf("%w: unit %s belongs to stakeholder %s", ErrInvariant, p.ID, p.StakeholderID)
			}
			resolved.Add(p.ID)
			if !includeBlocked && p.Blocked() {
				continue
			}
			if result.Has(p.ID) {
				continue
			}
			result.Add(p.ID)
			next = append(next, p)
		}
		for _, id := range want {
			if !resolved.Has(id) {
				return nil, fmt.Errorf("%w: parent unit %s not found for stakeholder %s", ErrInvariant, id, stakeholderID)
			}
		}
		frontier = next
	}
	return result, nil
}
