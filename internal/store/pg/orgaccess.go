package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shiftway.org/internal/orgaccess"
)

var _ orgaccess.Store = (*Store)(nil)

func (s *Store) StakeholderByID(ctx context.Context, id string) (*orgaccess.Stakeholder, error) {
	var sh orgaccess.Stakeholder
	err := s.db.QueryRowContext(ctx, `
		select id, name, owner_user_id, blocked_at, created_at, updated_at
		from stakeholders
		where id = $1
	`, id).Scan(&sh.ID, &sh.Name, &sh.OwnerUserID, &sh.BlockedAt, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orgaccess.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *Store) ParticipantsByUser(ctx context.Context, stakeholderID, userID string) ([]orgaccess.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, stakeholder_id, user_id, role_mnemocode, date_from, date_to
		from participants
		where stakeholder_id = $1 and user_id = $2
		order by date_from
	`, stakeholderID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []orgaccess.Participant
	for rows.Next() {
		var p orgaccess.Participant
		if err := rows.Scan(&p.ID, &p.StakeholderID, &p.UserID, &p.Role, &p.DateFrom, &p.DateTo); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

const unitColumns = `id, stakeholder_id, parent_id, name, nesting_level, blocked_at`

func scanUnits(rows *sql.Rows) ([]orgaccess.OrgstructuralUnit, error) {
	defer rows.Close()
	var result []orgaccess.OrgstructuralUnit
	for rows.Next() {
		var u orgaccess.OrgstructuralUnit
		if err := rows.Scan(&u.ID, &u.StakeholderID, &u.ParentID, &u.Name, &u.NestingLevel, &u.BlockedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) RootUnits(ctx context.Context, stakeholderID string, includeBlocked bool) ([]orgaccess.OrgstructuralUnit, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+unitColumns+`
		from orgstructural_units
		where stakeholder_id = $1 and parent_id is null
		  and ($2 or blocked_at is null)
		order by id
	`, stakeholderID, includeBlocked)
	if err != nil {
		return nil, err
	}
	return scanUnits(rows)
}

func (s *Store) UnitsByParentIDs(ctx context.Context, stakeholderID string, parentIDs []string, includeBlocked bool) ([]orgaccess.OrgstructuralUnit, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	args := appendIDs([]any{stakeholderID, includeBlocked}, parentIDs)
	rows, err := s.db.QueryContext(ctx, `
		select `+unitColumns+`
		from orgstructural_units
		where stakeholder_id = $1
		  and ($2 or blocked_at is null)
		  and parent_id in (`+inPlaceholders(3, len(parentIDs))+`)
		order by id
	`, args...)
	if err != nil {
		return nil, err
	}
	return scanUnits(rows)
}

func (s *Store) UnitsByIDs(ctx context.Context, stakeholderID string, ids []string, includeBlocked bool) ([]orgaccess.OrgstructuralUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := appendIDs([]any{stakeholderID, includeBlocked}, ids)
	rows, err := s.db.QueryContext(ctx, `
		select `+unitColumns+`
		from orgstructural_units
		where stakeholder_id = $1
		  and ($2 or blocked_at is null)
		  and id in (`+inPlaceholders(3, len(ids))+`)
		order by id
	`, args...)
	if err != nil {
		return nil, err
	}
	return scanUnits(rows)
}

func (s *Store) TradingPointsByUnitIDs(ctx context.Context, stakeholderID string, unitIDs []string) ([]orgaccess.TradingPoint, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	args := appendIDs([]any{stakeholderID}, unitIDs)
	rows, err := s.db.QueryContext(ctx, `
		select id, stakeholder_id, orgstructural_unit_id, name, blocked_at
		from trading_points
		where stakeholder_id = $1 and blocked_at is null
		  and orgstructural_unit_id in (`+inPlaceholders(2, len(unitIDs))+`)
		order by id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []orgaccess.TradingPoint
	for rows.Next() {
		var tp orgaccess.TradingPoint
		if err := rows.Scan(&tp.ID, &tp.StakeholderID, &tp.OrgstructuralUnitID, &tp.Name, &tp.BlockedAt); err != nil {
			return nil, err
		}
		result = append(result, tp)
	}
	return result, rows.Err()
}

const employmentColumns = `id, stakeholder_id, user_id, job_id, orgstructural_unit_id, trading_point_id, date_from, date_to`

func scanEmployments(rows *sql.Rows) ([]orgaccess.Employment, error) {
	defer rows.Close()
	var result []orgaccess.Employment
	for rows.Next() {
		var e orgaccess.Employment
		if err := rows.Scan(&e.ID, &e.StakeholderID, &e.UserID, &e.JobID, &e.OrgstructuralUnitID, &e.TradingPointID, &e.DateFrom, &e.DateTo); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) EmploymentsByUser(ctx context.Context, stakeholderID, userID string) ([]orgaccess.Employment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+employmentColumns+`
		from employments
		where stakeholder_id = $1 and user_id = $2
		order by date_from
	`, stakeholderID, userID)
	if err != nil {
		return nil, err
	}
	return scanEmployments(rows)
}

func (s *Store) EmploymentsAtTradingPoints(ctx context.Context, stakeholderID string, tradingPointIDs []string, from, to time.Time) ([]orgaccess.Employment, error) {
	if len(tradingPointIDs) == 0 {
		return nil, nil
	}
	args := appendIDs([]any{stakeholderID, from, to}, tradingPointIDs)
	rows, err := s.db.QueryContext(ctx, `
		select `+employmentColumns+`
		from employments
		where stakeholder_id = $1
		  and date_from <= $3
		  and (date_to is null or date_to >= $2)
		  and trading_point_id in (`+inPlaceholders(4, len(tradingPointIDs))+`)
		order by date_from
	`, args...)
	if err != nil {
		return nil, err
	}
	return scanEmployments(rows)
}

func (s *Store) JobsByIDs(ctx context.Context, stakeholderID string, ids []string) ([]orgaccess.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := appendIDs([]any{stakeholderID}, ids)
	rows, err := s.db.QueryContext(ctx, `
		select id, stakeholder_id, name, stakeholder_role_id, default_workline_id, is_schedule_check_required
		from jobs
		where stakeholder_id = $1 and id in (`+inPlaceholders(2, len(ids))+`)
		order by id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []orgaccess.Job
	for rows.Next() {
		var j orgaccess.Job
		if err := rows.Scan(&j.ID, &j.StakeholderID, &j.Name, &j.StakeholderRoleID, &j.DefaultWorklineID, &j.IsScheduleCheckRequired); err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

func (s *Store) GrantsByRoleIDs(ctx context.Context, roleIDs []string) ([]orgaccess.Grant, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select stakeholder_role_id, role_permission_id, job_subject_ids
		from stakeholder_role_permissions
		where stakeholder_role_id in (`+inPlaceholders(1, len(roleIDs))+`)
		order by stakeholder_role_id, role_permission_id
	`, appendIDs(nil, roleIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []orgaccess.Grant
	for rows.Next() {
		var (
			g   orgaccess.Grant
			raw []byte
		)
		if err := rows.Scan(&g.StakeholderRoleID, &g.RolePermissionID, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &g.JobSubjectIDs); err != nil {
				return nil, fmt.Errorf("decode job_subject_ids: %w", err)
			}
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

const rolePermissionColumns = `id, mnemocode, name, scope, category, order_index`

func (s *Store) RolePermissionByMnemocode(ctx context.Context, mnemocode string) (*orgaccess.RolePermission, error) {
	var p orgaccess.RolePermission
	err := s.db.QueryRowContext(ctx, `
		select `+rolePermissionColumns+`
		from role_permissions
		where mnemocode = $1
	`, mnemocode).Scan(&p.ID, &p.Mnemocode, &p.Name, &p.Scope, &p.Category, &p.OrderIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orgaccess.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) RolePermissionsByIDs(ctx context.Context, ids []string) ([]orgaccess.RolePermission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+rolePermissionColumns+`
		from role_permissions
		where id in (`+inPlaceholders(1, len(ids))+`)
		order by order_index
	`, appendIDs(nil, ids)...)
	if err != nil {
		return nil, err
	}
	return scanRolePermissions(rows)
}

func (s *Store) ListRolePermissions(ctx context.Context, includeUnused bool) ([]orgaccess.RolePermission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+rolePermissionColumns+`
		from role_permissions
		where $1 or category <> 'unused'
		order by order_index
	`, includeUnused)
	if err != nil {
		return nil, err
	}
	return scanRolePermissions(rows)
}

func scanRolePermissions(rows *sql.Rows) ([]orgaccess.RolePermission, error) {
	defer rows.Close()
	var result []orgaccess.RolePermission
	for rows.Next() {
		var p orgaccess.RolePermission
		if err := rows.Scan(&p.ID, &p.Mnemocode, &p.Name, &p.Scope, &p.Category, &p.OrderIndex); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// SyncRolePermissionCatalog upserts the compiled-in permission catalog so
// the database always matches the code the service was built with. Called
// once at boot.
func (s *Store) SyncRolePermissionCatalog(ctx context.Context, catalog []orgaccess.RolePermission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range catalog {
		_, err := tx.ExecContext(ctx, `
			insert into role_permissions (id, mnemocode, name, scope, category, order_index)
			values ($1, $2, $3, $4, $5, $6)
			on conflict (id) do update
			set mnemocode = excluded.mnemocode,
			    name = excluded.name,
			    scope = excluded.scope,
			    category = excluded.category,
			    order_index = excluded.order_index
		`, p.ID, p.Mnemocode, p.Name, p.Scope, p.Category, p.OrderIndex)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return fmt.Errorf("catalog entry %s collides on mnemocode: %w", p.ID, err)
			}
			return err
		}
	}
	return tx.Commit()
}
