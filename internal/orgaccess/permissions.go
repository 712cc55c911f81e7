package orgaccess

// Permission mnemocodes compiled into calling code. The catalog rows
// themselves are reference data shipped with the schema seeds.
const (
	PermStakeholderRoleEdit = "stakeholder_role_edit"
	PermParticipantEdit     = "participant_edit"
	PermOrgView             = "org_view"
	PermOrgEdit             = "org_edit"
	PermVacancyPublish      = "vacancy_publish"
	PermEmploymentEdit      = "employment_edit"
	PermShiftPlanView       = "shift_plan_view"
	PermShiftPlanEdit       = "shift_plan_edit"
	// PermTimesheetExport is catalogued in the unused category: hidden from
	// the listing API but still enforceable when requested by mnemocode.
	PermTimesheetExport = "timesheet_export"
)

// BuiltinRolePermissions is the full catalog in listing order. The pg seed
// mirrors this slice; tests and in-memory stores load it directly.
var BuiltinRolePermissions = []RolePermission{
	{ID: "rp_stakeholder_role_edit", Mnemocode: PermStakeholderRoleEdit, Name: "Edit stakeholder roles", Scope: ScopeGlobal, Category: CategoryGeneral, OrderIndex: 10},
	{ID: "rp_participant_edit", Mnemocode: PermParticipantEdit, Name: "Manage participants", Scope: ScopeGlobal, Category: CategoryGeneral, OrderIndex: 20},
	{ID: "rp_org_view", Mnemocode: PermOrgView, Name: "View org structure", Scope: ScopeOrg, Category: CategoryGeneral, OrderIndex: 30},
	{ID: "rp_org_edit", Mnemocode: PermOrgEdit, Name: "Edit org structure", Scope: ScopeOrg, Category: CategoryGeneral, OrderIndex: 40},
	{ID: "rp_vacancy_publish", Mnemocode: PermVacancyPublish, Name: "Publish vacancies", Scope: ScopeOrg, Category: CategoryGeneral, OrderIndex: 50},
	{ID: "rp_employment_edit", Mnemocode: PermEmploymentEdit, Name: "Edit employments", Scope: ScopeOrgJob, Category: CategoryGeneral, OrderIndex: 60},
	{ID: "rp_shift_plan_view", Mnemocode: PermShiftPlanView, Name: "View shift plans", Scope: ScopeOrgJob, Category: CategoryGeneral, OrderIndex: 70},
	{ID: "rp_shift_plan_edit", Mnemocode: PermShiftPlanEdit, Name: "Edit shift plans", Scope: ScopeOrgJob, Category: CategoryGeneral, OrderIndex: 80},
	{ID: "rp_timesheet_export", Mnemocode: PermTimesheetExport, Name: "Export timesheets", Scope: ScopeOrg, Category: CategoryUnused, OrderIndex: 90},
}
