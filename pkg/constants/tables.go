package constants

// Table names for the Orbit schema
const (
	TableUser          = "users"
	TableSession       = "sessions"
	TableOrganization  = "organizations"
	TableTeamMember    = "team_members"
	TableProject       = "projects"
	TableTask          = "tasks"
	TableProjectAccess = "project_access"
	TableTaskAccess    = "task_access"
	TableQCReview      = "qc_reviews"
	TablePayout        = "payouts"
	TableContract      = "contracts"
	TableNotification  = "notifications"
	TableBadge         = "badges"
	TableBadgeAward    = "badge_awards"
	TableGuestProject  = "guest_projects"
	TableGuestTask     = "guest_tasks"
	TableAuditLog      = "audit_logs"
	TableOutbox        = "outbox_events"
)

// AllTables lists every table the schema bootstrap manages, in creation order
// (referenced tables first).
func AllTables() []string {
	return []string{
		TableUser,
		TableSession,
		TableOrganization,
		TableTeamMember,
		TableProject,
		TableTask,
		TableProjectAccess,
		TableTaskAccess,
		TableQCReview,
		TablePayout,
		TableContract,
		TableNotification,
		TableBadge,
		TableBadgeAward,
		TableGuestProject,
		TableGuestTask,
		TableAuditLog,
		TableOutbox,
	}
}

// AnalyticsQueryableTables returns the tables the admin analytics endpoint may
// read. Sessions and the outbox are deliberately excluded: they carry tokens.
func AnalyticsQueryableTables() map[string]bool {
	return map[string]bool{
		TableUser:         true,
		TableOrganization: true,
		TableTeamMember:   true,
		TableProject:      true,
		TableTask:         true,
		TableQCReview:     true,
		TablePayout:       true,
		TableContract:     true,
		TableBadge:        true,
		TableBadgeAward:   true,
		TableAuditLog:     true,
	}
}
