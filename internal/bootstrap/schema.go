package bootstrap

import (
	"fmt"
	"log"

	"github.com/orbitapp/backend/internal/infrastructure/database"
	"github.com/orbitapp/backend/pkg/constants"
)

// tableDDL maps each table to its CREATE TABLE statement. Creation order is
// taken from constants.AllTables so referenced tables exist first.
var tableDDL = map[string]string{
	constants.TableUser: `
		CREATE TABLE IF NOT EXISTS users (
			id            VARCHAR(64)  PRIMARY KEY,
			email         VARCHAR(255) NOT NULL,
			name          VARCHAR(255) NOT NULL,
			first_name    VARCHAR(128) NOT NULL DEFAULT '',
			last_name     VARCHAR(128) NOT NULL DEFAULT '',
			password      VARCHAR(255) NOT NULL,
			role          VARCHAR(32)  NOT NULL,
			is_active     TINYINT(1)   NOT NULL DEFAULT 1,
			r             DOUBLE       NOT NULL DEFAULT 0.5,
			r_min         DOUBLE       NOT NULL DEFAULT 0,
			r_max         DOUBLE       NOT NULL DEFAULT 1,
			base_salary   DOUBLE       NOT NULL DEFAULT 0,
			last_login_at TIMESTAMP    NULL,
			created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_users_email (email)
		)`,

	constants.TableSession: `
		CREATE TABLE IF NOT EXISTS sessions (
			id            VARCHAR(64)  PRIMARY KEY,
			user_id       VARCHAR(64)  NOT NULL,
			token         VARCHAR(512) NOT NULL,
			ip_address    VARCHAR(64)  NOT NULL DEFAULT '',
			user_agent    VARCHAR(512) NOT NULL DEFAULT '',
			is_revoked    TINYINT(1)   NOT NULL DEFAULT 0,
			expires_at    TIMESTAMP    NOT NULL,
			last_activity TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_sessions_user (user_id),
			KEY idx_sessions_expires (expires_at)
		)`,

	constants.TableOrganization: `
		CREATE TABLE IF NOT EXISTS organizations (
			id         VARCHAR(64)  PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			slug       VARCHAR(255) NOT NULL,
			owner_id   VARCHAR(64)  NOT NULL,
			created_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_organizations_slug (slug)
		)`,

	constants.TableTeamMember: `
		CREATE TABLE IF NOT EXISTS team_members (
			id              VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			user_id         VARCHAR(64) NOT NULL,
			role            VARCHAR(32) NOT NULL,
			joined_at       TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_team_members_org_user (organization_id, user_id),
			KEY idx_team_members_user (user_id)
		)`,

	constants.TableProject: `
		CREATE TABLE IF NOT EXISTS projects (
			id              VARCHAR(64)  PRIMARY KEY,
			organization_id VARCHAR(64)  NOT NULL,
			name            VARCHAR(255) NOT NULL,
			description     TEXT,
			status          VARCHAR(32)  NOT NULL,
			manager_id      VARCHAR(64)  NOT NULL,
			budget          DOUBLE       NOT NULL DEFAULT 0,
			created_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_projects_org (organization_id)
		)`,

	constants.TableTask: `
		CREATE TABLE IF NOT EXISTS tasks (
			id           VARCHAR(64)  PRIMARY KEY,
			project_id   VARCHAR(64)  NOT NULL,
			title        VARCHAR(255) NOT NULL,
			description  TEXT,
			status       VARCHAR(32)  NOT NULL,
			assignee_id  VARCHAR(64)  NULL,
			value        DOUBLE       NOT NULL DEFAULT 0,
			v0           DOUBLE       NOT NULL DEFAULT 0,
			p0           DOUBLE       NOT NULL DEFAULT 0,
			beta         DOUBLE       NOT NULL DEFAULT 0,
			gamma        DOUBLE       NOT NULL DEFAULT 0,
			k            INT          NOT NULL DEFAULT 1,
			due_date     TIMESTAMP    NULL,
			submitted_at TIMESTAMP    NULL,
			completed_at TIMESTAMP    NULL,
			created_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_tasks_project (project_id),
			KEY idx_tasks_assignee (assignee_id),
			KEY idx_tasks_status (status)
		)`,

	constants.TableProjectAccess: `
		CREATE TABLE IF NOT EXISTS project_access (
			id         VARCHAR(64) PRIMARY KEY,
			project_id VARCHAR(64) NOT NULL,
			user_id    VARCHAR(64) NOT NULL,
			level      VARCHAR(16) NOT NULL,
			created_at TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_project_access (project_id, user_id),
			KEY idx_project_access_user (user_id)
		)`,

	constants.TableTaskAccess: `
		CREATE TABLE IF NOT EXISTS task_access (
			id         VARCHAR(64) PRIMARY KEY,
			task_id    VARCHAR(64) NOT NULL,
			user_id    VARCHAR(64) NOT NULL,
			level      VARCHAR(16) NOT NULL,
			created_at TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_task_access (task_id, user_id),
			KEY idx_task_access_user (user_id)
		)`,

	constants.TableQCReview: `
		CREATE TABLE IF NOT EXISTS qc_reviews (
			id          VARCHAR(64) PRIMARY KEY,
			task_id     VARCHAR(64) NOT NULL,
			reviewer_id VARCHAR(64) NOT NULL,
			pass_number INT         NOT NULL,
			score       DOUBLE      NOT NULL,
			weight      DOUBLE      NOT NULL,
			passed      TINYINT(1)  NOT NULL,
			notes       TEXT,
			created_at  TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_qc_reviews_pass (task_id, pass_number),
			KEY idx_qc_reviews_reviewer (reviewer_id)
		)`,

	constants.TablePayout: `
		CREATE TABLE IF NOT EXISTS payouts (
			id          VARCHAR(64) PRIMARY KEY,
			task_id     VARCHAR(64) NOT NULL,
			project_id  VARCHAR(64) NOT NULL,
			user_id     VARCHAR(64) NOT NULL,
			role        VARCHAR(16) NOT NULL,
			amount      DOUBLE      NOT NULL,
			quality     DOUBLE      NOT NULL DEFAULT 0,
			status      VARCHAR(16) NOT NULL,
			released_at TIMESTAMP   NULL,
			created_at  TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_payouts_task (task_id),
			KEY idx_payouts_user (user_id),
			KEY idx_payouts_project (project_id)
		)`,

	constants.TableContract: `
		CREATE TABLE IF NOT EXISTS contracts (
			id                    VARCHAR(64)  PRIMARY KEY,
			organization_id       VARCHAR(64)  NOT NULL,
			party_a_id            VARCHAR(64)  NOT NULL,
			party_b_email         VARCHAR(255) NOT NULL,
			party_b_user_id       VARCHAR(64)  NULL,
			title                 VARCHAR(255) NOT NULL,
			body                  MEDIUMTEXT,
			pdf_path              VARCHAR(512) NOT NULL DEFAULT '',
			status                VARCHAR(32)  NOT NULL,
			sign_token            VARCHAR(128) NULL,
			sign_token_expires_at TIMESTAMP    NULL,
			submit_token          VARCHAR(128) NULL,
			signed_at             TIMESTAMP    NULL,
			signer_name           VARCHAR(255) NOT NULL DEFAULT '',
			signer_ip             VARCHAR(64)  NOT NULL DEFAULT '',
			created_at            TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at            TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_contracts_sign_token (sign_token),
			UNIQUE KEY uniq_contracts_submit_token (submit_token),
			KEY idx_contracts_org (organization_id),
			KEY idx_contracts_party_b (party_b_email)
		)`,

	constants.TableNotification: `
		CREATE TABLE IF NOT EXISTS notifications (
			id           VARCHAR(64)  PRIMARY KEY,
			recipient_id VARCHAR(64)  NOT NULL,
			title        VARCHAR(255) NOT NULL,
			body         TEXT,
			link         VARCHAR(512) NOT NULL DEFAULT '',
			kind         VARCHAR(32)  NOT NULL,
			is_read      TINYINT(1)   NOT NULL DEFAULT 0,
			created_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_notifications_recipient (recipient_id, is_read)
		)`,

	constants.TableBadge: `
		CREATE TABLE IF NOT EXISTS badges (
			id          VARCHAR(64)  PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			description TEXT,
			icon        VARCHAR(64)  NULL,
			criteria    TEXT         NOT NULL,
			points      INT          NOT NULL DEFAULT 0,
			is_active   TINYINT(1)   NOT NULL DEFAULT 1,
			created_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_badges_name (name)
		)`,

	constants.TableBadgeAward: `
		CREATE TABLE IF NOT EXISTS badge_awards (
			id         VARCHAR(64) PRIMARY KEY,
			badge_id   VARCHAR(64) NOT NULL,
			user_id    VARCHAR(64) NOT NULL,
			awarded_at TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_badge_awards (badge_id, user_id),
			KEY idx_badge_awards_user (user_id)
		)`,

	constants.TableGuestProject: `
		CREATE TABLE IF NOT EXISTS guest_projects (
			id            VARCHAR(64)  PRIMARY KEY,
			session_token VARCHAR(128) NOT NULL,
			name          VARCHAR(255) NOT NULL,
			description   TEXT,
			expires_at    TIMESTAMP    NOT NULL,
			created_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_guest_projects_token (session_token),
			KEY idx_guest_projects_expires (expires_at)
		)`,

	constants.TableGuestTask: `
		CREATE TABLE IF NOT EXISTS guest_tasks (
			id               VARCHAR(64)  PRIMARY KEY,
			guest_project_id VARCHAR(64)  NOT NULL,
			title            VARCHAR(255) NOT NULL,
			status           VARCHAR(32)  NOT NULL,
			created_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_guest_tasks_project (guest_project_id)
		)`,

	constants.TableAuditLog: `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id              VARCHAR(64)  PRIMARY KEY,
			organization_id VARCHAR(64)  NULL,
			actor_id        VARCHAR(64)  NULL,
			action          VARCHAR(64)  NOT NULL,
			object_type     VARCHAR(64)  NOT NULL,
			object_id       VARCHAR(64)  NOT NULL DEFAULT '',
			detail          TEXT,
			created_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_audit_logs_org (organization_id),
			KEY idx_audit_logs_created (created_at)
		)`,

	constants.TableOutbox: `
		CREATE TABLE IF NOT EXISTS outbox_events (
			id           VARCHAR(64) PRIMARY KEY,
			event_type   VARCHAR(64) NOT NULL,
			payload      TEXT        NOT NULL,
			status       VARCHAR(16) NOT NULL,
			attempts     INT         NOT NULL DEFAULT 0,
			last_error   TEXT,
			processed_at TIMESTAMP   NULL,
			created_at   TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_outbox_status (status, attempts)
		)`,
}

// InitializeSchema creates every table the application uses. All statements
// are idempotent, so re-running on an existing database is safe.
func InitializeSchema(conn *database.Connection) error {
	log.Println("🔧 Initializing database schema...")

	for _, table := range constants.AllTables() {
		ddl, ok := tableDDL[table]
		if !ok {
			return fmt.Errorf("no DDL registered for table %s", table)
		}
		if _, err := conn.Exec(ddl); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}

	log.Printf("✅ Schema ready (%d tables)", len(tableDDL))
	return nil
}
