package models

import "time"

// User is an Orbit account. R, RMin and RMax drive the salary-mix
// calculation: R is the user's chosen fixed-versus-performance ratio and is
// only ever honored inside [RMin, RMax].
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	R           float64    `json:"r"`
	RMin        float64    `json:"r_min"`
	RMax        float64    `json:"r_max"`
	BaseSalary  float64    `json:"base_salary"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Session is a server-side record of an issued JWT, keyed by the token's JTI
// so individual tokens can be revoked.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	IsRevoked    bool      `json:"is_revoked"`
	LastActivity time.Time `json:"last_activity"`
}

// Organization is a tenant workspace.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamMember relates a user to an organization with an org-scoped role.
type TeamMember struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`

	// Denormalized for member listings
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// Project groups tasks under an organization.
type Project struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	ManagerID      string    `json:"manager_id"`
	Budget         float64   `json:"budget"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Task is a unit of paid work. The payout parameters are snapshotted onto the
// task at creation so later policy changes never reprice work in flight.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	Value       float64    `json:"value"`
	V0          float64    `json:"v0"`
	P0          float64    `json:"p0"`
	Beta        float64    `json:"beta"`
	Gamma       float64    `json:"gamma"`
	K           int        `json:"k"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProjectAccess grants a user a level of access to a project.
type ProjectAccess struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskAccess grants a user a level of access to a single task.
type TaskAccess struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// QCReview is one quality-control pass over a submitted task.
type QCReview struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	ReviewerID string    `json:"reviewer_id"`
	PassNumber int       `json:"pass_number"`
	Score      float64   `json:"score"`
	Weight     float64   `json:"weight"`
	Passed     bool      `json:"passed"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Payout is one recipient's share of an approved task's pool.
type Payout struct {
	ID         string     `json:"id"`
	TaskID     string     `json:"task_id"`
	ProjectID  string     `json:"project_id"`
	UserID     string     `json:"user_id"`
	Role       string     `json:"role"`
	Amount     float64    `json:"amount"`
	Quality    float64    `json:"quality"`
	Status     string     `json:"status"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Contract is an agreement between an org-side party (PartyAID) and a
// counterparty addressed by email until they sign. Sign and submit tokens are
// never serialized to API responses.
type Contract struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	PartyAID           string     `json:"party_a_id"`
	PartyBEmail        string     `json:"party_b_email"`
	PartyBUserID       *string    `json:"party_b_user_id,omitempty"`
	Title              string     `json:"title"`
	Body               string     `json:"body"`
	PDFPath            string     `json:"pdf_path,omitempty"`
	Status             string     `json:"status"`
	SignToken          string     `json:"-"`
	SignTokenExpiresAt *time.Time `json:"sign_token_expires_at,omitempty"`
	SubmitToken        string     `json:"-"`
	SignedAt           *time.Time `json:"signed_at,omitempty"`
	SignerName         string     `json:"signer_name,omitempty"`
	SignerIP           string     `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Notification is a per-user inbox entry.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Link        string    `json:"link,omitempty"`
	Kind        string    `json:"kind"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Badge is an achievable award whose criteria is an expr predicate over the
// user stats environment.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	Criteria    string    `json:"criteria"`
	Points      int       `json:"points"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// BadgeAward records that a user earned a badge. Unique per (badge, user).
type BadgeAward struct {
	ID        string    `json:"id"`
	BadgeID   string    `json:"badge_id"`
	UserID    string    `json:"user_id"`
	AwardedAt time.Time `json:"awarded_at"`

	// Denormalized for listings
	BadgeName   string `json:"badge_name,omitempty"`
	BadgePoints int    `json:"badge_points,omitempty"`
}

// UserStats is the environment badge criteria are evaluated against.
type UserStats struct {
	TasksCompleted    int     `json:"tasks_completed"`
	QCPassRate        float64 `json:"qc_pass_rate"`
	TotalEarned       float64 `json:"total_earned"`
	CurrentStreakDays int     `json:"current_streak_days"`
	ContractsSigned   int     `json:"contracts_signed"`
}

// Env converts stats into an expression environment.
func (s UserStats) Env() map[string]interface{} {
	return map[string]interface{}{
		"stats": map[string]interface{}{
			"tasks_completed":     s.TasksCompleted,
			"qc_pass_rate":        s.QCPassRate,
			"total_earned":        s.TotalEarned,
			"current_streak_days": s.CurrentStreakDays,
			"contracts_signed":    s.ContractsSigned,
		},
	}
}

// GuestProject is the anonymous, time-limited trial workspace. It is keyed by
// the guest session token rather than an organization.
type GuestProject struct {
	ID           string    `json:"id"`
	SessionToken string    `json:"-"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// GuestTask is a task inside a guest project.
type GuestTask struct {
	ID             string    `json:"id"`
	GuestProjectID string    `json:"guest_project_id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AuditLog records security-relevant actions.
type AuditLog struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	ObjectType     string    `json:"object_type"`
	ObjectID       string    `json:"object_id,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
