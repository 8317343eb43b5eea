package constants

// Role is a user's function within Orbit. Roles gate both API routes and
// record visibility.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleSales          Role = "sales"
	RoleProjectManager Role = "project_manager"
	RoleQualityControl Role = "quality_control"
	RoleEmployee       Role = "employee"
	RoleContractor     Role = "contractor"
)

// AllRoles returns every valid role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleSales, RoleProjectManager, RoleQualityControl, RoleEmployee, RoleContractor}
}

// IsValidRole reports whether s names a known role.
func IsValidRole(s string) bool {
	for _, r := range AllRoles() {
		if string(r) == s {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role carries system-admin privileges.
func IsAdmin(role string) bool {
	return role == string(RoleAdmin)
}

// TaskStatus values and the legal transition map
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskSubmitted  TaskStatus = "submitted"
	TaskInReview   TaskStatus = "in_review"
	TaskApproved   TaskStatus = "approved"
	TaskRejected   TaskStatus = "rejected"
)

// TaskTransitions maps each task status to the statuses it may move to.
var TaskTransitions = map[TaskStatus][]TaskStatus{
	TaskOpen:       {TaskAssigned},
	TaskAssigned:   {TaskInProgress, TaskOpen},
	TaskInProgress: {TaskSubmitted},
	TaskSubmitted:  {TaskInReview},
	TaskInReview:   {TaskApproved, TaskRejected},
	TaskRejected:   {TaskInProgress},
	TaskApproved:   {},
}

// CanTransitionTask reports whether a task may move from one status to another.
func CanTransitionTask(from, to TaskStatus) bool {
	for _, t := range TaskTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ContractStatus values and the legal transition map
type ContractStatus string

const (
	ContractDraft            ContractStatus = "draft"
	ContractPendingSignature ContractStatus = "pending_signature"
	ContractActive           ContractStatus = "active"
	ContractDeclined         ContractStatus = "declined"
	ContractDisputed         ContractStatus = "disputed"
)

// ContractTransitions maps each contract status to the statuses it may move to.
// Declined is terminal; disputed contracts can be resolved back to active.
var ContractTransitions = map[ContractStatus][]ContractStatus{
	ContractDraft:            {ContractPendingSignature},
	ContractPendingSignature: {ContractActive, ContractDeclined, ContractDraft},
	ContractActive:           {ContractDisputed},
	ContractDisputed:         {ContractActive},
	ContractDeclined:         {},
}

// CanTransitionContract reports whether a contract may move between statuses.
func CanTransitionContract(from, to ContractStatus) bool {
	for _, t := range ContractTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ProjectStatus values
const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

// Access levels for project/task access grants
const (
	AccessRead   = "read"
	AccessWrite  = "write"
	AccessManage = "manage"
)

// Payout lifecycle
const (
	PayoutPending  = "pending"
	PayoutReleased = "released"
)

// Payout recipient roles
const (
	PayoutRoleWorker   = "worker"
	PayoutRoleReviewer = "reviewer"
)

// Notification kinds
const (
	NotifTaskAssigned     = "task_assigned"
	NotifTaskSubmitted    = "task_submitted"
	NotifQCDecision       = "qc_decision"
	NotifContractSent     = "contract_sent"
	NotifContractSigned   = "contract_signed"
	NotifContractDeclined = "contract_declined"
	NotifContractExpired  = "contract_expired"
	NotifPayoutCreated    = "payout_created"
	NotifPayoutReleased   = "payout_released"
	NotifBadgeAwarded     = "badge_awarded"
	NotifMemberAdded      = "member_added"
	NotifWeeklyDigest     = "weekly_digest"
)
