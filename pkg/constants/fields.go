package constants

// Common field names shared across tables
const (
	FieldID               = "id"
	FieldName             = "name"
	FieldEmail            = "email"
	FieldStatus           = "status"
	FieldRole             = "role"
	FieldCreatedAt        = "created_at"
	FieldUpdatedAt        = "updated_at"
	FieldOrganizationID   = "organization_id"
	FieldProjectID        = "project_id"
	FieldTaskID           = "task_id"
	FieldUserID           = "user_id"
	FieldMessage          = "message"
)

// User fields
const (
	FieldUserFirstName  = "first_name"
	FieldUserLastName   = "last_name"
	FieldUserPassword   = "password"
	FieldUserIsActive   = "is_active"
	FieldUserR          = "r"
	FieldUserRMin       = "r_min"
	FieldUserRMax       = "r_max"
	FieldUserBaseSalary = "base_salary"
	FieldUserLastLogin  = "last_login_at"
)

// Session fields
const (
	FieldSessionToken        = "token"
	FieldSessionExpiresAt    = "expires_at"
	FieldSessionIPAddress    = "ip_address"
	FieldSessionUserAgent    = "user_agent"
	FieldSessionIsRevoked    = "is_revoked"
	FieldSessionLastActivity = "last_activity"
)

// Task fields
const (
	FieldTaskTitle       = "title"
	FieldTaskAssigneeID  = "assignee_id"
	FieldTaskValue       = "value"
	FieldTaskDueDate     = "due_date"
	FieldTaskSubmittedAt = "submitted_at"
	FieldTaskCompletedAt = "completed_at"
)

// QC review fields
const (
	FieldQCReviewerID = "reviewer_id"
	FieldQCPassNumber = "pass_number"
	FieldQCScore      = "score"
	FieldQCWeight     = "weight"
	FieldQCPassed     = "passed"
)

// Contract fields
const (
	FieldContractPartyAID     = "party_a_id"
	FieldContractPartyBEmail  = "party_b_email"
	FieldContractSignToken    = "sign_token"
	FieldContractSubmitToken  = "submit_token"
	FieldContractSignedAt     = "signed_at"
	FieldContractTokenExpires = "sign_token_expires_at"
)

// Notification fields
const (
	FieldNotifRecipientID = "recipient_id"
	FieldNotifTitle       = "title"
	FieldNotifBody        = "body"
	FieldNotifLink        = "link"
	FieldNotifKind        = "kind"
	FieldNotifIsRead      = "is_read"
)

// Response keys
const (
	ResponseError = "error"
	ResponseData  = "data"
)

// HTTP header names
const (
	HeaderAuthorization = "Authorization"
)

// Context keys for values stored in gin.Context
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "token"
)
