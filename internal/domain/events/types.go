package events

// EventType identifies a domain event flowing through the outbox and bus.
type EventType string

const (
	TaskAssigned     EventType = "task.assigned"
	TaskSubmitted    EventType = "task.submitted"
	TaskApproved     EventType = "task.approved"
	TaskRejected     EventType = "task.rejected"
	QCPassRecorded   EventType = "qc.pass_recorded"
	ContractSent     EventType = "contract.sent"
	ContractSigned   EventType = "contract.signed"
	ContractDeclined EventType = "contract.declined"
	ContractExpired  EventType = "contract.expired"
	PayoutCreated    EventType = "payout.created"
	PayoutReleased   EventType = "payout.released"
	BadgeAwarded     EventType = "badge.awarded"
	MemberAdded      EventType = "member.added"
	WeeklyDigest     EventType = "digest.weekly"
)

// Payload is the envelope stored in the outbox for every domain event. Only
// identifiers and small display fields belong here; consumers reload fresh
// state if they need more.
type Payload struct {
	OrganizationID string   `json:"organization_id,omitempty"`
	ActorID        string   `json:"actor_id,omitempty"`
	ObjectID       string   `json:"object_id"`
	ObjectType     string   `json:"object_type"`
	RecipientIDs   []string `json:"recipient_ids,omitempty"`
	Title          string   `json:"title,omitempty"`
	Body           string   `json:"body,omitempty"`
	Link           string   `json:"link,omitempty"`
}

// OutboxEvent is one row of the transactional outbox.
type OutboxEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Payload   Payload   `json:"payload"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
}

// Outbox row statuses
const (
	OutboxPending   = "pending"
	OutboxProcessed = "processed"
	OutboxFailed    = "failed"
)
