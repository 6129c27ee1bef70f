package core

const (
	RequesterIdCtxKey    = "mahilo-requesterId"
	RequesterAgentCtxKey = "mahilo-requesterAgent"
)

const (
	RequesterIdHeader    = "mahilo-requester-id"
	RequesterAgentHeader = "mahilo-requester-agent"
)

// Webhook delivery headers. The signature covers "{timestamp}.{body}".
const (
	SignatureHeader  = "X-Mahilo-Signature"
	TimestampHeader  = "X-Mahilo-Timestamp"
	MessageIdHeader  = "X-Mahilo-Message-Id"
	DeliveryIdHeader = "X-Mahilo-Delivery-Id"
	GroupIdHeader    = "X-Mahilo-Group-Id"
)

const (
	MessageStatusPending   = "pending"
	MessageStatusDelivered = "delivered"
	MessageStatusFailed    = "failed"
)

const (
	ConnectionStatusActive   = "active"
	ConnectionStatusDisabled = "disabled"
)

const (
	RecipientTypeUser  = "user"
	RecipientTypeGroup = "group"
)

const (
	FriendshipStatusPending  = "pending"
	FriendshipStatusAccepted = "accepted"
	FriendshipStatusBlocked  = "blocked"
)

const (
	PolicyScopeGlobal = "global"
	PolicyScopeRole   = "role"
	PolicyScopeUser   = "user"
	PolicyScopeGroup  = "group"
)

const (
	PolicyTypeHeuristic = "heuristic"
	PolicyTypeLLM       = "llm"
)

const (
	ReasonMaxRetriesExceeded = "Max retries exceeded"
	ReasonConnectionNotFound = "Connection not found"
	ReasonNoActiveConnection = "No active connections"
)

// TaskKind selects which ledger row a retry task updates.
type TaskKind int

const (
	TaskKindUnknown TaskKind = iota
	TaskKindDirect
	TaskKindFanout
)
