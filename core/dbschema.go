package core

import (
	"time"

	"github.com/lib/pq"
)

// Message is one logical send attempt from a sender to a recipient.
// Immutable once terminal.
type Message struct {
	ID              string     `json:"id" gorm:"primaryKey;type:char(20)"`
	CorrelationID   *string    `json:"correlationId,omitempty" gorm:"type:text"`
	Sender          string     `json:"sender" gorm:"type:text;index;uniqueIndex:uniq_sender_idempotency,priority:1"`
	SenderAgent     string     `json:"senderAgent" gorm:"type:text"`
	RecipientType   string     `json:"recipientType" gorm:"type:text;default:'user'"`
	Recipient       string     `json:"recipient" gorm:"type:text;index"`
	ConnectionID    *string    `json:"connectionId,omitempty" gorm:"type:char(20)"`
	Payload         string     `json:"payload" gorm:"type:text"`
	PayloadType     string     `json:"payloadType" gorm:"type:text;default:'text'"`
	Encryption      *string    `json:"encryption,omitempty" gorm:"type:json"`
	SenderSignature *string    `json:"senderSignature,omitempty" gorm:"type:text"`
	Context         *string    `json:"context,omitempty" gorm:"type:text"`
	Status          string     `json:"status" gorm:"type:text;default:'pending'"`
	Reason          *string    `json:"reason,omitempty" gorm:"type:text"`
	RetryCount      int        `json:"retryCount" gorm:"type:integer;default:0"`
	IdempotencyKey  *string    `json:"idempotencyKey,omitempty" gorm:"type:text;uniqueIndex:uniq_sender_idempotency,priority:2"`
	CDate           time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	DeliveredAt     *time.Time `json:"deliveredAt,omitempty" gorm:"type:timestamp with time zone"`
}

// MessageDelivery is one delivery unit for exactly one target connection,
// used when a message fans out to a group.
type MessageDelivery struct {
	ID           string     `json:"id" gorm:"primaryKey;type:char(20)"`
	MessageID    string     `json:"messageId" gorm:"type:char(20);uniqueIndex:uniq_message_connection,priority:1"`
	Recipient    string     `json:"recipient" gorm:"type:text;index"`
	ConnectionID string     `json:"connectionId" gorm:"type:char(20);uniqueIndex:uniq_message_connection,priority:2"`
	Status       string     `json:"status" gorm:"type:text;default:'pending'"`
	RetryCount   int        `json:"retryCount" gorm:"type:integer;default:0"`
	Error        *string    `json:"error,omitempty" gorm:"type:text"`
	CDate        time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate        time.Time  `json:"mdate" gorm:"autoUpdateTime"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty" gorm:"type:timestamp with time zone"`
}

// AgentConnection is a registered webhook target owned by a user.
// CallbackSecret is returned exactly once, at registration.
type AgentConnection struct {
	ID              string         `json:"id" gorm:"primaryKey;type:char(20)"`
	Owner           string         `json:"owner" gorm:"type:text;index"`
	Name            string         `json:"name" gorm:"type:text"`
	CallbackURL     string         `json:"callbackUrl" gorm:"type:text"`
	CallbackSecret  string         `json:"-" gorm:"type:char(64)"`
	PublicKey       string         `json:"publicKey,omitempty" gorm:"type:text"`
	Status          string         `json:"status" gorm:"type:text;default:'active'"`
	RoutingPriority int            `json:"routingPriority" gorm:"type:integer;default:0"`
	Capabilities    pq.StringArray `json:"capabilities,omitempty" gorm:"type:text[]"`
	LastSeen        *time.Time     `json:"lastSeen,omitempty" gorm:"type:timestamp with time zone"`
	CDate           time.Time      `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate           time.Time      `json:"mdate" gorm:"autoUpdateTime"`
}

// Policy is a rule set owned by a user. Content is a JSON rule object for
// heuristic policies and a prompt string for llm policies.
type Policy struct {
	ID         string    `json:"id" gorm:"primaryKey;type:char(20)"`
	Owner      string    `json:"owner" gorm:"type:text;index"`
	Scope      string    `json:"scope" gorm:"type:text"`
	TargetID   *string   `json:"targetId,omitempty" gorm:"type:text"`
	PolicyType string    `json:"policyType" gorm:"type:text"`
	Content    string    `json:"content" gorm:"type:text"`
	Priority   int       `json:"priority" gorm:"type:integer;default:0"`
	Enabled    bool      `json:"enabled" gorm:"type:boolean;default:true"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate      time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

// Friendship is a single edge per user pair, created by the requester.
type Friendship struct {
	Requester string    `json:"requester" gorm:"primaryKey;type:text"`
	Addressee string    `json:"addressee" gorm:"primaryKey;type:text"`
	Status    string    `json:"status" gorm:"type:text;default:'pending'"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
	MDate     time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

type Group struct {
	ID    string    `json:"id" gorm:"primaryKey;type:char(20)"`
	Name  string    `json:"name" gorm:"type:text"`
	Owner string    `json:"owner" gorm:"type:text;index"`
	CDate time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
}

type GroupMember struct {
	GroupID string    `json:"groupId" gorm:"primaryKey;type:char(20)"`
	UserID  string    `json:"userId" gorm:"primaryKey;type:text"`
	CDate   time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
}

// RelationshipRole is a role label the owner assigned to the target user,
// referenced by role-scoped policies.
type RelationshipRole struct {
	Owner  string    `json:"owner" gorm:"primaryKey;type:text"`
	Target string    `json:"target" gorm:"primaryKey;type:text"`
	Role   string    `json:"role" gorm:"primaryKey;type:text"`
	CDate  time.Time `json:"cdate" gorm:"->;<-:create;autoCreateTime"`
}
