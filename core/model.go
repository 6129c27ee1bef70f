package core

import (
	"fmt"
	"time"
)

// SendRequest is the inbound send document, as propagated by the routing
// layer.
type SendRequest struct {
	Recipient             string `json:"recipient"`
	RecipientType         string `json:"recipient_type,omitempty"`
	RecipientConnectionID string `json:"recipient_connection_id,omitempty"`
	Message               string `json:"message"`
	Context               string `json:"context,omitempty"`
	PayloadType           string `json:"payload_type,omitempty"`
	Encryption            string `json:"encryption,omitempty"`
	SenderSignature       string `json:"sender_signature,omitempty"`
	CorrelationID         string `json:"correlation_id,omitempty"`
	IdempotencyKey        string `json:"idempotency_key,omitempty"`
}

// SendResult is what the send orchestration reports back to the caller.
// Group sends carry aggregate counts instead of per-member detail.
type SendResult struct {
	MessageID    string `json:"message_id"`
	Status       string `json:"status"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
	IsGroup      bool   `json:"-"`
	Recipients   int    `json:"recipients,omitempty"`
	Delivered    int    `json:"delivered,omitempty"`
	Pending      int    `json:"pending,omitempty"`
	Failed       int    `json:"failed,omitempty"`
}

// WebhookPayload is the webhook body. The marshaled bytes are stored on
// the retry task and re-signed verbatim on every attempt.
type WebhookPayload struct {
	MessageID       string `json:"message_id"`
	Sender          string `json:"sender"`
	SenderAgent     string `json:"sender_agent"`
	Message         string `json:"message"`
	PayloadType     string `json:"payload_type"`
	Timestamp       int64  `json:"timestamp"`
	Encryption      string `json:"encryption,omitempty"`
	SenderSignature string `json:"sender_signature,omitempty"`
	Context         string `json:"context,omitempty"`
	DeliveryID      string `json:"delivery_id,omitempty"`
	GroupID         string `json:"group_id,omitempty"`
	GroupName       string `json:"group_name,omitempty"`
}

// RetryTask tracks one outstanding delivery. It lives in process memory
// only; persisted progress is the retry count on the ledger row.
type RetryTask struct {
	Kind         TaskKind
	MessageID    string
	DeliveryID   string
	ConnectionID string
	GroupID      string
	Body         []byte
	RetryCount   int
	NextAttempt  time.Time
}

// Key identifies the ledger row the task updates.
func (t RetryTask) Key() string {
	if t.Kind == TaskKindFanout {
		return fmt.Sprintf("delivery:%s", t.DeliveryID)
	}
	return fmt.Sprintf("message:%s", t.MessageID)
}

// EvaluationRequest is the policy evaluator input.
type EvaluationRequest struct {
	SenderID    string
	RecipientID string
	GroupID     string
	Message     string
	Context     string
}

// Event is published to redis on terminal delivery transitions.
type Event struct {
	Recipient  string `json:"recipient"`
	Type       string `json:"type"` // message | delivery
	Action     string `json:"action"`
	MessageID  string `json:"messageId"`
	DeliveryID string `json:"deliveryId,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// DeliveryCounts aggregates fan-out delivery statuses for one message.
type DeliveryCounts struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Pending    int `json:"pending"`
	Failed     int `json:"failed"`
}
