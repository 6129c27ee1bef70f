//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=mock/services.go
package core

import (
	"context"
	"time"
)

type RelationshipService interface {
	CanReach(ctx context.Context, sender, recipient string) error
	IsGroupMember(ctx context.Context, groupID, userID string) (bool, error)
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
	RolesFor(ctx context.Context, owner, target string) ([]string, error)
	GetGroup(ctx context.Context, groupID string) (Group, error)
}

type ConnectionService interface {
	Register(ctx context.Context, conn AgentConnection) (AgentConnection, error)
	Get(ctx context.Context, id string) (AgentConnection, error)
	ListByOwner(ctx context.Context, owner string) ([]AgentConnection, error)
	ActiveByOwner(ctx context.Context, owner string) ([]AgentConnection, error)
	UpdateLastSeen(ctx context.Context, id string) error
	Delete(ctx context.Context, id, owner string) error
	Count(ctx context.Context) (int64, error)
}

type PolicyService interface {
	Evaluate(ctx context.Context, request EvaluationRequest) error
	Upsert(ctx context.Context, policy Policy) (Policy, error)
	ListByOwner(ctx context.Context, owner string) ([]Policy, error)
	Delete(ctx context.Context, id, owner string) error
}

type MessageService interface {
	Send(ctx context.Context, requester, requesterAgent string, request SendRequest) (SendResult, error)
	Get(ctx context.Context, id, requester string) (Message, error)
	History(ctx context.Context, requester, direction string, since time.Time, limit int) ([]Message, error)
	Count(ctx context.Context) (int64, error)
}

// DeliveryService performs exactly one webhook attempt for a task.
type DeliveryService interface {
	Dispatch(ctx context.Context, task RetryTask) error
}

// SchedulerService owns the outstanding retry set.
type SchedulerService interface {
	Boot()
	Enqueue(task RetryTask)
	PendingCount() int
}

// EventPublisher notifies subscribers about terminal delivery transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// JudgeClient is the capability behind llm-type policies. Judge returns
// the raw completion text; callers interpret the first line.
type JudgeClient interface {
	Judge(ctx context.Context, prompt string) (string, error)
}
