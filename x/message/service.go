// Package message owns the send orchestration and the message ledger.
package message

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel"

	"github.com/wjayesh/mahilo/core"
)

var tracer = otel.Tracer("message")

type service struct {
	repository   Repository
	relationship core.RelationshipService
	connection   core.ConnectionService
	policy       core.PolicyService
	delivery     core.DeliveryService
	scheduler    core.SchedulerService
	publisher    core.EventPublisher
	config       core.Config
}

func NewService(
	repository Repository,
	relationship core.RelationshipService,
	connection core.ConnectionService,
	policy core.PolicyService,
	delivery core.DeliveryService,
	scheduler core.SchedulerService,
	publisher core.EventPublisher,
	config core.Config,
) core.MessageService {
	return &service{
		repository:   repository,
		relationship: relationship,
		connection:   connection,
		policy:       policy,
		delivery:     delivery,
		scheduler:    scheduler,
		publisher:    publisher,
		config:       config,
	}
}

// Send runs the full pipeline: authorize, deduplicate, enforce the payload
// ceiling, evaluate policies, persist, resolve connections and make the
// first delivery attempt synchronously. The caller gets the immediate
// outcome; retries continue in the background.
func (s *service) Send(ctx context.Context, requester, requesterAgent string, request core.SendRequest) (core.SendResult, error) {
	ctx, span := tracer.Start(ctx, "Message.Service.Send")
	defer span.End()

	recipientType := request.RecipientType
	if recipientType == "" {
		recipientType = core.RecipientTypeUser
	}

	isGroup := recipientType == core.RecipientTypeGroup

	if isGroup {
		member, err := s.relationship.IsGroupMember(ctx, request.Recipient, requester)
		if err != nil {
			span.RecordError(err)
			return core.SendResult{}, err
		}
		if !member {
			return core.SendResult{}, core.NewErrorRelationshipDenied("not a group member")
		}
	} else {
		if err := s.relationship.CanReach(ctx, requester, request.Recipient); err != nil {
			span.RecordError(err)
			return core.SendResult{}, err
		}
	}

	if request.IdempotencyKey != "" {
		prior, err := s.repository.GetByIdempotency(ctx, requester, request.IdempotencyKey)
		if err == nil {
			return s.priorResult(ctx, prior, isGroup)
		}
	}

	if len(request.Message) > s.config.MaxPayloadSize {
		return core.SendResult{}, core.NewErrorPayloadTooLarge()
	}

	if s.config.TrustedMode && request.Encryption == "" {
		evaluation := core.EvaluationRequest{
			SenderID: requester,
			Message:  request.Message,
			Context:  request.Context,
		}
		if isGroup {
			evaluation.GroupID = request.Recipient
		} else {
			evaluation.RecipientID = request.Recipient
		}
		if err := s.policy.Evaluate(ctx, evaluation); err != nil {
			span.RecordError(err)
			return core.SendResult{}, err
		}
	}

	message := core.Message{
		ID:            xid.New().String(),
		Sender:        requester,
		SenderAgent:   requesterAgent,
		RecipientType: recipientType,
		Recipient:     request.Recipient,
		Payload:       request.Message,
		PayloadType:   defaulted(request.PayloadType, "text"),
		Status:        core.MessageStatusPending,
	}
	message.CorrelationID = optional(request.CorrelationID)
	message.Encryption = optional(request.Encryption)
	message.SenderSignature = optional(request.SenderSignature)
	message.Context = optional(request.Context)
	message.IdempotencyKey = optional(request.IdempotencyKey)
	if request.RecipientConnectionID != "" {
		message.ConnectionID = &request.RecipientConnectionID
	}

	message, deduplicated, err := s.repository.CreateMessage(ctx, message)
	if err != nil {
		span.RecordError(err)
		return core.SendResult{}, err
	}
	if deduplicated {
		return s.priorResult(ctx, message, isGroup)
	}

	if isGroup {
		return s.sendToGroup(ctx, message)
	}

	return s.sendDirect(ctx, message)
}

// sendDirect resolves exactly one target connection and attempts delivery.
func (s *service) sendDirect(ctx context.Context, message core.Message) (core.SendResult, error) {
	ctx, span := tracer.Start(ctx, "Message.Service.SendDirect")
	defer span.End()

	conn, reason, err := s.resolveConnection(ctx, message)
	if err != nil {
		span.RecordError(err)
		return core.SendResult{}, err
	}
	if reason != "" {
		if err := s.repository.MarkMessageFailed(ctx, message.ID, reason); err != nil {
			span.RecordError(err)
			return core.SendResult{}, err
		}
		s.publishTerminal(ctx, message.Recipient, "message", core.MessageStatusFailed, message.ID, "", reason)
		return core.SendResult{MessageID: message.ID, Status: core.MessageStatusFailed}, nil
	}

	body, err := json.Marshal(s.buildPayload(message, "", "", ""))
	if err != nil {
		span.RecordError(err)
		return core.SendResult{}, err
	}

	task := core.RetryTask{
		Kind:         core.TaskKindDirect,
		MessageID:    message.ID,
		ConnectionID: conn.ID,
		Body:         body,
	}

	if err := s.delivery.Dispatch(ctx, task); err != nil {
		slog.InfoContext(ctx, "first delivery attempt failed, scheduling retry",
			slog.String("message", message.ID),
			slog.String("error", err.Error()),
		)
		if _, err := s.repository.IncrementMessageRetry(ctx, message.ID); err != nil {
			span.RecordError(err)
		}
		task.RetryCount = 1
		task.NextAttempt = time.Now().Add(time.Second)
		s.scheduler.Enqueue(task)
		return core.SendResult{MessageID: message.ID, Status: core.MessageStatusPending}, nil
	}

	return core.SendResult{MessageID: message.ID, Status: core.MessageStatusDelivered}, nil
}

// resolveConnection picks the delivery target for a direct send: the
// explicit connection when the request names one, otherwise the
// recipient's highest-priority active connection. A non-empty reason
// means the message cannot be delivered and must fail terminally.
func (s *service) resolveConnection(ctx context.Context, message core.Message) (core.AgentConnection, string, error) {
	if message.ConnectionID != nil {
		conn, err := s.connection.Get(ctx, *message.ConnectionID)
		if err != nil {
			if _, ok := err.(core.ErrorNotFound); ok {
				return core.AgentConnection{}, core.ReasonConnectionNotFound, nil
			}
			return core.AgentConnection{}, "", err
		}
		if conn.Owner != message.Recipient || conn.Status != core.ConnectionStatusActive {
			return core.AgentConnection{}, core.ReasonConnectionNotFound, nil
		}
		return conn, "", nil
	}

	conns, err := s.connection.ActiveByOwner(ctx, message.Recipient)
	if err != nil {
		return core.AgentConnection{}, "", err
	}
	if len(conns) == 0 {
		return core.AgentConnection{}, core.ReasonNoActiveConnection, nil
	}

	return conns[0], "", nil
}

// sendToGroup fans the message out to every active connection of every
// member except the sender, one delivery row per connection.
func (s *service) sendToGroup(ctx context.Context, message core.Message) (core.SendResult, error) {
	ctx, span := tracer.Start(ctx, "Message.Service.SendToGroup")
	defer span.End()

	group, err := s.relationship.GetGroup(ctx, message.Recipient)
	if err != nil {
		span.RecordError(err)
		return core.SendResult{}, err
	}

	members, err := s.relationship.GroupMembers(ctx, message.Recipient)
	if err != nil {
		span.RecordError(err)
		return core.SendResult{}, err
	}

	result := core.SendResult{MessageID: message.ID, IsGroup: true}

	for _, member := range members {
		if member == message.Sender {
			continue
		}

		conns, err := s.connection.ActiveByOwner(ctx, member)
		if err != nil {
			span.RecordError(err)
			return core.SendResult{}, err
		}

		for _, conn := range conns {
			delivery, err := s.repository.CreateDelivery(ctx, core.MessageDelivery{
				ID:           xid.New().String(),
				MessageID:    message.ID,
				Recipient:    member,
				ConnectionID: conn.ID,
				Status:       core.MessageStatusPending,
			})
			if err != nil {
				span.RecordError(err)
				continue
			}

			result.Recipients++

			body, err := json.Marshal(s.buildPayload(message, delivery.ID, group.ID, group.Name))
			if err != nil {
				span.RecordError(err)
				continue
			}

			task := core.RetryTask{
				Kind:         core.TaskKindFanout,
				MessageID:    message.ID,
				DeliveryID:   delivery.ID,
				ConnectionID: conn.ID,
				GroupID:      group.ID,
				Body:         body,
			}

			if err := s.delivery.Dispatch(ctx, task); err != nil {
				if _, err := s.repository.IncrementDeliveryRetry(ctx, delivery.ID); err != nil {
					span.RecordError(err)
				}
				task.RetryCount = 1
				task.NextAttempt = time.Now().Add(time.Second)
				s.scheduler.Enqueue(task)
				result.Pending++
			} else {
				result.Delivered++
			}
		}
	}

	if result.Recipients == 0 {
		if err := s.repository.MarkMessageFailed(ctx, message.ID, core.ReasonNoActiveConnection); err != nil {
			span.RecordError(err)
			return core.SendResult{}, err
		}
		result.Status = core.MessageStatusFailed
		return result, nil
	}

	if err := s.repository.RefreshGroupMessageStatus(ctx, message.ID); err != nil {
		span.RecordError(err)
	}

	switch {
	case result.Pending > 0:
		result.Status = core.MessageStatusPending
	case result.Delivered > 0:
		result.Status = core.MessageStatusDelivered
	default:
		result.Status = core.MessageStatusFailed
	}

	return result, nil
}

func (s *service) buildPayload(message core.Message, deliveryID, groupID, groupName string) core.WebhookPayload {
	payload := core.WebhookPayload{
		MessageID:   message.ID,
		Sender:      message.Sender,
		SenderAgent: message.SenderAgent,
		Message:     message.Payload,
		PayloadType: message.PayloadType,
		Timestamp:   message.CDate.Unix(),
		DeliveryID:  deliveryID,
		GroupID:     groupID,
		GroupName:   groupName,
	}
	if message.Encryption != nil {
		payload.Encryption = *message.Encryption
	}
	if message.SenderSignature != nil {
		payload.SenderSignature = *message.SenderSignature
	}
	if message.Context != nil {
		payload.Context = *message.Context
	}
	return payload
}

// priorResult rebuilds the send response for a deduplicated request from
// the previously persisted message.
func (s *service) priorResult(ctx context.Context, message core.Message, isGroup bool) (core.SendResult, error) {
	result := core.SendResult{
		MessageID:    message.ID,
		Status:       message.Status,
		Deduplicated: true,
		IsGroup:      isGroup,
	}

	if isGroup {
		counts, err := s.repository.DeliveryCounts(ctx, message.ID)
		if err != nil {
			return core.SendResult{}, err
		}
		result.Recipients = counts.Recipients
		result.Delivered = counts.Delivered
		result.Pending = counts.Pending
		result.Failed = counts.Failed
	}

	return result, nil
}

func (s *service) publishTerminal(ctx context.Context, recipient, kind, action, messageID, deliveryID, reason string) {
	err := s.publisher.Publish(ctx, core.Event{
		Recipient:  recipient,
		Type:       kind,
		Action:     action,
		MessageID:  messageID,
		DeliveryID: deliveryID,
		Reason:     reason,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish event", slog.String("error", err.Error()))
	}
}

// Get returns a message if the requester is a party to it.
func (s *service) Get(ctx context.Context, id, requester string) (core.Message, error) {
	ctx, span := tracer.Start(ctx, "Message.Service.Get")
	defer span.End()

	message, err := s.repository.GetMessage(ctx, id)
	if err != nil {
		return core.Message{}, err
	}

	if message.Sender == requester || message.Recipient == requester {
		return message, nil
	}

	if message.RecipientType == core.RecipientTypeGroup {
		member, err := s.relationship.IsGroupMember(ctx, message.Recipient, requester)
		if err == nil && member {
			return message, nil
		}
	}

	return core.Message{}, core.NewErrorPermissionDenied()
}

func (s *service) History(ctx context.Context, requester, direction string, since time.Time, limit int) ([]core.Message, error) {
	ctx, span := tracer.Start(ctx, "Message.Service.History")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	return s.repository.ListHistory(ctx, requester, direction, since, limit)
}

func (s *service) Count(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Message.Service.Count")
	defer span.End()

	return s.repository.Count(ctx)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func defaulted(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
