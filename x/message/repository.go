//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=mock/repository.go
package message

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wjayesh/mahilo/core"
)

type Repository interface {
	CreateMessage(ctx context.Context, message core.Message) (core.Message, bool, error)
	GetMessage(ctx context.Context, id string) (core.Message, error)
	GetByIdempotency(ctx context.Context, sender, key string) (core.Message, error)
	MarkMessageDelivered(ctx context.Context, id string) error
	MarkMessageFailed(ctx context.Context, id, reason string) error
	IncrementMessageRetry(ctx context.Context, id string) (int, error)

	CreateDelivery(ctx context.Context, delivery core.MessageDelivery) (core.MessageDelivery, error)
	GetDelivery(ctx context.Context, id string) (core.MessageDelivery, error)
	MarkDeliveryDelivered(ctx context.Context, id string) error
	MarkDeliveryFailed(ctx context.Context, id, reason string) error
	IncrementDeliveryRetry(ctx context.Context, id string) (int, error)
	DeliveryCounts(ctx context.Context, messageID string) (core.DeliveryCounts, error)
	RefreshGroupMessageStatus(ctx context.Context, messageID string) error

	ListHistory(ctx context.Context, user, direction string, since time.Time, limit int) ([]core.Message, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// CreateMessage persists the message. When an idempotency key is present
// and the (sender, key) pair already exists, the prior message is returned
// with the deduplicated flag set instead of an error. The insert-then-read
// order makes concurrent duplicates converge on whichever row won.
func (r *repository) CreateMessage(ctx context.Context, message core.Message) (core.Message, bool, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.CreateMessage")
	defer span.End()

	err := r.db.WithContext(ctx).Create(&message).Error
	if err == nil {
		return message, false, nil
	}

	if message.IdempotencyKey != nil {
		var existing core.Message
		readErr := r.db.WithContext(ctx).
			Where("sender = ? AND idempotency_key = ?", message.Sender, *message.IdempotencyKey).
			First(&existing).Error
		if readErr == nil {
			return existing, true, nil
		}
	}

	span.RecordError(err)
	return core.Message{}, false, err
}

func (r *repository) GetMessage(ctx context.Context, id string) (core.Message, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.GetMessage")
	defer span.End()

	var message core.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.Message{}, core.NewErrorNotFound()
		}
		return core.Message{}, err
	}

	return message, nil
}

func (r *repository) GetByIdempotency(ctx context.Context, sender, key string) (core.Message, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.GetByIdempotency")
	defer span.End()

	var message core.Message
	err := r.db.WithContext(ctx).
		Where("sender = ? AND idempotency_key = ?", sender, key).
		First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.Message{}, core.NewErrorNotFound()
		}
		return core.Message{}, err
	}

	return message, nil
}

func (r *repository) MarkMessageDelivered(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Message.Repository.MarkMessageDelivered")
	defer span.End()

	now := time.Now()
	return r.db.WithContext(ctx).Model(&core.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       core.MessageStatusDelivered,
			"delivered_at": now,
		}).Error
}

func (r *repository) MarkMessageFailed(ctx context.Context, id, reason string) error {
	ctx, span := tracer.Start(ctx, "Message.Repository.MarkMessageFailed")
	defer span.End()

	return r.db.WithContext(ctx).Model(&core.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": core.MessageStatusFailed,
			"reason": reason,
		}).Error
}

func (r *repository) IncrementMessageRetry(ctx context.Context, id string) (int, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.IncrementMessageRetry")
	defer span.End()

	err := r.db.WithContext(ctx).Model(&core.Message{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var message core.Message
	if err := r.db.WithContext(ctx).Select("retry_count").Where("id = ?", id).First(&message).Error; err != nil {
		return 0, err
	}

	return message.RetryCount, nil
}

func (r *repository) CreateDelivery(ctx context.Context, delivery core.MessageDelivery) (core.MessageDelivery, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.CreateDelivery")
	defer span.End()

	if err := r.db.WithContext(ctx).Create(&delivery).Error; err != nil {
		span.RecordError(err)
		return core.MessageDelivery{}, err
	}

	return delivery, nil
}

func (r *repository) GetDelivery(ctx context.Context, id string) (core.MessageDelivery, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.GetDelivery")
	defer span.End()

	var delivery core.MessageDelivery
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&delivery).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.MessageDelivery{}, core.NewErrorNotFound()
		}
		return core.MessageDelivery{}, err
	}

	return delivery, nil
}

func (r *repository) MarkDeliveryDelivered(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Message.Repository.MarkDeliveryDelivered")
	defer span.End()

	now := time.Now()
	return r.db.WithContext(ctx).Model(&core.MessageDelivery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       core.MessageStatusDelivered,
			"delivered_at": now,
		}).Error
}

func (r *repository) MarkDeliveryFailed(ctx context.Context, id, reason string) error {
	ctx, span := tracer.Start(ctx, "Message.Repository.MarkDeliveryFailed")
	defer span.End()

	return r.db.WithContext(ctx).Model(&core.MessageDelivery{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": core.MessageStatusFailed,
			"error":  reason,
		}).Error
}

func (r *repository) IncrementDeliveryRetry(ctx context.Context, id string) (int, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.IncrementDeliveryRetry")
	defer span.End()

	err := r.db.WithContext(ctx).Model(&core.MessageDelivery{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var delivery core.MessageDelivery
	if err := r.db.WithContext(ctx).Select("retry_count").Where("id = ?", id).First(&delivery).Error; err != nil {
		return 0, err
	}

	return delivery.RetryCount, nil
}

func (r *repository) DeliveryCounts(ctx context.Context, messageID string) (core.DeliveryCounts, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.DeliveryCounts")
	defer span.End()

	var rows []struct {
		Status string
		Total  int
	}
	err := r.db.WithContext(ctx).Model(&core.MessageDelivery{}).
		Select("status, count(*) as total").
		Where("message_id = ?", messageID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return core.DeliveryCounts{}, err
	}

	var counts core.DeliveryCounts
	for _, row := range rows {
		counts.Recipients += row.Total
		switch row.Status {
		case core.MessageStatusDelivered:
			counts.Delivered += row.Total
		case core.MessageStatusFailed:
			counts.Failed += row.Total
		default:
			counts.Pending += row.Total
		}
	}

	return counts, nil
}

// RefreshGroupMessageStatus derives the parent message status from its
// delivery rows once none are pending. At least one delivered delivery
// makes the message delivered; otherwise it fails.
func (r *repository) RefreshGroupMessageStatus(ctx context.Context, messageID string) error {
	ctx, span := tracer.Start(ctx, "Message.Repository.RefreshGroupMessageStatus")
	defer span.End()

	counts, err := r.DeliveryCounts(ctx, messageID)
	if err != nil {
		return err
	}

	if counts.Recipients == 0 || counts.Pending > 0 {
		return nil
	}

	if counts.Delivered > 0 {
		return r.MarkMessageDelivered(ctx, messageID)
	}

	return r.MarkMessageFailed(ctx, messageID, "All deliveries failed")
}

func (r *repository) ListHistory(ctx context.Context, user, direction string, since time.Time, limit int) ([]core.Message, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.ListHistory")
	defer span.End()

	query := r.db.WithContext(ctx).Model(&core.Message{})
	switch direction {
	case "sent":
		query = query.Where("sender = ?", user)
	case "received":
		query = query.Where("recipient = ?", user)
	default:
		query = query.Where("sender = ? OR recipient = ?", user, user)
	}

	if !since.IsZero() {
		query = query.Where("c_date > ?", since)
	}

	var messages []core.Message
	err := query.Order("c_date DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Message.Repository.Count")
	defer span.End()

	var count int64
	err := r.db.WithContext(ctx).Model(&core.Message{}).Count(&count).Error
	return count, err
}
