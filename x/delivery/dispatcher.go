// Package delivery performs webhook attempts and drives the retry loop.
package delivery

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/wjayesh/mahilo/client"
	"github.com/wjayesh/mahilo/core"
	"github.com/wjayesh/mahilo/x/message"
)

var tracer = otel.Tracer("delivery")

type dispatcher struct {
	client     client.Client
	repository message.Repository
	connection core.ConnectionService
	publisher  core.EventPublisher
}

func NewDispatcher(
	client client.Client,
	repository message.Repository,
	connection core.ConnectionService,
	publisher core.EventPublisher,
) core.DeliveryService {
	return &dispatcher{
		client:     client,
		repository: repository,
		connection: connection,
		publisher:  publisher,
	}
}

// Sign computes the webhook signature over "{timestamp}.{body}".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Dispatch performs exactly one webhook attempt. The stored body is sent
// verbatim; only the timestamp header and signature are fresh per attempt.
// On 2xx the ledger row goes terminal delivered and the connection's
// last_seen is refreshed. Any other outcome is returned as an error and
// left to the caller to schedule.
func (d *dispatcher) Dispatch(ctx context.Context, task core.RetryTask) error {
	ctx, span := tracer.Start(ctx, "Delivery.Dispatcher.Dispatch")
	defer span.End()

	conn, err := d.connection.Get(ctx, task.ConnectionID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	timestamp := time.Now().Unix()
	headers := map[string]string{
		core.SignatureHeader: Sign(conn.CallbackSecret, timestamp, task.Body),
		core.TimestampHeader: strconv.FormatInt(timestamp, 10),
		core.MessageIdHeader: task.MessageID,
	}
	if task.Kind == core.TaskKindFanout {
		headers[core.DeliveryIdHeader] = task.DeliveryID
		headers[core.GroupIdHeader] = task.GroupID
	}

	resp, err := d.client.Post(ctx, conn.CallbackURL, headers, task.Body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	if err := d.markDelivered(ctx, task); err != nil {
		span.RecordError(err)
		return err
	}

	if err := d.connection.UpdateLastSeen(ctx, conn.ID); err != nil {
		span.RecordError(err)
	}

	return nil
}

func (d *dispatcher) markDelivered(ctx context.Context, task core.RetryTask) error {
	if task.Kind == core.TaskKindFanout {
		if err := d.repository.MarkDeliveryDelivered(ctx, task.DeliveryID); err != nil {
			return err
		}
		if err := d.repository.RefreshGroupMessageStatus(ctx, task.MessageID); err != nil {
			return err
		}
		if row, err := d.repository.GetDelivery(ctx, task.DeliveryID); err == nil {
			d.publish(ctx, core.Event{
				Recipient:  row.Recipient,
				Type:       "delivery",
				Action:     core.MessageStatusDelivered,
				MessageID:  task.MessageID,
				DeliveryID: task.DeliveryID,
			})
		}
		return nil
	}

	if err := d.repository.MarkMessageDelivered(ctx, task.MessageID); err != nil {
		return err
	}
	if row, err := d.repository.GetMessage(ctx, task.MessageID); err == nil {
		d.publish(ctx, core.Event{
			Recipient: row.Recipient,
			Type:      "message",
			Action:    core.MessageStatusDelivered,
			MessageID: task.MessageID,
		})
	}
	return nil
}

func (d *dispatcher) publish(ctx context.Context, event core.Event) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event", slog.String("error", err.Error()))
	}
}
