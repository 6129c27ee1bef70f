package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wjayesh/mahilo/core"
	"github.com/wjayesh/mahilo/x/message"
)

// scheduler holds outstanding retry tasks in memory and replays them on a
// fixed tick. Direct-message and fan-out tasks share the backoff budget
// but update different ledger rows.
type scheduler struct {
	mutex      sync.RWMutex
	tasks      map[string]*core.RetryTask
	dispatcher core.DeliveryService
	repository message.Repository
	connection core.ConnectionService
	publisher  core.EventPublisher
	config     core.Config
}

func NewScheduler(
	dispatcher core.DeliveryService,
	repository message.Repository,
	connection core.ConnectionService,
	publisher core.EventPublisher,
	config core.Config,
) core.SchedulerService {
	return &scheduler{
		tasks:      make(map[string]*core.RetryTask),
		dispatcher: dispatcher,
		repository: repository,
		connection: connection,
		publisher:  publisher,
		config:     config,
	}
}

func (s *scheduler) Boot() {
	slog.Info("starting retry scheduler")
	interval := time.Duration(s.config.RetryIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			s.tick(context.Background())
		}
	}()
}

func (s *scheduler) Enqueue(task core.RetryTask) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tasks[task.Key()] = &task
}

func (s *scheduler) PendingCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.tasks)
}

// tick replays every task whose next attempt time has elapsed.
func (s *scheduler) tick(ctx context.Context) {
	now := time.Now()

	s.mutex.RLock()
	due := make([]*core.RetryTask, 0)
	for _, task := range s.tasks {
		if !task.NextAttempt.After(now) {
			due = append(due, task)
		}
	}
	s.mutex.RUnlock()

	for _, task := range due {
		s.attempt(ctx, task)
	}
}

func (s *scheduler) attempt(ctx context.Context, task *core.RetryTask) {
	ctx, span := tracer.Start(ctx, "Delivery.Scheduler.Attempt")
	defer span.End()

	if _, err := s.connection.Get(ctx, task.ConnectionID); err != nil {
		if _, ok := err.(core.ErrorNotFound); ok {
			s.finalize(ctx, task, core.ReasonConnectionNotFound)
			return
		}
		span.RecordError(err)
		return
	}

	err := s.dispatcher.Dispatch(ctx, *task)
	if err == nil {
		s.remove(task)
		return
	}

	span.RecordError(err)

	count, incErr := s.incrementRetry(ctx, task)
	if incErr != nil {
		span.RecordError(incErr)
		count = task.RetryCount + 1
	}

	if count > s.config.MaxRetries {
		s.finalize(ctx, task, core.ReasonMaxRetriesExceeded)
		return
	}

	task.RetryCount = count
	task.NextAttempt = time.Now().Add(backoff(count))
}

// backoff returns the delay before the n-th retry: 1s, 2s, 4s, 8s, ...
func backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return time.Duration(1<<(retry-1)) * time.Second
}

func (s *scheduler) incrementRetry(ctx context.Context, task *core.RetryTask) (int, error) {
	if task.Kind == core.TaskKindFanout {
		return s.repository.IncrementDeliveryRetry(ctx, task.DeliveryID)
	}
	return s.repository.IncrementMessageRetry(ctx, task.MessageID)
}

// finalize moves the ledger row to failed with the given reason and drops
// the task.
func (s *scheduler) finalize(ctx context.Context, task *core.RetryTask, reason string) {
	slog.InfoContext(ctx, "finalizing delivery",
		slog.String("task", task.Key()),
		slog.String("reason", reason),
	)

	if task.Kind == core.TaskKindFanout {
		if err := s.repository.MarkDeliveryFailed(ctx, task.DeliveryID, reason); err != nil {
			slog.ErrorContext(ctx, "failed to mark delivery failed", slog.String("error", err.Error()))
		}
		if err := s.repository.RefreshGroupMessageStatus(ctx, task.MessageID); err != nil {
			slog.ErrorContext(ctx, "failed to refresh message status", slog.String("error", err.Error()))
		}
		if row, err := s.repository.GetDelivery(ctx, task.DeliveryID); err == nil {
			s.publish(ctx, core.Event{
				Recipient:  row.Recipient,
				Type:       "delivery",
				Action:     core.MessageStatusFailed,
				MessageID:  task.MessageID,
				DeliveryID: task.DeliveryID,
				Reason:     reason,
			})
		}
	} else {
		if err := s.repository.MarkMessageFailed(ctx, task.MessageID, reason); err != nil {
			slog.ErrorContext(ctx, "failed to mark message failed", slog.String("error", err.Error()))
		}
		if row, err := s.repository.GetMessage(ctx, task.MessageID); err == nil {
			s.publish(ctx, core.Event{
				Recipient: row.Recipient,
				Type:      "message",
				Action:    core.MessageStatusFailed,
				MessageID: task.MessageID,
				Reason:    reason,
			})
		}
	}

	s.remove(task)
}

func (s *scheduler) publish(ctx context.Context, event core.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event", slog.String("error", err.Error()))
	}
}

func (s *scheduler) remove(task *core.RetryTask) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.tasks, task.Key())
}
