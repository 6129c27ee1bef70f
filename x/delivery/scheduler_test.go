package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/wjayesh/mahilo/core"
	mock_core "github.com/wjayesh/mahilo/core/mock"
	mock_message "github.com/wjayesh/mahilo/x/message/mock"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, 8*time.Second, backoff(4))
	assert.Equal(t, 16*time.Second, backoff(5))
}

func TestSchedulerRemovesTaskOnSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockConnection := mock_core.NewMockConnectionService(ctrl)
	mockConnection.EXPECT().Get(gomock.Any(), "conn1").Return(core.AgentConnection{ID: "conn1"}, nil)

	mockDispatcher := mock_core.NewMockDeliveryService(ctrl)
	mockDispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	s := NewScheduler(
		mockDispatcher,
		mock_message.NewMockRepository(ctrl),
		mockConnection,
		mock_core.NewMockEventPublisher(ctrl),
		core.Config{MaxRetries: 5},
	).(*scheduler)

	s.Enqueue(core.RetryTask{
		Kind:         core.TaskKindDirect,
		MessageID:    "msg1",
		ConnectionID: "conn1",
		RetryCount:   1,
		NextAttempt:  time.Now().Add(-time.Second),
	})
	require.Equal(t, 1, s.PendingCount())

	s.tick(context.Background())
	assert.Equal(t, 0, s.PendingCount())
}

func TestSchedulerSkipsTasksNotYetDue(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := NewScheduler(
		mock_core.NewMockDeliveryService(ctrl),
		mock_message.NewMockRepository(ctrl),
		mock_core.NewMockConnectionService(ctrl),
		mock_core.NewMockEventPublisher(ctrl),
		core.Config{MaxRetries: 5},
	).(*scheduler)

	s.Enqueue(core.RetryTask{
		Kind:         core.TaskKindDirect,
		MessageID:    "msg1",
		ConnectionID: "conn1",
		RetryCount:   1,
		NextAttempt:  time.Now().Add(time.Hour),
	})

	s.tick(context.Background())
	assert.Equal(t, 1, s.PendingCount())
}

func TestSchedulerReschedulesWithBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockConnection := mock_core.NewMockConnectionService(ctrl)
	mockConnection.EXPECT().Get(gomock.Any(), "conn1").Return(core.AgentConnection{ID: "conn1"}, nil)

	mockDispatcher := mock_core.NewMockDeliveryService(ctrl)
	mockDispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("endpoint returned status 500"))

	mockRepo := mock_message.NewMockRepository(ctrl)
	mockRepo.EXPECT().IncrementMessageRetry(gomock.Any(), "msg1").Return(2, nil)

	s := NewScheduler(
		mockDispatcher,
		mockRepo,
		mockConnection,
		mock_core.NewMockEventPublisher(ctrl),
		core.Config{MaxRetries: 5},
	).(*scheduler)

	s.Enqueue(core.RetryTask{
		Kind:         core.TaskKindDirect,
		MessageID:    "msg1",
		ConnectionID: "conn1",
		RetryCount:   1,
		NextAttempt:  time.Now().Add(-time.Second),
	})

	before := time.Now()
	s.tick(context.Background())

	require.Equal(t, 1, s.PendingCount())

	s.mutex.RLock()
	task := s.tasks["message:msg1"]
	s.mutex.RUnlock()
	require.NotNil(t, task)
	assert.Equal(t, 2, task.RetryCount)
	assert.WithinDuration(t, before.Add(2*time.Second), task.NextAttempt, time.Second)
}

func TestSchedulerExhaustsRetryBudget(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockConnection := mock_core.NewMockConnectionService(ctrl)
	mockConnection.EXPECT().Get(gomock.Any(), "conn1").Return(core.AgentConnection{ID: "conn1"}, nil)

	mockDispatcher := mock_core.NewMockDeliveryService(ctrl)
	mockDispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("still down"))

	mockRepo := mock_message.NewMockRepository(ctrl)
	mockRepo.EXPECT().IncrementMessageRetry(gomock.Any(), "msg1").Return(3, nil)
	mockRepo.EXPECT().MarkMessageFailed(gomock.Any(), "msg1", core.ReasonMaxRetriesExceeded).Return(nil)
	mockRepo.EXPECT().GetMessage(gomock.Any(), "msg1").Return(core.Message{ID: "msg1", Recipient: "bob"}, nil)

	mockPublisher := mock_core.NewMockEventPublisher(ctrl)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	s := NewScheduler(
		mockDispatcher,
		mockRepo,
		mockConnection,
		mockPublisher,
		core.Config{MaxRetries: 2},
	).(*scheduler)

	s.Enqueue(core.RetryTask{
		Kind:         core.TaskKindDirect,
		MessageID:    "msg1",
		ConnectionID: "conn1",
		RetryCount:   2,
		NextAttempt:  time.Now().Add(-time.Second),
	})

	s.tick(context.Background())
	assert.Equal(t, 0, s.PendingCount())
}

func TestSchedulerFinalizesMissingConnection(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockConnection := mock_core.NewMockConnectionService(ctrl)
	mockConnection.EXPECT().Get(gomock.Any(), "gone").Return(core.AgentConnection{}, core.NewErrorNotFound())

	mockRepo := mock_message.NewMockRepository(ctrl)
	mockRepo.EXPECT().MarkDeliveryFailed(gomock.Any(), "del1", core.ReasonConnectionNotFound).Return(nil)
	mockRepo.EXPECT().RefreshGroupMessageStatus(gomock.Any(), "msg1").Return(nil)
	mockRepo.EXPECT().GetDelivery(gomock.Any(), "del1").Return(core.MessageDelivery{ID: "del1", Recipient: "carol"}, nil)

	mockPublisher := mock_core.NewMockEventPublisher(ctrl)
	mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	s := NewScheduler(
		mock_core.NewMockDeliveryService(ctrl),
		mockRepo,
		mockConnection,
		mockPublisher,
		core.Config{MaxRetries: 5},
	).(*scheduler)

	s.Enqueue(core.RetryTask{
		Kind:         core.TaskKindFanout,
		MessageID:    "msg1",
		DeliveryID:   "del1",
		ConnectionID: "gone",
		RetryCount:   1,
		NextAttempt:  time.Now().Add(-time.Second),
	})

	s.tick(context.Background())
	assert.Equal(t, 0, s.PendingCount())
}
