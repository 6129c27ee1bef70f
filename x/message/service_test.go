package message

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

type fixture struct {
	repo         *mock_message.MockRepository
	relationship *mock_core.MockRelationshipService
	connection   *mock_core.MockConnectionService
	policy       *mock_core.MockPolicyService
	delivery     *mock_core.MockDeliveryService
	scheduler    *mock_core.MockSchedulerService
	publisher    *mock_core.MockEventPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	return &fixture{
		repo:         mock_message.NewMockRepository(ctrl),
		relationship: mock_core.NewMockRelationshipService(ctrl),
		connection:   mock_core.NewMockConnectionService(ctrl),
		policy:       mock_core.NewMockPolicyService(ctrl),
		delivery:     mock_core.NewMockDeliveryService(ctrl),
		scheduler:    mock_core.NewMockSchedulerService(ctrl),
		publisher:    mock_core.NewMockEventPublisher(ctrl),
	}
}

func (f *fixture) service(config core.Config) core.MessageService {
	if config.MaxPayloadSize == 0 {
		config.MaxPayloadSize = 1024
	}
	return NewService(f.repo, f.relationship, f.connection, f.policy, f.delivery, f.scheduler, f.publisher, config)
}

func (f *fixture) expectCreate() {
	f.repo.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m core.Message) (core.Message, bool, error) {
			return m, false, nil
		})
}

func TestSendDirectDelivered(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)
	f.expectCreate()
	f.connection.EXPECT().ActiveByOwner(gomock.Any(), "bob").Return([]core.AgentConnection{
		{ID: "conn1", Owner: "bob", Status: core.ConnectionStatusActive},
	}, nil)
	f.delivery.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	result, err := f.service(core.Config{}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient: "bob",
		Message:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, core.MessageStatusDelivered, result.Status)
	assert.NotEmpty(t, result.MessageID)
	assert.False(t, result.Deduplicated)
}

func TestSendRejectedWhenNotFriends(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "stranger").
		Return(core.NewErrorRelationshipDenied("not friends"))

	_, err := f.service(core.Config{}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient: "stranger",
		Message:   "hello",
	})

	var denied core.ErrorRelationshipDenied
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "not friends", denied.Reason)
}

func TestSendDeduplicated(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)
	f.repo.EXPECT().GetByIdempotency(gomock.Any(), "alice", "key1").
		Return(core.Message{ID: "prior", Status: core.MessageStatusDelivered}, nil)

	result, err := f.service(core.Config{}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient:      "bob",
		Message:        "hello",
		IdempotencyKey: "key1",
	})
	require.NoError(t, err)
	assert.True(t, result.Deduplicated)
	assert.Equal(t, "prior", result.MessageID)
	assert.Equal(t, core.MessageStatusDelivered, result.Status)
}

func TestSendSameKeyDifferentSenderIsNotDeduplicated(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "mallory", "bob").Return(nil)
	f.repo.EXPECT().GetByIdempotency(gomock.Any(), "mallory", "key1").
		Return(core.Message{}, core.NewErrorNotFound())
	f.expectCreate()
	f.connection.EXPECT().ActiveByOwner(gomock.Any(), "bob").Return([]core.AgentConnection{
		{ID: "conn1", Owner: "bob"},
	}, nil)
	f.delivery.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	result, err := f.service(core.Config{}).Send(context.Background(), "mallory", "assistant", core.SendRequest{
		Recipient:      "bob",
		Message:        "hello",
		IdempotencyKey: "key1",
	})
	require.NoError(t, err)
	assert.False(t, result.Deduplicated)
}

func TestSendPayloadTooLarge(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)

	_, err := f.service(core.Config{MaxPayloadSize: 4}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient: "bob",
		Message:   "way past the limit",
	})
	assert.IsType(t, core.ErrorPayloadTooLarge{}, err)
}

func TestSendPolicyRejected(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)
	f.policy.EXPECT().Evaluate(gomock.Any(), gomock.Any()).
		Return(core.NewErrorPolicyRejected("p1", "too chatty"))

	_, err := f.service(core.Config{TrustedMode: true}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient: "bob",
		Message:   "hello",
	})

	var rejected core.ErrorPolicyRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "p1", rejected.PolicyID)
}

func TestSendEncryptedSkipsPolicy(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)
	f.expectCreate()
	f.connection.EXPECT().ActiveByOwner(gomock.Any(), "bob").Return([]core.AgentConnection{
		{ID: "conn1", Owner: "bob"},
	}, nil)
	f.delivery.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	result, err := f.service(core.Config{TrustedMode: true}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient:  "bob",
		Message:    "ciphertext",
		Encryption: `{"alg":"x25519"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, core.MessageStatusDelivered, result.Status)
}

func TestSendNoActiveConnections(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)
	f.expectCreate()
	f.connection.EXPECT().ActiveByOwner(gomock.Any(), "bob").Return(nil, nil)
	f.repo.EXPECT().MarkMessageFailed(gomock.Any(), gomock.Any(), core.ReasonNoActiveConnection).Return(nil)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	result, err := f.service(core.Config{}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient: "bob",
		Message:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, core.MessageStatusFailed, result.Status)
}

func TestSendExplicitConnectionNotFound(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)
	f.expectCreate()
	f.connection.EXPECT().Get(gomock.Any(), "missing").Return(core.AgentConnection{}, core.NewErrorNotFound())
	f.repo.EXPECT().MarkMessageFailed(gomock.Any(), gomock.Any(), core.ReasonConnectionNotFound).Return(nil)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	result, err := f.service(core.Config{}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient:             "bob",
		RecipientConnectionID: "missing",
		Message:               "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, core.MessageStatusFailed, result.Status)
}

func TestSendFirstAttemptFailureSchedulesRetry(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().CanReach(gomock.Any(), "alice", "bob").Return(nil)
	f.expectCreate()
	f.connection.EXPECT().ActiveByOwner(gomock.Any(), "bob").Return([]core.AgentConnection{
		{ID: "conn1", Owner: "bob"},
	}, nil)
	f.delivery.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("endpoint returned status 500"))
	f.repo.EXPECT().IncrementMessageRetry(gomock.Any(), gomock.Any()).Return(1, nil)

	var enqueued core.RetryTask
	f.scheduler.EXPECT().Enqueue(gomock.Any()).Do(func(task core.RetryTask) {
		enqueued = task
	})

	result, err := f.service(core.Config{}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient: "bob",
		Message:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, core.MessageStatusPending, result.Status)
	assert.Equal(t, core.TaskKindDirect, enqueued.Kind)
	assert.Equal(t, 1, enqueued.RetryCount)
	assert.Equal(t, "conn1", enqueued.ConnectionID)
}

func TestSendGroupFanout(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().IsGroupMember(gomock.Any(), "grp1", "alice").Return(true, nil)
	f.expectCreate()
	f.relationship.EXPECT().GetGroup(gomock.Any(), "grp1").Return(core.Group{ID: "grp1", Name: "pod"}, nil)
	f.relationship.EXPECT().GroupMembers(gomock.Any(), "grp1").Return([]string{"alice", "bob", "carol"}, nil)

	f.connection.EXPECT().ActiveByOwner(gomock.Any(), "bob").Return([]core.AgentConnection{
		{ID: "conn-bob", Owner: "bob"},
	}, nil)
	f.connection.EXPECT().ActiveByOwner(gomock.Any(), "carol").Return([]core.AgentConnection{
		{ID: "conn-carol", Owner: "carol"},
	}, nil)

	f.repo.EXPECT().CreateDelivery(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d core.MessageDelivery) (core.MessageDelivery, error) {
			return d, nil
		}).Times(2)

	// bob's endpoint succeeds, carol's does not
	f.delivery.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, task core.RetryTask) error {
			if task.ConnectionID == "conn-carol" {
				return errors.New("endpoint returned status 500")
			}
			return nil
		}).Times(2)

	f.repo.EXPECT().IncrementDeliveryRetry(gomock.Any(), gomock.Any()).Return(1, nil)
	f.scheduler.EXPECT().Enqueue(gomock.Any())
	f.repo.EXPECT().RefreshGroupMessageStatus(gomock.Any(), gomock.Any()).Return(nil)

	result, err := f.service(core.Config{}).Send(context.Background(), "alice", "assistant", core.SendRequest{
		Recipient:     "grp1",
		RecipientType: core.RecipientTypeGroup,
		Message:       "hello all",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Recipients)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, core.MessageStatusPending, result.Status)
}

func TestSendGroupRequiresMembership(t *testing.T) {
	f := newFixture(t)

	f.relationship.EXPECT().IsGroupMember(gomock.Any(), "grp1", "outsider").Return(false, nil)

	_, err := f.service(core.Config{}).Send(context.Background(), "outsider", "assistant", core.SendRequest{
		Recipient:     "grp1",
		RecipientType: core.RecipientTypeGroup,
		Message:       "hello",
	})

	var denied core.ErrorRelationshipDenied
	assert.ErrorAs(t, err, &denied)
}

func TestGetRestrictedToParties(t *testing.T) {
	f := newFixture(t)

	stored := core.Message{ID: "msg1", Sender: "alice", Recipient: "bob", RecipientType: core.RecipientTypeUser}
	f.repo.EXPECT().GetMessage(gomock.Any(), "msg1").Return(stored, nil).Times(3)

	service := f.service(core.Config{})

	_, err := service.Get(context.Background(), "msg1", "alice")
	assert.NoError(t, err)

	_, err = service.Get(context.Background(), "msg1", "bob")
	assert.NoError(t, err)

	_, err = service.Get(context.Background(), "msg1", "mallory")
	assert.IsType(t, core.ErrorPermissionDenied{}, err)
}

func TestHistoryClampsLimit(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().ListHistory(gomock.Any(), "alice", "sent", gomock.Any(), 100).Return(nil, nil)

	_, err := f.service(core.Config{}).History(context.Background(), "alice", "sent", time.Time{}, 5000)
	assert.NoError(t, err)
}
