package test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wjayesh/mahilo/client"
	"github.com/wjayesh/mahilo/core"
	"github.com/wjayesh/mahilo/internal/testutil"
	"github.com/wjayesh/mahilo/x/connection"
	"github.com/wjayesh/mahilo/x/delivery"
	"github.com/wjayesh/mahilo/x/event"
	"github.com/wjayesh/mahilo/x/message"
	"github.com/wjayesh/mahilo/x/policy"
	"github.com/wjayesh/mahilo/x/relationship"
	"github.com/wjayesh/mahilo/x/safeurl"
)

var (
	db  *gorm.DB
	rdb *redis.Client
	mc  *memcache.Client
)

func TestMain(m *testing.M) {

	var cleanup_db func()
	db, cleanup_db = testutil.CreateDB()
	defer cleanup_db()

	var cleanup_rdb func()
	rdb, cleanup_rdb = testutil.CreateRDB()
	defer cleanup_rdb()

	var cleanup_mc func()
	mc, cleanup_mc = testutil.CreateMC()
	defer cleanup_mc()

	m.Run()
}

type stack struct {
	messages    core.MessageService
	connections core.ConnectionService
	scheduler   core.SchedulerService
}

func buildStack(config core.Config) stack {
	repo := message.NewRepository(db)
	relationshipService := relationship.NewService(relationship.NewRepository(db))
	connectionService := connection.NewService(connection.NewRepository(db, mc), safeurl.NewService(config))
	policyService := policy.NewService(policy.NewRepository(db), relationshipService, policy.NewJudgeClient(config.Judge))
	publisher := event.NewPublisher(rdb)
	httpClient := client.NewClient(5 * time.Second)
	dispatcher := delivery.NewDispatcher(httpClient, repo, connectionService, publisher)
	scheduler := delivery.NewScheduler(dispatcher, repo, connectionService, publisher, config)
	messageService := message.NewService(repo, relationshipService, connectionService, policyService, dispatcher, scheduler, publisher, config)

	return stack{
		messages:    messageService,
		connections: connectionService,
		scheduler:   scheduler,
	}
}

func testConfig() core.Config {
	return core.Config{
		FQDN:                   "mahilo.example.com",
		MaxPayloadSize:         65536,
		MaxRetries:             3,
		RetryIntervalSeconds:   1,
		DeliveryTimeoutSeconds: 5,
	}
}

func verifySignature(t *testing.T, secret string, r *http.Request, body []byte) {
	t.Helper()

	timestamp, err := strconv.ParseInt(r.Header.Get(core.TimestampHeader), 10, 64)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, r.Header.Get(core.SignatureHeader))
}

func TestDirectSendDelivered(t *testing.T) {
	ctx := context.Background()
	s := buildStack(testConfig())

	require.NoError(t, db.Create(&core.Friendship{
		Requester: "alice",
		Addressee: "bob",
		Status:    core.FriendshipStatusAccepted,
	}).Error)
	require.NoError(t, db.Create(&core.Friendship{
		Requester: "mallory",
		Addressee: "bob",
		Status:    core.FriendshipStatusAccepted,
	}).Error)

	var secret string
	received := make(chan *http.Request, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		verifySignature(t, secret, r, body)
		received <- r
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	conn, err := s.connections.Register(ctx, core.AgentConnection{
		Owner:       "bob",
		Name:        "primary",
		CallbackURL: server.URL,
	})
	require.NoError(t, err)
	require.Len(t, conn.CallbackSecret, 64)
	secret = conn.CallbackSecret

	result, err := s.messages.Send(ctx, "alice", "assistant", core.SendRequest{
		Recipient:      "bob",
		Message:        "hello bob",
		IdempotencyKey: "direct-key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, core.MessageStatusDelivered, result.Status)
	assert.False(t, result.Deduplicated)

	select {
	case r := <-received:
		assert.Equal(t, result.MessageID, r.Header.Get(core.MessageIdHeader))
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never arrived")
	}

	// same sender and key short-circuits with the prior result
	duplicate, err := s.messages.Send(ctx, "alice", "assistant", core.SendRequest{
		Recipient:      "bob",
		Message:        "hello bob",
		IdempotencyKey: "direct-key-1",
	})
	require.NoError(t, err)
	assert.True(t, duplicate.Deduplicated)
	assert.Equal(t, result.MessageID, duplicate.MessageID)

	// a different sender may reuse the key
	other, err := s.messages.Send(ctx, "mallory", "assistant", core.SendRequest{
		Recipient:      "bob",
		Message:        "hello from mallory",
		IdempotencyKey: "direct-key-1",
	})
	require.NoError(t, err)
	assert.False(t, other.Deduplicated)
	assert.NotEqual(t, result.MessageID, other.MessageID)
}

func TestSendRejectedWithoutFriendship(t *testing.T) {
	ctx := context.Background()
	s := buildStack(testConfig())

	_, err := s.messages.Send(ctx, "nobody", "assistant", core.SendRequest{
		Recipient: "bob",
		Message:   "hello",
	})

	var denied core.ErrorRelationshipDenied
	assert.ErrorAs(t, err, &denied)
}

func TestGroupFanoutWithRetry(t *testing.T) {
	ctx := context.Background()
	s := buildStack(testConfig())

	require.NoError(t, db.Create(&core.Group{ID: "g0000000000000000001", Name: "pod", Owner: "g-alice"}).Error)
	for _, member := range []string{"g-alice", "g-bob", "g-carol"} {
		require.NoError(t, db.Create(&core.GroupMember{GroupID: "g0000000000000000001", UserID: member}).Error)
	}

	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()

	var healthy atomic.Bool
	flakyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer flakyServer.Close()

	_, err := s.connections.Register(ctx, core.AgentConnection{
		Owner:       "g-bob",
		Name:        "bob-agent",
		CallbackURL: okServer.URL,
	})
	require.NoError(t, err)

	_, err = s.connections.Register(ctx, core.AgentConnection{
		Owner:       "g-carol",
		Name:        "carol-agent",
		CallbackURL: flakyServer.URL,
	})
	require.NoError(t, err)

	result, err := s.messages.Send(ctx, "g-alice", "assistant", core.SendRequest{
		Recipient:     "g0000000000000000001",
		RecipientType: core.RecipientTypeGroup,
		Message:       "hello pod",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Recipients)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, core.MessageStatusPending, result.Status)
	assert.Equal(t, 1, s.scheduler.PendingCount())

	// endpoint recovers; the retry loop should converge the message
	healthy.Store(true)
	s.scheduler.Boot()

	require.Eventually(t, func() bool {
		var stored core.Message
		if err := db.Where("id = ?", result.MessageID).First(&stored).Error; err != nil {
			return false
		}
		return stored.Status == core.MessageStatusDelivered
	}, 10*time.Second, 250*time.Millisecond)

	var deliveries []core.MessageDelivery
	require.NoError(t, db.Where("message_id = ?", result.MessageID).Find(&deliveries).Error)
	require.Len(t, deliveries, 2)
	for _, d := range deliveries {
		assert.Equal(t, core.MessageStatusDelivered, d.Status)
	}
}

func TestSendWithNoConnectionsFailsTerminally(t *testing.T) {
	ctx := context.Background()
	s := buildStack(testConfig())

	require.NoError(t, db.Create(&core.Friendship{
		Requester: "lonely",
		Addressee: "offline",
		Status:    core.FriendshipStatusAccepted,
	}).Error)

	result, err := s.messages.Send(ctx, "lonely", "assistant", core.SendRequest{
		Recipient: "offline",
		Message:   "anyone there?",
	})
	require.NoError(t, err)
	assert.Equal(t, core.MessageStatusFailed, result.Status)

	var stored core.Message
	require.NoError(t, db.Where("id = ?", result.MessageID).First(&stored).Error)
	require.NotNil(t, stored.Reason)
	assert.Equal(t, core.ReasonNoActiveConnection, *stored.Reason)
}

func TestHeuristicPolicyBlocksSend(t *testing.T) {
	ctx := context.Background()

	config := testConfig()
	config.TrustedMode = true
	s := buildStack(config)

	require.NoError(t, db.Create(&core.Friendship{
		Requester: "p-alice",
		Addressee: "p-bob",
		Status:    core.FriendshipStatusAccepted,
	}).Error)

	require.NoError(t, db.Create(&core.Policy{
		ID:         "p0000000000000000001",
		Owner:      "p-alice",
		Scope:      core.PolicyScopeGlobal,
		PolicyType: core.PolicyTypeHeuristic,
		Content:    `{"blockedPatterns": ["password"]}`,
		Enabled:    true,
	}).Error)

	_, err := s.messages.Send(ctx, "p-alice", "assistant", core.SendRequest{
		Recipient: "p-bob",
		Message:   "my password is hunter2",
	})

	var rejected core.ErrorPolicyRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "p0000000000000000001", rejected.PolicyID)
}
