// Package connection manages registered webhook targets.
package connection

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel"

	"github.com/wjayesh/mahilo/core"
	"github.com/wjayesh/mahilo/x/safeurl"
)

var tracer = otel.Tracer("connection")

type service struct {
	repository Repository
	validator  safeurl.Service
}

func NewService(repository Repository, validator safeurl.Service) core.ConnectionService {
	return &service{repository, validator}
}

// Register validates the callback URL and issues the callback secret.
// The secret is present on the returned connection exactly once.
func (s *service) Register(ctx context.Context, conn core.AgentConnection) (core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Service.Register")
	defer span.End()

	if err := s.validator.Validate(ctx, conn.CallbackURL); err != nil {
		span.RecordError(err)
		return core.AgentConnection{}, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		span.RecordError(err)
		return core.AgentConnection{}, err
	}

	conn.ID = xid.New().String()
	conn.CallbackSecret = hex.EncodeToString(secret)
	if conn.Status == "" {
		conn.Status = core.ConnectionStatusActive
	}

	return s.repository.Create(ctx, conn)
}

func (s *service) Get(ctx context.Context, id string) (core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Service.Get")
	defer span.End()

	return s.repository.Get(ctx, id)
}

func (s *service) ListByOwner(ctx context.Context, owner string) ([]core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Service.ListByOwner")
	defer span.End()

	return s.repository.ListByOwner(ctx, owner)
}

func (s *service) ActiveByOwner(ctx context.Context, owner string) ([]core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Service.ActiveByOwner")
	defer span.End()

	return s.repository.ActiveByOwner(ctx, owner)
}

func (s *service) UpdateLastSeen(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Connection.Service.UpdateLastSeen")
	defer span.End()

	return s.repository.UpdateLastSeen(ctx, id, time.Now())
}

func (s *service) Delete(ctx context.Context, id, owner string) error {
	ctx, span := tracer.Start(ctx, "Connection.Service.Delete")
	defer span.End()

	conn, err := s.repository.Get(ctx, id)
	if err != nil {
		return err
	}

	if conn.Owner != owner {
		return core.NewErrorPermissionDenied()
	}

	return s.repository.Delete(ctx, id)
}

func (s *service) Count(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Connection.Service.Count")
	defer span.End()

	return s.repository.Count(ctx)
}
