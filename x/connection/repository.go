package connection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"

	"github.com/wjayesh/mahilo/core"
)

type Repository interface {
	Create(ctx context.Context, conn core.AgentConnection) (core.AgentConnection, error)
	Get(ctx context.Context, id string) (core.AgentConnection, error)
	ListByOwner(ctx context.Context, owner string) ([]core.AgentConnection, error)
	ActiveByOwner(ctx context.Context, owner string) ([]core.AgentConnection, error)
	UpdateLastSeen(ctx context.Context, id string, seen time.Time) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewRepository(db *gorm.DB, mc *memcache.Client) Repository {
	return &repository{db, mc}
}

func activeCacheKey(owner string) string {
	return "mahilo:connections:active:" + owner
}

func (r *repository) Create(ctx context.Context, conn core.AgentConnection) (core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Repository.Create")
	defer span.End()

	if err := r.db.WithContext(ctx).Create(&conn).Error; err != nil {
		span.RecordError(err)
		return core.AgentConnection{}, err
	}

	r.invalidateActiveCache(conn.Owner)

	return conn, nil
}

func (r *repository) Get(ctx context.Context, id string) (core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Repository.Get")
	defer span.End()

	var conn core.AgentConnection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.AgentConnection{}, core.NewErrorNotFound()
		}
		return core.AgentConnection{}, err
	}

	return conn, nil
}

func (r *repository) ListByOwner(ctx context.Context, owner string) ([]core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Repository.ListByOwner")
	defer span.End()

	var conns []core.AgentConnection
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("routing_priority DESC").
		Find(&conns).Error
	return conns, err
}

// ActiveByOwner returns active connections ordered by routing priority,
// highest first. Results are cached for 60 seconds.
func (r *repository) ActiveByOwner(ctx context.Context, owner string) ([]core.AgentConnection, error) {
	ctx, span := tracer.Start(ctx, "Connection.Repository.ActiveByOwner")
	defer span.End()

	if item, err := r.mc.Get(activeCacheKey(owner)); err == nil {
		var cached []core.AgentConnection
		if json.Unmarshal(item.Value, &cached) == nil {
			return cached, nil
		}
	}

	var conns []core.AgentConnection
	err := r.db.WithContext(ctx).
		Where("owner = ? AND status = ?", owner, core.ConnectionStatusActive).
		Order("routing_priority DESC").
		Find(&conns).Error
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if blob, err := json.Marshal(conns); err == nil {
		r.mc.Set(&memcache.Item{Key: activeCacheKey(owner), Value: blob, Expiration: 60})
	}

	return conns, nil
}

func (r *repository) UpdateLastSeen(ctx context.Context, id string, seen time.Time) error {
	ctx, span := tracer.Start(ctx, "Connection.Repository.UpdateLastSeen")
	defer span.End()

	return r.db.WithContext(ctx).Model(&core.AgentConnection{}).
		Where("id = ?", id).
		Update("last_seen", seen).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Connection.Repository.Delete")
	defer span.End()

	var conn core.AgentConnection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.NewErrorNotFound()
		}
		return err
	}

	err = r.db.WithContext(ctx).Delete(&conn).Error
	if err != nil {
		return err
	}

	r.invalidateActiveCache(conn.Owner)

	return nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Connection.Repository.Count")
	defer span.End()

	var count int64
	err := r.db.WithContext(ctx).Model(&core.AgentConnection{}).Count(&count).Error
	return count, err
}

func (r *repository) invalidateActiveCache(owner string) {
	r.mc.Delete(activeCacheKey(owner))
}
