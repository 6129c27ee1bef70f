//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=mock/repository.go
package policy

import (
	"context"

	"gorm.io/gorm"

	"github.com/wjayesh/mahilo/core"
)

type Repository interface {
	Upsert(ctx context.Context, policy core.Policy) (core.Policy, error)
	Get(ctx context.Context, id string) (core.Policy, error)
	ListByOwner(ctx context.Context, owner string) ([]core.Policy, error)
	ListGlobal(ctx context.Context, owner string) ([]core.Policy, error)
	ListForRecipient(ctx context.Context, owner, recipient string) ([]core.Policy, error)
	ListForRoles(ctx context.Context, owner string, roles []string) ([]core.Policy, error)
	ListForGroup(ctx context.Context, groupID string) ([]core.Policy, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Upsert(ctx context.Context, policy core.Policy) (core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Repository.Upsert")
	defer span.End()

	if err := r.db.WithContext(ctx).Save(&policy).Error; err != nil {
		span.RecordError(err)
		return core.Policy{}, err
	}

	return policy, nil
}

func (r *repository) Get(ctx context.Context, id string) (core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Repository.Get")
	defer span.End()

	var policy core.Policy
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&policy).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.Policy{}, core.NewErrorNotFound()
		}
		return core.Policy{}, err
	}

	return policy, nil
}

func (r *repository) ListByOwner(ctx context.Context, owner string) ([]core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Repository.ListByOwner")
	defer span.End()

	var policies []core.Policy
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("priority DESC").
		Find(&policies).Error
	return policies, err
}

func (r *repository) ListGlobal(ctx context.Context, owner string) ([]core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Repository.ListGlobal")
	defer span.End()

	var policies []core.Policy
	err := r.db.WithContext(ctx).
		Where("owner = ? AND scope = ? AND enabled = ?", owner, core.PolicyScopeGlobal, true).
		Find(&policies).Error
	return policies, err
}

func (r *repository) ListForRecipient(ctx context.Context, owner, recipient string) ([]core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Repository.ListForRecipient")
	defer span.End()

	var policies []core.Policy
	err := r.db.WithContext(ctx).
		Where("owner = ? AND scope = ? AND target_id = ? AND enabled = ?", owner, core.PolicyScopeUser, recipient, true).
		Find(&policies).Error
	return policies, err
}

func (r *repository) ListForRoles(ctx context.Context, owner string, roles []string) ([]core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Repository.ListForRoles")
	defer span.End()

	if len(roles) == 0 {
		return nil, nil
	}

	var policies []core.Policy
	err := r.db.WithContext(ctx).
		Where("owner = ? AND scope = ? AND target_id IN ? AND enabled = ?", owner, core.PolicyScopeRole, roles, true).
		Find(&policies).Error
	return policies, err
}

func (r *repository) ListForGroup(ctx context.Context, groupID string) ([]core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Repository.ListForGroup")
	defer span.End()

	var policies []core.Policy
	err := r.db.WithContext(ctx).
		Where("scope = ? AND target_id = ? AND enabled = ?", core.PolicyScopeGroup, groupID, true).
		Find(&policies).Error
	return policies, err
}

func (r *repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Policy.Repository.Delete")
	defer span.End()

	return r.db.WithContext(ctx).Delete(&core.Policy{}, "id = ?", id).Error
}
