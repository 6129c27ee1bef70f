package relationship

import (
	"context"

	"gorm.io/gorm"

	"github.com/wjayesh/mahilo/core"
)

// Repository reads the friendship/membership/role graph. Writes exist for
// seeding and tests; graph CRUD is owned by the account service upstream.
type Repository interface {
	GetFriendship(ctx context.Context, a, b string) (core.Friendship, error)
	UpsertFriendship(ctx context.Context, friendship core.Friendship) error
	GetGroup(ctx context.Context, groupID string) (core.Group, error)
	GetMembers(ctx context.Context, groupID string) ([]core.GroupMember, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	GetRoles(ctx context.Context, owner, target string) ([]core.RelationshipRole, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// GetFriendship returns the edge between two users regardless of which
// side created it.
func (r *repository) GetFriendship(ctx context.Context, a, b string) (core.Friendship, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Repository.GetFriendship")
	defer span.End()

	var friendship core.Friendship
	err := r.db.WithContext(ctx).
		Where("(requester = ? AND addressee = ?) OR (requester = ? AND addressee = ?)", a, b, b, a).
		First(&friendship).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.Friendship{}, core.NewErrorNotFound()
		}
		return core.Friendship{}, err
	}

	return friendship, nil
}

func (r *repository) UpsertFriendship(ctx context.Context, friendship core.Friendship) error {
	ctx, span := tracer.Start(ctx, "Relationship.Repository.UpsertFriendship")
	defer span.End()

	return r.db.WithContext(ctx).Save(&friendship).Error
}

func (r *repository) GetGroup(ctx context.Context, groupID string) (core.Group, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Repository.GetGroup")
	defer span.End()

	var group core.Group
	err := r.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return core.Group{}, core.NewErrorNotFound()
		}
		return core.Group{}, err
	}

	return group, nil
}

func (r *repository) GetMembers(ctx context.Context, groupID string) ([]core.GroupMember, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Repository.GetMembers")
	defer span.End()

	var members []core.GroupMember
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Find(&members).Error
	return members, err
}

func (r *repository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Repository.IsMember")
	defer span.End()

	var count int64
	err := r.db.WithContext(ctx).Model(&core.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) GetRoles(ctx context.Context, owner, target string) ([]core.RelationshipRole, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Repository.GetRoles")
	defer span.End()

	var roles []core.RelationshipRole
	err := r.db.WithContext(ctx).Where("owner = ? AND target = ?", owner, target).Find(&roles).Error
	return roles, err
}
