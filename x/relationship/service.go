// Package relationship answers whether a sender may reach a recipient or
// group, from friendship and membership state.
package relationship

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/wjayesh/mahilo/core"
)

var tracer = otel.Tracer("relationship")

type service struct {
	repository Repository
}

func NewService(repository Repository) core.RelationshipService {
	return &service{repository}
}

// CanReach returns nil iff an accepted friendship exists between the two
// users. A blocked edge denies with "blocked" regardless of direction.
func (s *service) CanReach(ctx context.Context, sender, recipient string) error {
	ctx, span := tracer.Start(ctx, "Relationship.Service.CanReach")
	defer span.End()

	friendship, err := s.repository.GetFriendship(ctx, sender, recipient)
	if err != nil {
		return core.NewErrorRelationshipDenied("not friends")
	}

	switch friendship.Status {
	case core.FriendshipStatusAccepted:
		return nil
	case core.FriendshipStatusBlocked:
		return core.NewErrorRelationshipDenied("blocked")
	default:
		return core.NewErrorRelationshipDenied("not friends")
	}
}

func (s *service) IsGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Service.IsGroupMember")
	defer span.End()

	return s.repository.IsMember(ctx, groupID, userID)
}

func (s *service) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Service.GroupMembers")
	defer span.End()

	members, err := s.repository.GetMembers(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.UserID)
	}

	return ids, nil
}

func (s *service) RolesFor(ctx context.Context, owner, target string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Service.RolesFor")
	defer span.End()

	roles, err := s.repository.GetRoles(ctx, owner, target)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Role)
	}

	return names, nil
}

func (s *service) GetGroup(ctx context.Context, groupID string) (core.Group, error) {
	ctx, span := tracer.Start(ctx, "Relationship.Service.GetGroup")
	defer span.End()

	return s.repository.GetGroup(ctx, groupID)
}
