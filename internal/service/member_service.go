package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
	"github.com/mmynk/clubsplit/pkg/api"
	"github.com/mmynk/clubsplit/pkg/api/apiconnect"
)

// Ensure MemberService implements the Connect handler interface
var _ apiconnect.MemberServiceHandler = (*MemberService)(nil)

// MemberService keeps the club directory used for display names.
type MemberService struct {
	store storage.MemberStore
}

// NewMemberService creates a new MemberService with the given storage backend.
func NewMemberService(store storage.MemberStore) *MemberService {
	return &MemberService{store: store}
}

// UpsertMember adds or updates a directory entry in the caller's club.
// Members may edit their own entry but keep the role from their token;
// admins may edit anyone and assign roles.
func (s *MemberService) UpsertMember(ctx context.Context, req *connect.Request[api.UpsertMemberRequest]) (*connect.Response[api.UpsertMemberResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	in := req.Msg.Member
	if in == nil || in.ID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("member id is required"))
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if sess.role != models.RoleAdmin {
		if in.ID != sess.userID {
			return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only admins can edit other members"))
		}
		role = sess.role
	}

	member := &models.Member{
		ID:          in.ID,
		ClubID:      sess.clubID,
		DisplayName: in.DisplayName,
		Email:       in.Email,
		Role:        role,
	}
	if existing, err := s.store.GetMember(ctx, in.ID); err == nil {
		if existing.ClubID != sess.clubID {
			return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("member %s belongs to another club", in.ID))
		}
		member.CreatedAt = existing.CreatedAt
	}

	if err := s.store.UpsertMember(ctx, member); err != nil {
		return nil, storeError("UpsertMember", err)
	}
	slog.Info("Member upserted", "member_id", member.ID, "club_id", member.ClubID, "role", member.Role)

	return connect.NewResponse(&api.UpsertMemberResponse{Member: toAPIMember(member)}), nil
}

// ListMembers returns the caller's club directory.
func (s *MemberService) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembersByClub(ctx, sess.clubID)
	if err != nil {
		return nil, storeError("ListMembers", err)
	}

	out := make([]*api.Member, len(members))
	for i, m := range members {
		out[i] = toAPIMember(m)
	}
	return connect.NewResponse(&api.ListMembersResponse{Members: out}), nil
}
