// Package service implements the clubsplit Connect services.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/internal/calculator"
	"github.com/mmynk/clubsplit/internal/lock"
	"github.com/mmynk/clubsplit/internal/middleware"
	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
	"github.com/mmynk/clubsplit/pkg/api"
)

// session is the caller identity taken from the request context.
type session struct {
	userID string
	clubID string
	role   models.Role
}

func sessionFrom(ctx context.Context) (session, error) {
	s := session{
		userID: middleware.GetUserID(ctx),
		clubID: middleware.GetClubID(ctx),
		role:   middleware.GetRole(ctx),
	}
	if s.userID == "" || s.clubID == "" {
		return session{}, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	return s, nil
}

// requireOfficer rejects callers that cannot approve expenses.
func (s session) requireOfficer(action string) error {
	if !s.role.CanApprove() {
		return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("%s requires an officer or admin", action))
	}
	return nil
}

// storeError maps storage failures to Connect codes.
func storeError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	if errors.Is(err, lock.ErrNotAcquired) {
		return connect.NewError(connect.CodeAborted, err)
	}
	slog.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, err)
}

// getClubExpense loads an expense and hides expenses of other clubs.
func getClubExpense(ctx context.Context, store storage.ExpenseStore, clubID, expenseID string) (*models.Expense, error) {
	if expenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense_id is required"))
	}
	exp, err := store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, storeError("GetExpense", err)
	}
	if exp.ClubID != clubID {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound))
	}
	return exp, nil
}

// validationError joins validator messages into one error.
func validationError(result calculator.ValidationResult) error {
	return errors.New(strings.Join(result.Errors, "; "))
}

// memberNames maps member IDs of a club to display names.
func memberNames(ctx context.Context, store storage.MemberStore, clubID string) map[string]string {
	members, err := store.ListMembersByClub(ctx, clubID)
	if err != nil {
		slog.Warn("Failed to load member names", "club_id", clubID, "error", err)
		return nil
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name()
	}
	return names
}

func nameOf(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:           e.ID,
		ClubID:       e.ClubID,
		EventID:      e.EventID,
		Title:        e.Title,
		Description:  e.Description,
		Amount:       e.Amount,
		PayerID:      e.PayerID,
		Participants: toAPIShares(e.Participants),
		Status:       string(e.Status),
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toAPIShares(shares []models.ParticipantShare) []*api.Share {
	out := make([]*api.Share, len(shares))
	for i, p := range shares {
		out[i] = &api.Share{
			ParticipantID: p.ParticipantID,
			ShareAmount:   p.ShareAmount,
			IsPaid:        p.IsPaid,
			PaidAt:        p.PaidAt,
		}
	}
	return out
}

func fromAPIShares(shares []*api.Share) []models.ParticipantShare {
	out := make([]models.ParticipantShare, 0, len(shares))
	for _, p := range shares {
		if p == nil {
			continue
		}
		out = append(out, models.ParticipantShare{
			ParticipantID: p.ParticipantID,
			ShareAmount:   p.ShareAmount,
			IsPaid:        p.IsPaid,
			PaidAt:        p.PaidAt,
		})
	}
	return out
}

func toAPISettlement(st *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:                st.ID,
		ClubID:            st.ClubID,
		FromUserID:        st.FromUserID,
		ToUserID:          st.ToUserID,
		EventID:           st.EventID,
		Amount:            st.Amount,
		AppliedAmount:     st.AppliedAmount,
		RelatedExpenseIDs: st.RelatedExpenseIDs,
		Note:              st.Note,
		CreatedBy:         st.CreatedBy,
		CreatedAt:         st.CreatedAt,
	}
}

func toAPIMember(m *models.Member) *api.Member {
	return &api.Member{
		ID:          m.ID,
		ClubID:      m.ClubID,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		Role:        string(m.Role),
		CreatedAt:   m.CreatedAt,
	}
}
