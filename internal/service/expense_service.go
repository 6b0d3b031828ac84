package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/internal/calculator"
	"github.com/mmynk/clubsplit/internal/ingest"
	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
	"github.com/mmynk/clubsplit/pkg/api"
	"github.com/mmynk/clubsplit/pkg/api/apiconnect"
)

// Ensure ExpenseService implements the Connect handler interface
var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// CreateExpense validates and stores a new expense in the caller's club.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	exp := &models.Expense{
		ClubID:       sess.clubID,
		EventID:      req.Msg.EventID,
		Title:        req.Msg.Title,
		Description:  req.Msg.Description,
		Amount:       req.Msg.Amount,
		PayerID:      req.Msg.PayerID,
		Participants: fromAPIShares(req.Msg.Participants),
		Status:       models.StatusDraft,
		CreatedBy:    sess.userID,
	}
	if req.Msg.Submit {
		exp.Status = models.StatusPending
	}

	if result := calculator.ValidateExpenseIntegrity(*exp); !result.IsValid {
		slog.Info("CreateExpense rejected", "club_id", sess.clubID, "errors", result.Errors)
		return nil, connect.NewError(connect.CodeInvalidArgument, validationError(result))
	}

	if err := s.store.CreateExpense(ctx, exp); err != nil {
		return nil, storeError("CreateExpense", err)
	}
	slog.Info("Expense created",
		"expense_id", exp.ID,
		"club_id", exp.ClubID,
		"amount", exp.Amount,
		"status", exp.Status,
	)

	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(exp)}), nil
}

// GetExpense retrieves an expense of the caller's club.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	exp, err := getClubExpense(ctx, s.store, sess.clubID, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(exp)}), nil
}

// ListExpenses lists the club's expenses, optionally for one event.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByClub(ctx, sess.clubID, req.Msg.EventID)
	if err != nil {
		return nil, storeError("ListExpenses", err)
	}

	out := make([]*api.Expense, len(expenses))
	for i := range expenses {
		out[i] = toAPIExpense(&expenses[i])
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// UpdateExpenseStatus moves an expense along its lifecycle.
func (s *ExpenseService) UpdateExpenseStatus(ctx context.Context, req *connect.Request[api.UpdateExpenseStatusRequest]) (*connect.Response[api.UpdateExpenseStatusResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	next, err := models.ParseExpenseStatus(req.Msg.Status)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	exp, err := getClubExpense(ctx, s.store, sess.clubID, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}

	if !exp.Status.CanTransitionTo(next) {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("%w: %s to %s", models.ErrInvalidTransition, exp.Status, next))
	}
	if exp.Status.RequiresOfficer(next) {
		if err := sess.requireOfficer(fmt.Sprintf("moving an expense to %s", next)); err != nil {
			return nil, err
		}
	}
	// Only balanced expenses may enter the outstanding set.
	if next == models.StatusPending || next == models.StatusApproved {
		if result := calculator.ValidateExpenseIntegrity(*exp); !result.IsValid {
			return nil, connect.NewError(connect.CodeFailedPrecondition, validationError(result))
		}
	}

	if err := s.store.UpdateExpenseStatus(ctx, exp.ID, next); err != nil {
		return nil, storeError("UpdateExpenseStatus", err)
	}
	slog.Info("Expense status updated",
		"expense_id", exp.ID,
		"from", exp.Status,
		"to", next,
		"user_id", sess.userID,
	)

	updated, err := s.store.GetExpense(ctx, exp.ID)
	if err != nil {
		return nil, storeError("GetExpense", err)
	}
	return connect.NewResponse(&api.UpdateExpenseStatusResponse{Expense: toAPIExpense(updated)}), nil
}

// ValidateExpense runs the integrity checks without storing anything.
func (s *ExpenseService) ValidateExpense(ctx context.Context, req *connect.Request[api.ValidateExpenseRequest]) (*connect.Response[api.ValidateExpenseResponse], error) {
	if req.Msg.Expense == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense is required"))
	}
	e := req.Msg.Expense
	result := calculator.ValidateExpenseIntegrity(models.Expense{
		ID:           e.ID,
		Title:        e.Title,
		Amount:       e.Amount,
		PayerID:      e.PayerID,
		Participants: fromAPIShares(e.Participants),
	})

	return connect.NewResponse(&api.ValidateExpenseResponse{
		IsValid: result.IsValid,
		Errors:  result.Errors,
	}), nil
}

// SplitExpense previews participant shares for an equal or itemized split.
func (s *ExpenseService) SplitExpense(ctx context.Context, req *connect.Request[api.SplitExpenseRequest]) (*connect.Response[api.SplitExpenseResponse], error) {
	var (
		shares []models.ParticipantShare
		err    error
	)
	if len(req.Msg.Items) == 0 {
		shares, err = calculator.SplitEqually(req.Msg.Amount, req.Msg.ParticipantIDs, req.Msg.PayerID)
	} else {
		items := make([]calculator.Item, 0, len(req.Msg.Items))
		for i, item := range req.Msg.Items {
			if item == nil {
				continue
			}
			slog.Debug("Processing item",
				"index", i+1,
				"description", item.Description,
				"amount", item.Amount,
				"participants", item.ParticipantIDs,
			)
			items = append(items, calculator.Item{
				Description: item.Description,
				Amount:      item.Amount,
				AssignedTo:  item.ParticipantIDs,
			})
		}
		shares, err = calculator.SplitByItems(items, req.Msg.Amount, req.Msg.Subtotal, req.Msg.ParticipantIDs, req.Msg.PayerID)
	}
	if err != nil {
		slog.Error("SplitExpense failed", "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	return connect.NewResponse(&api.SplitExpenseResponse{Participants: toAPIShares(shares)}), nil
}

// ImportExpenses loads an exported batch of backend rows into the caller's
// club. Rows that fail decoding or validation are reported and skipped.
func (s *ExpenseService) ImportExpenses(ctx context.Context, req *connect.Request[api.ImportExpensesRequest]) (*connect.Response[api.ImportExpensesResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.requireOfficer("importing expenses"); err != nil {
		return nil, err
	}

	records, err := ingest.ParseExpenses(req.Msg.Data)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	resp := &api.ImportExpensesResponse{}
	fail := func(index int, err error) {
		resp.Errors = append(resp.Errors, &api.ImportError{Index: index, Message: err.Error()})
	}

	for _, rec := range records {
		if rec.Err != nil {
			fail(rec.Index, rec.Err)
			continue
		}
		exp := rec.Expense
		if exp.ClubID == "" {
			exp.ClubID = sess.clubID
		}
		if exp.ClubID != sess.clubID {
			fail(rec.Index, fmt.Errorf("%w: belongs to club %s", ingest.ErrInvalidRecord, exp.ClubID))
			continue
		}
		if exp.CreatedBy == "" {
			exp.CreatedBy = sess.userID
		}
		if result := calculator.ValidateExpenseIntegrity(exp); !result.IsValid {
			fail(rec.Index, validationError(result))
			continue
		}
		if err := s.store.CreateExpense(ctx, &exp); err != nil {
			slog.Warn("ImportExpenses: failed to store record", "index", rec.Index, "error", err)
			fail(rec.Index, err)
			continue
		}
		resp.Imported = append(resp.Imported, toAPIExpense(&exp))
	}

	slog.Info("Expenses imported",
		"club_id", sess.clubID,
		"imported", len(resp.Imported),
		"failed", len(resp.Errors),
	)
	return connect.NewResponse(resp), nil
}
