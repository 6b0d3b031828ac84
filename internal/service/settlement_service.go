package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/clubsplit/internal/calculator"
	"github.com/mmynk/clubsplit/internal/lock"
	"github.com/mmynk/clubsplit/internal/middleware"
	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
	"github.com/mmynk/clubsplit/pkg/api"
	"github.com/mmynk/clubsplit/pkg/api/apiconnect"
)

// Ensure SettlementService implements the Connect handler interface
var _ apiconnect.SettlementServiceHandler = (*SettlementService)(nil)

// SettlementService computes who owes whom and records payments.
type SettlementService struct {
	store   storage.Store
	locker  lock.Locker
	metrics *middleware.Metrics
	now     func() time.Time
}

// NewSettlementService creates a SettlementService. metrics may be nil.
func NewSettlementService(store storage.Store, locker lock.Locker, metrics *middleware.Metrics) *SettlementService {
	return &SettlementService{
		store:   store,
		locker:  locker,
		metrics: metrics,
		now:     time.Now,
	}
}

// outstanding loads the club's submitted, unsettled expenses.
func (s *SettlementService) outstanding(ctx context.Context, clubID, eventID string) ([]models.Expense, error) {
	expenses, err := s.store.ListExpensesByClub(ctx, clubID, eventID)
	if err != nil {
		return nil, storeError("ListExpensesByClub", err)
	}
	return models.Outstanding(expenses), nil
}

// balances computes positions from expenses and credits recorded payments.
// A club-wide view counts every settlement; an event view only those
// recorded against that event.
func (s *SettlementService) balances(ctx context.Context, clubID, eventID string, expenses []models.Expense) ([]calculator.Balance, error) {
	settlements, err := s.store.ListSettlementsByClub(ctx, clubID)
	if err != nil {
		return nil, storeError("ListSettlementsByClub", err)
	}
	if eventID != "" {
		scoped := settlements[:0]
		for _, st := range settlements {
			if st.EventID == eventID {
				scoped = append(scoped, st)
			}
		}
		settlements = scoped
	}
	return calculator.ApplySettlements(calculator.CalculateBalances(expenses), settlements), nil
}

// GetBalances returns every participant's outstanding position.
func (s *SettlementService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.outstanding(ctx, sess.clubID, req.Msg.EventID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances(ctx, sess.clubID, req.Msg.EventID, expenses)
	if err != nil {
		return nil, err
	}
	names := memberNames(ctx, s.store, sess.clubID)

	out := make([]*api.Balance, len(balances))
	for i, b := range balances {
		out[i] = &api.Balance{
			ParticipantID: b.ParticipantID,
			DisplayName:   nameOf(names, b.ParticipantID),
			TotalOwed:     calculator.RoundCents(b.TotalOwed),
			TotalOwedTo:   calculator.RoundCents(b.TotalOwedTo),
			NetBalance:    calculator.RoundCents(b.NetBalance),
		}
	}

	return connect.NewResponse(&api.GetBalancesResponse{Balances: out}), nil
}

// GetDebts returns the per-expense debt edges.
func (s *SettlementService) GetDebts(ctx context.Context, req *connect.Request[api.GetDebtsRequest]) (*connect.Response[api.GetDebtsResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.outstanding(ctx, sess.clubID, req.Msg.EventID)
	if err != nil {
		return nil, err
	}

	debts := calculator.ExpensesToDebts(expenses)
	out := make([]*api.DebtEdge, len(debts))
	for i, d := range debts {
		out[i] = &api.DebtEdge{
			FromUserID: d.From,
			ToUserID:   d.To,
			Amount:     d.Amount,
			ExpenseID:  d.ExpenseID,
		}
	}

	return connect.NewResponse(&api.GetDebtsResponse{Debts: out}), nil
}

// SuggestSettlements returns the transfers that clear every balance.
func (s *SettlementService) SuggestSettlements(ctx context.Context, req *connect.Request[api.SuggestSettlementsRequest]) (*connect.Response[api.SuggestSettlementsResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.outstanding(ctx, sess.clubID, req.Msg.EventID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances(ctx, sess.clubID, req.Msg.EventID, expenses)
	if err != nil {
		return nil, err
	}
	names := memberNames(ctx, s.store, sess.clubID)

	transfers := calculator.CalculateOptimalSettlements(balances)
	transfers = calculator.RelatedExpenses(transfers, calculator.ExpensesToDebts(expenses))

	out := make([]*api.Transfer, len(transfers))
	for i, t := range transfers {
		toName := nameOf(names, t.ToUserID)
		out[i] = &api.Transfer{
			FromUserID:        t.FromUserID,
			FromName:          nameOf(names, t.FromUserID),
			ToUserID:          t.ToUserID,
			ToName:            toName,
			Amount:            t.Amount,
			RelatedExpenseIDs: t.RelatedExpenseIDs,
			Label:             fmt.Sprintf("Pay $%.2f to %s", t.Amount, toName),
		}
	}
	if s.metrics != nil {
		s.metrics.TransfersSuggested.Add(float64(len(out)))
	}
	slog.Debug("Settlements suggested", "club_id", sess.clubID, "transfers", len(out))

	return connect.NewResponse(&api.SuggestSettlementsResponse{Transfers: out}), nil
}

// RecordSettlement stores a payment and marks the debtor's shares paid.
//
// Shares are consumed oldest expense first while their running total stays
// within the paid amount, plus any credit earlier payments between the same
// two members left, plus Tolerance. Whatever the shares do not absorb stays
// on the settlement as a credit that balances count, so recording a
// suggested transfer always clears it. Approved expenses whose shares are
// then all paid move to settled. Recording is serialized per club and
// written in one store transaction.
func (s *SettlementService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	msg := req.Msg
	if msg.FromUserID == "" || msg.ToUserID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("from_user_id and to_user_id are required"))
	}
	if msg.FromUserID == msg.ToUserID {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("cannot settle with yourself"))
	}
	if msg.Amount <= calculator.Tolerance {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("amount must be greater than %.2f", calculator.Tolerance))
	}
	if sess.userID != msg.FromUserID && sess.userID != msg.ToUserID {
		if err := sess.requireOfficer("recording a settlement for other members"); err != nil {
			return nil, err
		}
	}
	related := storage.UniqueIDs(msg.RelatedExpenseIDs)

	resp := &api.RecordSettlementResponse{}
	err = s.locker.WithLock(ctx, "club:"+sess.clubID, func(ctx context.Context) error {
		candidates, err := s.settleCandidates(ctx, sess.clubID, msg.ToUserID, msg.EventID, related)
		if err != nil {
			return err
		}

		credit, err := s.creditBetween(ctx, sess.clubID, msg.FromUserID, msg.ToUserID, msg.EventID)
		if err != nil {
			return err
		}
		paid, applied := coverShares(candidates, msg.FromUserID, msg.Amount+credit)

		links := related
		if len(links) == 0 {
			links = paid
		}
		settlement := &models.Settlement{
			ClubID:            sess.clubID,
			FromUserID:        msg.FromUserID,
			ToUserID:          msg.ToUserID,
			EventID:           msg.EventID,
			Amount:            calculator.RoundCents(msg.Amount),
			AppliedAmount:     calculator.RoundCents(applied),
			RelatedExpenseIDs: links,
			Note:              msg.Note,
			CreatedBy:         sess.userID,
			CreatedAt:         s.now().Unix(),
		}
		settled, err := s.store.RecordSettlement(ctx, settlement, paid)
		if err != nil {
			return fmt.Errorf("record settlement: %w", err)
		}

		resp.Settlement = toAPISettlement(settlement)
		resp.PaidExpenseIDs = paid
		resp.SettledExpenseIDs = settled
		return nil
	})
	if err != nil {
		var connectErr *connect.Error
		if errors.As(err, &connectErr) {
			return nil, connectErr
		}
		return nil, storeError("RecordSettlement", err)
	}

	if s.metrics != nil {
		s.metrics.SettlementsRecorded.Inc()
	}
	slog.Info("Settlement recorded",
		"settlement_id", resp.Settlement.ID,
		"club_id", sess.clubID,
		"from", msg.FromUserID,
		"to", msg.ToUserID,
		"amount", resp.Settlement.Amount,
		"applied", resp.Settlement.AppliedAmount,
		"paid_expenses", len(resp.PaidExpenseIDs),
		"settled_expenses", len(resp.SettledExpenseIDs),
	)
	return connect.NewResponse(resp), nil
}

// creditBetween sums what earlier payments from fromID to toID in the same
// event scope left unmatched to shares. It is never negative.
func (s *SettlementService) creditBetween(ctx context.Context, clubID, fromID, toID, eventID string) (float64, error) {
	settlements, err := s.store.ListSettlementsByClub(ctx, clubID)
	if err != nil {
		return 0, fmt.Errorf("list settlements: %w", err)
	}
	var credit float64
	for _, st := range settlements {
		if st.FromUserID == fromID && st.ToUserID == toID && st.EventID == eventID {
			credit += st.Credit()
		}
	}
	if credit < 0 {
		return 0, nil
	}
	return credit, nil
}

// settleCandidates returns the outstanding expenses paid by creditorID,
// restricted to relatedIDs when given and to eventID when set, oldest first.
func (s *SettlementService) settleCandidates(ctx context.Context, clubID, creditorID, eventID string, relatedIDs []string) ([]models.Expense, error) {
	var expenses []models.Expense
	if len(relatedIDs) == 0 {
		all, err := s.outstanding(ctx, clubID, eventID)
		if err != nil {
			return nil, err
		}
		expenses = all
	} else {
		for _, id := range relatedIDs {
			exp, err := getClubExpense(ctx, s.store, clubID, id)
			if err != nil {
				return nil, err
			}
			if eventID != "" && exp.EventID != eventID {
				return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense %s is not part of event %s", id, eventID))
			}
			expenses = append(expenses, *exp)
		}
		expenses = models.Outstanding(expenses)
	}

	out := expenses[:0]
	for _, exp := range expenses {
		if exp.Status != models.StatusSettled && exp.PayerID == creditorID {
			out = append(out, exp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// coverShares picks the expenses whose unpaid share of debtorID fits in
// amount, in order, stopping at the first share that would overshoot. It
// returns the picked IDs and the total of their shares.
func coverShares(expenses []models.Expense, debtorID string, amount float64) ([]string, float64) {
	var (
		ids   []string
		total float64
	)
	for _, exp := range expenses {
		share, ok := exp.Share(debtorID)
		if !ok || share.IsPaid {
			continue
		}
		if total+share.ShareAmount > amount+calculator.Tolerance {
			break
		}
		total += share.ShareAmount
		ids = append(ids, exp.ID)
	}
	return ids, total
}

// ListSettlements lists the club's recorded settlements, newest first.
func (s *SettlementService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlementsByClub(ctx, sess.clubID)
	if err != nil {
		return nil, storeError("ListSettlements", err)
	}

	out := make([]*api.Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = toAPISettlement(st)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}
