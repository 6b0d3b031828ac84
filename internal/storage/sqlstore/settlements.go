package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
)

const settlementColumns = `id, club_id, from_user_id, to_user_id, event_id, amount, applied_amount, created_at, created_by, note`

// RecordSettlement stores the settlement, marks the payer's shares and
// settles fully paid approved expenses in one transaction.
func (s *Store) RecordSettlement(ctx context.Context, settlement *models.Settlement, paidExpenseIDs []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertSettlement(ctx, tx, settlement); err != nil {
		return nil, err
	}

	var settled []string
	for _, expenseID := range paidExpenseIDs {
		if err := s.markSharesPaid(ctx, tx, expenseID, settlement.FromUserID, settlement.CreatedAt); err != nil {
			return nil, err
		}

		var (
			status string
			unpaid int
		)
		err := tx.QueryRowContext(ctx, s.q(
			`SELECT e.status,
			        (SELECT COUNT(*) FROM expense_participants p WHERE p.expense_id = e.id AND p.is_paid = 0)
			 FROM expenses e WHERE e.id = ?`),
			expenseID,
		).Scan(&status, &unpaid)
		if err != nil {
			return nil, fmt.Errorf("failed to check expense %s: %w", expenseID, err)
		}
		if models.ExpenseStatus(status) != models.StatusApproved || unpaid > 0 {
			continue
		}
		if err := s.setStatus(ctx, tx, expenseID, models.StatusSettled); err != nil {
			return nil, err
		}
		settled = append(settled, expenseID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return settled, nil
}

func (s *Store) insertSettlement(ctx context.Context, db execer, settlement *models.Settlement) error {
	// Generate ID if not set
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	settlement.RelatedExpenseIDs = storage.UniqueIDs(settlement.RelatedExpenseIDs)

	var note any
	if settlement.Note != "" {
		note = settlement.Note
	}

	_, err := db.ExecContext(ctx, s.q(
		`INSERT INTO settlements (`+settlementColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		settlement.ID, settlement.ClubID, settlement.FromUserID, settlement.ToUserID, settlement.EventID,
		settlement.Amount, settlement.AppliedAmount, settlement.CreatedAt, settlement.CreatedBy, note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	for i, expenseID := range settlement.RelatedExpenseIDs {
		_, err = db.ExecContext(ctx, s.q(
			`INSERT INTO settlement_expenses (settlement_id, seq, expense_id) VALUES (?, ?, ?)`),
			settlement.ID, i, expenseID,
		)
		if err != nil {
			return fmt.Errorf("failed to link settlement expense: %w", err)
		}
	}
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *Store) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var note sql.NullString

	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`),
		settlementID,
	).Scan(&settlement.ID, &settlement.ClubID, &settlement.FromUserID, &settlement.ToUserID, &settlement.EventID,
		&settlement.Amount, &settlement.AppliedAmount, &settlement.CreatedAt, &settlement.CreatedBy, &note)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	if note.Valid {
		settlement.Note = note.String
	}

	links, err := s.loadSettlementExpenses(ctx,
		`SELECT settlement_id, expense_id FROM settlement_expenses WHERE settlement_id = ? ORDER BY seq`,
		settlementID,
	)
	if err != nil {
		return nil, err
	}
	settlement.RelatedExpenseIDs = links[settlementID]

	return settlement, nil
}

// ListSettlementsByClub retrieves all settlements for a club, newest first.
func (s *Store) ListSettlementsByClub(ctx context.Context, clubID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+settlementColumns+`
		 FROM settlements WHERE club_id = ? ORDER BY created_at DESC, id`),
		clubID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by club: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var note sql.NullString

		if err := rows.Scan(&settlement.ID, &settlement.ClubID, &settlement.FromUserID, &settlement.ToUserID, &settlement.EventID,
			&settlement.Amount, &settlement.AppliedAmount, &settlement.CreatedAt, &settlement.CreatedBy, &note); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}

		if note.Valid {
			settlement.Note = note.String
		}

		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	links, err := s.loadSettlementExpenses(ctx,
		`SELECT l.settlement_id, l.expense_id FROM settlement_expenses l
		 JOIN settlements st ON st.id = l.settlement_id
		 WHERE st.club_id = ? ORDER BY l.settlement_id, l.seq`,
		clubID,
	)
	if err != nil {
		return nil, err
	}
	for _, st := range settlements {
		st.RelatedExpenseIDs = links[st.ID]
	}

	return settlements, nil
}

func (s *Store) loadSettlementExpenses(ctx context.Context, query string, args ...any) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement expenses: %w", err)
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var settlementID, expenseID string
		if err := rows.Scan(&settlementID, &expenseID); err != nil {
			return nil, fmt.Errorf("failed to scan settlement expense: %w", err)
		}
		links[settlementID] = append(links[settlementID], expenseID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement expenses: %w", err)
	}
	return links, nil
}
