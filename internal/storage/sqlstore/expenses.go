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

const expenseColumns = `e.id, e.club_id, e.event_id, e.title, e.description, e.amount, e.payer_id, e.status, e.created_by, e.created_at, e.updated_at`

// CreateExpense persists a new expense and its participant shares.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate IDs if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.UpdatedAt == 0 {
		expense.UpdatedAt = expense.CreatedAt
	}
	if expense.Status == "" {
		expense.Status = models.StatusDraft
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(
		`INSERT INTO expenses (id, club_id, event_id, title, description, amount, payer_id, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		expense.ID, expense.ClubID, expense.EventID, expense.Title, expense.Description, expense.Amount,
		expense.PayerID, string(expense.Status), expense.CreatedBy, expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, p := range expense.Participants {
		_, err = tx.ExecContext(ctx, s.q(
			`INSERT INTO expense_participants (expense_id, seq, participant_id, share_amount, is_paid, paid_at)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			expense.ID, i, p.ParticipantID, p.ShareAmount, boolToInt(p.IsPaid), p.PaidAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its shares.
func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	exp := &models.Expense{}
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+expenseColumns+` FROM expenses e WHERE e.id = ?`), expenseID)
	if err := scanExpense(row, exp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	shares, err := s.loadShares(ctx,
		`SELECT p.expense_id, p.participant_id, p.share_amount, p.is_paid, p.paid_at
		 FROM expense_participants p WHERE p.expense_id = ? ORDER BY p.seq`,
		expenseID,
	)
	if err != nil {
		return nil, err
	}
	exp.Participants = shares[expenseID]
	return exp, nil
}

// ListExpensesByClub retrieves a club's expenses, oldest first.
func (s *Store) ListExpensesByClub(ctx context.Context, clubID, eventID string) ([]models.Expense, error) {
	filter := `e.club_id = ?`
	args := []any{clubID}
	if eventID != "" {
		filter += ` AND e.event_id = ?`
		args = append(args, eventID)
	}

	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+expenseColumns+` FROM expenses e WHERE `+filter+` ORDER BY e.created_at, e.id`),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		if err := scanExpense(rows, &exp); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, nil
	}

	shares, err := s.loadShares(ctx,
		`SELECT p.expense_id, p.participant_id, p.share_amount, p.is_paid, p.paid_at
		 FROM expense_participants p JOIN expenses e ON e.id = p.expense_id
		 WHERE `+filter+` ORDER BY p.expense_id, p.seq`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Participants = shares[expenses[i].ID]
	}
	return expenses, nil
}

// UpdateExpenseStatus sets a new lifecycle status.
func (s *Store) UpdateExpenseStatus(ctx context.Context, expenseID string, status models.ExpenseStatus) error {
	return s.setStatus(ctx, s.db, expenseID, status)
}

func (s *Store) setStatus(ctx context.Context, db execer, expenseID string, status models.ExpenseStatus) error {
	res, err := db.ExecContext(ctx, s.q(`UPDATE expenses SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), time.Now().Unix(), expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// markSharesPaid flags participantID's share of the expense as paid unless it already is.
func (s *Store) markSharesPaid(ctx context.Context, db execer, expenseID, participantID string, paidAt int64) error {
	res, err := db.ExecContext(ctx, s.q(`UPDATE expenses SET updated_at = ? WHERE id = ?`), time.Now().Unix(), expenseID)
	if err != nil {
		return fmt.Errorf("failed to touch expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}

	_, err = db.ExecContext(ctx, s.q(
		`UPDATE expense_participants SET is_paid = 1, paid_at = ?
		 WHERE expense_id = ? AND participant_id = ? AND is_paid = 0`),
		paidAt, expenseID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark share paid: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner, exp *models.Expense) error {
	var status string
	if err := row.Scan(&exp.ID, &exp.ClubID, &exp.EventID, &exp.Title, &exp.Description, &exp.Amount,
		&exp.PayerID, &status, &exp.CreatedBy, &exp.CreatedAt, &exp.UpdatedAt); err != nil {
		return err
	}
	exp.Status = models.ExpenseStatus(status)
	return nil
}

// loadShares groups participant rows by expense ID, keeping row order.
func (s *Store) loadShares(ctx context.Context, query string, args ...any) (map[string][]models.ParticipantShare, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	shares := make(map[string][]models.ParticipantShare)
	for rows.Next() {
		var (
			expenseID string
			p         models.ParticipantShare
			paid      int
		)
		if err := rows.Scan(&expenseID, &p.ParticipantID, &p.ShareAmount, &paid, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.IsPaid = paid != 0
		shares[expenseID] = append(shares[expenseID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return shares, nil
}
