// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/clubsplit/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ExpenseStore persists expenses and their participant shares.
type ExpenseStore interface {
	// CreateExpense persists a new expense.
	// ID, CreatedAt and UpdatedAt are populated by the store when empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its shares in display order.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByClub returns a club's expenses, oldest first.
	// An empty eventID lists every event.
	ListExpensesByClub(ctx context.Context, clubID, eventID string) ([]models.Expense, error)

	// UpdateExpenseStatus changes the lifecycle status of an expense.
	// Transition rules are enforced by the caller.
	UpdateExpenseStatus(ctx context.Context, expenseID string, status models.ExpenseStatus) error
}

// SettlementStore persists recorded settlements.
type SettlementStore interface {
	// RecordSettlement atomically persists the settlement and marks the
	// payer's shares of paidExpenseIDs paid at the settlement's CreatedAt.
	// Shares that are already paid keep their original PaidAt.
	// Approved expenses left with no unpaid share move to settled and their
	// IDs are returned. Repeated related expense IDs are stored once.
	// Nothing is written when any step fails.
	RecordSettlement(ctx context.Context, settlement *models.Settlement, paidExpenseIDs []string) ([]string, error)

	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	// ListSettlementsByClub returns settlements newest first.
	ListSettlementsByClub(ctx context.Context, clubID string) ([]*models.Settlement, error)
}

// MemberStore is the club directory used for names and roles.
type MemberStore interface {
	// UpsertMember inserts the member or replaces the stored fields.
	UpsertMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	ListMembersByClub(ctx context.Context, clubID string) ([]*models.Member, error)
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, memory)
// without changing the service layer.
type Store interface {
	ExpenseStore
	SettlementStore
	MemberStore

	// Close releases any resources held by the store.
	Close() error
}

// UniqueIDs returns ids without repeats, in first-seen order.
func UniqueIDs(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
