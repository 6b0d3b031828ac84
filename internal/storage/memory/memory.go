// Package memory provides an in-process implementation of storage.Store.
// It backs the CLI and tests; every read and write copies records so callers
// never share state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps records in maps guarded by a single mutex.
type Store struct {
	mu          sync.RWMutex
	expenses    map[string]*models.Expense
	settlements map[string]*models.Settlement
	members     map[string]*models.Member
	now         func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		expenses:    make(map[string]*models.Expense),
		settlements: make(map[string]*models.Settlement),
		members:     make(map[string]*models.Member),
		now:         time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) CreateExpense(_ context.Context, expense *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if _, exists := s.expenses[expense.ID]; exists {
		return fmt.Errorf("expense already exists: %s", expense.ID)
	}
	now := s.now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	if expense.UpdatedAt == 0 {
		expense.UpdatedAt = expense.CreatedAt
	}
	if expense.Status == "" {
		expense.Status = models.StatusDraft
	}

	s.expenses[expense.ID] = cloneExpense(expense)
	return nil
}

func (s *Store) GetExpense(_ context.Context, expenseID string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return cloneExpense(exp), nil
}

func (s *Store) ListExpensesByClub(_ context.Context, clubID, eventID string) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Expense
	for _, exp := range s.expenses {
		if exp.ClubID != clubID || (eventID != "" && exp.EventID != eventID) {
			continue
		}
		out = append(out, *cloneExpense(exp))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateExpenseStatus(_ context.Context, expenseID string, status models.ExpenseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expenses[expenseID]
	if !ok {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	exp.Status = status
	exp.UpdatedAt = s.now().Unix()
	return nil
}

// RecordSettlement checks every expense exists before changing anything, so
// a failed call leaves the store untouched.
func (s *Store) RecordSettlement(_ context.Context, settlement *models.Settlement, paidExpenseIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range paidExpenseIDs {
		if _, ok := s.expenses[id]; !ok {
			return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
		}
	}

	s.insertSettlement(settlement)

	var settled []string
	now := s.now().Unix()
	for _, id := range paidExpenseIDs {
		exp := s.expenses[id]
		for i := range exp.Participants {
			p := &exp.Participants[i]
			if p.ParticipantID == settlement.FromUserID && !p.IsPaid {
				p.IsPaid = true
				p.PaidAt = settlement.CreatedAt
			}
		}
		exp.UpdatedAt = now
		if exp.Status == models.StatusApproved && exp.AllPaid() {
			exp.Status = models.StatusSettled
			settled = append(settled, id)
		}
	}
	return settled, nil
}

func (s *Store) insertSettlement(settlement *models.Settlement) {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = s.now().Unix()
	}
	settlement.RelatedExpenseIDs = storage.UniqueIDs(settlement.RelatedExpenseIDs)
	cp := *settlement
	cp.RelatedExpenseIDs = append([]string(nil), settlement.RelatedExpenseIDs...)
	s.settlements[cp.ID] = &cp
}

func (s *Store) GetSettlement(_ context.Context, settlementID string) (*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settlements[settlementID]
	if !ok {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	cp := *st
	cp.RelatedExpenseIDs = append([]string(nil), st.RelatedExpenseIDs...)
	return &cp, nil
}

func (s *Store) ListSettlementsByClub(_ context.Context, clubID string) ([]*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Settlement
	for _, st := range s.settlements {
		if st.ClubID != clubID {
			continue
		}
		cp := *st
		cp.RelatedExpenseIDs = append([]string(nil), st.RelatedExpenseIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpsertMember(_ context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.ID == "" {
		return fmt.Errorf("member id required")
	}
	if member.CreatedAt == 0 {
		if existing, ok := s.members[member.ID]; ok {
			member.CreatedAt = existing.CreatedAt
		} else {
			member.CreatedAt = s.now().Unix()
		}
	}
	cp := *member
	s.members[member.ID] = &cp
	return nil
}

func (s *Store) GetMember(_ context.Context, memberID string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListMembersByClub(_ context.Context, clubID string) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Member
	for _, m := range s.members {
		if m.ClubID == clubID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneExpense(e *models.Expense) *models.Expense {
	cp := *e
	cp.Participants = append([]models.ParticipantShare(nil), e.Participants...)
	return &cp
}
