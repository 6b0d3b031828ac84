// Package storagetest holds a conformance suite shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage"
)

// Run exercises a fresh store returned by newStore. The store is closed when
// the test finishes.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("Expenses", func(t *testing.T) { testExpenses(t, open(t, newStore)) })
	t.Run("Settlements", func(t *testing.T) { testSettlements(t, open(t, newStore)) })
	t.Run("Members", func(t *testing.T) { testMembers(t, open(t, newStore)) })
}

func open(t *testing.T, newStore func(t *testing.T) storage.Store) storage.Store {
	t.Helper()
	store := newStore(t)
	t.Cleanup(func() { store.Close() })
	return store
}

func testExpenses(t *testing.T, store storage.Store) {
	ctx := context.Background()

	t.Run("CreateExpense generates ID and timestamps", func(t *testing.T) {
		exp := &models.Expense{
			ClubID:  "club-a",
			Title:   "Field rental",
			Amount:  90,
			PayerID: "alice",
			Status:  models.StatusPending,
			Participants: []models.ParticipantShare{
				{ParticipantID: "alice", ShareAmount: 30, IsPaid: true, PaidAt: 100},
				{ParticipantID: "bob", ShareAmount: 30},
				{ParticipantID: "carol", ShareAmount: 30},
			},
		}
		require.NoError(t, store.CreateExpense(ctx, exp))
		assert.NotEmpty(t, exp.ID)
		assert.NotZero(t, exp.CreatedAt)
		assert.Equal(t, exp.CreatedAt, exp.UpdatedAt)

		got, err := store.GetExpense(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, exp.Title, got.Title)
		assert.Equal(t, exp.Amount, got.Amount)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, exp.Participants, got.Participants)
	})

	t.Run("GetExpense returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetExpense(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListExpensesByClub filters and orders", func(t *testing.T) {
		for i, e := range []models.Expense{
			{ID: "l-3", ClubID: "club-l", EventID: "gala", Title: "third", Amount: 1, PayerID: "a", CreatedAt: 30},
			{ID: "l-1", ClubID: "club-l", EventID: "gala", Title: "first", Amount: 1, PayerID: "a", CreatedAt: 10},
			{ID: "l-2", ClubID: "club-l", EventID: "picnic", Title: "second", Amount: 1, PayerID: "a", CreatedAt: 20,
				Participants: []models.ParticipantShare{{ParticipantID: "a", ShareAmount: 1, IsPaid: true}}},
			{ID: "other", ClubID: "club-x", Title: "elsewhere", Amount: 1, PayerID: "a", CreatedAt: 5},
		} {
			exp := e
			require.NoError(t, store.CreateExpense(ctx, &exp), "expense %d", i)
		}

		all, err := store.ListExpensesByClub(ctx, "club-l", "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"l-1", "l-2", "l-3"}, []string{all[0].ID, all[1].ID, all[2].ID})
		assert.Len(t, all[1].Participants, 1)

		gala, err := store.ListExpensesByClub(ctx, "club-l", "gala")
		require.NoError(t, err)
		assert.Len(t, gala, 2)

		none, err := store.ListExpensesByClub(ctx, "club-empty", "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateExpenseStatus", func(t *testing.T) {
		exp := &models.Expense{ClubID: "club-s", Title: "Jerseys", Amount: 10, PayerID: "a", Status: models.StatusDraft}
		require.NoError(t, store.CreateExpense(ctx, exp))

		require.NoError(t, store.UpdateExpenseStatus(ctx, exp.ID, models.StatusPending))
		got, err := store.GetExpense(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)

		err = store.UpdateExpenseStatus(ctx, "missing", models.StatusApproved)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("RecordSettlement keeps earlier payments", func(t *testing.T) {
		exp := &models.Expense{
			ClubID: "club-m", Title: "Bus", Amount: 30, PayerID: "c", Status: models.StatusPending,
			Participants: []models.ParticipantShare{
				{ParticipantID: "a", ShareAmount: 10, IsPaid: true, PaidAt: 5},
				{ParticipantID: "b", ShareAmount: 10},
				{ParticipantID: "c", ShareAmount: 10},
			},
		}
		require.NoError(t, store.CreateExpense(ctx, exp))

		for _, from := range []string{"a", "b"} {
			st := &models.Settlement{ClubID: "club-m", FromUserID: from, ToUserID: "c", Amount: 10, CreatedAt: 500}
			_, err := store.RecordSettlement(ctx, st, []string{exp.ID})
			require.NoError(t, err)
		}

		got, err := store.GetExpense(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Participants[0].PaidAt)
		assert.True(t, got.Participants[1].IsPaid)
		assert.Equal(t, int64(500), got.Participants[1].PaidAt)
		assert.False(t, got.Participants[2].IsPaid)
		assert.Equal(t, models.StatusPending, got.Status)
	})
}

func testSettlements(t *testing.T, store storage.Store) {
	ctx := context.Background()

	first := &models.Settlement{
		ClubID: "club-a", FromUserID: "bob", ToUserID: "alice", Amount: 30,
		EventID: "gala", AppliedAmount: 25, RelatedExpenseIDs: []string{"e2", "e1", "e2"},
		CreatedBy: "alice", CreatedAt: 100, Note: "cash",
	}
	second := &models.Settlement{
		ClubID: "club-a", FromUserID: "carol", ToUserID: "alice", Amount: 12.5,
		CreatedBy: "carol", CreatedAt: 200,
	}
	for _, st := range []*models.Settlement{
		first,
		second,
		{ClubID: "club-b", FromUserID: "x", ToUserID: "y", Amount: 1, CreatedBy: "x"},
	} {
		settled, err := store.RecordSettlement(ctx, st, nil)
		require.NoError(t, err)
		assert.Empty(t, settled)
	}
	assert.NotEmpty(t, first.ID)

	got, err := store.GetSettlement(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "cash", got.Note)
	assert.Equal(t, "gala", got.EventID)
	assert.Equal(t, 25.0, got.AppliedAmount)
	assert.Equal(t, []string{"e2", "e1"}, got.RelatedExpenseIDs)

	list, err := store.ListSettlementsByClub(ctx, "club-a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Empty(t, list[0].Note)
	assert.Equal(t, []string{"e2", "e1"}, list[1].RelatedExpenseIDs)

	_, err = store.GetSettlement(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	t.Run("RecordSettlement marks shares and settles", func(t *testing.T) {
		for _, exp := range []*models.Expense{
			{ID: "r1", ClubID: "club-r", Title: "Approved", Amount: 20, PayerID: "alice", Status: models.StatusApproved,
				Participants: []models.ParticipantShare{{ParticipantID: "alice", ShareAmount: 10, IsPaid: true}, {ParticipantID: "bob", ShareAmount: 10}}},
			{ID: "r2", ClubID: "club-r", Title: "Pending", Amount: 20, PayerID: "alice", Status: models.StatusPending,
				Participants: []models.ParticipantShare{{ParticipantID: "alice", ShareAmount: 10, IsPaid: true}, {ParticipantID: "bob", ShareAmount: 10}}},
			{ID: "r3", ClubID: "club-r", Title: "Shared", Amount: 30, PayerID: "alice", Status: models.StatusApproved,
				Participants: []models.ParticipantShare{{ParticipantID: "bob", ShareAmount: 15}, {ParticipantID: "carol", ShareAmount: 15}}},
		} {
			require.NoError(t, store.CreateExpense(ctx, exp))
		}

		st := &models.Settlement{ClubID: "club-r", FromUserID: "bob", ToUserID: "alice", Amount: 35, AppliedAmount: 35,
			RelatedExpenseIDs: []string{"r1", "r2", "r3"}, CreatedBy: "bob", CreatedAt: 500}
		settled, err := store.RecordSettlement(ctx, st, []string{"r1", "r2", "r3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"r1"}, settled)

		r1, err := store.GetExpense(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSettled, r1.Status)
		bob, _ := r1.Share("bob")
		assert.Equal(t, int64(500), bob.PaidAt)

		r2, err := store.GetExpense(ctx, "r2")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, r2.Status)
		assert.True(t, r2.AllPaid())

		r3, err := store.GetExpense(ctx, "r3")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, r3.Status)
		carol, _ := r3.Share("carol")
		assert.False(t, carol.IsPaid)

		got, err := store.GetSettlement(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"r1", "r2", "r3"}, got.RelatedExpenseIDs)
	})

	t.Run("RecordSettlement writes nothing on failure", func(t *testing.T) {
		require.NoError(t, store.CreateExpense(ctx, &models.Expense{ID: "f1", ClubID: "club-f", Title: "F", Amount: 10, PayerID: "alice",
			Status: models.StatusApproved, Participants: []models.ParticipantShare{{ParticipantID: "bob", ShareAmount: 10}}}))

		st := &models.Settlement{ClubID: "club-f", FromUserID: "bob", ToUserID: "alice", Amount: 10, CreatedBy: "bob", CreatedAt: 600}
		_, err := store.RecordSettlement(ctx, st, []string{"f1", "missing"})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		list, err := store.ListSettlementsByClub(ctx, "club-f")
		require.NoError(t, err)
		assert.Empty(t, list)

		f1, err := store.GetExpense(ctx, "f1")
		require.NoError(t, err)
		assert.False(t, f1.AllPaid())
		assert.Equal(t, models.StatusApproved, f1.Status)
	})
}

func testMembers(t *testing.T, store storage.Store) {
	ctx := context.Background()

	require.NoError(t, store.UpsertMember(ctx, &models.Member{ID: "u2", ClubID: "club-a", DisplayName: "Bob", Role: models.RoleMember}))
	require.NoError(t, store.UpsertMember(ctx, &models.Member{ID: "u1", ClubID: "club-a", DisplayName: "Alice", Email: "alice@example.com", Role: models.RoleOfficer}))
	require.NoError(t, store.UpsertMember(ctx, &models.Member{ID: "u3", ClubID: "club-b", DisplayName: "Zed", Role: models.RoleMember}))

	// Promote Bob.
	require.NoError(t, store.UpsertMember(ctx, &models.Member{ID: "u2", ClubID: "club-a", DisplayName: "Bobby", Role: models.RoleAdmin}))

	bob, err := store.GetMember(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Bobby", bob.DisplayName)
	assert.Equal(t, models.RoleAdmin, bob.Role)

	members, err := store.ListMembersByClub(ctx, "club-a")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "u1", members[0].ID)
	assert.Equal(t, "alice@example.com", members[0].Email)

	_, err = store.GetMember(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, store.UpsertMember(ctx, &models.Member{ClubID: "club-a"}))
}
