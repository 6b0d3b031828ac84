package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/pkg/api"
)

func share(id string, amount float64, paid bool) models.ParticipantShare {
	return models.ParticipantShare{ParticipantID: id, ShareAmount: amount, IsPaid: paid}
}

// seedClub stores a dinner paid by Alice (approved), a taxi paid by Bob
// (pending), a draft cake paid by Carol and an old settled expense.
func seedClub(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()

	for _, exp := range []models.Expense{
		{ID: "dinner", Title: "Dinner", Amount: 90, PayerID: "alice", Status: models.StatusApproved, CreatedAt: 100,
			Participants: []models.ParticipantShare{share("alice", 30, true), share("bob", 30, false), share("carol", 30, false)}},
		{ID: "taxi", Title: "Taxi", Amount: 30, PayerID: "bob", Status: models.StatusPending, CreatedAt: 200,
			Participants: []models.ParticipantShare{share("bob", 15, true), share("carol", 15, false)}},
		{ID: "cake", Title: "Cake", Amount: 60, PayerID: "carol", Status: models.StatusDraft, CreatedAt: 300,
			Participants: []models.ParticipantShare{share("bob", 30, false), share("carol", 30, true)}},
		{ID: "old", Title: "Old", Amount: 20, PayerID: "alice", Status: models.StatusSettled, CreatedAt: 50,
			Participants: []models.ParticipantShare{share("bob", 20, false)}},
	} {
		exp := exp
		exp.ClubID = testClub
		require.NoError(t, env.store.CreateExpense(ctx, &exp))
	}

	require.NoError(t, env.store.UpsertMember(ctx, &models.Member{ID: "alice", ClubID: testClub, DisplayName: "Alice", Role: models.RoleOfficer}))
	require.NoError(t, env.store.UpsertMember(ctx, &models.Member{ID: "carol", ClubID: testClub, DisplayName: "Carol", Role: models.RoleMember}))
}

func TestGetBalances(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)

	resp, err := env.settlements.GetBalances(context.Background(), as(env.token(t, "bob", models.RoleMember), &api.GetBalancesRequest{}))
	require.NoError(t, err)

	got := make(map[string]*api.Balance)
	for _, b := range resp.Msg.Balances {
		got[b.ParticipantID] = b
	}
	require.Len(t, got, 3)

	assert.Equal(t, "Alice", got["alice"].DisplayName)
	assert.InDelta(t, 60, got["alice"].TotalOwedTo, 0.001)
	assert.InDelta(t, 60, got["alice"].NetBalance, 0.001)

	// Bob's draft cake share is not counted.
	assert.Equal(t, "bob", got["bob"].DisplayName)
	assert.InDelta(t, 30, got["bob"].TotalOwed, 0.001)
	assert.InDelta(t, 15, got["bob"].TotalOwedTo, 0.001)
	assert.InDelta(t, -15, got["bob"].NetBalance, 0.001)

	assert.InDelta(t, -45, got["carol"].NetBalance, 0.001)

	var sum float64
	for _, b := range resp.Msg.Balances {
		sum += b.NetBalance
	}
	assert.InDelta(t, 0, sum, 0.01)
}

func TestGetDebts(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)

	resp, err := env.settlements.GetDebts(context.Background(), as(env.token(t, "bob", models.RoleMember), &api.GetDebtsRequest{}))
	require.NoError(t, err)

	assert.Equal(t, []*api.DebtEdge{
		{FromUserID: "bob", ToUserID: "alice", Amount: 30, ExpenseID: "dinner"},
		{FromUserID: "carol", ToUserID: "alice", Amount: 30, ExpenseID: "dinner"},
		{FromUserID: "carol", ToUserID: "bob", Amount: 15, ExpenseID: "taxi"},
	}, resp.Msg.Debts)
}

func TestSuggestSettlements(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)

	resp, err := env.settlements.SuggestSettlements(context.Background(), as(env.token(t, "bob", models.RoleMember), &api.SuggestSettlementsRequest{}))
	require.NoError(t, err)

	require.Len(t, resp.Msg.Transfers, 2)

	first := resp.Msg.Transfers[0]
	assert.Equal(t, "carol", first.FromUserID)
	assert.Equal(t, "Carol", first.FromName)
	assert.Equal(t, "alice", first.ToUserID)
	assert.Equal(t, 45.0, first.Amount)
	assert.Equal(t, []string{"dinner"}, first.RelatedExpenseIDs)
	assert.Equal(t, "Pay $45.00 to Alice", first.Label)

	second := resp.Msg.Transfers[1]
	assert.Equal(t, "bob", second.FromUserID)
	assert.Equal(t, "bob", second.FromName)
	assert.Equal(t, 15.0, second.Amount)
	assert.Equal(t, "Pay $15.00 to Alice", second.Label)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.TransfersSuggested))
}

func TestSuggestSettlements_EmptyClub(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.settlements.SuggestSettlements(context.Background(), as(env.token(t, "bob", models.RoleMember), &api.SuggestSettlementsRequest{}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Transfers)
}

func TestRecordSettlement_Flow(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)
	ctx := context.Background()

	clock := time.Unix(1000, 0)
	env.settlementSvc.now = func() time.Time { return clock }

	// Bob pays Alice for dinner.
	resp, err := env.settlements.RecordSettlement(ctx, as(env.token(t, "bob", models.RoleMember), &api.RecordSettlementRequest{
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     30,
		Note:       "bank transfer",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dinner"}, resp.Msg.PaidExpenseIDs)
	assert.Empty(t, resp.Msg.SettledExpenseIDs)
	assert.Equal(t, []string{"dinner"}, resp.Msg.Settlement.RelatedExpenseIDs)
	assert.Equal(t, "bob", resp.Msg.Settlement.CreatedBy)

	dinner, err := env.store.GetExpense(ctx, "dinner")
	require.NoError(t, err)
	bobShare, _ := dinner.Share("bob")
	assert.True(t, bobShare.IsPaid)
	assert.Equal(t, int64(1000), bobShare.PaidAt)
	assert.Equal(t, models.StatusApproved, dinner.Status)

	// Alice records Carol's payment; the dinner is now fully paid.
	clock = time.Unix(2000, 0)
	resp, err = env.settlements.RecordSettlement(ctx, as(env.token(t, "alice", models.RoleOfficer), &api.RecordSettlementRequest{
		FromUserID:        "carol",
		ToUserID:          "alice",
		Amount:            30,
		RelatedExpenseIDs: []string{"dinner"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dinner"}, resp.Msg.SettledExpenseIDs)

	dinner, err = env.store.GetExpense(ctx, "dinner")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSettled, dinner.Status)

	// Only the taxi remains.
	suggest, err := env.settlements.SuggestSettlements(ctx, as(env.token(t, "bob", models.RoleMember), &api.SuggestSettlementsRequest{}))
	require.NoError(t, err)
	require.Len(t, suggest.Msg.Transfers, 1)
	assert.Equal(t, "carol", suggest.Msg.Transfers[0].FromUserID)
	assert.Equal(t, "bob", suggest.Msg.Transfers[0].ToUserID)
	assert.Equal(t, 15.0, suggest.Msg.Transfers[0].Amount)

	list, err := env.settlements.ListSettlements(ctx, as(env.token(t, "bob", models.RoleMember), &api.ListSettlementsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Settlements, 2)
	assert.Equal(t, "carol", list.Msg.Settlements[0].FromUserID)
	assert.Equal(t, "bank transfer", list.Msg.Settlements[1].Note)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.SettlementsRecorded))
}

func TestRecordSettlement_PendingExpenseStaysPending(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)
	ctx := context.Background()

	resp, err := env.settlements.RecordSettlement(ctx, as(env.token(t, "carol", models.RoleMember), &api.RecordSettlementRequest{
		FromUserID: "carol", ToUserID: "bob", Amount: 15,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"taxi"}, resp.Msg.PaidExpenseIDs)
	assert.Empty(t, resp.Msg.SettledExpenseIDs)

	taxi, err := env.store.GetExpense(ctx, "taxi")
	require.NoError(t, err)
	assert.True(t, taxi.AllPaid())
	assert.Equal(t, models.StatusPending, taxi.Status)
}

func TestRecordSettlement_OldestFirst(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	for _, exp := range []models.Expense{
		{ID: "e3", Amount: 10, CreatedAt: 30, Participants: []models.ParticipantShare{share("alice", 5, true), share("bob", 5, false)}},
		{ID: "e1", Amount: 40, CreatedAt: 10, Participants: []models.ParticipantShare{share("alice", 20, true), share("bob", 20, false)}},
		{ID: "e2", Amount: 50, CreatedAt: 20, Participants: []models.ParticipantShare{share("alice", 25, true), share("bob", 25, false)}},
	} {
		exp := exp
		exp.ClubID, exp.Title, exp.PayerID, exp.Status = testClub, exp.ID, "alice", models.StatusApproved
		require.NoError(t, env.store.CreateExpense(ctx, &exp))
	}

	resp, err := env.settlements.RecordSettlement(ctx, as(env.token(t, "bob", models.RoleMember), &api.RecordSettlementRequest{
		FromUserID: "bob", ToUserID: "alice", Amount: 45,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, resp.Msg.PaidExpenseIDs)
	assert.Equal(t, []string{"e1", "e2"}, resp.Msg.SettledExpenseIDs)

	e3, err := env.store.GetExpense(ctx, "e3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, e3.Status)
}

func TestRecordSettlement_PartialPaymentMarksNothing(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)

	resp, err := env.settlements.RecordSettlement(context.Background(), as(env.token(t, "carol", models.RoleMember), &api.RecordSettlementRequest{
		FromUserID: "carol", ToUserID: "alice", Amount: 10,
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Msg.Settlement.ID)
	assert.Empty(t, resp.Msg.PaidExpenseIDs)
	assert.InDelta(t, 10, resp.Msg.Settlement.Amount, 0.001)
	assert.Zero(t, resp.Msg.Settlement.AppliedAmount)

	// The payment still counts towards Carol's balance.
	balances, err := env.settlements.GetBalances(context.Background(), as(env.token(t, "carol", models.RoleMember), &api.GetBalancesRequest{}))
	require.NoError(t, err)
	for _, b := range balances.Msg.Balances {
		if b.ParticipantID == "carol" {
			assert.InDelta(t, -35, b.NetBalance, 0.001)
		}
	}
}

func TestRecordSettlement_PartialPaymentsAccumulate(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)
	ctx := context.Background()
	carol := env.token(t, "carol", models.RoleMember)

	resp, err := env.settlements.RecordSettlement(ctx, as(carol, &api.RecordSettlementRequest{
		FromUserID: "carol", ToUserID: "alice", Amount: 10,
	}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.PaidExpenseIDs)

	// The earlier 10 plus this 20 cover the dinner share.
	resp, err = env.settlements.RecordSettlement(ctx, as(carol, &api.RecordSettlementRequest{
		FromUserID: "carol", ToUserID: "alice", Amount: 20,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dinner"}, resp.Msg.PaidExpenseIDs)
	assert.InDelta(t, 30, resp.Msg.Settlement.AppliedAmount, 0.001)

	balances, err := env.settlements.GetBalances(ctx, as(carol, &api.GetBalancesRequest{}))
	require.NoError(t, err)
	got := make(map[string]float64)
	for _, b := range balances.Msg.Balances {
		got[b.ParticipantID] = b.NetBalance
	}
	assert.InDelta(t, 30, got["alice"], 0.001)
	assert.InDelta(t, -15, got["bob"], 0.001)
	assert.InDelta(t, -15, got["carol"], 0.001)
}

func TestRecordSettlement_SuggestedTransfersClearBalances(t *testing.T) {
	tests := []struct {
		name string
		seed func(t *testing.T, env *testEnv)
	}{
		{"club", seedClub},
		{"debt chain", func(t *testing.T, env *testEnv) {
			// Alice owes Bob and Bob owes Carol the same amount.
			for _, exp := range []models.Expense{
				{ID: "lunch", PayerID: "bob", Amount: 40, CreatedAt: 10,
					Participants: []models.ParticipantShare{share("bob", 20, true), share("alice", 20, false)}},
				{ID: "tickets", PayerID: "carol", Amount: 40, CreatedAt: 20,
					Participants: []models.ParticipantShare{share("carol", 20, true), share("bob", 20, false)}},
			} {
				exp := exp
				exp.ClubID, exp.Title, exp.Status = testClub, exp.ID, models.StatusApproved
				require.NoError(t, env.store.CreateExpense(context.Background(), &exp))
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t)
			tt.seed(t, env)
			ctx := context.Background()
			officer := env.token(t, "treasurer", models.RoleOfficer)

			suggest, err := env.settlements.SuggestSettlements(ctx, as(officer, &api.SuggestSettlementsRequest{}))
			require.NoError(t, err)
			require.NotEmpty(t, suggest.Msg.Transfers)

			for _, tr := range suggest.Msg.Transfers {
				_, err := env.settlements.RecordSettlement(ctx, as(officer, &api.RecordSettlementRequest{
					FromUserID:        tr.FromUserID,
					ToUserID:          tr.ToUserID,
					Amount:            tr.Amount,
					RelatedExpenseIDs: tr.RelatedExpenseIDs,
				}))
				require.NoError(t, err)
			}

			suggest, err = env.settlements.SuggestSettlements(ctx, as(officer, &api.SuggestSettlementsRequest{}))
			require.NoError(t, err)
			assert.Empty(t, suggest.Msg.Transfers)

			balances, err := env.settlements.GetBalances(ctx, as(officer, &api.GetBalancesRequest{}))
			require.NoError(t, err)
			for _, b := range balances.Msg.Balances {
				assert.InDelta(t, 0, b.NetBalance, 0.01, b.ParticipantID)
			}
		})
	}
}

func TestRecordSettlement_DuplicateRelatedExpenses(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)

	resp, err := env.settlements.RecordSettlement(context.Background(), as(env.token(t, "carol", models.RoleMember), &api.RecordSettlementRequest{
		FromUserID: "carol", ToUserID: "alice", Amount: 30, RelatedExpenseIDs: []string{"dinner", "dinner"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"dinner"}, resp.Msg.Settlement.RelatedExpenseIDs)
	assert.Equal(t, []string{"dinner"}, resp.Msg.PaidExpenseIDs)
	assert.InDelta(t, 30, resp.Msg.Settlement.AppliedAmount, 0.001)
}

func TestRecordSettlement_Errors(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)
	ctx := context.Background()
	carol := env.token(t, "carol", models.RoleMember)

	tests := []struct {
		name string
		req  *api.RecordSettlementRequest
		code connect.Code
	}{
		{"missing parties", &api.RecordSettlementRequest{Amount: 5}, connect.CodeInvalidArgument},
		{"self", &api.RecordSettlementRequest{FromUserID: "carol", ToUserID: "carol", Amount: 5}, connect.CodeInvalidArgument},
		{"zero amount", &api.RecordSettlementRequest{FromUserID: "carol", ToUserID: "alice"}, connect.CodeInvalidArgument},
		{"not a party", &api.RecordSettlementRequest{FromUserID: "bob", ToUserID: "alice", Amount: 30}, connect.CodePermissionDenied},
		{"unknown expense", &api.RecordSettlementRequest{FromUserID: "carol", ToUserID: "alice", Amount: 30, RelatedExpenseIDs: []string{"nope"}}, connect.CodeNotFound},
		{"expense outside event", &api.RecordSettlementRequest{FromUserID: "carol", ToUserID: "alice", EventID: "gala", Amount: 30, RelatedExpenseIDs: []string{"dinner"}}, connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.settlements.RecordSettlement(ctx, as(carol, tt.req))
			requireCode(t, err, tt.code)
		})
	}

	list, err := env.settlements.ListSettlements(ctx, as(carol, &api.ListSettlementsRequest{}))
	require.NoError(t, err)
	assert.Empty(t, list.Msg.Settlements)
}

func TestRecordSettlement_ConcurrentRecordsPayShareOnce(t *testing.T) {
	env := setupTestServer(t)
	seedClub(t, env)
	bob := env.token(t, "bob", models.RoleMember)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		paid []string
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := env.settlements.RecordSettlement(context.Background(), as(bob, &api.RecordSettlementRequest{
				FromUserID: "bob", ToUserID: "alice", Amount: 30,
			}))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			paid = append(paid, resp.Msg.PaidExpenseIDs...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"dinner"}, paid)
}
