package service

import (
	"context"
	"encoding/json"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/pkg/api"
)

func dinnerRequest() *api.CreateExpenseRequest {
	return &api.CreateExpenseRequest{
		EventID: "spring-gala",
		Title:   "Team dinner",
		Amount:  90,
		PayerID: "alice",
		Participants: []*api.Share{
			{ParticipantID: "alice", ShareAmount: 30, IsPaid: true},
			{ParticipantID: "bob", ShareAmount: 30},
			{ParticipantID: "carol", ShareAmount: 30},
		},
	}
}

func TestCreateExpense_And_GetExpense(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bob := env.token(t, "bob", models.RoleMember)

	created, err := env.expenses.CreateExpense(ctx, as(bob, dinnerRequest()))
	require.NoError(t, err)

	exp := created.Msg.Expense
	assert.NotEmpty(t, exp.ID)
	assert.Equal(t, testClub, exp.ClubID)
	assert.Equal(t, "bob", exp.CreatedBy)
	assert.Equal(t, string(models.StatusDraft), exp.Status)
	assert.NotZero(t, exp.CreatedAt)

	got, err := env.expenses.GetExpense(ctx, as(bob, &api.GetExpenseRequest{ExpenseID: exp.ID}))
	require.NoError(t, err)
	assert.Equal(t, "Team dinner", got.Msg.Expense.Title)
	require.Len(t, got.Msg.Expense.Participants, 3)
	assert.True(t, got.Msg.Expense.Participants[0].IsPaid)
	assert.Equal(t, 30.0, got.Msg.Expense.Participants[2].ShareAmount)
}

func TestCreateExpense_Submit(t *testing.T) {
	env := setupTestServer(t)
	req := dinnerRequest()
	req.Submit = true

	resp, err := env.expenses.CreateExpense(context.Background(), as(env.token(t, "bob", models.RoleMember), req))
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusPending), resp.Msg.Expense.Status)
}

func TestCreateExpense_Invalid(t *testing.T) {
	env := setupTestServer(t)
	req := dinnerRequest()
	req.Amount = 100
	req.Participants[0].IsPaid = false

	_, err := env.expenses.CreateExpense(context.Background(), as(env.token(t, "bob", models.RoleMember), req))
	requireCode(t, err, connect.CodeInvalidArgument)
	assert.Contains(t, err.Error(), "participant shares (90.00) do not equal expense amount (100.00)")
	assert.Contains(t, err.Error(), "payer alice share must be marked as paid")
}

func TestCreateExpense_Unauthenticated(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.expenses.CreateExpense(context.Background(), connect.NewRequest(dinnerRequest()))
	requireCode(t, err, connect.CodeUnauthenticated)

	_, err = env.expenses.CreateExpense(context.Background(), as("not-a-token", dinnerRequest()))
	requireCode(t, err, connect.CodeUnauthenticated)
}

func TestGetExpense_NotFound(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.expenses.GetExpense(ctx, as(env.token(t, "bob", models.RoleMember), &api.GetExpenseRequest{ExpenseID: "missing"}))
	requireCode(t, err, connect.CodeNotFound)

	created, err := env.expenses.CreateExpense(ctx, as(env.token(t, "bob", models.RoleMember), dinnerRequest()))
	require.NoError(t, err)

	// Another club's member cannot see it.
	outsider := env.tokenFor(t, "zed", "club-2", models.RoleAdmin)
	_, err = env.expenses.GetExpense(ctx, as(outsider, &api.GetExpenseRequest{ExpenseID: created.Msg.Expense.ID}))
	requireCode(t, err, connect.CodeNotFound)
}

func TestListExpenses_EventFilter(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bob := env.token(t, "bob", models.RoleMember)

	_, err := env.expenses.CreateExpense(ctx, as(bob, dinnerRequest()))
	require.NoError(t, err)

	other := dinnerRequest()
	other.EventID = "picnic"
	other.Title = "Picnic snacks"
	_, err = env.expenses.CreateExpense(ctx, as(bob, other))
	require.NoError(t, err)

	all, err := env.expenses.ListExpenses(ctx, as(bob, &api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.Len(t, all.Msg.Expenses, 2)

	picnic, err := env.expenses.ListExpenses(ctx, as(bob, &api.ListExpensesRequest{EventID: "picnic"}))
	require.NoError(t, err)
	require.Len(t, picnic.Msg.Expenses, 1)
	assert.Equal(t, "Picnic snacks", picnic.Msg.Expenses[0].Title)

	outsider := env.tokenFor(t, "zed", "club-2", models.RoleMember)
	none, err := env.expenses.ListExpenses(ctx, as(outsider, &api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.Empty(t, none.Msg.Expenses)
}

func TestUpdateExpenseStatus_Lifecycle(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	bob := env.token(t, "bob", models.RoleMember)
	alice := env.token(t, "alice", models.RoleOfficer)

	created, err := env.expenses.CreateExpense(ctx, as(bob, dinnerRequest()))
	require.NoError(t, err)
	id := created.Msg.Expense.ID

	update := func(token, status string) (*api.Expense, error) {
		resp, err := env.expenses.UpdateExpenseStatus(ctx, as(token, &api.UpdateExpenseStatusRequest{ExpenseID: id, Status: status}))
		if err != nil {
			return nil, err
		}
		return resp.Msg.Expense, nil
	}

	// Any member may submit.
	exp, err := update(bob, "pending")
	require.NoError(t, err)
	assert.Equal(t, "pending", exp.Status)

	// Approval is gated on role.
	_, err = update(bob, "approved")
	requireCode(t, err, connect.CodePermissionDenied)

	// Officers can reject back to draft and members resubmit.
	_, err = update(alice, "draft")
	require.NoError(t, err)
	_, err = update(bob, "pending")
	require.NoError(t, err)

	exp, err = update(alice, "approved")
	require.NoError(t, err)
	assert.Equal(t, "approved", exp.Status)

	_, err = update(alice, "draft")
	requireCode(t, err, connect.CodeFailedPrecondition)

	_, err = update(alice, "archived")
	requireCode(t, err, connect.CodeInvalidArgument)

	exp, err = update(alice, "settled")
	require.NoError(t, err)
	assert.Equal(t, "settled", exp.Status)

	_, err = update(alice, "pending")
	requireCode(t, err, connect.CodeFailedPrecondition)
}

func TestUpdateExpenseStatus_RejectsUnbalancedSubmission(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	// Stored directly, bypassing CreateExpense validation, as a legacy row would be.
	exp := &models.Expense{
		ClubID: testClub, Title: "Legacy", Amount: 50, PayerID: "alice", Status: models.StatusDraft,
		Participants: []models.ParticipantShare{{ParticipantID: "bob", ShareAmount: 20}},
	}
	require.NoError(t, env.store.CreateExpense(ctx, exp))

	_, err := env.expenses.UpdateExpenseStatus(ctx, as(env.token(t, "bob", models.RoleMember),
		&api.UpdateExpenseStatusRequest{ExpenseID: exp.ID, Status: "pending"}))
	requireCode(t, err, connect.CodeFailedPrecondition)
}

func TestValidateExpense(t *testing.T) {
	env := setupTestServer(t)
	bob := env.token(t, "bob", models.RoleMember)

	resp, err := env.expenses.ValidateExpense(context.Background(), as(bob, &api.ValidateExpenseRequest{
		Expense: &api.Expense{Amount: 10, PayerID: "alice"},
	}))
	require.NoError(t, err)
	assert.False(t, resp.Msg.IsValid)
	assert.ElementsMatch(t, []string{
		"title is required",
		"at least one participant is required",
	}, resp.Msg.Errors)

	d := dinnerRequest()
	resp, err = env.expenses.ValidateExpense(context.Background(), as(bob, &api.ValidateExpenseRequest{
		Expense: &api.Expense{Title: d.Title, Amount: d.Amount, PayerID: d.PayerID, Participants: d.Participants},
	}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.IsValid)
	assert.Empty(t, resp.Msg.Errors)

	_, err = env.expenses.ValidateExpense(context.Background(), as(bob, &api.ValidateExpenseRequest{}))
	requireCode(t, err, connect.CodeInvalidArgument)
}

func TestSplitExpense(t *testing.T) {
	env := setupTestServer(t)
	bob := env.token(t, "bob", models.RoleMember)

	tests := []struct {
		name    string
		req     *api.SplitExpenseRequest
		want    map[string]float64
		paid    string
		wantErr bool
	}{
		{
			name: "equal split spreads cents",
			req:  &api.SplitExpenseRequest{Amount: 100, PayerID: "alice", ParticipantIDs: []string{"alice", "bob", "carol"}},
			want: map[string]float64{"alice": 33.34, "bob": 33.33, "carol": 33.33},
			paid: "alice",
		},
		{
			name: "itemized with tax",
			req: &api.SplitExpenseRequest{
				Amount:         33,
				Subtotal:       30,
				PayerID:        "bob",
				ParticipantIDs: []string{"alice", "bob"},
				Items: []*api.Item{
					{Description: "Pizza", Amount: 20, ParticipantIDs: []string{"alice"}},
					{Description: "Salad", Amount: 10, ParticipantIDs: []string{"bob"}},
				},
			},
			want: map[string]float64{"alice": 22, "bob": 11},
			paid: "bob",
		},
		{
			name:    "no participants",
			req:     &api.SplitExpenseRequest{Amount: 10},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.expenses.SplitExpense(context.Background(), as(bob, tt.req))
			if tt.wantErr {
				requireCode(t, err, connect.CodeInvalidArgument)
				return
			}
			require.NoError(t, err)

			got := make(map[string]float64)
			for _, s := range resp.Msg.Participants {
				got[s.ParticipantID] = s.ShareAmount
				assert.Equal(t, s.ParticipantID == tt.paid, s.IsPaid, s.ParticipantID)
			}
			assert.InDeltaMapValues(t, tt.want, got, 0.001)
		})
	}
}

func TestImportExpenses(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.token(t, "alice", models.RoleOfficer)

	data := json.RawMessage(`[
		{"id": "imp-1", "title": "Field rental", "amount": "60.00", "paid_by": "alice", "status": "approved",
		 "expense_participants": [
			{"user_id": "alice", "share_amount": "30.00", "is_paid": true},
			{"user_id": "bob", "share_amount": "30.00", "is_paid": false}
		 ]},
		{"id": "imp-2", "title": "Bad sum", "amount": 50, "payerId": "bob",
		 "participants": [{"participantId": "bob", "shareAmount": 10, "isPaid": true}]},
		{"id": "imp-3", "club_id": "club-2", "title": "Elsewhere", "amount": 5, "payer_id": "x",
		 "participants": [{"participant_id": "x", "share_amount": 5, "is_paid": true}]},
		{"title": "No id", "amount": 5}
	]`)

	resp, err := env.expenses.ImportExpenses(ctx, as(alice, &api.ImportExpensesRequest{Data: data}))
	require.NoError(t, err)

	require.Len(t, resp.Msg.Imported, 1)
	imported := resp.Msg.Imported[0]
	assert.Equal(t, "imp-1", imported.ID)
	assert.Equal(t, testClub, imported.ClubID)
	assert.Equal(t, "approved", imported.Status)
	assert.Equal(t, "alice", imported.CreatedBy)

	require.Len(t, resp.Msg.Errors, 3)
	assert.Equal(t, 1, resp.Msg.Errors[0].Index)
	assert.Contains(t, resp.Msg.Errors[0].Message, "participant shares")
	assert.Equal(t, 2, resp.Msg.Errors[1].Index)
	assert.Contains(t, resp.Msg.Errors[1].Message, "club-2")
	assert.Equal(t, 3, resp.Msg.Errors[2].Index)

	stored, err := env.store.GetExpense(ctx, "imp-1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, stored.Amount)

	// Re-importing the same row fails on the duplicate ID.
	resp, err = env.expenses.ImportExpenses(ctx, as(alice, &api.ImportExpensesRequest{Data: data}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.Imported)
	assert.Len(t, resp.Msg.Errors, 4)
}

func TestImportExpenses_Errors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.expenses.ImportExpenses(ctx, as(env.token(t, "bob", models.RoleMember),
		&api.ImportExpensesRequest{Data: json.RawMessage(`[]`)}))
	requireCode(t, err, connect.CodePermissionDenied)

	_, err = env.expenses.ImportExpenses(ctx, as(env.token(t, "alice", models.RoleOfficer),
		&api.ImportExpensesRequest{Data: json.RawMessage(`"not rows"`)}))
	requireCode(t, err, connect.CodeInvalidArgument)
}
