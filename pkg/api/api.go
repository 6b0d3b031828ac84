// Package api defines the request and response messages of the clubsplit
// RPC services. Messages travel as JSON; field names follow the backend's
// snake_case convention.
package api

import "encoding/json"

// Share is one participant's part of an expense.
type Share struct {
	ParticipantID string  `json:"participant_id"`
	ShareAmount   float64 `json:"share_amount"`
	IsPaid        bool    `json:"is_paid"`
	PaidAt        int64   `json:"paid_at,omitempty"`
}

// Expense is a shared cost paid by one member on behalf of others.
type Expense struct {
	ID           string   `json:"id"`
	ClubID       string   `json:"club_id"`
	EventID      string   `json:"event_id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Amount       float64  `json:"amount"`
	PayerID      string   `json:"payer_id"`
	Participants []*Share `json:"participants"`
	Status       string   `json:"status"`
	CreatedBy    string   `json:"created_by,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// Item is one receipt line for an itemized split.
type Item struct {
	Description    string   `json:"description"`
	Amount         float64  `json:"amount"`
	ParticipantIDs []string `json:"participant_ids"`
}

// Balance is a participant's outstanding position.
type Balance struct {
	ParticipantID string  `json:"participant_id"`
	DisplayName   string  `json:"display_name"`
	TotalOwed     float64 `json:"total_owed"`
	TotalOwedTo   float64 `json:"total_owed_to"`
	NetBalance    float64 `json:"net_balance"`
}

// DebtEdge says From owes To Amount for one expense.
type DebtEdge struct {
	FromUserID string  `json:"from_user_id"`
	ToUserID   string  `json:"to_user_id"`
	Amount     float64 `json:"amount"`
	ExpenseID  string  `json:"expense_id"`
}

// Transfer is a suggested payment.
type Transfer struct {
	FromUserID        string   `json:"from_user_id"`
	FromName          string   `json:"from_name"`
	ToUserID          string   `json:"to_user_id"`
	ToName            string   `json:"to_name"`
	Amount            float64  `json:"amount"`
	RelatedExpenseIDs []string `json:"related_expense_ids"`
	Label             string   `json:"label"`
}

// Settlement is a recorded payment between two members.
type Settlement struct {
	ID                string   `json:"id"`
	ClubID            string   `json:"club_id"`
	FromUserID        string   `json:"from_user_id"`
	ToUserID          string   `json:"to_user_id"`
	EventID           string   `json:"event_id,omitempty"`
	Amount            float64  `json:"amount"`
	AppliedAmount     float64  `json:"applied_amount"`
	RelatedExpenseIDs []string `json:"related_expense_ids"`
	Note              string   `json:"note,omitempty"`
	CreatedBy         string   `json:"created_by"`
	CreatedAt         int64    `json:"created_at"`
}

// Member is a club directory entry.
type Member struct {
	ID          string `json:"id"`
	ClubID      string `json:"club_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
}

// ExpenseService messages.

type CreateExpenseRequest struct {
	EventID      string   `json:"event_id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Amount       float64  `json:"amount"`
	PayerID      string   `json:"payer_id"`
	Participants []*Share `json:"participants"`
	// Submit creates the expense as pending instead of draft.
	Submit       bool     `json:"submit,omitempty"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	EventID string `json:"event_id,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type UpdateExpenseStatusRequest struct {
	ExpenseID string `json:"expense_id"`
	Status    string `json:"status"`
}

type UpdateExpenseStatusResponse struct {
	Expense *Expense `json:"expense"`
}

type ValidateExpenseRequest struct {
	Expense *Expense `json:"expense"`
}

type ValidateExpenseResponse struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

type SplitExpenseRequest struct {
	// Amount is the receipt total including tax and fees.
	Amount         float64  `json:"amount"`
	// Subtotal is the sum of Items before tax. Ignored without items.
	Subtotal       float64  `json:"subtotal,omitempty"`
	PayerID        string   `json:"payer_id"`
	ParticipantIDs []string `json:"participant_ids"`
	Items          []*Item  `json:"items,omitempty"`
}

type SplitExpenseResponse struct {
	Participants []*Share `json:"participants"`
}

type ImportExpensesRequest struct {
	// Data is an exported JSON array of expense rows, or an object with an
	// "expenses" array.
	Data json.RawMessage `json:"data"`
}

type ImportError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

type ImportExpensesResponse struct {
	Imported []*Expense     `json:"imported"`
	Errors   []*ImportError `json:"errors"`
}

// SettlementService messages.

type GetBalancesRequest struct {
	EventID string `json:"event_id,omitempty"`
}

type GetBalancesResponse struct {
	Balances []*Balance `json:"balances"`
}

type GetDebtsRequest struct {
	EventID string `json:"event_id,omitempty"`
}

type GetDebtsResponse struct {
	Debts []*DebtEdge `json:"debts"`
}

type SuggestSettlementsRequest struct {
	EventID string `json:"event_id,omitempty"`
}

type SuggestSettlementsResponse struct {
	Transfers []*Transfer `json:"transfers"`
}

type RecordSettlementRequest struct {
	FromUserID        string   `json:"from_user_id"`
	ToUserID          string   `json:"to_user_id"`
	EventID           string   `json:"event_id,omitempty"`
	Amount            float64  `json:"amount"`
	RelatedExpenseIDs []string `json:"related_expense_ids"`
	Note              string   `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement        *Settlement `json:"settlement"`
	// PaidExpenseIDs lists expenses where the debtor's share was marked paid.
	PaidExpenseIDs    []string    `json:"paid_expense_ids"`
	// SettledExpenseIDs lists expenses that moved to settled.
	SettledExpenseIDs []string    `json:"settled_expense_ids"`
}

type ListSettlementsRequest struct{}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

// MemberService messages.

type UpsertMemberRequest struct {
	Member *Member `json:"member"`
}

type UpsertMemberResponse struct {
	Member *Member `json:"member"`
}

type ListMembersRequest struct{}

type ListMembersResponse struct {
	Members []*Member `json:"members"`
}
