package calculator

import "github.com/mmynk/clubsplit/internal/models"

// DebtEdge represents a debt from one person to another for a single expense.
type DebtEdge struct {
	From      string // Person who owes
	To        string // Person who is owed
	Amount    float64
	ExpenseID string
}

// ExpensesToDebts emits one edge per unpaid, non-payer share of every
// non-settled expense. Edges are not netted against each other: two members
// who owe each other keep two edges. The optimizer works from aggregate
// balances, so this list serves as an audit trail.
func ExpensesToDebts(expenses []models.Expense) []DebtEdge {
	var edges []DebtEdge
	for _, exp := range expenses {
		if exp.Status == models.StatusSettled || exp.PayerID == "" {
			continue
		}
		for _, p := range exp.Participants {
			if p.IsPaid || p.ParticipantID == exp.PayerID {
				continue
			}
			edges = append(edges, DebtEdge{
				From:      p.ParticipantID,
				To:        exp.PayerID,
				Amount:    p.ShareAmount,
				ExpenseID: exp.ID,
			})
		}
	}
	return edges
}

// RelatedExpenses returns a copy of transfers with RelatedExpenseIDs filled
// from the direct debt edges between each transfer's two parties, in
// first-seen order. Transfers between parties with no direct edge are left
// without related expenses.
func RelatedExpenses(transfers []Transfer, debts []DebtEdge) []Transfer {
	type pair struct{ from, to string }
	byPair := make(map[pair][]string)
	for _, d := range debts {
		k := pair{d.From, d.To}
		ids := byPair[k]
		if len(ids) > 0 && containsString(ids, d.ExpenseID) {
			continue
		}
		byPair[k] = append(ids, d.ExpenseID)
	}

	out := make([]Transfer, len(transfers))
	for i, t := range transfers {
		out[i] = t
		if ids := byPair[pair{t.FromUserID, t.ToUserID}]; len(ids) > 0 {
			out[i].RelatedExpenseIDs = append([]string(nil), ids...)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
