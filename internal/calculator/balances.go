package calculator

import (
	"sort"

	"github.com/mmynk/clubsplit/internal/models"
)

// Balance is one participant's net position across a set of expenses.
type Balance struct {
	ParticipantID string
	TotalOwed     float64 // What this participant still owes others
	TotalOwedTo   float64 // What others still owe this participant
	NetBalance    float64 // Positive = owed money, Negative = owes money
}

// CalculateBalance computes the outstanding balance of participantID.
//
// Settled expenses are skipped entirely, even when some of their shares are
// still marked unpaid. Paid shares never count. When the participant fronted
// an expense, the unpaid shares of everyone else are owed to them; otherwise
// their own unpaid share is what they owe. Unknown participants get a zero
// balance.
func CalculateBalance(expenses []models.Expense, participantID string) Balance {
	bal := Balance{ParticipantID: participantID}

	for i := range expenses {
		exp := &expenses[i]
		if exp.Status == models.StatusSettled {
			continue
		}

		if exp.PayerID == participantID {
			for _, p := range exp.Participants {
				if p.ParticipantID != participantID && !p.IsPaid {
					bal.TotalOwedTo += p.ShareAmount
				}
			}
			continue
		}

		if share, ok := exp.Share(participantID); ok && !share.IsPaid {
			bal.TotalOwed += share.ShareAmount
		}
	}

	bal.NetBalance = bal.TotalOwedTo - bal.TotalOwed
	return bal
}

// CalculateBalances computes a balance for every payer and participant that
// appears in a non-settled expense, sorted by participant ID.
func CalculateBalances(expenses []models.Expense) []Balance {
	seen := make(map[string]struct{})
	for _, exp := range expenses {
		if exp.Status == models.StatusSettled {
			continue
		}
		if exp.PayerID != "" {
			seen[exp.PayerID] = struct{}{}
		}
		for _, p := range exp.Participants {
			seen[p.ParticipantID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	balances := make([]Balance, 0, len(ids))
	for _, id := range ids {
		balances = append(balances, CalculateBalance(expenses, id))
	}
	return balances
}

// ApplySettlements counts the credit of each recorded settlement: the payer
// owes that much less and the receiver is owed that much less. Shares the
// settlement marked paid are already gone from the balances, so only the
// credit is counted. Parties missing from balances are added. The result is
// sorted by participant ID.
func ApplySettlements(balances []Balance, settlements []*models.Settlement) []Balance {
	out := make([]Balance, len(balances))
	copy(out, balances)
	index := make(map[string]int, len(out))
	for i, b := range out {
		index[b.ParticipantID] = i
	}
	at := func(id string) *Balance {
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, Balance{ParticipantID: id})
		}
		return &out[i]
	}

	for _, st := range settlements {
		credit := st.Credit()
		if credit == 0 {
			continue
		}
		at(st.FromUserID).TotalOwed -= credit
		at(st.ToUserID).TotalOwedTo -= credit
	}

	for i := range out {
		out[i].NetBalance = out[i].TotalOwedTo - out[i].TotalOwed
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}
