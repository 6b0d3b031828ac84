package calculator

import (
	"math"
	"sort"
)

// Transfer is a suggested real-world payment from a debtor to a creditor.
type Transfer struct {
	FromUserID        string  // Debtor paying
	ToUserID          string  // Creditor receiving
	Amount            float64 // Always positive, rounded to the cent
	RelatedExpenseIDs []string
}

type party struct {
	id     string
	amount float64 // Magnitude still to settle
}

// CalculateOptimalSettlements reduces net balances to a short list of
// point-to-point transfers that zero them out.
//
// Algorithm (greedy minimum cash flow):
//   - creditors have NetBalance > Tolerance, debtors < -Tolerance
//   - both queues are ordered by magnitude, largest first
//   - the head debtor pays the head creditor min(credit, debt)
//   - a party leaves its queue once its remainder is within Tolerance
//
// The result settles n parties in at most n-1 transfers, but it is not the
// global minimum for every debt topology. If credits and debits do not add
// up, the leftover is dropped without error.
func CalculateOptimalSettlements(balances []Balance) []Transfer {
	// Merge repeated entries so one participant never sits in both queues.
	net := make(map[string]float64, len(balances))
	order := make([]string, 0, len(balances))
	for _, b := range balances {
		if _, ok := net[b.ParticipantID]; !ok {
			order = append(order, b.ParticipantID)
		}
		net[b.ParticipantID] += b.NetBalance
	}

	var creditors, debtors []party
	for _, id := range order {
		switch v := net[id]; {
		case v > Tolerance:
			creditors = append(creditors, party{id: id, amount: v})
		case v < -Tolerance:
			debtors = append(debtors, party{id: id, amount: -v})
		}
	}
	sortParties(creditors)
	sortParties(debtors)

	transfers := make([]Transfer, 0, len(creditors)+len(debtors))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]

		amount := math.Min(debtor.amount, creditor.amount)
		transfers = append(transfers, Transfer{
			FromUserID: debtor.id,
			ToUserID:   creditor.id,
			Amount:     RoundCents(amount),
		})

		debtor.amount -= amount
		creditor.amount -= amount

		if debtor.amount <= Tolerance {
			i++
		}
		if creditor.amount <= Tolerance {
			j++
		}
	}

	return transfers
}

// sortParties orders by amount descending, breaking ties by ID.
func sortParties(ps []party) {
	sort.SliceStable(ps, func(a, b int) bool {
		if ps[a].amount != ps[b].amount {
			return ps[a].amount > ps[b].amount
		}
		return ps[a].id < ps[b].id
	})
}
