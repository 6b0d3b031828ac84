package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/clubsplit/internal/models"
)

var (
	ErrNoParticipants       = errors.New("must have at least one participant")
	ErrNegativeAmount       = errors.New("amount cannot be negative")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrZeroSubtotal         = errors.New("subtotal cannot be zero")
)

// Item represents a single line on an itemized receipt.
type Item struct {
	Description string
	Amount      float64
	AssignedTo  []string
}

// SplitEqually divides amount into equal shares, in cents. Leftover cents go
// one each to the first participants, so the shares always add back up to the
// rounded total. The payer's share is marked paid.
func SplitEqually(amount float64, participantIDs []string, payerID string) ([]models.ParticipantShare, error) {
	if err := checkParticipants(participantIDs); err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, ErrNegativeAmount
	}

	total := Cents(amount)
	n := int64(len(participantIDs))
	base, rem := total/n, total%n

	cents := make([]int64, n)
	for i := range cents {
		cents[i] = base
		if int64(i) < rem {
			cents[i]++
		}
	}
	return buildShares(participantIDs, cents, payerID), nil
}

// SplitByItems computes shares for an itemized receipt.
// Based on the algorithm: person_total = person_subtotal × (1 + (total_tax / bill_subtotal))
//
// Items with no assignees are ignored. Without items the total is split
// equally. Per-person totals are rounded to cents and any rounding residue is
// absorbed by the largest share.
func SplitByItems(items []Item, total, subtotal float64, participantIDs []string, payerID string) ([]models.ParticipantShare, error) {
	if err := checkParticipants(participantIDs); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return SplitEqually(total, participantIDs, payerID)
	}
	if subtotal == 0 {
		return nil, ErrZeroSubtotal
	}

	index := make(map[string]int, len(participantIDs))
	for i, id := range participantIDs {
		index[id] = i
	}

	subtotals := make([]float64, len(participantIDs))
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}
		perPerson := item.Amount / float64(len(item.AssignedTo))
		for _, person := range item.AssignedTo {
			if i, ok := index[person]; ok {
				subtotals[i] += perPerson
			}
		}
	}

	taxRate := (total - subtotal) / subtotal
	cents := make([]int64, len(participantIDs))
	var sum int64
	largest := 0
	for i, s := range subtotals {
		cents[i] = Cents(s * (1 + taxRate))
		sum += cents[i]
		if cents[i] > cents[largest] {
			largest = i
		}
	}

	// Only rounding drift is absorbed; unassigned items stay visible as a
	// share mismatch for the integrity validator.
	if residue := Cents(total) - sum; residue != 0 && abs64(residue) <= int64(len(participantIDs)) {
		cents[largest] += residue
	}

	return buildShares(participantIDs, cents, payerID), nil
}

func checkParticipants(ids []string) error {
	if len(ids) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = true
	}
	return nil
}

func buildShares(ids []string, cents []int64, payerID string) []models.ParticipantShare {
	shares := make([]models.ParticipantShare, len(ids))
	for i, id := range ids {
		shares[i] = models.ParticipantShare{
			ParticipantID: id,
			ShareAmount:   FromCents(cents[i]),
			IsPaid:        id == payerID,
		}
	}
	return shares
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
