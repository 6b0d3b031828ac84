package calculator

import (
	"fmt"
	"strings"

	"github.com/mmynk/clubsplit/internal/models"
)

// ValidationResult lists every integrity rule an expense violates.
type ValidationResult struct {
	IsValid bool
	Errors  []string
}

// ValidateExpenseIntegrity checks an expense before submission. All rules are
// evaluated independently so forms can show every problem at once.
func ValidateExpenseIntegrity(exp models.Expense) ValidationResult {
	var errs []string

	if strings.TrimSpace(exp.Title) == "" {
		errs = append(errs, "title is required")
	}
	if exp.Amount <= 0 {
		errs = append(errs, "amount must be greater than zero")
	}
	if strings.TrimSpace(exp.PayerID) == "" {
		errs = append(errs, "payer is required")
	}
	if len(exp.Participants) == 0 {
		errs = append(errs, "at least one participant is required")
	}

	var sum float64
	seen := make(map[string]bool, len(exp.Participants))
	var duplicates []string
	for _, p := range exp.Participants {
		sum += p.ShareAmount
		if seen[p.ParticipantID] {
			duplicates = append(duplicates, p.ParticipantID)
		}
		seen[p.ParticipantID] = true
	}

	if len(exp.Participants) > 0 && !Equal(sum, exp.Amount) {
		errs = append(errs, fmt.Sprintf("participant shares (%.2f) do not equal expense amount (%.2f)", sum, exp.Amount))
	}
	if exp.PayerID != "" {
		if share, ok := exp.Share(exp.PayerID); ok && !share.IsPaid {
			errs = append(errs, fmt.Sprintf("payer %s share must be marked as paid", exp.PayerID))
		}
	}
	for _, id := range duplicates {
		errs = append(errs, fmt.Sprintf("duplicate participant %s", id))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
