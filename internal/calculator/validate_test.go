package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/clubsplit/internal/models"
)

func TestValidateExpenseIntegrity(t *testing.T) {
	valid := models.Expense{
		Title:   "Court booking",
		Amount:  100,
		PayerID: "u1",
		Participants: []models.ParticipantShare{
			share("u1", 50, true),
			share("u2", 50, false),
		},
	}

	tests := []struct {
		name       string
		mutate     func(e *models.Expense)
		wantErrors []string
	}{
		{
			name:   "valid expense",
			mutate: func(e *models.Expense) {},
		},
		{
			name: "shares do not add up",
			mutate: func(e *models.Expense) {
				e.Participants[1].ShareAmount = 40
			},
			wantErrors: []string{"participant shares (90.00) do not equal expense amount (100.00)"},
		},
		{
			name: "drift within tolerance is accepted",
			mutate: func(e *models.Expense) {
				e.Participants[1].ShareAmount = 49.995
			},
		},
		{
			name: "payer share unpaid",
			mutate: func(e *models.Expense) {
				e.Participants[0].IsPaid = false
			},
			wantErrors: []string{"payer u1 share must be marked as paid"},
		},
		{
			name: "duplicate participant",
			mutate: func(e *models.Expense) {
				e.Participants = []models.ParticipantShare{share("u1", 50, true), share("u2", 25, false), share("u2", 25, false)}
			},
			wantErrors: []string{"duplicate participant u2"},
		},
		{
			name: "blank title",
			mutate: func(e *models.Expense) {
				e.Title = "   "
			},
			wantErrors: []string{"title is required"},
		},
		{
			name: "every rule reported at once",
			mutate: func(e *models.Expense) {
				*e = models.Expense{}
			},
			wantErrors: []string{
				"title is required",
				"amount must be greater than zero",
				"payer is required",
				"at least one participant is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := valid
			exp.Participants = append([]models.ParticipantShare(nil), valid.Participants...)
			tt.mutate(&exp)

			res := ValidateExpenseIntegrity(exp)
			assert.Equal(t, len(tt.wantErrors) == 0, res.IsValid)
			assert.Equal(t, tt.wantErrors, res.Errors)
		})
	}
}
