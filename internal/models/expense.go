package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an expense status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// ExpenseStatus is the lifecycle state of an expense.
type ExpenseStatus string

const (
	StatusDraft    ExpenseStatus = "draft"
	StatusPending  ExpenseStatus = "pending"
	StatusApproved ExpenseStatus = "approved"
	StatusSettled  ExpenseStatus = "settled"
)

// transitions lists the allowed next states for every status.
var transitions = map[ExpenseStatus][]ExpenseStatus{
	StatusDraft:    {StatusPending},
	StatusPending:  {StatusApproved, StatusDraft},
	StatusApproved: {StatusSettled},
}

// ParseExpenseStatus converts a raw status string into an ExpenseStatus.
func ParseExpenseStatus(s string) (ExpenseStatus, error) {
	switch st := ExpenseStatus(s); st {
	case StatusDraft, StatusPending, StatusApproved, StatusSettled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown expense status %q", s)
	}
}

// CanTransitionTo reports whether an expense may move from s to next.
func (s ExpenseStatus) CanTransitionTo(next ExpenseStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequiresOfficer reports whether moving into next needs an officer or admin.
// Submitting a draft for review is open to any member.
func (s ExpenseStatus) RequiresOfficer(next ExpenseStatus) bool {
	return !(s == StatusDraft && next == StatusPending)
}

// Expense represents a shared cost event inside a club.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// ClubID is the club this expense belongs to.
	ClubID string

	// EventID optionally links the expense to a calendar event.
	EventID string

	// Title is the short human-readable name (e.g., "Tournament bus").
	Title string

	// Description is free text shown on the detail sheet.
	Description string

	// Amount is the total monetary value of the expense.
	Amount float64

	// PayerID is the member who fronted the money.
	PayerID string

	// Participants are the shares of the expense, in display order.
	// Participant IDs are unique within one expense.
	Participants []ParticipantShare

	// Status is the lifecycle state. Settled expenses never affect balances.
	Status ExpenseStatus

	// CreatedBy is the member ID that submitted the expense.
	CreatedBy string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// ParticipantShare is one participant's portion of an expense.
type ParticipantShare struct {
	ParticipantID string
	ShareAmount   float64
	IsPaid        bool

	// PaidAt is the Unix timestamp the share was marked paid, zero when unpaid.
	PaidAt int64
}

// Share returns the share for participantID, if listed.
func (e *Expense) Share(participantID string) (ParticipantShare, bool) {
	for _, p := range e.Participants {
		if p.ParticipantID == participantID {
			return p, true
		}
	}
	return ParticipantShare{}, false
}

// AllPaid reports whether every listed share has been paid.
func (e *Expense) AllPaid() bool {
	for _, p := range e.Participants {
		if !p.IsPaid {
			return false
		}
	}
	return true
}

// Outstanding returns the expenses that count towards open balances.
// Drafts have not been submitted yet and are left out.
func Outstanding(expenses []Expense) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Status == StatusDraft {
			continue
		}
		out = append(out, e)
	}
	return out
}
