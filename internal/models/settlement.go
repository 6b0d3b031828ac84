package models

// Settlement represents a payment between club members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// ClubID is the club this settlement belongs to.
	ClubID string

	// FromUserID is the member who paid (debtor settling up).
	FromUserID string

	// ToUserID is the member who received payment (creditor being paid).
	ToUserID string

	// EventID optionally scopes the payment to one event's expenses.
	EventID string

	// Amount is the payment amount.
	Amount float64

	// AppliedAmount is the total of the shares this payment marked paid. It
	// exceeds Amount when the payment used credit left by earlier ones.
	AppliedAmount float64

	// RelatedExpenseIDs are the expenses whose shares this payment covers.
	// IDs are unique.
	RelatedExpenseIDs []string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the member ID who recorded this settlement.
	CreatedBy string

	// Note is an optional description for the settlement.
	Note string
}

// Credit is the part of the payment not matched to any share. It is
// negative when the payment consumed earlier credit.
func (s *Settlement) Credit() float64 {
	return s.Amount - s.AppliedAmount
}
