// Package ingest converts expense exports from the managed backend into
// canonical models.Expense values.
//
// Backend rows arrive in more than one shape: snake_case columns straight from
// Postgres, camelCase objects from the client SDK, numeric columns rendered as
// strings. All of that is resolved here, once, so the calculator never has to
// guess which field name a record used.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/clubsplit/internal/models"
)

// ErrInvalidRecord is returned when a record cannot be mapped to an expense.
var ErrInvalidRecord = errors.New("invalid expense record")

// Field aliases, canonical spelling first.
var (
	expenseIDKeys    = []string{"id", "expense_id", "expenseId"}
	clubIDKeys       = []string{"clubId", "club_id"}
	eventIDKeys      = []string{"eventId", "event_id"}
	titleKeys        = []string{"title", "name"}
	descriptionKeys  = []string{"description", "notes"}
	amountKeys       = []string{"amount", "total", "total_amount", "totalAmount"}
	payerKeys        = []string{"payerId", "payer_id", "paidBy", "paid_by"}
	statusKeys       = []string{"status"}
	createdByKeys    = []string{"createdBy", "created_by"}
	createdAtKeys    = []string{"createdAt", "created_at"}
	updatedAtKeys    = []string{"updatedAt", "updated_at"}
	participantsKeys = []string{"participants", "expense_participants", "shares", "splits"}

	participantIDKeys = []string{"participantId", "participant_id", "userId", "user_id"}
	shareAmountKeys   = []string{"shareAmount", "share_amount", "amount", "owed_amount"}
	isPaidKeys        = []string{"isPaid", "is_paid", "paid"}
	paidAtKeys        = []string{"paidAt", "paid_at"}
)

// Record is the outcome of mapping one exported row.
type Record struct {
	Index   int
	Expense models.Expense
	Err     error
}

type row map[string]json.RawMessage

// DecodeExpenses reads an export and returns every expense, failing on the
// first record that cannot be mapped.
func DecodeExpenses(r io.Reader) ([]models.Expense, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	records, err := ParseExpenses(data)
	if err != nil {
		return nil, err
	}

	expenses := make([]models.Expense, 0, len(records))
	for _, rec := range records {
		if rec.Err != nil {
			return nil, rec.Err
		}
		expenses = append(expenses, rec.Expense)
	}
	return expenses, nil
}

// ParseExpenses maps every row of an export independently. The export is
// either a JSON array of rows or an object with an "expenses" array. Only a
// malformed document is reported as an error; per-row problems are carried in
// each Record.
func ParseExpenses(data []byte) ([]Record, error) {
	rows, err := splitRows(data)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(rows))
	for i, r := range rows {
		records[i].Index = i
		exp, err := toExpense(r)
		if err != nil {
			records[i].Err = fmt.Errorf("record %d: %w", i, err)
			continue
		}
		records[i].Expense = exp
	}
	return records, nil
}

func splitRows(data []byte) ([]row, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var rows []row
	if data[0] == '{' {
		var envelope struct {
			Expenses []row `json:"expenses"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode export: %w", err)
		}
		return envelope.Expenses, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return rows, nil
}

func toExpense(r row) (models.Expense, error) {
	var exp models.Expense
	var err error

	if exp.ID, err = r.str(expenseIDKeys); err != nil {
		return exp, err
	}
	if exp.ID == "" {
		return exp, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if exp.ClubID, err = r.str(clubIDKeys); err != nil {
		return exp, err
	}
	if exp.EventID, err = r.str(eventIDKeys); err != nil {
		return exp, err
	}
	if exp.Title, err = r.str(titleKeys); err != nil {
		return exp, err
	}
	if exp.Description, err = r.str(descriptionKeys); err != nil {
		return exp, err
	}
	if exp.Amount, err = r.amount(amountKeys); err != nil {
		return exp, err
	}
	if exp.PayerID, err = r.str(payerKeys); err != nil {
		return exp, err
	}
	if exp.CreatedBy, err = r.str(createdByKeys); err != nil {
		return exp, err
	}
	if exp.CreatedAt, err = r.timestamp(createdAtKeys); err != nil {
		return exp, err
	}
	if exp.UpdatedAt, err = r.timestamp(updatedAtKeys); err != nil {
		return exp, err
	}

	status, err := r.str(statusKeys)
	if err != nil {
		return exp, err
	}
	if status == "" {
		exp.Status = models.StatusDraft
	} else if exp.Status, err = models.ParseExpenseStatus(strings.ToLower(status)); err != nil {
		return exp, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	raw, key := r.lookup(participantsKeys)
	if raw != nil {
		var parts []row
		if err := json.Unmarshal(raw, &parts); err != nil {
			return exp, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, key, err)
		}
		for i, p := range parts {
			share, err := toShare(p)
			if err != nil {
				return exp, fmt.Errorf("participant %d: %w", i, err)
			}
			exp.Participants = append(exp.Participants, share)
		}
	}

	return exp, nil
}

func toShare(r row) (models.ParticipantShare, error) {
	var s models.ParticipantShare
	var err error

	if s.ParticipantID, err = r.str(participantIDKeys); err != nil {
		return s, err
	}
	if s.ParticipantID == "" {
		return s, fmt.Errorf("%w: missing participant id", ErrInvalidRecord)
	}
	if s.ShareAmount, err = r.amount(shareAmountKeys); err != nil {
		return s, err
	}
	if s.IsPaid, err = r.boolean(isPaidKeys); err != nil {
		return s, err
	}
	if s.PaidAt, err = r.timestamp(paidAtKeys); err != nil {
		return s, err
	}
	return s, nil
}

// lookup returns the first non-null value among keys.
func (r row) lookup(keys []string) (json.RawMessage, string) {
	for _, k := range keys {
		if v, ok := r[k]; ok && !isNull(v) {
			return v, k
		}
	}
	return nil, ""
}

func (r row) str(keys []string) (string, error) {
	raw, key := r.lookup(keys)
	if raw == nil {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	// Integer primary keys are accepted and kept in their decimal form.
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: %s is not a string", ErrInvalidRecord, key)
}

func (r row) amount(keys []string) (float64, error) {
	raw, key := r.lookup(keys)
	if raw == nil {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, key, err)
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidRecord, key)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidRecord, key)
	}
	return d.InexactFloat64(), nil
}

func (r row) boolean(keys []string) (bool, error) {
	raw, key := r.lookup(keys)
	if raw == nil {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseBool(s); err == nil {
			return v, nil
		}
	}
	return false, fmt.Errorf("%w: %s is not a boolean", ErrInvalidRecord, key)
}

// timestamp accepts Unix seconds or an RFC 3339 string.
func (r row) timestamp(keys []string) (int64, error) {
	raw, key := r.lookup(keys)
	if raw == nil {
		return 0, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("%w: %s is not a timestamp", ErrInvalidRecord, key)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
