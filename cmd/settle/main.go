// Command settle reads an expense export and prints balances, debts and the
// suggested transfers that settle a club.
//
// Usage:
//
//	settle [-club ID] [-event ID] [-format text|json|yaml] [export.json]
//
// The export is read from stdin when no file is given.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/clubsplit/internal/calculator"
	"github.com/mmynk/clubsplit/internal/ingest"
	"github.com/mmynk/clubsplit/internal/models"
	"github.com/mmynk/clubsplit/internal/storage/memory"
	"github.com/mmynk/clubsplit/pkg/logging"
)

func main() {
	logging.Setup()
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "settle:", err)
		os.Exit(1)
	}
}

type options struct {
	club   string
	event  string
	format string
	input  string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("settle", flag.ContinueOnError)
	fs.StringVar(&opts.club, "club", "", "club to report on (required when the export spans several clubs)")
	fs.StringVar(&opts.event, "event", "", "only include expenses of this event")
	fs.StringVar(&opts.format, "format", "text", "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 1 {
		return opts, errors.New("at most one export file")
	}
	opts.input = fs.Arg(0)
	switch opts.format {
	case "text", "json", "yaml":
	default:
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	in := stdin
	if opts.input != "" && opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	expenses, err := ingest.DecodeExpenses(in)
	if err != nil {
		return err
	}

	store := memory.New()
	clubs := make(map[string]bool)
	for i := range expenses {
		if err := store.CreateExpense(ctx, &expenses[i]); err != nil {
			return err
		}
		clubs[expenses[i].ClubID] = true
	}

	club := opts.club
	if club == "" {
		if len(clubs) > 1 {
			return fmt.Errorf("export spans %d clubs; pass -club", len(clubs))
		}
		for c := range clubs {
			club = c
		}
	}

	listed, err := store.ListExpensesByClub(ctx, club, opts.event)
	if err != nil {
		return err
	}
	slog.Debug("Loaded export", "records", len(expenses), "club", club, "event", opts.event, "selected", len(listed))

	rep := buildReport(club, opts.event, listed)
	switch opts.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(stdout, rep)
	}
}

type report struct {
	Club      string          `json:"club" yaml:"club"`
	Event     string          `json:"event,omitempty" yaml:"event,omitempty"`
	Expenses  int             `json:"expenses" yaml:"expenses"`
	Invalid   []invalidEntry  `json:"invalid,omitempty" yaml:"invalid,omitempty"`
	Balances  []balanceEntry  `json:"balances" yaml:"balances"`
	Debts     []debtEntry     `json:"debts" yaml:"debts"`
	Transfers []transferEntry `json:"transfers" yaml:"transfers"`
}

type invalidEntry struct {
	ExpenseID string   `json:"expense_id" yaml:"expense_id"`
	Errors    []string `json:"errors" yaml:"errors"`
}

type balanceEntry struct {
	ParticipantID string  `json:"participant_id" yaml:"participant_id"`
	TotalOwed     float64 `json:"total_owed" yaml:"total_owed"`
	TotalOwedTo   float64 `json:"total_owed_to" yaml:"total_owed_to"`
	NetBalance    float64 `json:"net_balance" yaml:"net_balance"`
}

type debtEntry struct {
	From      string  `json:"from" yaml:"from"`
	To        string  `json:"to" yaml:"to"`
	Amount    float64 `json:"amount" yaml:"amount"`
	ExpenseID string  `json:"expense_id" yaml:"expense_id"`
}

type transferEntry struct {
	From              string   `json:"from" yaml:"from"`
	To                string   `json:"to" yaml:"to"`
	Amount            float64  `json:"amount" yaml:"amount"`
	RelatedExpenseIDs []string `json:"related_expense_ids,omitempty" yaml:"related_expense_ids,omitempty"`
}

func buildReport(club, event string, expenses []models.Expense) report {
	outstanding := models.Outstanding(expenses)
	rep := report{
		Club:     club,
		Event:    event,
		Expenses: len(outstanding),
	}

	for _, exp := range outstanding {
		if res := calculator.ValidateExpenseIntegrity(exp); !res.IsValid {
			rep.Invalid = append(rep.Invalid, invalidEntry{ExpenseID: exp.ID, Errors: res.Errors})
		}
	}

	balances := calculator.CalculateBalances(outstanding)
	for _, b := range balances {
		rep.Balances = append(rep.Balances, balanceEntry{
			ParticipantID: b.ParticipantID,
			TotalOwed:     calculator.RoundCents(b.TotalOwed),
			TotalOwedTo:   calculator.RoundCents(b.TotalOwedTo),
			NetBalance:    calculator.RoundCents(b.NetBalance),
		})
	}

	debts := calculator.ExpensesToDebts(outstanding)
	for _, d := range debts {
		rep.Debts = append(rep.Debts, debtEntry{From: d.From, To: d.To, Amount: d.Amount, ExpenseID: d.ExpenseID})
	}

	transfers := calculator.RelatedExpenses(calculator.CalculateOptimalSettlements(balances), debts)
	for _, t := range transfers {
		rep.Transfers = append(rep.Transfers, transferEntry{
			From:              t.FromUserID,
			To:                t.ToUserID,
			Amount:            t.Amount,
			RelatedExpenseIDs: t.RelatedExpenseIDs,
		})
	}
	return rep
}

func writeText(w io.Writer, rep report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Club %s", rep.Club)
	if rep.Event != "" {
		fmt.Fprintf(tw, ", event %s", rep.Event)
	}
	fmt.Fprintf(tw, ": %d outstanding expenses\n", rep.Expenses)

	if len(rep.Invalid) > 0 {
		fmt.Fprintln(tw, "\nInvalid expenses:")
		sort.Slice(rep.Invalid, func(i, j int) bool { return rep.Invalid[i].ExpenseID < rep.Invalid[j].ExpenseID })
		for _, inv := range rep.Invalid {
			for _, msg := range inv.Errors {
				fmt.Fprintf(tw, "  %s\t%s\n", inv.ExpenseID, msg)
			}
		}
	}

	fmt.Fprintln(tw, "\nBalances:")
	fmt.Fprintln(tw, "  PARTICIPANT\tOWES\tOWED\tNET")
	for _, b := range rep.Balances {
		fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\t%+.2f\n", b.ParticipantID, b.TotalOwed, b.TotalOwedTo, b.NetBalance)
	}

	fmt.Fprintln(tw, "\nDebts:")
	for _, d := range rep.Debts {
		fmt.Fprintf(tw, "  %s -> %s\t%.2f\t%s\n", d.From, d.To, d.Amount, d.ExpenseID)
	}

	fmt.Fprintln(tw, "\nSuggested transfers:")
	if len(rep.Transfers) == 0 {
		fmt.Fprintln(tw, "  all settled")
	}
	for _, t := range rep.Transfers {
		fmt.Fprintf(tw, "  %s pays %s\t%.2f\t%v\n", t.From, t.To, t.Amount, t.RelatedExpenseIDs)
	}

	return tw.Flush()
}
