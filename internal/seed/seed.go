// Package seed fills a ledger with plausible demo data so charts have
// something to show on a fresh install.
package seed

import (
	"context"
	"fmt"
	"math/rand"

	"conti/internal/core"
	"conti/internal/ledger"
)

// Defaults mirror the demo dataset: three roommates, three years of history.
var (
	DefaultPayers = []string{"Alice", "Bob", "Chuck"}

	comments = []string{
		"groceries 🛒",
		"pizza night 🍕",
		"cleaning supplies",
		"internet bill",
		"beers 🍻",
		"toilet paper",
		"electricity",
		"takeout 🥡",
		"light bulbs",
		"",
	}
)

type Options struct {
	Rows     int
	Payers   []string
	From     core.Date
	To       core.Date
	MinCents int64
	MaxCents int64
	Rand     *rand.Rand
}

func DefaultOptions() Options {
	return Options{
		Rows:     200,
		Payers:   DefaultPayers,
		From:     core.NewDate(2020, 1, 1),
		To:       core.NewDate(2022, 12, 31),
		MinCents: 50,
		MaxCents: 10000,
	}
}

// Run inserts opts.Rows random expenses through the given creator. Returns
// how many rows were inserted.
func Run(ctx context.Context, creator ledger.ExpenseCreator, opts Options) (int, error) {
	if opts.Rows <= 0 {
		return 0, fmt.Errorf("rows must be positive, got %d", opts.Rows)
	}
	if len(opts.Payers) == 0 {
		opts.Payers = DefaultPayers
	}
	if opts.MaxCents < opts.MinCents {
		return 0, fmt.Errorf("max cents %d below min cents %d", opts.MaxCents, opts.MinCents)
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(42))
	}

	days := int(opts.To.Sub(opts.From.Time).Hours()/24) + 1
	if days < 1 {
		return 0, fmt.Errorf("date range %s..%s is empty", opts.From.ISO(), opts.To.ISO())
	}

	inserted := 0
	for i := 0; i < opts.Rows; i++ {
		day := opts.From.AddDate(0, 0, rng.Intn(days))
		e := core.Expense{
			Date:    core.Date{Time: day},
			PaidBy:  opts.Payers[rng.Intn(len(opts.Payers))],
			Amount:  core.Money{Cents: opts.MinCents + rng.Int63n(opts.MaxCents-opts.MinCents+1)},
			Comment: comments[rng.Intn(len(comments))],
		}
		if _, err := creator.CreateExpense(ctx, e); err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i+1, err)
		}
		inserted++
	}
	return inserted, nil
}
