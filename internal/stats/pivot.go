// Package stats reshapes raw expense rows into the date × payer aggregates
// behind the spending charts: pivot table, cumulative sums, rolling windows
// and percentage-of-spend series.
package stats

import (
	"sort"

	"conti/internal/core"
)

// Table is a pivot of expense rows into a date × payer grid of summed cents.
// Rows cover every calendar day of the range so charts show gaps as zeros;
// columns are payer names sorted alphabetically.
type Table struct {
	Days   []core.Date
	Payers []string
	cells  [][]int64 // [day][payer]
	index  map[string]int
}

// Pivot builds a Table from expenses. When from or to is zero the bound is
// derived from the data. Expenses outside [from, to] are ignored. An empty
// input yields an empty table.
func Pivot(expenses []core.Expense, from, to core.Date) *Table {
	inRange := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !from.IsZero() && e.Date.Time.Before(from.Time) {
			continue
		}
		if !to.IsZero() && e.Date.Time.After(to.Time) {
			continue
		}
		inRange = append(inRange, e)
	}

	if from.IsZero() || to.IsZero() {
		for _, e := range inRange {
			if from.IsZero() || e.Date.Time.Before(from.Time) {
				from = e.Date
			}
			if to.IsZero() || e.Date.Time.After(to.Time) {
				to = e.Date
			}
		}
	}

	t := &Table{index: make(map[string]int)}
	if from.IsZero() || to.IsZero() || to.Time.Before(from.Time) {
		return t
	}

	payerSet := make(map[string]struct{})
	for _, e := range inRange {
		payerSet[e.PaidBy] = struct{}{}
	}
	t.Payers = make([]string, 0, len(payerSet))
	for p := range payerSet {
		t.Payers = append(t.Payers, p)
	}
	sort.Strings(t.Payers)
	for i, p := range t.Payers {
		t.index[p] = i
	}

	// Fill in every day in the range so the charts show gaps as zeros
	for day := from.Time; !day.After(to.Time); day = day.AddDate(0, 0, 1) {
		t.Days = append(t.Days, core.Date{Time: day})
		t.cells = append(t.cells, make([]int64, len(t.Payers)))
	}

	dayIdx := make(map[string]int, len(t.Days))
	for i, d := range t.Days {
		dayIdx[d.ISO()] = i
	}
	for _, e := range inRange {
		row, ok := dayIdx[e.Date.ISO()]
		if !ok {
			continue
		}
		t.cells[row][t.index[e.PaidBy]] += e.Amount.Cents
	}

	return t
}

// Cell returns the summed cents for a day index and payer name.
func (t *Table) Cell(day int, payer string) int64 {
	col, ok := t.index[payer]
	if !ok || day < 0 || day >= len(t.cells) {
		return 0
	}
	return t.cells[day][col]
}

// Series returns the per-day cents for one payer, zero-filled over the range.
func (t *Table) Series(payer string) []int64 {
	col, ok := t.index[payer]
	if !ok {
		return make([]int64, len(t.Days))
	}
	out := make([]int64, len(t.Days))
	for i, row := range t.cells {
		out[i] = row[col]
	}
	return out
}

// DayTotals returns the per-day sum across all payers (the "All" column).
func (t *Table) DayTotals() []int64 {
	out := make([]int64, len(t.cells))
	for i, row := range t.cells {
		for _, c := range row {
			out[i] += c
		}
	}
	return out
}

// Total returns the grand total of the table in cents.
func (t *Table) Total() int64 {
	var total int64
	for _, row := range t.cells {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// TotalsByPayer returns the summed spend per payer, sorted by payer name.
func (t *Table) TotalsByPayer() []core.PayerAmount {
	out := make([]core.PayerAmount, len(t.Payers))
	for i, p := range t.Payers {
		var sum int64
		for _, row := range t.cells {
			sum += row[i]
		}
		out[i] = core.PayerAmount{Name: p, Amount: core.Money{Cents: sum}}
	}
	return out
}
