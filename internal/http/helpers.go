package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/stats"
)

// parseFilter extracts the from/to/paid_by listing filter from query or form
// values. Empty values mean unbounded; bad dates are an error so a typo never
// silently widens the range.
func parseFilter(values url.Values) (ledger.Filter, error) {
	var f ledger.Filter

	if v := strings.TrimSpace(values.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("parse from date %q: %w", v, err)
		}
		f.From = d
	}
	if v := strings.TrimSpace(values.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("parse to date %q: %w", v, err)
		}
		f.To = d
	}
	for _, p := range values["paid_by"] {
		p = strings.TrimSpace(sanitizeInput(p))
		if p != "" {
			f.PaidBy = append(f.PaidBy, p)
		}
	}

	return f, nil
}

// filterKey renders a filter as a cache key. Payers are sorted so the same
// selection always hits the same entry.
func filterKey(f ledger.Filter) string {
	payers := append([]string(nil), f.PaidBy...)
	sort.Strings(payers)

	var b strings.Builder
	if !f.From.IsZero() {
		b.WriteString(f.From.ISO())
	}
	b.WriteByte('|')
	if !f.To.IsZero() {
		b.WriteString(f.To.ISO())
	}
	for _, p := range payers {
		b.WriteByte('|')
		b.WriteString(p)
	}
	return b.String()
}

// listExpenses returns the filtered rows, served from cache when possible.
func (s *Server) listExpenses(ctx context.Context, f ledger.Filter) ([]core.Expense, error) {
	key := filterKey(f)
	if items, found := s.listCache.Get(key); found {
		result := make([]core.Expense, len(items))
		copy(result, items)
		return result, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	items, err := s.ledger.ListExpenses(cctx, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	s.listCache.Set(key, items)
	return items, nil
}

// pivotTable returns the date × payer aggregate for a filter, cached.
func (s *Server) pivotTable(ctx context.Context, f ledger.Filter) (*stats.Table, error) {
	key := filterKey(f)
	if t, found := s.pivotCache.Get(key); found {
		return t, nil
	}

	items, err := s.listExpenses(ctx, f)
	if err != nil {
		return nil, err
	}

	t := stats.Pivot(items, f.From, f.To)
	s.pivotCache.Set(key, t)
	return t, nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	return core.ParseDate(dateStr)
}

// formatEuros formats cents as a Euro currency string (e.g., "€12,34").
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
