package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"conti/internal/stats"
)

const (
	rollingSumWindow = 7
	rollingMaxWindow = 30
)

// chartSeries is one line in a chart, values in euros (or percent for the
// share endpoint).
type chartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// chartPayload feeds the client-side chart rendering: one label per calendar
// day, one series per payer plus the "Totale" line where it makes sense.
type chartPayload struct {
	Labels []string      `json:"labels"`
	Series []chartSeries `json:"series"`
}

func centsToEuros(values []int64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v) / 100
	}
	return out
}

func dayLabels(t *stats.Table) []string {
	out := make([]string, len(t.Days))
	for i, d := range t.Days {
		out[i] = d.ISO()
	}
	return out
}

func (s *Server) writeChartJSON(w http.ResponseWriter, r *http.Request, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.ErrorContext(r.Context(), "Chart JSON encode error", "error", err, "url", r.URL.Path)
	}
}

// chartTable resolves the filter and returns the cached pivot, writing the
// error response itself on failure.
func (s *Server) chartTable(w http.ResponseWriter, r *http.Request) (*stats.Table, bool) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, `{"error":"invalid date range"}`, http.StatusBadRequest)
		return nil, false
	}

	t, err := s.pivotTable(r.Context(), f)
	if err != nil {
		slog.ErrorContext(r.Context(), "Pivot error", "error", err, "url", r.URL.Path)
		http.Error(w, `{"error":"aggregation failed"}`, http.StatusInternalServerError)
		return nil, false
	}
	return t, true
}

// handleChartTotals returns the summed spend per payer over the range.
func (s *Server) handleChartTotals(w http.ResponseWriter, r *http.Request) {
	t, ok := s.chartTable(w, r)
	if !ok {
		return
	}

	type totalEntry struct {
		Name  string  `json:"name"`
		Euros float64 `json:"euros"`
	}
	payload := struct {
		Totals []totalEntry `json:"totals"`
		Total  float64      `json:"total"`
	}{Totals: []totalEntry{}}

	for _, pa := range t.TotalsByPayer() {
		payload.Totals = append(payload.Totals, totalEntry{Name: pa.Name, Euros: pa.Amount.Euros()})
	}
	payload.Total = float64(t.Total()) / 100

	s.writeChartJSON(w, r, payload)
}

// handleChartDaily returns the per-day spend per payer, zeros on quiet days.
func (s *Server) handleChartDaily(w http.ResponseWriter, r *http.Request) {
	t, ok := s.chartTable(w, r)
	if !ok {
		return
	}

	payload := chartPayload{Labels: dayLabels(t), Series: []chartSeries{}}
	for _, series := range t.DailyByPayer() {
		payload.Series = append(payload.Series, chartSeries{Name: series.Payer, Values: centsToEuros(series.Values)})
	}
	payload.Series = append(payload.Series, chartSeries{Name: "Totale", Values: centsToEuros(t.DayTotals())})

	s.writeChartJSON(w, r, payload)
}

// handleChartCumulative returns the running total per payer over time.
func (s *Server) handleChartCumulative(w http.ResponseWriter, r *http.Request) {
	t, ok := s.chartTable(w, r)
	if !ok {
		return
	}

	payload := chartPayload{Labels: dayLabels(t), Series: []chartSeries{}}
	for _, series := range t.CumulativeByPayer() {
		payload.Series = append(payload.Series, chartSeries{Name: series.Payer, Values: centsToEuros(series.Values)})
	}
	payload.Series = append(payload.Series, chartSeries{Name: "Totale", Values: centsToEuros(stats.CumulativeSum(t.DayTotals()))})

	s.writeChartJSON(w, r, payload)
}

// handleChartRollingSum returns the trailing 7-day spend per payer.
func (s *Server) handleChartRollingSum(w http.ResponseWriter, r *http.Request) {
	t, ok := s.chartTable(w, r)
	if !ok {
		return
	}

	payload := chartPayload{Labels: dayLabels(t), Series: []chartSeries{}}
	for _, series := range t.RollingSumByPayer(rollingSumWindow) {
		payload.Series = append(payload.Series, chartSeries{Name: series.Payer, Values: centsToEuros(series.Values)})
	}
	payload.Series = append(payload.Series, chartSeries{Name: "Totale", Values: centsToEuros(stats.RollingSum(t.DayTotals(), rollingSumWindow))})

	s.writeChartJSON(w, r, payload)
}

// handleChartRollingMax returns the trailing 30-day daily maximum per payer.
func (s *Server) handleChartRollingMax(w http.ResponseWriter, r *http.Request) {
	t, ok := s.chartTable(w, r)
	if !ok {
		return
	}

	payload := chartPayload{Labels: dayLabels(t), Series: []chartSeries{}}
	for _, series := range t.RollingMaxByPayer(rollingMaxWindow) {
		payload.Series = append(payload.Series, chartSeries{Name: series.Payer, Values: centsToEuros(series.Values)})
	}
	payload.Series = append(payload.Series, chartSeries{Name: "Totale", Values: centsToEuros(stats.RollingMax(t.DayTotals(), rollingMaxWindow))})

	s.writeChartJSON(w, r, payload)
}

// handleChartShare returns each payer's cumulative share of the total spend
// as a percentage over time.
func (s *Server) handleChartShare(w http.ResponseWriter, r *http.Request) {
	t, ok := s.chartTable(w, r)
	if !ok {
		return
	}

	payload := chartPayload{Labels: dayLabels(t), Series: []chartSeries{}}
	for _, series := range t.ShareOfSpend() {
		payload.Series = append(payload.Series, chartSeries{Name: series.Payer, Values: series.Values})
	}

	s.writeChartJSON(w, r, payload)
}
