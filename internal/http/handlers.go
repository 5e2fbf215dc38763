package http

import (
	"log/slog"
	"net/http"
	"time"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	purchasers, err := s.ledger.ListPurchasers(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Purchasers list error", "error", err)
	}

	data := struct {
		Today      string
		Purchasers []string
	}{
		Today:      time.Now().Format("2006-01-02"),
		Purchasers: purchasers,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleChartsPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	purchasers, err := s.ledger.ListPurchasers(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Purchasers list error", "error", err)
	}

	data := struct {
		Purchasers []string
	}{Purchasers: purchasers}

	if err := s.templates.ExecuteTemplate(w, "charts.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Charts template execution failed", "error", err, "template", "charts.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleBalancePage renders per-payer totals, their share of the whole, and
// the net position against an equal split.
func (s *Server) handleBalancePage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		BadRequestError("Intervallo date non valido").Write(w)
		return
	}

	totals, err := s.ledger.SumByPayer(r.Context(), f.From, f.To)
	if err != nil {
		slog.ErrorContext(r.Context(), "Balance totals error", "error", err)
		InternalServerError("Errore caricando il bilancio").Write(w)
		return
	}

	var grandTotal int64
	for _, t := range totals {
		grandTotal += t.Amount.Cents
	}

	type balanceRow struct {
		Name    string
		Paid    string
		Share   float64
		Net     string
		Settled bool
	}

	data := struct {
		From  string
		To    string
		Total string
		Rows  []balanceRow
	}{Total: formatEuros(grandTotal)}
	if !f.From.IsZero() {
		data.From = f.From.ISO()
	}
	if !f.To.IsZero() {
		data.To = f.To.ISO()
	}

	// Equal split across everyone who ever paid. Rounding remainders stay
	// within len(totals)-1 cents and are left as-is.
	var fairShare int64
	if len(totals) > 0 {
		fairShare = grandTotal / int64(len(totals))
	}
	for _, t := range totals {
		var share float64
		if grandTotal > 0 {
			share = float64(t.Amount.Cents) / float64(grandTotal) * 100
		}
		net := t.Amount.Cents - fairShare
		data.Rows = append(data.Rows, balanceRow{
			Name:    t.Name,
			Paid:    formatEuros(t.Amount.Cents),
			Share:   share,
			Net:     formatEuros(net),
			Settled: net == 0,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "balance.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Balance template execution failed", "error", err, "template", "balance.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
