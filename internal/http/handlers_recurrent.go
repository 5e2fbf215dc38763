package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"conti/internal/core"
)

func (s *Server) handleRecurringPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	templates, err := s.ledger.ListRecurring(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurring expenses", "error", err)
		InternalServerError("Errore caricando le spese ricorrenti").Write(w)
		return
	}

	type recurringRow struct {
		ID        int64
		StartDate string
		EndDate   string
		Every     string
		PaidBy    string
		Amount    string
		Comment   string
		LastRun   string
	}

	data := struct {
		Rows []recurringRow
	}{}
	for _, re := range templates {
		row := recurringRow{
			ID:        re.ID,
			StartDate: re.StartDate.ISO(),
			Every:     string(re.Every),
			PaidBy:    re.PaidBy,
			Amount:    formatEuros(re.Amount.Cents),
			Comment:   re.Comment,
		}
		if !re.EndDate.IsZero() {
			row.EndDate = re.EndDate.ISO()
		}
		if !re.LastExecution.IsZero() {
			row.LastRun = re.LastExecution.ISO()
		}
		data.Rows = append(data.Rows, row)
	}

	if err := s.templates.ExecuteTemplate(w, "recurring.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", "recurring.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	startDate, err := parseDate(r.Form.Get("start_date"))
	if err != nil {
		UnprocessableEntityError("Data inizio non valida").Write(w)
		return
	}

	var endDate core.Date
	if v := strings.TrimSpace(r.Form.Get("end_date")); v != "" {
		endDate, err = parseDate(v)
		if err != nil {
			UnprocessableEntityError("Data fine non valida").Write(w)
			return
		}
	}

	cents, err := core.ParseDecimalToCents(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Importo non valido").Write(w)
		return
	}

	re := core.RecurringExpense{
		StartDate: startDate,
		EndDate:   endDate,
		Every:     core.RepetitionTypes(r.Form.Get("every")),
		PaidBy:    sanitizeInput(r.Form.Get("paid_by")),
		Amount:    core.Money{Cents: cents},
		Comment:   sanitizeInput(r.Form.Get("comment")),
	}
	if err := re.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	id, err := s.ledger.CreateRecurring(r.Context(), re)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create recurring expense", "error", err)
		InternalServerError("Errore nel salvare la spesa ricorrente").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Recurring expense created",
		"recurring_id", id,
		"paid_by", re.PaidBy,
		"every", string(re.Every))

	successMsg := fmt.Sprintf("Spesa ricorrente creata: %s ogni %s", re.PaidBy, re.Every)
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerFormReset().
		TriggerLedgerRefresh().
		TriggerSuccessNotification(successMsg).
		Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Formato richiesta non valido").Write(w)
		return
	}
	id, ok := parser.GetID()
	if !ok {
		BadRequestError("ID non valido").Write(w)
		return
	}

	if err := s.ledger.DeleteRecurring(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete recurring expense", "error", err, "recurring_id", id)
		InternalServerError("Errore nell'eliminazione").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Recurring expense deleted", "recurring_id", id)

	NewHTMXResponse().
		TriggerLedgerRefresh().
		TriggerSuccessNotification("Spesa ricorrente eliminata").
		Write(w)
}
