package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"conti/internal/core"
	"conti/internal/storage"
)

// expenseFromForm builds an Expense from the submitted form fields. The ID is
// left zero; update handlers set it afterwards.
func expenseFromForm(r *http.Request) (core.Expense, *HTMXResponseBuilder) {
	date, err := parseDate(r.Form.Get("date"))
	if err != nil {
		return core.Expense{}, UnprocessableEntityError("Data non valida")
	}

	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		if errors.Is(err, core.ErrNegativeAmount) {
			return core.Expense{}, UnprocessableEntityError("L'importo non può essere negativo")
		}
		return core.Expense{}, UnprocessableEntityError("Importo non valido")
	}

	e := core.Expense{
		Date:    date,
		PaidBy:  sanitizeInput(r.Form.Get("paid_by")),
		Amount:  core.Money{Cents: cents},
		Comment: sanitizeInput(r.Form.Get("comment")),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, UnprocessableEntityError("Dati non validi: " + err.Error())
	}
	return e, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	e, errResp := expenseFromForm(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	id, err := s.ledger.CreateExpense(r.Context(), e)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save expense",
			"error", err,
			"paid_by", e.PaidBy,
			"price_cents", e.Amount.Cents,
			"purchased_date", e.Date.ISO())
		InternalServerError("Errore nel salvataggio").Write(w)
		return
	}

	s.invalidateCaches()

	slog.InfoContext(r.Context(), "Expense created",
		"expense_id", id,
		"paid_by", e.PaidBy,
		"price_cents", e.Amount.Cents,
		"purchased_date", e.Date.ISO())

	successMsg := fmt.Sprintf("Spesa registrata: %s, %s", e.PaidBy, formatEuros(e.Amount.Cents))
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerExpenseCreated(id).
		TriggerFormReset().
		TriggerLedgerRefresh().
		TriggerSuccessNotification(successMsg).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPut, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		BadRequestError("ID non valido").Write(w)
		return
	}

	e, errResp := expenseFromForm(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	e.ID = id

	if err := s.ledger.UpdateExpense(r.Context(), e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Spesa non trovata").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update expense", "error", err, "expense_id", id)
		InternalServerError("Errore nell'aggiornamento").Write(w)
		return
	}

	s.invalidateCaches()

	slog.InfoContext(r.Context(), "Expense updated",
		"expense_id", id,
		"paid_by", e.PaidBy,
		"price_cents", e.Amount.Cents,
		"purchased_date", e.Date.ISO())

	NewHTMXResponse().
		TriggerExpenseUpdated(id).
		TriggerLedgerRefresh().
		TriggerSuccessNotification("Spesa aggiornata").
		Write(w)
}

// handleDeleteExpense removes a row. The ID may arrive as JSON, form body or
// query parameter depending on how htmx issued the request. Deleting a row
// that is already gone still succeeds.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	var id int64
	if v := strings.TrimSpace(r.URL.Query().Get("id")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			BadRequestError("ID non valido").Write(w)
			return
		}
		id = parsed
	} else {
		parser := NewRequestBodyParser(r)
		if err := parser.Parse(); err != nil {
			BadRequestError("Formato richiesta non valido").Write(w)
			return
		}
		parsed, ok := parser.GetID()
		if !ok {
			BadRequestError("ID non valido").Write(w)
			return
		}
		id = parsed
	}

	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete expense", "error", err, "expense_id", id)
		InternalServerError("Errore nell'eliminazione").Write(w)
		return
	}

	s.invalidateCaches()

	slog.InfoContext(r.Context(), "Expense deleted", "expense_id", id)

	NewHTMXResponse().
		TriggerExpenseDeleted(id).
		TriggerLedgerRefresh().
		TriggerSuccessNotification("Spesa eliminata").
		Write(w)
}

// handleExpenseTable renders the filtered expense table partial.
func (s *Server) handleExpenseTable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		BadRequestError("Intervallo date non valido").Write(w)
		return
	}

	items, err := s.listExpenses(r.Context(), f)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses error", "error", err)
		_, _ = w.Write([]byte(`<div class="placeholder">Errore caricando le spese</div>`))
		return
	}

	type tableRow struct {
		ID      int64
		Date    string
		PaidBy  string
		Amount  string
		Comment string
	}
	data := struct {
		Rows  []tableRow
		Total string
		Count int
	}{Count: len(items)}

	var total int64
	for _, e := range items {
		total += e.Amount.Cents
		data.Rows = append(data.Rows, tableRow{
			ID:      e.ID,
			Date:    e.Date.ISO(),
			PaidBy:  e.PaidBy,
			Amount:  formatEuros(e.Amount.Cents),
			Comment: e.Comment,
		})
	}
	data.Total = formatEuros(total)

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">Totale: ` + data.Total + `</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "expense_table.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "expense_table.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Errore rendering tabella</div>`))
	}
}

// handleExpenseEditForm renders the inline edit form for one row.
func (s *Server) handleExpenseEditForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	if err != nil || id <= 0 {
		BadRequestError("ID non valido").Write(w)
		return
	}

	e, err := s.ledger.GetExpense(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Spesa non trovata").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Get expense error", "error", err, "expense_id", id)
		InternalServerError("Errore caricando la spesa").Write(w)
		return
	}

	data := struct {
		ID      int64
		Date    string
		PaidBy  string
		Amount  string
		Comment string
	}{
		ID:      e.ID,
		Date:    e.Date.ISO(),
		PaidBy:  e.PaidBy,
		Amount:  strconv.FormatFloat(e.Amount.Euros(), 'f', 2, 64),
		Comment: e.Comment,
	}

	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "expense_edit.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "expense_edit.html")
		InternalServerError("Errore rendering form").Write(w)
	}
}
