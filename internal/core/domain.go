package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

const (
	// PayerMaxLen bounds the free-text roommate name.
	PayerMaxLen = 120
	// CommentMaxLen bounds the optional purchase note.
	CommentMaxLen = 140
)

type (
	RepetitionTypes string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is one recorded purchase in the shared house ledger.
	Expense struct {
		ID      int64 // Database ID, zero before insert
		Date    Date
		PaidBy  string
		Amount  Money
		Comment string
	}

	// RecurringExpense is a template (rent, internet) that a worker
	// materializes into ordinary Expense rows when due.
	RecurringExpense struct {
		ID            int64
		StartDate     Date
		EndDate       Date // zero value means open-ended
		Every         RepetitionTypes
		PaidBy        string
		Amount        Money
		Comment       string
		LastExecution Date // zero value means never executed
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrEmptyPayer     = errors.New("empty payer name")
	ErrPayerTooLong   = errors.New("payer name too long")
	ErrCommentTooLong = errors.New("comment too long")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO renders the date as YYYY-MM-DD, the storage and wire format.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.PaidBy)) == 0 {
		return ErrEmptyPayer
	}
	if len(e.PaidBy) > PayerMaxLen {
		return ErrPayerTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Comment) > CommentMaxLen {
		return ErrCommentTooLong
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if err := re.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return errors.New("invalid end date: " + err.Error())
		}
		if re.EndDate.Time.Before(re.StartDate.Time) {
			return errors.New("end date must not precede start date")
		}
	}

	switch re.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return errors.New("invalid repetition type")
	}

	if len(strings.TrimSpace(re.PaidBy)) == 0 {
		return ErrEmptyPayer
	}
	if len(re.PaidBy) > PayerMaxLen {
		return ErrPayerTooLong
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if len(re.Comment) > CommentMaxLen {
		return ErrCommentTooLong
	}
	return nil
}
