package core

// PayerAmount represents an amount aggregated by payer name.
type PayerAmount struct {
	Name   string
	Amount Money
}

// RangeSummary is a compact summary of spending over an inclusive date range.
type RangeSummary struct {
	From    Date
	To      Date
	Total   Money
	ByPayer []PayerAmount
}
