package models

import "time"

// Transaction is one recorded charge. Amounts are fee-inclusive and rows are
// append-only; nothing in the service updates or deletes them.
type Transaction struct {
	ID           string    `json:"id"`
	CardID       string    `json:"card_id"`
	MerchantType string    `json:"merchant_type"`
	Time         time.Time `json:"time"`
	Amount       float64   `json:"amount"`
}

// HistoryEntry is one row of account-wide history: a transaction joined with
// the number of the card it was charged on.
type HistoryEntry struct {
	Time         time.Time `json:"time"`
	Amount       float64   `json:"amount"`
	MerchantType string    `json:"merchant_type"`
	CardNumber   string    `json:"card_number"`
}
