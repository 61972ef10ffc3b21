package models

// Account groups cards under one spending limit. The limit caps the
// cumulative fee-inclusive amount charged across the account's cards.
type Account struct {
	ID    string  `json:"id"`
	Limit float64 `json:"limit"`
}

type CreateAccount struct {
	Limit float64 `json:"limit"`
}
