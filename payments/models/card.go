package models

type Card struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	Number         string `json:"number"`
	CardholderName string `json:"cardholder_name"`
	// Type is the issuing network, e.g. "Visa", "MasterCard" or "AMEX".
	Type string `json:"type"`
	// ExpiryDate is a YYYY-MM-DD date.
	ExpiryDate string `json:"expiry_date"`
}

type CreateCard struct {
	Number         string `json:"number"`
	CardholderName string `json:"cardholder_name"`
	Type           string `json:"type"`
	ExpiryDate     string `json:"expiry_date"`
}
