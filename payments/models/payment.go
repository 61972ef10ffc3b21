package models

// PaymentRequest asks to charge an amount against the card identified by its
// number at a merchant of the given category.
type PaymentRequest struct {
	Amount       float64 `json:"amount"`
	CardNumber   string  `json:"card_number"`
	MerchantType string  `json:"merchant_type"`
}

type DeclineReason string

const (
	DeclineCardNotFound    DeclineReason = "card not found"
	DeclineCardExpired     DeclineReason = "card expired"
	DeclineAccountNotFound DeclineReason = "account not found"
	DeclineLimitExceeded   DeclineReason = "limit exceeded"
)

// Authorization is the outcome of a payment: approved with the fee-inclusive
// total that was recorded, or declined with a reason.
type Authorization struct {
	Approved      bool          `json:"approved"`
	Reason        DeclineReason `json:"reason,omitempty"`
	TotalAmount   float64       `json:"total_amount,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
}
