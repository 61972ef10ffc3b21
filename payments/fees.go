package payments

// Fee rates keyed by merchant category and issuing network. A category or
// network missing from its table contributes a zero fee; unknown values are
// accepted, not rejected.
var merchantFees = map[string]float64{
	"Supermarket": 0.01,
	"Restaurant":  0.05,
	"Leisure":     0.03,
}

var issuerFees = map[string]float64{
	"Visa":       0.03,
	"MasterCard": 0.02,
	"AMEX":       0.05,
}

// TotalAmount returns the charged amount for a base amount: the base plus the
// merchant fee and the issuer fee.
func TotalAmount(amount float64, merchantType, cardType string) float64 {
	return amount + amount*merchantFees[merchantType] + amount*issuerFees[cardType]
}
