package payments

import (
	"context"
	"fmt"

	"github.com/alovak/cardpay/internal/expiry"
	"github.com/alovak/cardpay/payments/models"
	"github.com/google/uuid"
)

type Service struct {
	repo *Repository
	cfg  *Config
}

func NewService(repo *Repository, cfg *Config) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *Service) CreateAccount(ctx context.Context, req models.CreateAccount) (*models.Account, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("account limit must not be negative")
	}

	account := &models.Account{
		ID:    uuid.New().String(),
		Limit: req.Limit,
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("finding account: %w", err)
	}

	return account, nil
}

func (s *Service) CreateCard(ctx context.Context, accountID string, req models.CreateCard) (*models.Card, error) {
	if req.Number == "" {
		return nil, fmt.Errorf("card number is required")
	}
	if _, err := expiry.ParseDate(req.ExpiryDate); err != nil {
		return nil, fmt.Errorf("parsing expiry date: %w", err)
	}
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, fmt.Errorf("finding account: %w", err)
	}

	card := &models.Card{
		ID:             uuid.New().String(),
		AccountID:      accountID,
		Number:         req.Number,
		CardholderName: req.CardholderName,
		Type:           req.Type,
		ExpiryDate:     req.ExpiryDate,
	}

	if err := s.repo.CreateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}

	return card, nil
}

// ProcessPayment charges the card with the fee-inclusive total for the given
// base amount, declining on unknown card, expired card, unknown account or an
// exceeded account limit. The whole decision runs in one storage unit of work.
func (s *Service) ProcessPayment(ctx context.Context, amount float64, cardNumber, merchantType string) (*models.Authorization, error) {
	if amount < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}

	auth, err := s.repo.AuthorizePayment(ctx, models.PaymentRequest{
		Amount:       amount,
		CardNumber:   cardNumber,
		MerchantType: merchantType,
	})
	if err != nil {
		return nil, fmt.Errorf("authorizing payment: %w", err)
	}

	return auth, nil
}

// History lists transactions across every card of the account owning the
// given card number. Bounds are optional YYYY-MM-DD dates, both inclusive.
func (s *Service) History(ctx context.Context, cardNumber, startDate, endDate string) ([]*models.HistoryEntry, error) {
	start, err := expiry.ParseBound(startDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start date: %w", err)
	}
	end, err := expiry.ParseBound(endDate)
	if err != nil {
		return nil, fmt.Errorf("parsing end date: %w", err)
	}

	entries, err := s.repo.ListAccountHistory(ctx, cardNumber, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	return entries, nil
}
