package payments_test

import (
	"context"
	"testing"
	"time"

	"github.com/alovak/cardpay/payments"
	"github.com/alovak/cardpay/payments/models"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*payments.Service, *payments.Repository) {
	t.Helper()
	repo := payments.NewRepository()
	return payments.NewService(repo, payments.DefaultConfig()), repo
}

func createTestAccount(t *testing.T, svc *payments.Service, limit float64) *models.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), models.CreateAccount{Limit: limit})
	require.NoError(t, err)
	return account
}

func createTestCard(t *testing.T, svc *payments.Service, accountID, number, cardType string) *models.Card {
	t.Helper()
	card, err := svc.CreateCard(context.Background(), accountID, models.CreateCard{
		Number:         number,
		CardholderName: "NAME EXAMPLE",
		Type:           cardType,
		ExpiryDate:     "2030-01-01",
	})
	require.NoError(t, err)
	return card
}

func TestProcessPayment_UnknownCardDeclines(t *testing.T) {
	svc, repo := newTestService(t)

	auth, err := svc.ProcessPayment(context.Background(), 50, "9999999999999999", "Supermarket")
	require.NoError(t, err)
	require.False(t, auth.Approved)
	require.Equal(t, models.DeclineCardNotFound, auth.Reason)
	require.Empty(t, repo.Transactions)
}

func TestProcessPayment_ExpiredCardDeclines(t *testing.T) {
	svc, repo := newTestService(t)
	account := createTestAccount(t, svc, 1000)

	card, err := svc.CreateCard(context.Background(), account.ID, models.CreateCard{
		Number:     "6543210987654321",
		Type:       "MasterCard",
		ExpiryDate: "2020-01-01",
	})
	require.NoError(t, err)

	auth, err := svc.ProcessPayment(context.Background(), 1, card.Number, "Supermarket")
	require.NoError(t, err)
	require.False(t, auth.Approved)
	require.Equal(t, models.DeclineCardExpired, auth.Reason)
	require.Empty(t, repo.Transactions)
}

func TestProcessPayment_MissingAccountDeclines(t *testing.T) {
	svc, repo := newTestService(t)

	// Seed a card pointing at a non-existent account directly through the
	// repository; the service would refuse to create it.
	require.NoError(t, repo.CreateCard(context.Background(), &models.Card{
		ID:         "card-1",
		AccountID:  "no-such-account",
		Number:     "1111222233334444",
		Type:       "Visa",
		ExpiryDate: "2030-01-01",
	}))

	auth, err := svc.ProcessPayment(context.Background(), 50, "1111222233334444", "Supermarket")
	require.NoError(t, err)
	require.False(t, auth.Approved)
	require.Equal(t, models.DeclineAccountNotFound, auth.Reason)
	require.Empty(t, repo.Transactions)
}

func TestProcessPayment_MalformedExpiryFails(t *testing.T) {
	svc, repo := newTestService(t)
	account := createTestAccount(t, svc, 1000)

	require.NoError(t, repo.CreateCard(context.Background(), &models.Card{
		ID:         "card-1",
		AccountID:  account.ID,
		Number:     "1111222233334444",
		Type:       "Visa",
		ExpiryDate: "01/2030",
	}))

	_, err := svc.ProcessPayment(context.Background(), 50, "1111222233334444", "Supermarket")
	require.Error(t, err)
	require.Empty(t, repo.Transactions)
}

func TestProcessPayment_ApprovesAndRecordsFeeInclusiveTotal(t *testing.T) {
	svc, repo := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	auth, err := svc.ProcessPayment(context.Background(), 50, card.Number, "Supermarket")
	require.NoError(t, err)
	require.True(t, auth.Approved)
	require.InDelta(t, 50.5, auth.TotalAmount, 1e-9)
	require.NotEmpty(t, auth.TransactionID)

	require.Len(t, repo.Transactions, 1)
	require.Equal(t, card.ID, repo.Transactions[0].CardID)
	require.InDelta(t, 50.5, repo.Transactions[0].Amount, 1e-9)
}

func TestProcessPayment_LimitExceededDeclines(t *testing.T) {
	svc, repo := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	// Prior spend of 999 on the card.
	repo.Transactions = append(repo.Transactions, &models.Transaction{
		ID: "tx-1", CardID: card.ID, MerchantType: "Supermarket", Time: time.Now(), Amount: 999,
	})

	auth, err := svc.ProcessPayment(context.Background(), 1, card.Number, "Supermarket")
	require.NoError(t, err)
	require.False(t, auth.Approved)
	require.Equal(t, models.DeclineLimitExceeded, auth.Reason)
	require.Len(t, repo.Transactions, 1)
}

func TestProcessPayment_SpendEqualToLimitApproves(t *testing.T) {
	svc, repo := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	// Unknown merchant and network carry no fee, so the total equals the base.
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Discover")

	auth, err := svc.ProcessPayment(context.Background(), 1000, card.Number, "Online")
	require.NoError(t, err)
	require.True(t, auth.Approved)
	require.InDelta(t, 1000, auth.TotalAmount, 1e-9)
	require.Len(t, repo.Transactions, 1)
}

func TestProcessPayment_SpendIsCardScoped(t *testing.T) {
	svc, _ := newTestService(t)
	account := createTestAccount(t, svc, 100)
	cardA := createTestCard(t, svc, account.ID, "1234567890123456", "Discover")
	cardB := createTestCard(t, svc, account.ID, "6543210987654321", "Discover")

	auth, err := svc.ProcessPayment(context.Background(), 90, cardA.Number, "Online")
	require.NoError(t, err)
	require.True(t, auth.Approved)

	// The second card's spend counter starts at zero even though the account
	// already carries 90 on the first card.
	auth, err = svc.ProcessPayment(context.Background(), 90, cardB.Number, "Online")
	require.NoError(t, err)
	require.True(t, auth.Approved)
}

func TestProcessPayment_NegativeAmountFails(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ProcessPayment(context.Background(), -1, "1234567890123456", "Supermarket")
	require.Error(t, err)
}

func TestHistory_AccountWide(t *testing.T) {
	svc, _ := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	cardA := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")
	cardB := createTestCard(t, svc, account.ID, "6543210987654321", "MasterCard")

	_, err := svc.ProcessPayment(context.Background(), 50, cardA.Number, "Supermarket")
	require.NoError(t, err)
	_, err = svc.ProcessPayment(context.Background(), 30, cardB.Number, "Leisure")
	require.NoError(t, err)

	// Querying either card returns the whole account's history.
	entries, err := svc.History(context.Background(), cardA.Number, "", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	numbers := []string{entries[0].CardNumber, entries[1].CardNumber}
	require.Contains(t, numbers, cardA.Number)
	require.Contains(t, numbers, cardB.Number)
}

func TestHistory_DateRange(t *testing.T) {
	svc, repo := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	repo.Transactions = append(repo.Transactions,
		&models.Transaction{
			ID: "tx-1", CardID: card.ID, MerchantType: "Supermarket",
			Time: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), Amount: 50,
		},
		&models.Transaction{
			ID: "tx-2", CardID: card.ID, MerchantType: "Restaurant",
			Time: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Amount: 100,
		},
	)

	entries, err := svc.History(context.Background(), card.Number, "2023-01-01", "2023-12-31")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Supermarket", entries[0].MerchantType)
}

func TestHistory_BoundsAreInclusive(t *testing.T) {
	svc, repo := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	// Exactly midnight on both bounds.
	repo.Transactions = append(repo.Transactions,
		&models.Transaction{
			ID: "tx-1", CardID: card.ID, MerchantType: "Supermarket",
			Time: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), Amount: 10,
		},
		&models.Transaction{
			ID: "tx-2", CardID: card.ID, MerchantType: "Leisure",
			Time: time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), Amount: 20,
		},
	)

	entries, err := svc.History(context.Background(), card.Number, "2023-01-01", "2023-12-31")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestHistory_UnknownCard(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.History(context.Background(), "9999999999999999", "", "")
	require.ErrorIs(t, err, payments.ErrNotFound)
}

func TestHistory_EmptyIsNotAnError(t *testing.T) {
	svc, _ := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	entries, err := svc.History(context.Background(), card.Number, "", "")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHistory_RepeatedReadsAreIdentical(t *testing.T) {
	svc, _ := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	_, err := svc.ProcessPayment(context.Background(), 50, card.Number, "Supermarket")
	require.NoError(t, err)
	_, err = svc.ProcessPayment(context.Background(), 20, card.Number, "Restaurant")
	require.NoError(t, err)

	first, err := svc.History(context.Background(), card.Number, "", "")
	require.NoError(t, err)
	second, err := svc.History(context.Background(), card.Number, "", "")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestHistory_BadDateBound(t *testing.T) {
	svc, _ := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	card := createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	_, err := svc.History(context.Background(), card.Number, "01-01-2023", "")
	require.Error(t, err)
}

func TestCreateAccount_NegativeLimit(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAccount(context.Background(), models.CreateAccount{Limit: -1})
	require.Error(t, err)
}

func TestCreateCard_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	account := createTestAccount(t, svc, 1000)

	_, err := svc.CreateCard(context.Background(), account.ID, models.CreateCard{
		Number: "", Type: "Visa", ExpiryDate: "2030-01-01",
	})
	require.Error(t, err)

	_, err = svc.CreateCard(context.Background(), account.ID, models.CreateCard{
		Number: "1234567890123456", Type: "Visa", ExpiryDate: "2030-1-1",
	})
	require.Error(t, err)

	_, err = svc.CreateCard(context.Background(), "no-such-account", models.CreateCard{
		Number: "1234567890123456", Type: "Visa", ExpiryDate: "2030-01-01",
	})
	require.ErrorIs(t, err, payments.ErrNotFound)
}

func TestCreateCard_DuplicateNumberConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	account := createTestAccount(t, svc, 1000)
	createTestCard(t, svc, account.ID, "1234567890123456", "Visa")

	_, err := svc.CreateCard(context.Background(), account.ID, models.CreateCard{
		Number: "1234567890123456", Type: "Visa", ExpiryDate: "2030-01-01",
	})
	require.ErrorIs(t, err, payments.ErrConflict)
}
