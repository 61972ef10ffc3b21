package payments

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/alovak/cardpay/internal/expiry"
    "github.com/alovak/cardpay/payments/models"
    "github.com/google/uuid"
    "github.com/jackc/pgconn"
    "github.com/lib/pq"
)

var (
    ErrNotFound = fmt.Errorf("not found")
    ErrConflict = fmt.Errorf("conflict")
)

// Repository stores accounts, cards and transactions. With a nil db it keeps
// everything in memory behind a mutex so tests can run without Postgres; with
// a db it runs parameterized queries only.
type Repository struct {
    Accounts     []*models.Account
    Cards        []*models.Card
    Transactions []*models.Transaction

    mu        sync.RWMutex
    numberIdx map[string]struct{}
    db        *sql.DB
}

func NewRepository() *Repository {
    return &Repository{
        Accounts:     make([]*models.Account, 0),
        Cards:        make([]*models.Card, 0),
        Transactions: make([]*models.Transaction, 0),
        numberIdx:    make(map[string]struct{}),
    }
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
    return &Repository{db: db}
}

func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
    if r.db == nil {
        r.mu.Lock()
        defer r.mu.Unlock()
        r.Accounts = append(r.Accounts, account)
        return nil
    }
    _, err := r.db.ExecContext(ctx, `
        INSERT INTO accounts(account_id, account_limit)
        VALUES ($1, $2)
    `, account.ID, account.Limit)
    return err
}

func (r *Repository) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
    if r.db == nil {
        r.mu.RLock()
        defer r.mu.RUnlock()
        for _, account := range r.Accounts {
            if account.ID == accountID {
                return account, nil
            }
        }
        return nil, ErrNotFound
    }
    row := r.db.QueryRowContext(ctx, `SELECT account_id, account_limit FROM accounts WHERE account_id=$1`, accountID)
    var account models.Account
    if err := row.Scan(&account.ID, &account.Limit); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    return &account, nil
}

func (r *Repository) CreateCard(ctx context.Context, card *models.Card) error {
    if r.db == nil {
        r.mu.Lock()
        defer r.mu.Unlock()
        if _, ok := r.numberIdx[card.Number]; ok {
            return fmt.Errorf("card number exists: %w", ErrConflict)
        }
        r.Cards = append(r.Cards, card)
        r.numberIdx[card.Number] = struct{}{}
        return nil
    }
    _, err := r.db.ExecContext(ctx, `
        INSERT INTO cards(card_id, account_id, card_number, cardholder_name, card_type, expiry_date)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, card.ID, card.AccountID, card.Number, card.CardholderName, card.Type, card.ExpiryDate)
    if isUniqueViolation(err) {
        return fmt.Errorf("card number exists: %w", ErrConflict)
    }
    return err
}

func (r *Repository) FindCardByNumber(ctx context.Context, number string) (*models.Card, error) {
    if r.db == nil {
        r.mu.RLock()
        defer r.mu.RUnlock()
        for _, c := range r.Cards {
            if c.Number == number {
                return c, nil
            }
        }
        return nil, ErrNotFound
    }
    row := r.db.QueryRowContext(ctx, `
        SELECT card_id, account_id, card_number, cardholder_name, card_type, to_char(expiry_date, 'YYYY-MM-DD')
          FROM cards WHERE card_number=$1
    `, number)
    var card models.Card
    if err := row.Scan(&card.ID, &card.AccountID, &card.Number, &card.CardholderName, &card.Type, &card.ExpiryDate); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    return &card, nil
}

// AuthorizePayment runs the whole payment decision as one unit of work: card
// lookup, expiry check, account lookup, fee computation, card-scoped spend
// aggregation, limit check and the transaction insert. Either the decision is
// made against a single snapshot and the insert commits, or nothing is
// persisted. Declines come back with Approved=false and a nil error; lookup,
// parse and storage failures come back as errors after rollback.
func (r *Repository) AuthorizePayment(ctx context.Context, req models.PaymentRequest) (*models.Authorization, error) {
    if r.db == nil {
        return r.authorizePaymentMem(req)
    }

    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    defer tx.Rollback()
    // per-transaction statement timeout to avoid long hangs
    if _, err := tx.ExecContext(ctx, `set local statement_timeout = '3s'`); err != nil {
        return nil, err
    }

    var cardID, accountID, cardType, expiryDate string
    err = tx.QueryRowContext(ctx, `
        SELECT card_id, account_id, card_type, to_char(expiry_date, 'YYYY-MM-DD')
          FROM cards WHERE card_number=$1
    `, req.CardNumber).Scan(&cardID, &accountID, &cardType, &expiryDate)
    if errors.Is(err, sql.ErrNoRows) {
        return &models.Authorization{Reason: models.DeclineCardNotFound}, nil
    }
    if err != nil {
        return nil, err
    }

    expired, err := expiry.IsExpired(expiryDate, time.Now())
    if err != nil {
        return nil, fmt.Errorf("parsing expiry date: %w", err)
    }
    if expired {
        return &models.Authorization{Reason: models.DeclineCardExpired}, nil
    }

    var limit float64
    err = tx.QueryRowContext(ctx, `SELECT account_limit FROM accounts WHERE account_id=$1`, accountID).Scan(&limit)
    if errors.Is(err, sql.ErrNoRows) {
        return &models.Authorization{Reason: models.DeclineAccountNotFound}, nil
    }
    if err != nil {
        return nil, err
    }

    total := TotalAmount(req.Amount, req.MerchantType, cardType)

    // Spend is summed over this card only, not the whole account.
    var spent float64
    err = tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE card_id=$1`, cardID).Scan(&spent)
    if err != nil {
        return nil, err
    }
    if spent+total > limit {
        return &models.Authorization{Reason: models.DeclineLimitExceeded}, nil
    }

    var transactionID string
    err = tx.QueryRowContext(ctx, `
        INSERT INTO transactions(transaction_id, card_id, merchant_type, transaction_time, amount)
        VALUES (gen_random_uuid(), $1, $2, now(), $3)
        RETURNING transaction_id
    `, cardID, req.MerchantType, total).Scan(&transactionID)
    if err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return &models.Authorization{Approved: true, TotalAmount: total, TransactionID: transactionID}, nil
}

func (r *Repository) authorizePaymentMem(req models.PaymentRequest) (*models.Authorization, error) {
    r.mu.Lock()
    defer r.mu.Unlock()

    var card *models.Card
    for _, c := range r.Cards {
        if c.Number == req.CardNumber {
            card = c
            break
        }
    }
    if card == nil {
        return &models.Authorization{Reason: models.DeclineCardNotFound}, nil
    }

    now := time.Now()
    expired, err := expiry.IsExpired(card.ExpiryDate, now)
    if err != nil {
        return nil, fmt.Errorf("parsing expiry date: %w", err)
    }
    if expired {
        return &models.Authorization{Reason: models.DeclineCardExpired}, nil
    }

    var account *models.Account
    for _, a := range r.Accounts {
        if a.ID == card.AccountID {
            account = a
            break
        }
    }
    if account == nil {
        return &models.Authorization{Reason: models.DeclineAccountNotFound}, nil
    }

    total := TotalAmount(req.Amount, req.MerchantType, card.Type)

    var spent float64
    for _, t := range r.Transactions {
        if t.CardID == card.ID {
            spent += t.Amount
        }
    }
    if spent+total > account.Limit {
        return &models.Authorization{Reason: models.DeclineLimitExceeded}, nil
    }

    transaction := &models.Transaction{
        ID:           uuid.New().String(),
        CardID:       card.ID,
        MerchantType: req.MerchantType,
        Time:         now,
        Amount:       total,
    }
    r.Transactions = append(r.Transactions, transaction)

    return &models.Authorization{Approved: true, TotalAmount: total, TransactionID: transaction.ID}, nil
}

// ListAccountHistory returns the transactions of every card under the account
// that owns the given card number, each joined with its card's number.
// Optional bounds are inclusive: time >= start and time <= end. Order is
// stable: transaction time, then transaction id.
func (r *Repository) ListAccountHistory(ctx context.Context, cardNumber string, start, end *time.Time) ([]*models.HistoryEntry, error) {
    if r.db == nil {
        return r.listAccountHistoryMem(cardNumber, start, end)
    }

    tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
    if err != nil {
        return nil, err
    }
    defer tx.Rollback()

    var accountID string
    err = tx.QueryRowContext(ctx, `SELECT account_id FROM cards WHERE card_number=$1`, cardNumber).Scan(&accountID)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }

    query := `
        SELECT t.transaction_time, t.amount, t.merchant_type, c.card_number
          FROM transactions t
          JOIN cards c ON t.card_id = c.card_id
         WHERE c.account_id = $1`
    args := []any{accountID}
    if start != nil {
        args = append(args, *start)
        query += fmt.Sprintf(" AND t.transaction_time >= $%d", len(args))
    }
    if end != nil {
        args = append(args, *end)
        query += fmt.Sprintf(" AND t.transaction_time <= $%d", len(args))
    }
    query += " ORDER BY t.transaction_time, t.transaction_id"

    rows, err := tx.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []*models.HistoryEntry
    for rows.Next() {
        var e models.HistoryEntry
        if err := rows.Scan(&e.Time, &e.Amount, &e.MerchantType, &e.CardNumber); err != nil {
            return nil, err
        }
        out = append(out, &e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    return out, nil
}

func (r *Repository) listAccountHistoryMem(cardNumber string, start, end *time.Time) ([]*models.HistoryEntry, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()

    var accountID string
    for _, c := range r.Cards {
        if c.Number == cardNumber {
            accountID = c.AccountID
            break
        }
    }
    if accountID == "" {
        return nil, ErrNotFound
    }

    numberByCard := make(map[string]string)
    for _, c := range r.Cards {
        if c.AccountID == accountID {
            numberByCard[c.ID] = c.Number
        }
    }

    var out []*models.HistoryEntry
    for _, t := range r.Transactions {
        number, ok := numberByCard[t.CardID]
        if !ok {
            continue
        }
        if start != nil && t.Time.Before(*start) {
            continue
        }
        if end != nil && t.Time.After(*end) {
            continue
        }
        out = append(out, &models.HistoryEntry{
            Time:         t.Time,
            Amount:       t.Amount,
            MerchantType: t.MerchantType,
            CardNumber:   number,
        })
    }
    return out, nil
}

// Ping returns DB readiness
func (r *Repository) Ping(ctx context.Context) error {
    if r.db == nil {
        return nil
    }
    return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
    var pe *pq.Error
    if errors.As(err, &pe) && pe.Code == "23505" {
        return true
    }
    var pgerr *pgconn.PgError
    if errors.As(err, &pgerr) && pgerr.Code == "23505" {
        return true
    }
    return false
}
