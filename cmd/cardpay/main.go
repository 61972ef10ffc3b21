package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alovak/cardpay/payments"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	_ "github.com/lib/pq"
)

const usage = `usage:
  cardpay serve
  cardpay payment <amount> <card-number> <merchant-type>
  cardpay history <card-number> [start-date] [end-date]`

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr))

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(logger)
	case "payment":
		err = payment(logger, os.Args[2:])
	case "history":
		err = history(logger, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("cardpay", "err", err)
		os.Exit(1)
	}
}

func serve(logger *slog.Logger) error {
	config := payments.DefaultConfig()
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.HTTPAddr = addr
	}
	config.DSN = os.Getenv("DB_DSN")
	config.Timezone = os.Getenv("TZ_NAME")

	app := payments.NewApp(logger, config)
	if err := app.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.Shutdown()
	return nil
}

// newService connects to Postgres for a one-shot command. A connection
// failure here is fatal; there is nothing to retry.
func newService() (*payments.Service, *sql.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, nil, fmt.Errorf("DB_DSN is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	svc := payments.NewService(payments.NewPGRepository(db), payments.DefaultConfig())
	return svc, db, nil
}

func payment(logger *slog.Logger, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("payment needs <amount> <card-number> <merchant-type>")
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("parsing amount: %w", err)
	}

	svc, db, err := newService()
	if err != nil {
		return err
	}
	defer db.Close()

	auth, err := svc.ProcessPayment(context.Background(), amount, args[1], args[2])
	if err != nil {
		// A storage or parse failure is still a failed payment for the caller.
		logger.Error("processing payment", "err", err)
		fmt.Println("Transaction declined.")
		return nil
	}

	if !auth.Approved {
		fmt.Printf("Transaction declined: %s.\n", auth.Reason)
		return nil
	}
	fmt.Printf("Transaction approved. Total amount: %.2f\n", auth.TotalAmount)
	return nil
}

func history(logger *slog.Logger, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("history needs <card-number> [start-date] [end-date]")
	}
	cardNumber := args[0]
	startDate, endDate := "", ""
	if len(args) > 1 {
		startDate = args[1]
	}
	if len(args) > 2 {
		endDate = args[2]
	}

	svc, db, err := newService()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := svc.History(context.Background(), cardNumber, startDate, endDate)
	if err != nil {
		logger.Error("retrieving history", "err", err)
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No transactions found for this account.")
		return nil
	}

	fmt.Printf("Transaction history for account associated with card: %s\n", cardNumber)
	for _, e := range entries {
		fmt.Printf("Date: %s, Amount: %.2f, Merchant: %s, Card Number: %s\n",
			e.Time.Format("2006-01-02 15:04:05"), e.Amount, e.MerchantType, e.CardNumber)
	}
	return nil
}
