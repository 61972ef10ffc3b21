package payments

import (
    "context"
    "database/sql"
    "fmt"
    "net"
    "net/http"
    "os"
    "sync"
    "time"

    "github.com/alovak/cardpay/internal/expiry"
    "github.com/alovak/cardpay/internal/middleware"
    "github.com/go-chi/chi/v5"
    "golang.org/x/exp/slog"

    _ "github.com/lib/pq"
)

// App is the main application, it contains all the components of the payment
// processor and is responsible for starting and stopping them.
type App struct {
    srv    *http.Server
    wg     *sync.WaitGroup
    Addr   string
    logger *slog.Logger
    config *Config
    db     *sql.DB
}

func NewApp(logger *slog.Logger, config *Config) *App {
    logger = logger.With(slog.String("app", "cardpay"))

    if config == nil {
        config = DefaultConfig()
    }

    return &App{
        wg:     &sync.WaitGroup{},
        logger: logger,
        config: config,
    }
}

func (a *App) Start() error {
    a.logger.Info("starting app...")

    router := chi.NewRouter()
    router.Use(middleware.NewStructuredLogger(a.logger))

    // Choose repository backend: default to pg for runtime; allow mem only
    // when explicitly enabled for tests
    var repository *Repository
    backend := getenv("REPO_BACKEND", "pg")
    allowMem := getenv("ALLOW_MEM_BACKEND_FOR_TESTS", "false") == "true"
    switch backend {
    case "pg":
        dsn := a.config.DSN
        if dsn == "" {
            dsn = getenv("DB_DSN", "")
        }
        if dsn == "" {
            return fmt.Errorf("DB_DSN is required for pg backend")
        }
        db, err := sql.Open("postgres", dsn)
        if err != nil {
            return fmt.Errorf("open postgres: %w", err)
        }
        db.SetMaxIdleConns(5)
        db.SetMaxOpenConns(10)
        if err := db.Ping(); err != nil {
            return fmt.Errorf("ping postgres: %w", err)
        }
        a.db = db
        repository = NewPGRepository(db)
    case "mem":
        if !allowMem {
            return fmt.Errorf("mem repository is disabled at runtime; set ALLOW_MEM_BACKEND_FOR_TESTS=true only in tests")
        }
        repository = NewRepository()
    default:
        return fmt.Errorf("unsupported REPO_BACKEND=%s", backend)
    }

    // Wire date handling from app config
    if a.config.Timezone != "" {
        if loc, err := time.LoadLocation(a.config.Timezone); err == nil {
            expiry.SetDefaultLocation(loc)
        } else {
            a.logger.Info("invalid Timezone; using default UTC", slog.String("tz", a.config.Timezone), slog.Any("err", err))
        }
    }

    svc := NewService(repository, a.config)

    api := NewAPI(svc)
    api.AppendRoutes(router)

    // Health endpoints
    router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
    router.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {
        ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
        defer cancel()
        if err := repository.Ping(ctx); err != nil {
            http.Error(w, "db not ready", http.StatusServiceUnavailable)
            return
        }
        w.WriteHeader(http.StatusOK)
    })

    l, err := net.Listen("tcp", a.config.HTTPAddr)
    if err != nil {
        return fmt.Errorf("listening tcp port: %w", err)
    }

    a.Addr = l.Addr().String()

    a.srv = &http.Server{
        Handler: router,
    }

    a.wg.Add(1)
    go func() {
        a.logger.Info("http server started", slog.String("addr", a.Addr))

        if err := a.srv.Serve(l); err != nil {
            if err != http.ErrServerClosed {
                a.logger.Error("starting http server", "err", err)
            }

            a.logger.Info("http server stopped")
        }

        a.wg.Done()
    }()

    return nil
}

func getenv(k, def string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return def
}

func (a *App) Shutdown() {
    a.logger.Info("shutting down app...")

    a.srv.Shutdown(context.Background())

    if a.db != nil {
        if err := a.db.Close(); err != nil {
            a.logger.Error("closing db", "err", err)
        }
    }

    a.wg.Wait()

    a.logger.Info("app stopped")
}
