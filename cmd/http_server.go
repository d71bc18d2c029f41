package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/events"
	"github.com/frahmantamala/invoice-management/internal/invoice"
	invoicestore "github.com/frahmantamala/invoice-management/internal/invoice/postgres"
	"github.com/frahmantamala/invoice-management/internal/payment"
	paymentstore "github.com/frahmantamala/invoice-management/internal/payment/postgres"
	"github.com/frahmantamala/invoice-management/internal/paymentgateway"
	"github.com/frahmantamala/invoice-management/internal/transport"
	"github.com/frahmantamala/invoice-management/internal/transport/rest"
	"github.com/frahmantamala/invoice-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and gateway notifications`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) {
	cfg := deps.Config
	log := deps.Logger
	baseHandler := transport.NewBaseHandler(log)

	eventBus := events.NewEventBus(log)
	payment.NewAuditEventHandler(log).RegisterEventHandlers(eventBus)

	invoiceRepo := invoicestore.NewInvoiceRepository(deps.GormDB)
	invoiceService := invoice.NewService(invoiceRepo, log)
	invoiceHandler := invoice.NewHandler(baseHandler, invoiceService)

	idempotencyStore := paymentstore.NewIdempotencyStore(deps.GormDB, cfg.Gateway.IdempotencyTTL, log)
	reconciler := payment.NewReconciler(
		invoiceRepo,
		idempotencyStore,
		eventBus,
		cfg.Gateway.ServerKey,
		cfg.Gateway.EnforceSignature,
		log,
	)
	webhookHandler := payment.NewWebhookHandler(baseHandler, reconciler, log)

	gatewayClient := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		ServerKey:   cfg.Gateway.ServerKey,
		CallTimeout: cfg.Gateway.CallTimeout,
	}, log)
	linkCoordinator := payment.NewLinkCoordinator(
		invoiceRepo,
		gatewayClient,
		eventBus,
		cfg.Gateway.LinkExpiry,
		cfg.Gateway.MaxLinkAttempts,
		log,
	)
	paymentHandler := payment.NewHandler(baseHandler, linkCoordinator, log)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, invoiceHandler, paymentHandler, webhookHandler, cfg.Security.APIKey, log)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: log,
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB initializes the database connection pool
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
