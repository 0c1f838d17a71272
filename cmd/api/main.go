package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-coin-ledger/config"
	httpHandler "campus-coin-ledger/internal/adapter/http/handler"
	"campus-coin-ledger/internal/adapter/notify"
	"campus-coin-ledger/internal/adapter/storage/memory"
	pgStorage "campus-coin-ledger/internal/adapter/storage/postgres"
	redisStorage "campus-coin-ledger/internal/adapter/storage/redis"
	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/internal/scheduler"
	"campus-coin-ledger/internal/service"
	"campus-coin-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

// storage bundles the repositories of one backend.
type storage struct {
	accounts    ports.AccountRepository
	rewards     ports.RewardRepository
	ledger      ports.LedgerRepository
	audit       ports.AuditRepository
	idempotency ports.IdempotencyRepository
	transactor  ports.DBTransactor
	health      []ports.HealthChecker
	close       func()
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret is required (CCL_JWT_SECRET)")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Campus Coin Ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger storage")
	}
	defer store.close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Notifications: SendGrid when a key is configured, log output otherwise
	var mailer ports.Mailer = notify.NewLogMailer(log)
	if cfg.Notification.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(cfg.Notification.SendGridAPIKey, cfg.Notification.FromEmail, cfg.Notification.FromName)
	}
	dispatcher, err := service.NewNotificationDispatcher(mailer, cfg.Notification.Workers, cfg.Notification.QueueSize, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize notification dispatcher")
	}

	// Ledger event stream: Kafka when brokers are configured
	var events ports.EventPublisher = notify.NopPublisher{}
	if len(cfg.Notification.KafkaBrokers) > 0 {
		producer, err := notify.NewKafkaProducer(cfg.Notification.KafkaBrokers)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Notification.KafkaBrokers).Msg("Failed to connect to Kafka")
		}
		events = notify.NewKafkaPublisher(producer, cfg.Notification.KafkaTopic, cfg.Notification.KafkaSigningKey, log)
		log.Info().Str("topic", cfg.Notification.KafkaTopic).Msg("Kafka event stream enabled")
	}

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	ledgerSvc := service.NewLedgerService(service.LedgerServiceDeps{
		Accounts:    store.accounts,
		Rewards:     store.rewards,
		Ledger:      store.ledger,
		Audit:       store.audit,
		Transactor:  store.transactor,
		Idempotency: store.idempotency,
		IdempCache:  redisStorage.NewIdempotencyCache(rdb),
		Coupons:     redisStorage.NewCouponMarker(rdb, redisStorage.DefaultCouponMarkerTTL),
		Notifier:    dispatcher,
		Events:      events,
	}, log)
	historySvc := service.NewHistoryService(store.accounts, store.rewards, store.ledger, log)
	auditSvc := service.NewAuditService(store.audit, log)

	// Semester bonus
	var bonus *scheduler.Scheduler
	if cfg.Ledger.SchedulerEnabled {
		amount, _ := cfg.Ledger.BonusAmount()
		bonus, err = scheduler.New(ledgerSvc, cfg.Ledger.SemesterBonusCron, amount, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize semester bonus scheduler")
		}
		bonus.Start()
		log.Info().Time("next_run", bonus.Next(time.Now())).Msg("Semester bonus scheduled")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		HistorySvc:     historySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: append(store.health, redisStorage.NewHealthCheck(rdb)),
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if bonus != nil {
		bonus.Stop()
	}
	dispatcher.Close()
	if err := events.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close event publisher")
	}

	log.Info().Msg("Server exited")
}

// openStorage connects the configured ledger backend. The memory backend is
// seeded with demo data and is lost on exit.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		s := &storage{
			accounts:    memory.NewAccountRepo(store),
			rewards:     memory.NewRewardRepo(store),
			ledger:      memory.NewLedgerRepo(store),
			audit:       memory.NewAuditRepo(store),
			idempotency: memory.NewIdempotencyRepo(store),
			transactor:  memory.NewTransactor(store),
			close:       func() {},
		}
		amount, _ := cfg.Ledger.BonusAmount()
		seed, err := service.SeedDemoData(ctx, s.accounts, s.rewards, amount)
		if err != nil {
			return nil, fmt.Errorf("seeding memory store: %w", err)
		}
		logSeed(log, seed)
		return s, nil

	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("PostgreSQL connected")
		return &storage{
			accounts:    pgStorage.NewAccountRepo(pool),
			rewards:     pgStorage.NewRewardRepo(pool),
			ledger:      pgStorage.NewLedgerRepo(pool),
			audit:       pgStorage.NewAuditRepo(pool),
			idempotency: pgStorage.NewIdempotencyRepo(pool),
			transactor:  pgStorage.NewTransactor(pool),
			health:      []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
			close:       pool.Close,
		}, nil
	}
}

func logSeed(log zerolog.Logger, seed *service.SeedResult) {
	for _, a := range seed.Instructors {
		log.Info().Str("account_id", a.ID.String()).Str("role", string(domain.RoleInstructor)).Str("name", a.OwnerName).Msg("demo account")
	}
	for _, a := range seed.Students {
		log.Info().Str("account_id", a.ID.String()).Str("role", string(domain.RoleStudent)).Str("name", a.OwnerName).Msg("demo account")
	}
	for _, p := range seed.Partners {
		log.Info().Str("partner_id", p.ID.String()).Str("role", string(domain.RolePartner)).Str("name", p.Name).Msg("demo partner")
	}
}
