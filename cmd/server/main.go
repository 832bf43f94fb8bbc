package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/resolvr/backend/internal/ai"
	"github.com/resolvr/backend/internal/config"
	"github.com/resolvr/backend/internal/db"
	"github.com/resolvr/backend/internal/events"
	httpapi "github.com/resolvr/backend/internal/http"
	"github.com/resolvr/backend/internal/http/handlers"
	"github.com/resolvr/backend/internal/notify"
	"github.com/resolvr/backend/internal/scoring"
	"github.com/resolvr/backend/internal/service"
)

type backingStore interface {
	service.Store
	handlers.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "resolvr-backend").Logger()

	ctx := context.Background()
	var store backingStore
	if cfg.DatabaseURL == "" {
		store = db.NewMemoryStore()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store")
	} else {
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
		store = pg
	}

	var oracle ai.Oracle
	if cfg.OracleBaseURL == "" {
		oracle = ai.MockOracle{}
		logger.Info().Msg("using mock oracle")
	} else {
		oracle = &ai.OpenAIOracle{
			BaseURL:   cfg.OracleBaseURL,
			Model:     cfg.OracleModel,
			APIKey:    cfg.OracleAPIKey,
			MaxTokens: cfg.OracleMaxTokens,
			Timeout:   cfg.OracleTimeout,
			CacheTTL:  cfg.OracleCacheTTL,
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		logger.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("publishing triage events")
	}
	defer publisher.Close()

	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.WebhookNotifier{URL: cfg.NotifyWebhookURL}
	}

	engine := &scoring.Engine{Oracle: oracle, Logger: logger, CallTimeout: cfg.OracleTimeout}
	callbacks := &service.CallbackScheduler{Store: store, Publisher: publisher, Logger: logger}
	distributor := &service.Distributor{Store: store, Publisher: publisher, Logger: logger}

	h := &handlers.Handler{
		Store:      store,
		Complaints: store,
		Agents:     store,
		Triage: &service.Orchestrator{
			Complaints:  store,
			Scorer:      engine,
			Callbacks:   callbacks,
			Distributor: distributor,
			Publisher:   publisher,
			Logger:      logger,
		},
		Callbacks:      callbacks,
		Distributor:    distributor,
		Analytics:      &service.Analytics{Complaints: store, Calls: store, Agents: store, Logger: logger},
		Knowledge:      &service.KnowledgeBase{Store: store},
		Notifier:       notifier,
		Validator:      validator.New(),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	}

	router := httpapi.Router(cfg, h, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if cfg.RebalanceInterval > 0 {
		go runRebalance(bgCtx, distributor, cfg.RebalanceInterval, logger)
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopBackground()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

func runRebalance(ctx context.Context, d *service.Distributor, every time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Rebalance(ctx); err != nil {
				logger.Error().Err(err).Msg("periodic rebalance failed")
			}
		}
	}
}
