package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/safar/cod-checkout/internal/checkout"
	"github.com/safar/cod-checkout/internal/config"
	"github.com/safar/cod-checkout/internal/database"
	"github.com/safar/cod-checkout/internal/events"
	"github.com/safar/cod-checkout/internal/httpapi"
	"github.com/safar/cod-checkout/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	// Totals go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(cfg.Database.URL); err != nil {
			log.Fatalf("Run migrations: %v", err)
		}
		log.Info("migrations applied")
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Info("connected to database")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, "codcheckout"))
	m := metrics.New(reg)

	svc := checkout.NewService(db, checkout.Options{
		MaxAttempts:  cfg.Checkout.MaxAttempts,
		RetryBackoff: cfg.Checkout.RetryBackoff,
		GuestUsers:   cfg.Checkout.GuestUsers,
	}, log, m)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Kafka.Enabled() {
		writer := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer writer.Close()

		relay := events.NewRelay(events.NewSQLOutbox(db), writer, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize, log, m)
		go relay.Run(ctx)

		log.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		}).Info("outbox relay started")
	} else {
		log.Warn("KAFKA_BROKERS not set, outbox events stay in the database")
	}

	handler := httpapi.NewHandler(svc, db, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpapi.NewRouter(handler, m, cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exited")
}
