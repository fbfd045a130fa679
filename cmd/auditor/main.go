package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ariefcatur/go-store-ledger.git/internal/audit"
	"github.com/ariefcatur/go-store-ledger.git/internal/config"
	kafkax "github.com/ariefcatur/go-store-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-store-ledger.git/internal/logx"
	"github.com/ariefcatur/go-store-ledger.git/internal/postgres"
	"github.com/ariefcatur/go-store-ledger.git/internal/redisx"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	i, err := strconv.Atoi(os.Getenv(k))
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	name := cfg.ServiceName + "-auditor"
	log, err := logx.New(name)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Store:       &postgres.Store{DB: db},
		Redis:       rdb,
		Log:         log,
		ServiceName: name,
	}

	group := getenv("AUDITOR_GROUP", "ledger-auditor")
	workers := envInt("AUDITOR_WORKERS", 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, store.TopicOrderEvents, workers, log)

	go func() {
		log.Info("auditor consumer started",
			zap.String("group", group),
			zap.String("topic", store.TopicOrderEvents),
			zap.Int("workers", workers),
		)
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
}
