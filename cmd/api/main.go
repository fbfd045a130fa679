package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-store-ledger.git/internal/catalog"
	"github.com/ariefcatur/go-store-ledger.git/internal/config"
	"github.com/ariefcatur/go-store-ledger.git/internal/coordinator"
	"github.com/ariefcatur/go-store-ledger.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-store-ledger.git/internal/kafka"
	"github.com/ariefcatur/go-store-ledger.git/internal/ledger"
	"github.com/ariefcatur/go-store-ledger.git/internal/logx"
	"github.com/ariefcatur/go-store-ledger.git/internal/memstore"
	"github.com/ariefcatur/go-store-ledger.git/internal/postgres"
	"github.com/ariefcatur/go-store-ledger.git/internal/redisx"
	"github.com/ariefcatur/go-store-ledger.git/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	mem := flag.Bool("mem", false, "run on the in-memory store, without redis/kafka")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logx.New(cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := &httpx.Handler{
		Service: cfg.ServiceName,
		Log:     log,
	}

	var st store.Store
	var prod *kafkax.Producer
	if *mem {
		st = memstore.New()
		log.Info("running on in-memory store")
	} else {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		st = &postgres.Store{DB: db}

		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		h.Redis = rdb

		prod = kafkax.NewProducer(cfg.KafkaBrokers, store.TopicOrderEvents, 1024, log)
		prod.Start(ctx)
		h.Producer = prod
	}

	h.Catalog = &catalog.Service{Store: st}
	h.Ledger = &ledger.Service{Store: st}
	h.Coord = &coordinator.Coordinator{Store: st}

	router := httpx.NewRouter()
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close() // stop intake, flush remaining
		cancel()
		prod.WaitClosed()
	}
}
