package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UnjobCore/internal/config"
	"UnjobCore/internal/db"
	"UnjobCore/internal/escrow"
	"UnjobCore/internal/gateway"
	"UnjobCore/internal/notify"
	"UnjobCore/internal/store"
	"UnjobCore/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	rdb, err := db.ConnectRedis(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer rdb.Close()

	st := store.New(pool)
	dispatcher := &notify.Dispatcher{RDB: rdb}
	gw := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.KeyID,
		cfg.Gateway.Secret,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
	)
	coordinator := &escrow.Coordinator{
		Store:    st,
		Gateway:  gw,
		Events:   dispatcher,
		Fees:     escrow.FeePolicy{Bps: cfg.Fees.PlatformFeeBps},
		OrderTTL: time.Duration(cfg.Escrow.OrderTTLMinutes) * time.Minute,
	}

	w := &worker.Worker{
		Store:    st,
		Escrow:   coordinator,
		Interval: time.Duration(cfg.Worker.SweepIntervalSeconds) * time.Second,
		CronSpec: cfg.Worker.SubscriptionCronSpec,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	log.Printf("worker started (sweep every %s)", w.Interval)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("worker stopped: %v", err)
	}
}
