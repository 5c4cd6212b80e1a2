package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UnjobCore/internal/config"
	"UnjobCore/internal/db"
	"UnjobCore/internal/escrow"
	"UnjobCore/internal/gateway"
	"UnjobCore/internal/hiring"
	internalhttp "UnjobCore/internal/http"
	"UnjobCore/internal/notify"
	"UnjobCore/internal/store"
	"UnjobCore/internal/subscription"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
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
	ledger := &subscription.Ledger{Store: st}
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
	hiringSvc := &hiring.Service{
		Store:  st,
		Ledger: ledger,
		Escrow: coordinator,
		Events: dispatcher,
	}

	h := internalhttp.NewHandler(hiringSvc, coordinator)
	feed := &internalhttp.EventFeed{Dispatcher: dispatcher}
	limiter := internalhttp.NewRateLimiter(rdb, cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
	srv := internalhttp.NewServer(h, feed, limiter)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
