// Package worker runs the background maintenance loops: the escrow-order
// expiry sweep and the subscription lapse job. An abandoned checkout can
// therefore hold a gig slot only until the next sweep.
package worker

import (
	"context"
	"log"
	"time"

	"UnjobCore/internal/escrow"
	"UnjobCore/internal/store"

	"github.com/robfig/cron/v3"
)

type Worker struct {
	Store    *store.Store
	Escrow   *escrow.Coordinator
	Interval time.Duration
	CronSpec string

	cron *cron.Cron
}

// Run blocks, sweeping due escrow orders every interval and expiring lapsed
// subscriptions on the cron spec, until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.CronSpec, func() {
		w.expireSubscriptions(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()
	defer w.cron.Stop()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if err := w.SweepOnce(ctx); err != nil {
			log.Printf("sweep error: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce expires every escrow order past its deadline and runs the
// compensating release for each.
func (w *Worker) SweepOnce(ctx context.Context) error {
	expired, err := w.Escrow.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("sweep expired=%d", expired)
	}
	return nil
}

func (w *Worker) expireSubscriptions(ctx context.Context) {
	n, err := w.Store.ExpireSubscriptions(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("subscription expiry failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("subscriptions lapsed=%d", n)
	}
}
