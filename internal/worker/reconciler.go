// Package worker runs the periodic reconciliation sweep.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/auction-marketplace/internal/auction"
)

// Reconciler periodically applies the status transition rule to every
// auction whose stored status lags its time window: pending auctions
// whose start has passed and pending/active auctions whose end has
// passed.  Bids and reads already transition auctions opportunistically;
// the sweep guarantees auctions nobody touches still close on time.
type Reconciler struct {
	Svc      *auction.Service
	Interval time.Duration
	Log      *logrus.Logger
}

func NewReconciler(svc *auction.Service, interval time.Duration, log *logrus.Logger) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Reconciler{Svc: svc, Interval: interval, Log: log}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
// A failing sweep is logged and retried at the next tick.
func (r *Reconciler) Run(ctx context.Context) {
	r.sweep(ctx)

	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	start := time.Now()
	n, err := r.Svc.Reconcile(ctx)
	if err != nil {
		r.Log.WithError(err).Error("reconcile sweep failed")
		return
	}
	entry := r.Log.WithFields(logrus.Fields{
		"transitioned": n,
		"took":         time.Since(start).Round(time.Millisecond).String(),
	})
	if n > 0 {
		entry.Info("reconcile sweep applied transitions")
	} else {
		entry.Debug("reconcile sweep: nothing to do")
	}
}
