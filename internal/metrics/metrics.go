// Package metrics exposes reconciliation diagnostics as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-veylop/rewardgate/internal/logger"
)

const namespace = "rewardgate"

// Metrics holds every collector.
type Metrics struct {
	SignalsReceived   prometheus.Counter
	SignalsFired      prometheus.Gauge
	FiresRecorded     prometheus.Counter
	FiresRejected     *prometheus.CounterVec
	ReconcilePasses   *prometheus.CounterVec
	ReconcileOutcomes *prometheus.CounterVec
	ReconcileDuration prometheus.Histogram
	SnapshotDecisions *prometheus.CounterVec
	LedgerDirty       prometheus.Gauge
	TodaySeconds      *prometheus.GaugeVec
	Rollovers         prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg uses a
// private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		SignalsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_received_total",
			Help:      "Cross-process signals observed by the interactive process.",
		}),
		SignalsFired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signals_fired",
			Help:      "Signals raised by the monitoring helper, as recorded in the shared store.",
		}),
		FiresRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fires_recorded_total",
			Help:      "Threshold fires credited to the ledger.",
		}),
		FiresRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fires_rejected_total",
			Help:      "Threshold fires dropped, by reason.",
		}, []string{"reason"}),
		ReconcilePasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_passes_total",
			Help:      "Reconciliation passes, by trigger.",
		}, []string{"trigger"}),
		ReconcileOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Per-entity reconciliation outcomes.",
		}, []string{"outcome"}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation passes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		SnapshotDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_decisions_total",
			Help:      "Snapshot readings, by guard decision.",
		}, []string{"decision"}),
		LedgerDirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_dirty_entries",
			Help:      "Ledger entries awaiting a durable write.",
		}),
		TodaySeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "today_seconds",
			Help:      "Usage recorded today, by entity.",
		}, []string{"entity", "category"}),
		Rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_rollovers_total",
			Help:      "Day rollovers performed.",
		}),
	}

	reg.MustRegister(
		m.SignalsReceived,
		m.SignalsFired,
		m.FiresRecorded,
		m.FiresRejected,
		m.ReconcilePasses,
		m.ReconcileOutcomes,
		m.ReconcileDuration,
		m.SnapshotDecisions,
		m.LedgerDirty,
		m.TodaySeconds,
		m.Rollovers,
	)
	return m
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
