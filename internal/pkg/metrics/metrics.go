// Package metrics declares the Prometheus instruments of the reward economy.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wolftap"

// Taps counts tap attempts by outcome (ok, limit, error).
var Taps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "tap",
	Name:      "requests_total",
	Help:      "Tap attempts by outcome.",
}, []string{"result"})

// LevelUps counts level transitions by source (tap, badge).
var LevelUps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "progression",
	Name:      "level_ups_total",
	Help:      "Level-up transitions by source.",
}, []string{"source"})

// LedgerAmount sums signed ledger amounts by entry type.
var LedgerAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "coins_total",
	Help:      "Absolute coins moved through the ledger by entry type.",
}, []string{"type"})

// LedgerEntries counts appended ledger entries by type.
var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Ledger entries appended by type.",
}, []string{"type"})

// Claims counts reward claims by kind (task, badge, social, referral, game) and result.
var Claims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "rewards",
	Name:      "claims_total",
	Help:      "Reward claims by kind and result.",
}, []string{"kind", "result"})

// LeaderboardClients is the number of connected leaderboard websocket clients.
var LeaderboardClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "leaderboard",
	Name:      "clients",
	Help:      "Connected leaderboard websocket clients.",
})

// LeaderboardBroadcasts counts projector runs by result.
var LeaderboardBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "leaderboard",
	Name:      "broadcasts_total",
	Help:      "Leaderboard projections by result.",
}, []string{"result"})

// HTTPDuration observes API latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// Ledger records one appended entry.
func Ledger(txType string, amount int64) {
	LedgerEntries.WithLabelValues(txType).Inc()
	if amount < 0 {
		amount = -amount
	}
	LedgerAmount.WithLabelValues(txType).Add(float64(amount))
}

// Claim records one claim attempt.
func Claim(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	Claims.WithLabelValues(kind, result).Inc()
}

// RegisterPool exposes connection pool gauges for pool.
func RegisterPool(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "conns_total",
			Help: "Open database connections.",
		}, func() float64 { return float64(pool.Stat().TotalConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "conns_idle",
			Help: "Idle database connections.",
		}, func() float64 { return float64(pool.Stat().IdleConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "conns_acquired",
			Help: "Database connections in use.",
		}, func() float64 { return float64(pool.Stat().AcquiredConns()) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
