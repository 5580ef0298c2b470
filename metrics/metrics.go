// Package metrics exposes prometheus counters for the evaluation and
// reconciliation pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wickbot_signals_total", Help: "Wick signals detected"},
		[]string{"symbol", "side"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wickbot_orders_total", Help: "Orders submitted to the broker"},
		[]string{"symbol", "side", "kind"},
	)
	RejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wickbot_rejections_total", Help: "Broker rejections by return code"},
		[]string{"symbol", "retcode"},
	)
	TransportErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wickbot_transport_errors_total", Help: "Broker transport failures"},
		[]string{"symbol", "op"},
	)
	ConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wickbot_reconcile_conflicts_total", Help: "Reconciliations rejected because one was already in flight"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, OrdersTotal, RejectionsTotal, TransportErrorsTotal, ConflictsTotal)
}

// Serve starts the /metrics endpoint on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
