package middleware

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the RPC and settlement collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	// TransfersSuggested counts transfers returned by SuggestSettlements.
	TransfersSuggested prometheus.Counter
	// SettlementsRecorded counts persisted settlements.
	SettlementsRecorded prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clubsplit",
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clubsplit",
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		TransfersSuggested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clubsplit",
			Name:      "transfers_suggested_total",
			Help:      "Transfers returned by the settlement optimizer.",
		}),
		SettlementsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clubsplit",
			Name:      "settlements_recorded_total",
			Help:      "Settlements persisted.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.TransfersSuggested, m.SettlementsRecorded)
	return m
}

// Interceptor records a counter and latency per procedure.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			m.duration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			m.requests.WithLabelValues(procedure, codeOf(err)).Inc()
			return resp, err
		}
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}
