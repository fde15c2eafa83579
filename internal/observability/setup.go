package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	mutualsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mutuals_created_total",
		Help: "Total number of mutuals created",
	})

	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutual_checks_total",
			Help: "Total number of mutual verification checks",
		},
		[]string{"result"},
	)

	holdPenaltiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hold_penalties_total",
		Help: "Total number of hold-period penalties applied",
	})

	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_sweeps_total",
			Help: "Total number of scheduler sweep runs",
		},
		[]string{"sweep"},
	)

	matchesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "post_matches_total",
		Help: "Total number of chat-post matches",
	})
)

func Init(ctx context.Context, metricsAddr string) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(
		mutualsCreatedTotal,
		checksTotal,
		holdPenaltiesTotal,
		sweepRunsTotal,
		matchesCreatedTotal,
	)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

func RecordMutualCreated()        { mutualsCreatedTotal.Inc() }
func RecordCheck(result string)   { checksTotal.WithLabelValues(result).Inc() }
func RecordHoldPenalty()          { holdPenaltiesTotal.Inc() }
func RecordSweepRun(sweep string) { sweepRunsTotal.WithLabelValues(sweep).Inc() }
func RecordMatchCreated()         { matchesCreatedTotal.Inc() }
