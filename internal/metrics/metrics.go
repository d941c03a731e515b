package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/julianstephens/habitbot/internal/errors"
)

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitbot_tracker_operations_total",
			Help: "Total number of tracker operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habitbot_tracker_operation_duration_seconds",
			Help:    "Duration of tracker operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	adviceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitbot_advice_requests_total",
			Help: "Total number of advice requests by result class",
		},
		[]string{"class"},
	)
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitbot_updates_total",
			Help: "Total number of chat updates handled",
		},
		[]string{"transport", "outcome"},
	)

	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		registry.MustRegister(operationsTotal)
		registry.MustRegister(operationDuration)
		registry.MustRegister(adviceTotal)
		registry.MustRegister(updatesTotal)
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Outcome maps an error to a low-cardinality label value
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return "validation"
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindStorage:
		return "storage"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

// ObserveOperation records a tracker operation that started at start
func ObserveOperation(op string, start time.Time, err error) {
	operationsTotal.WithLabelValues(op, Outcome(err)).Inc()
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordAdvice counts one advice request by its result class
func RecordAdvice(class string) {
	adviceTotal.WithLabelValues(class).Inc()
}

// RecordUpdate counts one handled chat update
func RecordUpdate(transport string, err error) {
	updatesTotal.WithLabelValues(transport, Outcome(err)).Inc()
}

// Handler exposes the registered metrics
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics endpoint until ctx is cancelled
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
