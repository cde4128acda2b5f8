package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the Prometheus collectors of one processing run. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// pipeline
	FilesProcessed *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	AudioSeconds   prometheus.Counter
	CuesProduced   prometheus.Counter

	// remote calls
	RemoteAttempts *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "libersonora_files_processed_total",
			Help: "Audio files processed, by outcome",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "libersonora_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7 minutes
		}, []string{"stage"}),
		AudioSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "libersonora_audio_seconds_total",
			Help: "Seconds of normalized audio processed",
		}),
		CuesProduced: factory.NewCounter(prometheus.CounterOpts{
			Name: "libersonora_cues_total",
			Help: "Subtitle cues produced",
		}),
		RemoteAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "libersonora_remote_attempts_total",
			Help: "Remote service call attempts, by operation and outcome",
		}, []string{"op", "outcome"}),
		RemoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "libersonora_remote_attempt_duration_seconds",
			Help:    "Duration of individual remote call attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 13), // 100ms to ~7 minutes
		}, []string{"op"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAttempt records one remote call attempt.
func (m *Metrics) ObserveAttempt(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RemoteAttempts.WithLabelValues(op, outcome).Inc()
	m.RemoteDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) FileDone(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.FilesProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddAudio(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.AudioSeconds.Add(d.Seconds())
}

func (m *Metrics) AddCues(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CuesProduced.Add(float64(n))
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
