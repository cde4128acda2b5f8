package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt("asr", "success", time.Second)
	m.ObserveStage("transcribe", time.Second)
	m.FileDone(nil)
	m.AddAudio(time.Second)
	m.AddCues(3)
	if m.Registry() != nil {
		t.Error("nil metrics should have nil registry")
	}
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.ObserveAttempt("transcribe", "retry", 10*time.Millisecond)
	m.ObserveAttempt("transcribe", "success", 10*time.Millisecond)
	m.FileDone(nil)
	m.FileDone(errors.New("x"))
	m.AddCues(4)
	m.AddAudio(1500 * time.Millisecond)

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`libersonora_remote_attempts_total{op="transcribe",outcome="retry"} 1`,
		`libersonora_files_processed_total{outcome="failure"} 1`,
		`libersonora_cues_total 4`,
		`libersonora_audio_seconds_total 1.5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
