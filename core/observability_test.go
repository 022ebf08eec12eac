package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []string
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, _ float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, name)
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu      *sync.Mutex
	records *[]capturedLog
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger { return l }

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := map[string]any{}
	for index := 0; index+1 < len(args); index += 2 {
		if key, ok := args[index].(string); ok {
			fields[key] = args[index+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

func TestObserver_SuccessEmitsCounterHistogramAndLog(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := Observer{Logger: logger, Metrics: metrics}

	observer.Observe(context.Background(), time.Now(), "Execute Sync", nil, map[string]any{
		"connector_type": "custom",
		"integration_id": "int_1",
	})

	if len(metrics.counters) != 1 || metrics.counters[0].name != "integrations.execute_sync.total" {
		t.Fatalf("unexpected counters: %#v", metrics.counters)
	}
	if metrics.counters[0].tags["status"] != "success" || metrics.counters[0].tags["connector_type"] != "custom" {
		t.Fatalf("unexpected counter tags: %#v", metrics.counters[0].tags)
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0] != "integrations.execute_sync.duration_ms" {
		t.Fatalf("unexpected histograms: %#v", metrics.histograms)
	}
	logs := logger.snapshot()
	if len(logs) != 1 || logs[0].level != "info" || logs[0].msg != "execute_sync succeeded" {
		t.Fatalf("unexpected logs: %#v", logs)
	}
}

func TestObserver_FailureRedactsAndTagsError(t *testing.T) {
	logger := newCaptureLogger()
	observer := Observer{Logger: logger, Prefix: "custom_sync"}

	observer.Observe(context.Background(), time.Now(), "test_endpoint", ExecutionError(errors.New("x"), "endpoint failed", nil), map[string]any{
		"client_secret": "s3cr3t",
	})

	logs := logger.snapshot()
	if len(logs) != 1 || logs[0].level != "error" {
		t.Fatalf("expected one error log, got %#v", logs)
	}
	if logs[0].fields["client_secret"] != RedactedValue {
		t.Fatalf("expected secrets to be redacted in log fields, got %#v", logs[0].fields)
	}
	if logs[0].fields["error_code"] != ErrorExecution {
		t.Fatalf("expected error code field, got %#v", logs[0].fields["error_code"])
	}
}

func TestObserver_ZeroValueIsSilent(t *testing.T) {
	Observer{}.Observe(context.Background(), time.Now(), "noop", nil, nil)
}
