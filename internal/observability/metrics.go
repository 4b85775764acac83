package observability

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational metrics for the crawl.
type Metrics struct {
	// Dispatch metrics
	URLsDispatched atomic.Int64
	URLsFiltered   atomic.Int64

	// Response metrics, keyed by the sentinel codes in §7
	ResponsesSuccess atomic.Int64
	ResponsesHTTPErr atomic.Int64
	ResponsesTooSlow atomic.Int64
	ResponsesBrowser atomic.Int64
	ResponsesNoType  atomic.Int64

	// Worker metrics
	WorkerTimeouts  atomic.Int64
	WorkerRetries   atomic.Int64
	ActiveWorkers   atomic.Int32
	PoolOccupancy   atomic.Int64
	BytesDownloaded atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"linkwatch_urls_dispatched_total", "Total URLs dispatched to workers", m.URLsDispatched.Load()},
		{"linkwatch_urls_filtered_total", "Total discovered URLs rejected by domain/history filters", m.URLsFiltered.Load()},
		{"linkwatch_responses_success_total", "Total 200 responses", m.ResponsesSuccess.Load()},
		{"linkwatch_responses_http_error_total", "Total non-200 HTTP responses", m.ResponsesHTTPErr.Load()},
		{"linkwatch_responses_too_slow_total", "Total responses past the slow-response threshold", m.ResponsesTooSlow.Load()},
		{"linkwatch_responses_browser_error_total", "Total browser-obtainer failures", m.ResponsesBrowser.Load()},
		{"linkwatch_responses_no_content_type_total", "Total responses missing Content-Type", m.ResponsesNoType.Load()},
		{"linkwatch_worker_timeouts_total", "Total worker processes killed for exceeding their timeout", m.WorkerTimeouts.Load()},
		{"linkwatch_worker_retries_total", "Total worker retry attempts", m.WorkerRetries.Load()},
		{"linkwatch_active_workers", "Currently active worker processes", int64(m.ActiveWorkers.Load())},
		{"linkwatch_pool_occupancy", "Workers holding a scheduler pool slot at the last completion", m.PoolOccupancy.Load()},
		{"linkwatch_bytes_downloaded_total", "Total response bytes downloaded", m.BytesDownloaded.Load()},
	}

	for _, metric := range metrics {
		kind := "gauge"
		if strings.HasSuffix(metric.name, "_total") {
			kind = "counter"
		}
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.Serve(ln, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"urls_dispatched":           m.URLsDispatched.Load(),
		"urls_filtered":             m.URLsFiltered.Load(),
		"responses_success":         m.ResponsesSuccess.Load(),
		"responses_http_error":      m.ResponsesHTTPErr.Load(),
		"responses_too_slow":        m.ResponsesTooSlow.Load(),
		"responses_browser_error":   m.ResponsesBrowser.Load(),
		"responses_no_content_type": m.ResponsesNoType.Load(),
		"worker_timeouts":           m.WorkerTimeouts.Load(),
		"worker_retries":            m.WorkerRetries.Load(),
		"active_workers":            int64(m.ActiveWorkers.Load()),
		"pool_occupancy":            m.PoolOccupancy.Load(),
		"bytes_downloaded":          m.BytesDownloaded.Load(),
	}
}

// RecordCompletion classifies one FetchResult's response code into the
// matching counter. Called from the scheduler's completion handler.
func (m *Metrics) RecordCompletion(responseCode int, size int64) {
	m.BytesDownloaded.Add(size)
	switch responseCode {
	case 200:
		m.ResponsesSuccess.Add(1)
	case 900:
		m.ResponsesTooSlow.Add(1)
	case 902, 903:
		m.ResponsesBrowser.Add(1)
	case 904:
		m.ResponsesNoType.Add(1)
	default:
		m.ResponsesHTTPErr.Add(1)
	}
}
