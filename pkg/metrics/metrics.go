// Package metrics holds the Prometheus collectors for processing runs
package metrics // import "github.com/joincivil/civil-debate-processor/pkg/metrics"

import (
	"context"
	"net/http"
	"strings"
	"time"

	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const namespace = "debate_processor"

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Processing runs by result",
		}, []string{"result"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of processing runs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		Entries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_entries_total",
			Help:      "Moderation entries created by status",
		}, []string{"status"}),
		NoMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_matches_total",
			Help:      "Comments skipped before drafting by reason",
		}, []string{"reason"}),
		RepliesPosted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_posted_total",
			Help:      "Replies posted to the platform",
		}),
		PostFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_failures_total",
			Help:      "Replies that failed to post",
		}),
		OracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Text completion calls by result",
		}, []string{"result"}),
		OracleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Duration of text completion calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Metrics are the processor's collectors. A nil *Metrics records nothing.
type Metrics struct {
	Runs           *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	Entries        *prometheus.CounterVec
	NoMatches      *prometheus.CounterVec
	RepliesPosted  prometheus.Counter
	PostFailures   prometheus.Counter
	OracleCalls    *prometheus.CounterVec
	OracleDuration prometheus.Histogram
}

// RunFinished records a run and its duration
func (m *Metrics) RunFinished(start time.Time, err error) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(resultLabel(err)).Inc()
	m.RunDuration.Observe(time.Since(start).Seconds())
}

// EntryCreated records a new moderation entry
func (m *Metrics) EntryCreated(status model.ModerationStatus) {
	if m == nil {
		return
	}
	m.Entries.WithLabelValues(string(status)).Inc()
}

// NoMatch records a skipped comment. Processing error reasons are collapsed
// into one label value.
func (m *Metrics) NoMatch(reason string) {
	if m == nil {
		return
	}
	if strings.HasPrefix(reason, model.ReasonProcessingErrorPrefix) {
		reason = "Processing error"
	}
	m.NoMatches.WithLabelValues(reason).Inc()
}

// ReplyPosted records a posted reply
func (m *Metrics) ReplyPosted() {
	if m == nil {
		return
	}
	m.RepliesPosted.Inc()
}

// PostFailed records a failed post
func (m *Metrics) PostFailed() {
	if m == nil {
		return
	}
	m.PostFailures.Inc()
}

// InstrumentCompleter wraps a completer to record call counts and durations
func InstrumentCompleter(completer model.TextCompleter, m *Metrics) model.TextCompleter {
	if m == nil {
		return completer
	}
	return &instrumentedCompleter{completer: completer, metrics: m}
}

type instrumentedCompleter struct {
	completer model.TextCompleter
	metrics   *Metrics
}

func (i *instrumentedCompleter) Complete(ctx context.Context, req *model.CompletionRequest) (string, error) {
	start := time.Now()
	resp, err := i.completer.Complete(ctx, req)
	i.metrics.OracleDuration.Observe(time.Since(start).Seconds())
	i.metrics.OracleCalls.WithLabelValues(resultLabel(err)).Inc()
	return resp, err
}

// Serve exposes the gatherer's metrics on addr at /metrics. It blocks until
// the server stops.
func Serve(addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Infof("Serving metrics on %v", addr)
	return server.ListenAndServe()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
