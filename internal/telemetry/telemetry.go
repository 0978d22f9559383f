package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discourselab/cosmos/config"
)

// Telemetry tracks per-stage performance and LLM cost across pipeline
// runs. A nil *Telemetry is valid and records nothing, so components can
// be built without observability in tests.
type Telemetry struct {
	config  config.TelemetryConfig
	logger  *log.Logger
	metrics *Metrics

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	llmTokens     *prometheus.CounterVec
	cacheOps      *prometheus.CounterVec

	mu sync.RWMutex
}

// Metrics holds the cumulative counters behind the snapshot API.
type Metrics struct {
	StageRuns     map[string]int64
	StageFailures map[string]int64
	StageTotals   map[string]time.Duration

	TierRequests map[string]int64
	TierTokens   map[string]int64
	TierCost     map[string]float64

	CacheHits   int64
	CacheMisses int64

	TotalCost   float64
	TotalTokens int64
}

// NewTelemetry creates a telemetry instance and registers its collectors
// with the given registerer (prometheus.DefaultRegisterer in production).
func NewTelemetry(cfg config.TelemetryConfig, reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			StageRuns:     make(map[string]int64),
			StageFailures: make(map[string]int64),
			StageTotals:   make(map[string]time.Duration),
			TierRequests:  make(map[string]int64),
			TierTokens:    make(map[string]int64),
			TierCost:      make(map[string]float64),
		},
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cosmos_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cosmos_stage_failures_total",
			Help: "Pipeline stage failures.",
		}, []string{"stage"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cosmos_llm_tokens_total",
			Help: "Tokens consumed per quality tier and direction.",
		}, []string{"tier", "direction"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cosmos_cache_ops_total",
			Help: "Result cache hits and misses.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(t.stageDuration, t.stageFailures, t.llmTokens, t.cacheOps)
	}
	return t
}

// RecordStage records one stage execution.
func (t *Telemetry) RecordStage(ctx context.Context, stage string, d time.Duration, err error) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.stageDuration.WithLabelValues(stage).Observe(d.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.StageRuns[stage]++
	t.metrics.StageTotals[stage] += d
	if err != nil {
		t.metrics.StageFailures[stage]++
		t.stageFailures.WithLabelValues(stage).Inc()
		t.logger.Printf("stage %s failed after %v: %v", stage, d, err)
		return
	}
	t.logger.Printf("stage %s completed in %v", stage, d)
}

// RecordLLMUsage records token and cost accounting for one tier.
func (t *Telemetry) RecordLLMUsage(tier string, inputTokens, outputTokens int64, cost float64) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.llmTokens.WithLabelValues(tier, "input").Add(float64(inputTokens))
	t.llmTokens.WithLabelValues(tier, "output").Add(float64(outputTokens))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.TierRequests[tier]++
	t.metrics.TierTokens[tier] += inputTokens + outputTokens
	t.metrics.TotalTokens += inputTokens + outputTokens
	if t.config.CostTracking {
		t.metrics.TierCost[tier] += cost
		t.metrics.TotalCost += cost
	}
}

// RecordCacheHit counts a result-cache hit.
func (t *Telemetry) RecordCacheHit() {
	if t == nil || !t.config.Enabled {
		return
	}
	t.cacheOps.WithLabelValues("hit").Inc()
	t.mu.Lock()
	t.metrics.CacheHits++
	t.mu.Unlock()
}

// RecordCacheMiss counts a result-cache miss.
func (t *Telemetry) RecordCacheMiss() {
	if t == nil || !t.config.Enabled {
		return
	}
	t.cacheOps.WithLabelValues("miss").Inc()
	t.mu.Lock()
	t.metrics.CacheMisses++
	t.mu.Unlock()
}

// Snapshot returns a copy of the cumulative counters.
func (t *Telemetry) Snapshot() Metrics {
	if t == nil {
		return Metrics{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := Metrics{
		StageRuns:     make(map[string]int64, len(t.metrics.StageRuns)),
		StageFailures: make(map[string]int64, len(t.metrics.StageFailures)),
		StageTotals:   make(map[string]time.Duration, len(t.metrics.StageTotals)),
		TierRequests:  make(map[string]int64, len(t.metrics.TierRequests)),
		TierTokens:    make(map[string]int64, len(t.metrics.TierTokens)),
		TierCost:      make(map[string]float64, len(t.metrics.TierCost)),
		CacheHits:     t.metrics.CacheHits,
		CacheMisses:   t.metrics.CacheMisses,
		TotalCost:     t.metrics.TotalCost,
		TotalTokens:   t.metrics.TotalTokens,
	}
	for k, v := range t.metrics.StageRuns {
		out.StageRuns[k] = v
	}
	for k, v := range t.metrics.StageFailures {
		out.StageFailures[k] = v
	}
	for k, v := range t.metrics.StageTotals {
		out.StageTotals[k] = v
	}
	for k, v := range t.metrics.TierRequests {
		out.TierRequests[k] = v
	}
	for k, v := range t.metrics.TierTokens {
		out.TierTokens[k] = v
	}
	for k, v := range t.metrics.TierCost {
		out.TierCost[k] = v
	}
	return out
}
