package cosmos

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/telemetry"
)

// Pipeline coordinates the full run: cache probe, batched enrichment with
// vocabulary propagation, the single layout call, and the cache write.
// Independent runs share nothing but the cache client; concurrency is
// bounded by a semaphore.
type Pipeline struct {
	cfg        config.PipelineConfig
	engine     *Engine
	synth      *Synthesizer
	classifier *Classifier
	provider   LLMProvider
	cache      *softCache
	telemetry  *telemetry.Telemetry
	logger     *log.Logger

	statuses map[string]*RunStatus
	mu       sync.RWMutex

	semaphore chan struct{}
}

// NewPipeline wires the pipeline from injected dependencies. cache may be
// nil; the pipeline then runs uncached.
func NewPipeline(cfg config.PipelineConfig, provider LLMProvider, cache ResultCache, tele *telemetry.Telemetry, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	gateway := NewGateway(provider, nil)
	maxRuns := cfg.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = 4
	}
	return &Pipeline{
		cfg:        cfg,
		engine:     NewEngine(gateway, nil, cfg.BatchSize),
		synth:      NewSynthesizer(gateway, nil, cfg.Layout),
		classifier: NewClassifier(gateway, nil, cfg.ClassifyTopPosts, cfg.Layout.SampledPerCluster),
		provider:   provider,
		cache:      newSoftCache(cache, nil),
		telemetry:  tele,
		logger:     logger,
		statuses:   make(map[string]*RunStatus),
		semaphore:  make(chan struct{}, maxRuns),
	}
}

// Run turns a raw post sequence into a finalized, cached CosmosLayout.
// A previously computed layout for the same source is returned from the
// cache without touching the inference service.
func (p *Pipeline) Run(ctx context.Context, sourceID, topic string, posts []RawPost) (*CosmosLayout, error) {
	key := CacheKey(sourceID)
	if rec := p.cache.Get(ctx, key); rec != nil && rec.Layout != nil {
		p.logger.Printf("cache hit for source %s (%d posts)", sourceID, rec.PostCount)
		p.telemetry.RecordCacheHit()
		return rec.Layout, nil
	}
	p.telemetry.RecordCacheMiss()

	if err := validateRawPosts(posts); err != nil {
		return nil, err
	}

	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	runID := uuid.New().String()
	status := p.trackRun(runID, sourceID)

	started := time.Now()
	p.logger.Printf("run %s: %d posts on %q", runID, len(posts), topic)

	p.updateStatus(status, "enriching", 0.1, fmt.Sprintf("enriching %d posts", len(posts)))
	enrichStart := time.Now()
	enriched, err := p.engine.EnrichAll(ctx, posts, topic)
	p.telemetry.RecordStage(ctx, "enrich", time.Since(enrichStart), err)
	if err != nil {
		p.updateStatus(status, "failed", 0, err.Error())
		return nil, fmt.Errorf("enrichment failed: %w", err)
	}
	p.telemetry.RecordLLMUsage(string(TierFast), enriched.Usage.InputTokens, enriched.Usage.OutputTokens,
		p.provider.CalculateCost(enriched.Usage, TierFast))

	p.updateStatus(status, "layout", 0.7, "synthesizing spatial layout")
	layoutStart := time.Now()
	layout, layoutUsage, err := p.synth.Synthesize(ctx, enriched.Posts, enriched.Labels, topic)
	p.telemetry.RecordStage(ctx, "layout", time.Since(layoutStart), err)
	if err != nil {
		p.updateStatus(status, "failed", 0, err.Error())
		return nil, fmt.Errorf("layout synthesis failed: %w", err)
	}
	p.telemetry.RecordLLMUsage(string(TierDeep), layoutUsage.InputTokens, layoutUsage.OutputTokens,
		p.provider.CalculateCost(layoutUsage, TierDeep))

	elapsed := time.Since(started)
	totalUsage := Usage{
		InputTokens:  enriched.Usage.InputTokens + layoutUsage.InputTokens,
		OutputTokens: enriched.Usage.OutputTokens + layoutUsage.OutputTokens,
	}
	layout.Metadata.RunID = runID
	layout.Metadata.ProcessingTimeMs = elapsed.Milliseconds()
	layout.Metadata.TokensUsed = totalUsage.InputTokens + totalUsage.OutputTokens
	layout.Metadata.CostEstimate = p.provider.CalculateCost(enriched.Usage, TierFast) +
		p.provider.CalculateCost(layoutUsage, TierDeep)
	layout.Metadata.EnrichmentCalls = enriched.Calls

	p.cache.Set(ctx, key, &CachedLayout{
		Key:              key,
		Topic:            topic,
		Layout:           layout,
		PostCount:        len(layout.Posts),
		ProcessingTimeMs: elapsed.Milliseconds(),
		CreatedAt:        time.Now().UTC(),
	})

	p.updateStatus(status, "completed", 1.0, "")
	p.logger.Printf("run %s completed in %v: %d posts, %d clusters", runID, elapsed, len(layout.Posts), len(layout.Clusters))
	return layout, nil
}

// Lookup probes the cache for a previously computed layout.
func (p *Pipeline) Lookup(ctx context.Context, sourceID string) (*CachedLayout, bool) {
	rec := p.cache.Get(ctx, CacheKey(sourceID))
	if rec == nil || rec.Layout == nil {
		return nil, false
	}
	return rec, true
}

// Classify places one new submission into a finalized layout. The stored
// layout is left untouched; merging is the caller's concern.
func (p *Pipeline) Classify(ctx context.Context, text string, layout *CosmosLayout) (*ClassifiedPost, error) {
	vocab := AccumulateLabels(layout.Posts)
	start := time.Now()
	cp, usage, err := p.classifier.Classify(ctx, text, layout, vocab)
	p.telemetry.RecordStage(ctx, "classify", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	p.telemetry.RecordLLMUsage(string(TierFast), usage.InputTokens, usage.OutputTokens,
		p.provider.CalculateCost(usage, TierFast))
	return cp, nil
}

// Status returns a snapshot of the latest run for a source. Entries are
// keyed by the caller's source identifier so observers can poll progress
// without knowing the run id Run generates internally; the final
// completed/failed state stays queryable until the next run overwrites it.
func (p *Pipeline) Status(sourceID string) (RunStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.statuses[sourceID]
	if !ok {
		return RunStatus{}, false
	}
	return *s, true
}

func (p *Pipeline) trackRun(runID, source string) *RunStatus {
	status := &RunStatus{
		RunID:       runID,
		Source:      source,
		Stage:       "pending",
		CreatedAt:   time.Now(),
		LastUpdated: time.Now(),
	}
	p.mu.Lock()
	p.statuses[source] = status
	p.mu.Unlock()
	return status
}

func (p *Pipeline) updateStatus(status *RunStatus, stage string, progress float64, detail string) {
	p.mu.Lock()
	status.Stage = stage
	status.Progress = progress
	status.Detail = detail
	if stage == "failed" {
		status.Error = detail
	}
	status.LastUpdated = time.Now()
	p.mu.Unlock()
}

// validateRawPosts enforces the one hard precondition on input: unique,
// non-empty post ids.
func validateRawPosts(posts []RawPost) error {
	if len(posts) == 0 {
		return validationErrf("input", "no posts supplied")
	}
	seen := make(map[string]struct{}, len(posts))
	for i, p := range posts {
		if p.ID == "" {
			return validationErrf("input", "post at index %d has empty id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return validationErrf("input", "duplicate post id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
