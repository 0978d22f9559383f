package cosmos

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Engine is the batch enrichment engine: it partitions the raw posts,
// runs one gateway call per batch, reconciles the model's output against
// the source-of-truth raw fields, and threads the accumulated label
// vocabulary from batch to batch.
//
// Batches are processed strictly sequentially: each batch's prompt embeds
// the vocabulary accumulated from all prior batches, so running them
// concurrently would silently diverge the label sets.
type Engine struct {
	gateway   *Gateway
	logger    *log.Logger
	batchSize int
	maxTokens int
}

// NewEngine builds an enrichment engine over the given gateway.
func NewEngine(gateway *Gateway, logger *log.Logger, batchSize int) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[ENRICH] ", log.LstdFlags)
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Engine{
		gateway:   gateway,
		logger:    logger,
		batchSize: batchSize,
		maxTokens: 8192,
	}
}

// EnrichResult carries the engine's output plus call accounting.
type EnrichResult struct {
	Posts  []EnrichedPost
	Labels Labels
	Calls  int
	Usage  Usage
}

// EnrichAll enriches the full post sequence. A single batch failure aborts
// the whole run; there is no partial-result salvage across batches.
func (e *Engine) EnrichAll(ctx context.Context, posts []RawPost, topic string) (EnrichResult, error) {
	var res EnrichResult
	batches := PartitionPosts(posts, e.batchSize)

	for i, batch := range batches {
		enriched, usage, err := e.enrichBatch(ctx, batch, topic, res.Labels)
		if err != nil {
			return EnrichResult{}, fmt.Errorf("enriching batch %d/%d: %w", i+1, len(batches), err)
		}
		res.Posts = append(res.Posts, enriched...)
		res.Calls++
		res.Usage.InputTokens += usage.InputTokens
		res.Usage.OutputTokens += usage.OutputTokens

		// Re-derive the vocabulary from everything enriched so far; the
		// next batch's prompt carries it verbatim.
		res.Labels = AccumulateLabels(res.Posts)
	}
	return res, nil
}

// PartitionPosts splits posts into order-preserving batches of at most
// size elements. Deterministic: same input, same partition.
func PartitionPosts(posts []RawPost, size int) [][]RawPost {
	if size <= 0 || len(posts) == 0 {
		if len(posts) == 0 {
			return nil
		}
		return [][]RawPost{posts}
	}
	var batches [][]RawPost
	for start := 0; start < len(posts); start += size {
		end := start + size
		if end > len(posts) {
			end = len(posts)
		}
		batches = append(batches, posts[start:end])
	}
	return batches
}

// enrichedRecord is the untrusted wire shape of one model-produced post.
// Raw-post fields the model may have echoed back are deliberately absent:
// they are re-asserted from the source batch.
type enrichedRecord struct {
	ID            string                `json:"id"`
	Stance        string                `json:"stance"`
	Themes        []string              `json:"themes"`
	Emotion       string                `json:"emotion"`
	PostType      string                `json:"post_type"`
	Importance    int                   `json:"importance"`
	CoreClaim     string                `json:"core_claim"`
	Assumptions   []string              `json:"assumptions"`
	EvidenceCited []string              `json:"evidence_cited"`
	LogicalChain  LogicalChain          `json:"logical_chain"`
	PerceivedBy   map[string]Perception `json:"perceived_by"`
	EmbeddingHint EmbeddingHint         `json:"embedding_hint"`
	Relationships []Relationship        `json:"relationships"`
}

func (e *Engine) enrichBatch(ctx context.Context, batch []RawPost, topic string, vocab Labels) ([]EnrichedPost, Usage, error) {
	req := CompletionRequest{
		SystemPrompt: EnrichmentSystemPrompt(),
		UserMessage:  EnrichmentUserPrompt(topic, batch, vocab),
		MaxTokens:    e.maxTokens,
		Tier:         TierFast,
	}
	payload, usage, err := e.gateway.CallJSON(ctx, req)
	if err != nil {
		return nil, usage, err
	}

	var records []enrichedRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, usage, validationErrf("enrichment", "expected a JSON array of enriched posts: %v", err)
	}

	byID := make(map[string]RawPost, len(batch))
	for _, p := range batch {
		byID[p.ID] = p
	}

	out := make([]EnrichedPost, 0, len(records))
	for _, rec := range records {
		ep := EnrichedPost{
			Stance:        rec.Stance,
			Themes:        rec.Themes,
			Emotion:       rec.Emotion,
			PostType:      rec.PostType,
			Importance:    rec.Importance,
			CoreClaim:     rec.CoreClaim,
			Assumptions:   rec.Assumptions,
			EvidenceCited: rec.EvidenceCited,
			LogicalChain:  rec.LogicalChain,
			PerceivedBy:   rec.PerceivedBy,
			EmbeddingHint: rec.EmbeddingHint,
			Relationships: rec.Relationships,
		}
		if raw, ok := byID[rec.ID]; ok {
			// Re-stitch ground truth; model output for raw fields is
			// advisory only and gets discarded here.
			ep.RawPost = raw
		} else {
			// Known weak point: record ids the model invented (or mangled)
			// pass through unmodified rather than being dropped.
			e.logger.Printf("warning: enriched record id %q not found in source batch, passing through", rec.ID)
			ep.RawPost = RawPost{ID: rec.ID}
		}
		out = append(out, ep)
	}
	return out, usage, nil
}
