package cosmos

import (
	"context"
	"time"
)

// RawPost is an unprocessed discussion item as delivered by the fetch
// collaborator. Immutable once produced; the pipeline never rewrites its
// fields and always treats them as ground truth.
type RawPost struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Author   string `json:"author"`
	ParentID string `json:"parent_id,omitempty"` // empty for top-level posts
	Depth    int    `json:"depth"`
	Upvotes  int    `json:"upvotes"` // may be negative
}

// Labels is the accumulated stance/theme/root-assumption vocabulary used
// to keep batches mutually consistent. Values are compared by exact string
// equality; the sets only ever grow within a run.
type Labels struct {
	Stances []string `json:"stances"`
	Themes  []string `json:"themes"`
	Roots   []string `json:"roots"`
}

// Emotion labels form a closed set of nine values.
var EmotionLabels = []string{
	"neutral", "curious", "excited", "frustrated", "skeptical",
	"hopeful", "angry", "amused", "concerned",
}

// PostType labels form a closed set of six values.
var PostTypeLabels = []string{
	"argument", "question", "anecdote", "data_point", "joke", "meta",
}

// LogicalChain places a post in the discussion's argument structure.
type LogicalChain struct {
	BuildsOn       []string `json:"builds_on"`
	RootAssumption string   `json:"root_assumption"`
	ChainDepth     int      `json:"chain_depth"` // 0..5
}

// Perception describes how one cluster/stance frames this post.
type Perception struct {
	Relevance float64 `json:"relevance"` // 0..1
	Framing   string  `json:"framing"`
}

// EmbeddingHint carries the model's own coordinate suggestion for a post,
// one value per axis, each in [-1,1].
type EmbeddingHint struct {
	OpinionAxis float64 `json:"opinion_axis"`
	Abstraction float64 `json:"abstraction"`
	Novelty     float64 `json:"novelty"`
}

// Relationship links a post to another post in the same discussion.
type Relationship struct {
	TargetID string  `json:"target_id"`
	Type     string  `json:"type"`     // agrees, disagrees, builds_upon, tangent, rebuts
	Strength float64 `json:"strength"` // 0..1
	Reason   string  `json:"reason"`
}

// EnrichedPost is a RawPost augmented with model-derived discourse
// metadata. The raw fields are re-asserted from the matching RawPost after
// every enrichment call; whatever the model returned for them is advisory.
type EnrichedPost struct {
	RawPost

	Stance        string                `json:"stance"`
	Themes        []string              `json:"themes"`
	Emotion       string                `json:"emotion"`
	PostType      string                `json:"post_type"`
	Importance    int                   `json:"importance"` // 1..10
	CoreClaim     string                `json:"core_claim"`
	Assumptions   []string              `json:"assumptions"`
	EvidenceCited []string              `json:"evidence_cited"`
	LogicalChain  LogicalChain          `json:"logical_chain"`
	PerceivedBy   map[string]Perception `json:"perceived_by,omitempty"`
	EmbeddingHint EmbeddingHint         `json:"embedding_hint"`
	Relationships []Relationship        `json:"relationships,omitempty"`

	// Position is populated from the layout call's refined_positions once
	// the discussion is finalized; nil until then.
	Position *Position `json:"position,omitempty"`
}

// Position is a point in the three-axis discussion space.
type Position struct {
	X float64 `json:"x"` // opinion spectrum
	Y float64 `json:"y"` // abstraction level
	Z float64 `json:"z"` // novelty
}

// Cluster is a named group of posts sharing stance/theme, with a
// representative center in the coordinate space.
type Cluster struct {
	ID              string            `json:"id"` // slug, unique within a layout
	Label           string            `json:"label"`
	Center          Position          `json:"center"`
	Summary         string            `json:"summary"`
	PostIDs         []string          `json:"post_ids"`
	RootAssumptions []string          `json:"root_assumptions,omitempty"`
	PerceivedAs     map[string]string `json:"perceived_as,omitempty"` // other cluster label -> framing
}

// Gap is a deliberately identified empty region representing an
// underrepresented perspective. It has no identity beyond its position.
type Gap struct {
	Position     Position `json:"position"`
	Description  string   `json:"description"`
	WhyItMatters string   `json:"why_it_matters"`
}

// CosmosLayout is the finalized aggregate of one pipeline run: every
// enriched post carrying a position, the clusters partitioning them,
// gaps, and bridge posts. Immutable once stored, except for append-only
// augmentation performed by the incremental classifier's caller.
type CosmosLayout struct {
	Topic          string         `json:"topic"`
	Posts          []EnrichedPost `json:"posts"`
	Clusters       []Cluster      `json:"clusters"`
	Gaps           []Gap          `json:"gaps,omitempty"`
	BridgePosts    []string       `json:"bridge_posts,omitempty"`
	SpatialSummary string         `json:"spatial_summary"`
	Metadata       LayoutMetadata `json:"metadata"`
}

// LayoutMetadata carries observability fields alongside a layout.
type LayoutMetadata struct {
	RunID            string   `json:"run_id,omitempty"`
	ThemeLabels      []string `json:"theme_labels"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	TokensUsed       int64    `json:"tokens_used,omitempty"`
	CostEstimate     float64  `json:"cost_estimate,omitempty"`
	EnrichmentCalls  int      `json:"enrichment_calls,omitempty"`
}

// ClassifiedPost is the incremental classifier's output for one user
// submission: an enriched-post-shaped record anchored to 2-4 existing
// posts. It never feeds back into the label vocabulary.
type ClassifiedPost struct {
	EnrichedPost

	ClosestPosts          []string `json:"closest_posts"` // 2..4 existing post ids
	RelationshipToClosest string   `json:"relationship_to_closest"`
	NarratorComment       string   `json:"narrator_comment"`
}

// SwipeEvent is an ephemeral session signal: a reaction to one post.
// Consumed only by the narrator query, never persisted by the core.
type SwipeEvent struct {
	PostID   string `json:"post_id"`
	Reaction string `json:"reaction"` // agree, disagree, skip, ...
}

// UserPosition is the session's current location in the discussion space.
type UserPosition struct {
	Position
}

// Tier selects the quality/latency trade-off for a gateway call.
type Tier string

const (
	TierFast Tier = "fast"
	TierDeep Tier = "deep"
)

// Usage reports token consumption of one inference call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// CompletionRequest is the outbound contract toward the inference service.
type CompletionRequest struct {
	SystemPrompt string
	UserMessage  string
	MaxTokens    int
	Tier         Tier
}

// LLMProvider is the injected inference-service client. Implementations
// return the raw text of the model's reply; extraction and validation are
// the gateway's and callers' problem.
type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, Usage, error)

	// CalculateCost converts token usage for the tier's model into USD.
	CalculateCost(usage Usage, tier Tier) float64
}

// CachedLayout is the persisted cache record for one finalized layout.
type CachedLayout struct {
	Key              string        `json:"key"`
	Topic            string        `json:"topic"`
	Layout           *CosmosLayout `json:"layout"`
	PostCount        int           `json:"post_count"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	CreatedAt        time.Time     `json:"created_at"`
}

// ResultCache is the content-addressed store for finalized layouts.
// Implementations may fail; the pipeline wraps them so that cache trouble
// never fails a run.
type ResultCache interface {
	Get(ctx context.Context, key string) (*CachedLayout, error)
	Set(ctx context.Context, key string, rec *CachedLayout) error
}

// RunStatus tracks one pipeline run's progress for observers.
type RunStatus struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	Stage       string    `json:"stage"` // pending, enriching, layout, completed, failed
	Progress    float64   `json:"progress"`
	Detail      string    `json:"detail,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}
