package cosmos

import (
	"context"
	"encoding/json"
	"log"
	"sort"
)

// Classifier places one new submission into an already-finalized layout.
// It never mutates the layout, never re-derives the vocabulary, and never
// re-runs layout synthesis; integrating the classified post into the
// stored layout is the caller's responsibility.
type Classifier struct {
	gateway           *Gateway
	logger            *log.Logger
	topPosts          int
	sampledPerCluster int
}

// NewClassifier builds an incremental classifier. topPosts caps how many
// high-importance posts enter the context window.
func NewClassifier(gateway *Gateway, logger *log.Logger, topPosts, sampledPerCluster int) *Classifier {
	if logger == nil {
		logger = log.New(log.Writer(), "[CLASSIFY] ", log.LstdFlags)
	}
	if topPosts <= 0 {
		topPosts = 40
	}
	if sampledPerCluster <= 0 {
		sampledPerCluster = 5
	}
	return &Classifier{gateway: gateway, logger: logger, topPosts: topPosts, sampledPerCluster: sampledPerCluster}
}

// classifiedRecord is the untrusted wire shape of the classifier call.
type classifiedRecord struct {
	Stance                string        `json:"stance"`
	Themes                []string      `json:"themes"`
	Emotion               string        `json:"emotion"`
	PostType              string        `json:"post_type"`
	Importance            int           `json:"importance"`
	CoreClaim             string        `json:"core_claim"`
	EmbeddingHint         EmbeddingHint `json:"embedding_hint"`
	ClosestPosts          []string      `json:"closest_posts"`
	RelationshipToClosest string        `json:"relationship_to_closest"`
	NarratorComment       string        `json:"narrator_comment"`
}

// Classify runs one gateway call over the condensed layout context and
// returns the classified post. closest_posts outside the supplied context
// set is a validation failure — the contract forbids invented ids.
func (c *Classifier) Classify(ctx context.Context, text string, layout *CosmosLayout, vocab Labels) (*ClassifiedPost, Usage, error) {
	if layout == nil || len(layout.Posts) == 0 {
		return nil, Usage{}, validationErrf("classify", "layout is empty")
	}

	contextIDs := c.contextIDs(layout)

	req := CompletionRequest{
		SystemPrompt: ClassifySystemPrompt(),
		UserMessage:  ClassifyUserPrompt(text, layout, vocab, c.sampledPerCluster, c.topPosts),
		MaxTokens:    2048,
		Tier:         TierFast,
	}
	payload, usage, err := c.gateway.CallJSON(ctx, req)
	if err != nil {
		return nil, usage, err
	}

	var rec classifiedRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, usage, validationErrf("classify", "unmarshaling classification: %v", err)
	}

	if len(rec.ClosestPosts) < 2 || len(rec.ClosestPosts) > 4 {
		return nil, usage, validationErrf("classify", "closest_posts has %d entries, need 2..4", len(rec.ClosestPosts))
	}
	for _, id := range rec.ClosestPosts {
		if _, ok := contextIDs[id]; !ok {
			return nil, usage, validationErrf("classify", "closest post %s is outside the supplied context", id)
		}
	}

	cp := &ClassifiedPost{
		EnrichedPost: EnrichedPost{
			RawPost:       RawPost{Content: text},
			Stance:        rec.Stance,
			Themes:        rec.Themes,
			Emotion:       rec.Emotion,
			PostType:      rec.PostType,
			Importance:    rec.Importance,
			CoreClaim:     rec.CoreClaim,
			EmbeddingHint: rec.EmbeddingHint,
		},
		ClosestPosts:          rec.ClosestPosts,
		RelationshipToClosest: rec.RelationshipToClosest,
		NarratorComment:       rec.NarratorComment,
	}
	return cp, usage, nil
}

// contextIDs is the exact id set handed to the model: sampled ids per
// cluster plus the top posts by importance.
func (c *Classifier) contextIDs(layout *CosmosLayout) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, cl := range layout.Clusters {
		sample := cl.PostIDs
		if len(sample) > c.sampledPerCluster {
			sample = sample[:c.sampledPerCluster]
		}
		for _, id := range sample {
			ids[id] = struct{}{}
		}
	}
	for _, p := range topPostsByImportance(layout.Posts, c.topPosts) {
		ids[p.ID] = struct{}{}
	}
	return ids
}

// topPostsByImportance returns up to n posts sorted by importance
// descending, ties broken by id for determinism.
func topPostsByImportance(posts []EnrichedPost, n int) []EnrichedPost {
	sorted := make([]EnrichedPost, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Importance != sorted[j].Importance {
			return sorted[i].Importance > sorted[j].Importance
		}
		return sorted[i].ID < sorted[j].ID
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
