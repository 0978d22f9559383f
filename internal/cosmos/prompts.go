package cosmos

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/discourselab/cosmos/config"
)

const enrichmentSystemPrompt = `You are a discourse analyst mapping an online discussion.
For every post you receive you produce structured metadata: stance, themes,
emotion, post type, importance, core claim, assumptions, evidence, logical
chain, per-cluster perception, embedding hints and relationships.

RULES:
1. Respond ONLY with a valid JSON array, one object per input post, same order.
2. Keep the "id" of each post exactly as given.
3. "emotion" must be one of: %s.
4. "post_type" must be one of: %s.
5. "importance" is an integer 1-10.
6. "logical_chain.chain_depth" is an integer 0-5.
7. "embedding_hint" values are numbers in [-1,1].
8. Relationship "type" is one of: agrees, disagrees, builds_upon, tangent, rebuts.

Each object has this shape:
{"id": string, "stance": string, "themes": [string], "emotion": string,
 "post_type": string, "importance": int, "core_claim": string,
 "assumptions": [string], "evidence_cited": [string],
 "logical_chain": {"builds_on": [string], "root_assumption": string, "chain_depth": int},
 "perceived_by": {label: {"relevance": number, "framing": string}},
 "embedding_hint": {"opinion_axis": number, "abstraction": number, "novelty": number},
 "relationships": [{"target_id": string, "type": string, "strength": number, "reason": string}]}
Do not include any other text or explanation.`

// EnrichmentSystemPrompt renders the batch-enrichment instruction with the
// closed emotion/post-type sets baked in.
func EnrichmentSystemPrompt() string {
	return fmt.Sprintf(enrichmentSystemPrompt,
		strings.Join(EmotionLabels, ", "),
		strings.Join(PostTypeLabels, ", "))
}

// EnrichmentUserPrompt renders one batch's payload. For every batch after
// the first, the accumulated vocabulary is included verbatim with an
// instruction to reuse the exact strings.
func EnrichmentUserPrompt(topic string, batch []RawPost, vocab Labels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DISCUSSION TOPIC: %q\n\n", topic)

	if !vocab.IsEmpty() {
		b.WriteString("LABELS ALREADY IN USE (reuse these EXACT strings; only invent a new label when none of these fits):\n")
		fmt.Fprintf(&b, "stances: %s\n", strings.Join(vocab.Stances, " | "))
		fmt.Fprintf(&b, "themes: %s\n", strings.Join(vocab.Themes, " | "))
		fmt.Fprintf(&b, "root_assumptions: %s\n\n", strings.Join(vocab.Roots, " | "))
	}

	b.WriteString("POSTS:\n")
	payload, _ := json.Marshal(batch)
	b.Write(payload)
	return b.String()
}

const layoutSystemPrompt = `You are a spatial cartographer arranging an analyzed discussion in 3D.
Axis X is the opinion spectrum, axis Y the abstraction level, axis Z novelty.
All coordinates must lie in [%.0f, %.0f] on every axis.

CONSTRAINTS:
1. Produce between %d and %d clusters.
2. Every input post id appears in "refined_positions" AND in exactly one cluster's "post_ids".
3. Cluster centers must be at least %.1f apart from each other.
4. Keep each post within %.1f of its cluster's center.
5. Cluster "id" is a short lowercase slug, unique.
6. "perceived_as" maps each OTHER cluster's label to how that cluster would frame this one.
7. Optionally mark "gaps" (underrepresented perspectives) and "bridge_posts" (ids spanning clusters).

Respond ONLY with valid JSON:
{"clusters": [{"id": string, "label": string, "center": [x,y,z], "summary": string,
  "post_ids": [string], "root_assumptions": [string], "perceived_as": {label: string}}],
 "refined_positions": {post_id: [x,y,z]},
 "gaps": [{"position": [x,y,z], "description": string, "why_it_matters": string}],
 "bridge_posts": [string],
 "spatial_summary": string}
Do not include any other text or explanation.`

// LayoutSystemPrompt renders the layout instruction with the declared
// coordinate constraints.
func LayoutSystemPrompt(lc config.LayoutConfig) string {
	return fmt.Sprintf(layoutSystemPrompt,
		lc.AxisMin, lc.AxisMax,
		lc.MinClusters, lc.MaxClusters,
		lc.MinClusterDist, lc.MaxPostRadius)
}

// condensedPost is the slimmed-down view of an enriched post that the
// layout call needs for placement.
type condensedPost struct {
	ID            string        `json:"id"`
	Stance        string        `json:"stance"`
	Themes        []string      `json:"themes"`
	PostType      string        `json:"post_type"`
	Importance    int           `json:"importance"`
	CoreClaim     string        `json:"core_claim"`
	Root          string        `json:"root_assumption,omitempty"`
	EmbeddingHint EmbeddingHint `json:"embedding_hint"`
	Depth         int           `json:"depth"`
	Upvotes       int           `json:"upvotes"`
}

// LayoutUserPrompt renders the layout payload: all enriched posts condensed
// to placement-relevant fields, plus the final vocabulary.
func LayoutUserPrompt(topic string, posts []EnrichedPost, vocab Labels) string {
	condensed := make([]condensedPost, len(posts))
	for i, p := range posts {
		condensed[i] = condensedPost{
			ID:            p.ID,
			Stance:        p.Stance,
			Themes:        p.Themes,
			PostType:      p.PostType,
			Importance:    p.Importance,
			CoreClaim:     p.CoreClaim,
			Root:          p.LogicalChain.RootAssumption,
			EmbeddingHint: p.EmbeddingHint,
			Depth:         p.Depth,
			Upvotes:       p.Upvotes,
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DISCUSSION TOPIC: %q\n\n", topic)
	fmt.Fprintf(&b, "LABEL VOCABULARY:\nstances: %s\nthemes: %s\nroot_assumptions: %s\n\n",
		strings.Join(vocab.Stances, " | "),
		strings.Join(vocab.Themes, " | "),
		strings.Join(vocab.Roots, " | "))
	b.WriteString("POSTS:\n")
	payload, _ := json.Marshal(condensed)
	b.Write(payload)
	return b.String()
}

const classifySystemPrompt = `You are placing ONE new post into an already-finalized discussion map.
You receive the map's clusters and a sample of its most important posts.

RULES:
1. Respond ONLY with a single valid JSON object.
2. "closest_posts" contains 2-4 post ids, and ONLY ids listed in the context below. Never invent an id.
3. "stance" and "themes" should reuse the map's existing labels when one fits.
4. "emotion" must be one of: %s. "post_type" must be one of: %s.
5. Do not restructure the map; you only classify the new post.

Shape:
{"stance": string, "themes": [string], "emotion": string, "post_type": string,
 "importance": int, "core_claim": string,
 "embedding_hint": {"opinion_axis": number, "abstraction": number, "novelty": number},
 "closest_posts": [string], "relationship_to_closest": string,
 "narrator_comment": string}`

// ClassifySystemPrompt renders the incremental-classification instruction.
func ClassifySystemPrompt() string {
	return fmt.Sprintf(classifySystemPrompt,
		strings.Join(EmotionLabels, ", "),
		strings.Join(PostTypeLabels, ", "))
}

// ClassifyUserPrompt renders the condensed context: per-cluster summaries
// with sampled post ids and the top posts by importance, plus the
// submission text.
func ClassifyUserPrompt(text string, layout *CosmosLayout, vocab Labels, sampledPerCluster, topPosts int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DISCUSSION TOPIC: %q\n\n", layout.Topic)
	fmt.Fprintf(&b, "LABEL VOCABULARY:\nstances: %s\nthemes: %s\n\n",
		strings.Join(vocab.Stances, " | "),
		strings.Join(vocab.Themes, " | "))

	b.WriteString("CLUSTERS:\n")
	for _, c := range layout.Clusters {
		ids := c.PostIDs
		if sampledPerCluster > 0 && len(ids) > sampledPerCluster {
			ids = ids[:sampledPerCluster]
		}
		fmt.Fprintf(&b, "- %s (%s): %s [sample ids: %s]\n", c.Label, c.ID, c.Summary, strings.Join(ids, ", "))
	}

	b.WriteString("\nTOP POSTS:\n")
	for _, p := range topPostsByImportance(layout.Posts, topPosts) {
		fmt.Fprintf(&b, "- id=%s stance=%q importance=%d claim=%q\n", p.ID, p.Stance, p.Importance, p.CoreClaim)
	}

	fmt.Fprintf(&b, "\nNEW POST:\n%s\n", text)
	return b.String()
}
