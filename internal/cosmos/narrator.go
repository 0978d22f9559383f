package cosmos

import (
	"fmt"
	"strings"
)

// NarratorContext is the bounded, read-only view of a finalized layout
// that the conversational narrator collaborator queries. Session signals
// (swipes, the user's position) are folded in; nothing here mutates or
// persists anything.
type NarratorContext struct {
	Topic          string
	SpatialSummary string
	ClusterLines   []string
	NearbyPosts    []string
	Reactions      map[string]string // post id -> reaction
}

// BuildNarratorContext condenses a layout plus session signals into the
// narrator's query context. limit caps how many nearby posts are listed;
// nearby is measured from the user's current position when present,
// otherwise the most important posts are used.
func BuildNarratorContext(layout *CosmosLayout, swipes []SwipeEvent, pos *UserPosition, limit int) NarratorContext {
	if limit <= 0 {
		limit = 10
	}
	nc := NarratorContext{
		Topic:          layout.Topic,
		SpatialSummary: layout.SpatialSummary,
		Reactions:      make(map[string]string, len(swipes)),
	}

	for _, c := range layout.Clusters {
		nc.ClusterLines = append(nc.ClusterLines,
			fmt.Sprintf("%s (%d posts): %s", c.Label, len(c.PostIDs), c.Summary))
	}

	for _, s := range swipes {
		if s.PostID != "" && s.Reaction != "" {
			nc.Reactions[s.PostID] = s.Reaction
		}
	}

	candidates := topPostsByImportance(layout.Posts, 0)
	if pos != nil {
		candidates = sortByDistance(layout.Posts, pos.Position)
	}
	for _, p := range candidates {
		if len(nc.NearbyPosts) >= limit {
			break
		}
		nc.NearbyPosts = append(nc.NearbyPosts,
			fmt.Sprintf("id=%s stance=%q claim=%q", p.ID, p.Stance, p.CoreClaim))
	}
	return nc
}

// Render flattens the context into the prompt text the narrator consumes.
func (nc NarratorContext) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TOPIC: %s\nSUMMARY: %s\n\nCLUSTERS:\n", nc.Topic, nc.SpatialSummary)
	for _, line := range nc.ClusterLines {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\nNEARBY POSTS:\n")
	for _, line := range nc.NearbyPosts {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	if len(nc.Reactions) > 0 {
		b.WriteString("\nSESSION REACTIONS:\n")
		for id, r := range nc.Reactions {
			fmt.Fprintf(&b, "- %s: %s\n", id, r)
		}
	}
	return b.String()
}

func sortByDistance(posts []EnrichedPost, from Position) []EnrichedPost {
	sorted := make([]EnrichedPost, 0, len(posts))
	for _, p := range posts {
		if p.Position != nil {
			sorted = append(sorted, p)
		}
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && distance(*sorted[j].Position, from) < distance(*sorted[j-1].Position, from); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}
