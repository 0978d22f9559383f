package cosmos

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/discourselab/cosmos/config"
)

// Synthesizer runs the single spatial layout call over the whole enriched
// discussion and validates the structural invariants of its output.
// Numeric placement is the model's job under the declared constraints;
// the synthesizer only validates, it never recomputes positions.
type Synthesizer struct {
	gateway *Gateway
	logger  *log.Logger
	cfg     config.LayoutConfig
}

// NewSynthesizer builds a layout synthesizer with the declared coordinate
// constraints.
func NewSynthesizer(gateway *Gateway, logger *log.Logger, cfg config.LayoutConfig) *Synthesizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[LAYOUT] ", log.LstdFlags)
	}
	return &Synthesizer{gateway: gateway, logger: logger, cfg: cfg}
}

// layoutResponse is the untrusted wire shape of the layout call.
type layoutResponse struct {
	Clusters []struct {
		ID              string            `json:"id"`
		Label           string            `json:"label"`
		Center          []float64         `json:"center"`
		Summary         string            `json:"summary"`
		PostIDs         []string          `json:"post_ids"`
		RootAssumptions []string          `json:"root_assumptions"`
		PerceivedAs     map[string]string `json:"perceived_as"`
	} `json:"clusters"`
	RefinedPositions map[string][]float64 `json:"refined_positions"`
	Gaps             []struct {
		Position     []float64 `json:"position"`
		Description  string    `json:"description"`
		WhyItMatters string    `json:"why_it_matters"`
	} `json:"gaps"`
	BridgePosts    []string `json:"bridge_posts"`
	SpatialSummary string   `json:"spatial_summary"`
}

// Synthesize issues the layout call and returns the finalized layout with
// every post carrying its refined position. Any structural violation is a
// pipeline failure; no partial correction is attempted.
func (s *Synthesizer) Synthesize(ctx context.Context, enriched []EnrichedPost, vocab Labels, topic string) (*CosmosLayout, Usage, error) {
	if len(enriched) == 0 {
		return nil, Usage{}, validationErrf("layout", "no enriched posts to lay out")
	}

	req := CompletionRequest{
		SystemPrompt: LayoutSystemPrompt(s.cfg),
		UserMessage:  LayoutUserPrompt(topic, enriched, vocab),
		MaxTokens:    16384,
		Tier:         TierDeep,
	}
	payload, usage, err := s.gateway.CallJSON(ctx, req)
	if err != nil {
		return nil, usage, err
	}

	var resp layoutResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, usage, validationErrf("layout", "unmarshaling layout response: %v", err)
	}

	layout, err := s.validate(resp, enriched, topic, vocab)
	if err != nil {
		return nil, usage, err
	}
	return layout, usage, nil
}

func (s *Synthesizer) validate(resp layoutResponse, enriched []EnrichedPost, topic string, vocab Labels) (*CosmosLayout, error) {
	want := make(map[string]struct{}, len(enriched))
	for _, p := range enriched {
		want[p.ID] = struct{}{}
	}

	// Cluster-count bounds. Discussions smaller than the configured lower
	// bound cannot honor it, so it degrades to the post count.
	minClusters := s.cfg.MinClusters
	if len(enriched) < minClusters {
		minClusters = len(enriched)
	}
	if len(resp.Clusters) < minClusters || len(resp.Clusters) > s.cfg.MaxClusters {
		return nil, validationErrf("layout", "cluster count %d outside %d..%d", len(resp.Clusters), minClusters, s.cfg.MaxClusters)
	}

	// Every post id must have a finite 3-coordinate position within range.
	positions := make(map[string]Position, len(resp.RefinedPositions))
	for id := range want {
		coords, ok := resp.RefinedPositions[id]
		if !ok {
			return nil, validationErrf("layout", "post %s missing from refined_positions", id)
		}
		pos, err := s.coords(coords)
		if err != nil {
			return nil, validationErrf("layout", "post %s position: %v", id, err)
		}
		positions[id] = pos
	}

	// Exactly-one-cluster partition: the union of cluster post_ids equals
	// the enriched id set, no duplicates, no unknown ids.
	assigned := make(map[string]string, len(enriched))
	clusterIDs := make(map[string]struct{}, len(resp.Clusters))
	clusters := make([]Cluster, 0, len(resp.Clusters))
	for _, c := range resp.Clusters {
		if c.ID == "" || c.Label == "" {
			return nil, validationErrf("layout", "cluster missing id or label")
		}
		if _, dup := clusterIDs[c.ID]; dup {
			return nil, validationErrf("layout", "duplicate cluster id %s", c.ID)
		}
		clusterIDs[c.ID] = struct{}{}

		center, err := s.coords(c.Center)
		if err != nil {
			return nil, validationErrf("layout", "cluster %s center: %v", c.ID, err)
		}
		for _, id := range c.PostIDs {
			if _, known := want[id]; !known {
				return nil, validationErrf("layout", "cluster %s references unknown post %s", c.ID, id)
			}
			if prev, seen := assigned[id]; seen {
				return nil, validationErrf("layout", "post %s assigned to both %s and %s", id, prev, c.ID)
			}
			assigned[id] = c.ID
		}
		clusters = append(clusters, Cluster{
			ID:              c.ID,
			Label:           c.Label,
			Center:          center,
			Summary:         c.Summary,
			PostIDs:         c.PostIDs,
			RootAssumptions: c.RootAssumptions,
			PerceivedAs:     c.PerceivedAs,
		})
	}
	for id := range want {
		if _, ok := assigned[id]; !ok {
			return nil, validationErrf("layout", "post %s not assigned to any cluster", id)
		}
	}

	// Centers must honor the declared minimum mutual separation.
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			if d := distance(clusters[i].Center, clusters[j].Center); d < s.cfg.MinClusterDist {
				return nil, validationErrf("layout", "clusters %s and %s centers %.2f apart, need >= %.2f",
					clusters[i].ID, clusters[j].ID, d, s.cfg.MinClusterDist)
			}
		}
	}

	// Bridge posts are advisory but must reference known ids.
	for _, id := range resp.BridgePosts {
		if _, ok := want[id]; !ok {
			return nil, validationErrf("layout", "bridge post %s is not a known post id", id)
		}
	}

	gaps := make([]Gap, 0, len(resp.Gaps))
	for i, g := range resp.Gaps {
		pos, err := s.coords(g.Position)
		if err != nil {
			return nil, validationErrf("layout", "gap %d position: %v", i, err)
		}
		gaps = append(gaps, Gap{Position: pos, Description: g.Description, WhyItMatters: g.WhyItMatters})
	}

	// Stitch positions onto the enriched posts.
	posts := make([]EnrichedPost, len(enriched))
	copy(posts, enriched)
	for i := range posts {
		pos := positions[posts[i].ID]
		posts[i].Position = &pos
	}

	themeLabels := append([]string(nil), vocab.Themes...)
	sort.Strings(themeLabels)

	return &CosmosLayout{
		Topic:          topic,
		Posts:          posts,
		Clusters:       clusters,
		Gaps:           gaps,
		BridgePosts:    resp.BridgePosts,
		SpatialSummary: resp.SpatialSummary,
		Metadata:       LayoutMetadata{ThemeLabels: themeLabels},
	}, nil
}

// coords validates a wire coordinate triple: exactly three finite numbers
// inside the declared axis range.
func (s *Synthesizer) coords(v []float64) (Position, error) {
	if len(v) != 3 {
		return Position{}, fmt.Errorf("expected 3 coordinates, got %d", len(v))
	}
	for i, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Position{}, fmt.Errorf("coordinate %d is not finite", i)
		}
		if c < s.cfg.AxisMin || c > s.cfg.AxisMax {
			return Position{}, fmt.Errorf("coordinate %d (%v) outside [%v,%v]", i, c, s.cfg.AxisMin, s.cfg.AxisMax)
		}
	}
	return Position{X: v[0], Y: v[1], Z: v[2]}, nil
}

func distance(a, b Position) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
