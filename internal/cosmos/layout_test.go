package cosmos

import (
	"context"
	"strings"
	"testing"

	"github.com/discourselab/cosmos/config"
)

func testLayoutConfig() config.LayoutConfig {
	return config.LayoutConfig{
		AxisMin:           -10,
		AxisMax:           10,
		MinClusterDist:    4.0,
		MaxPostRadius:     6.0,
		MinClusters:       3,
		MaxClusters:       7,
		SampledPerCluster: 5,
	}
}

func testSynthesizer(reply string) (*Synthesizer, *scriptedProvider) {
	p := &scriptedProvider{replies: []string{reply}}
	return NewSynthesizer(testGateway(p), quietLogger(), testLayoutConfig()), p
}

const validTwoClusterReply = `{
  "clusters": [
    {"id": "pro", "label": "Pro side", "center": [-5, 0, 0], "summary": "s1", "post_ids": ["p1"]},
    {"id": "con", "label": "Con side", "center": [5, 0, 0], "summary": "s2", "post_ids": ["p2"]}
  ],
  "refined_positions": {"p1": [-4.5, 1, 0], "p2": [4.5, -1, 0]},
  "gaps": [{"position": [0, 5, 5], "description": "middle ground", "why_it_matters": "unexplored"}],
  "bridge_posts": ["p1"],
  "spatial_summary": "two opposing camps"
}`

func twoEnriched() []EnrichedPost {
	return []EnrichedPost{
		{RawPost: RawPost{ID: "p1"}, Stance: "pro", Themes: []string{"b-theme", "a-theme"}},
		{RawPost: RawPost{ID: "p2"}, Stance: "con", Themes: []string{"a-theme"}},
	}
}

func TestSynthesizeAcceptsValidLayout(t *testing.T) {
	s, _ := testSynthesizer(validTwoClusterReply)

	enriched := twoEnriched()
	vocab := AccumulateLabels(enriched)
	layout, _, err := s.Synthesize(context.Background(), enriched, vocab, "topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(layout.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(layout.Clusters))
	}
	for _, p := range layout.Posts {
		if p.Position == nil {
			t.Fatalf("post %s has no stitched position", p.ID)
		}
	}
	if layout.Posts[0].Position.X != -4.5 {
		t.Fatalf("unexpected position for p1: %+v", layout.Posts[0].Position)
	}
	if layout.SpatialSummary != "two opposing camps" {
		t.Fatalf("summary lost: %q", layout.SpatialSummary)
	}
	// Theme labels land in metadata, sorted.
	if got := strings.Join(layout.Metadata.ThemeLabels, ","); got != "a-theme,b-theme" {
		t.Fatalf("unexpected theme labels: %v", layout.Metadata.ThemeLabels)
	}
}

func TestSynthesizeMinClustersDegradesForTinyInputs(t *testing.T) {
	// Two posts cannot honor the configured minimum of three clusters;
	// the bound degrades to the post count.
	s, _ := testSynthesizer(validTwoClusterReply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err != nil {
		t.Fatalf("two clusters over two posts should be accepted: %v", err)
	}
}

func TestSynthesizeRejectsMissingPosition(t *testing.T) {
	reply := `{
	  "clusters": [
	    {"id": "pro", "label": "Pro", "center": [-5, 0, 0], "summary": "", "post_ids": ["p1"]},
	    {"id": "con", "label": "Con", "center": [5, 0, 0], "summary": "", "post_ids": ["p2"]}
	  ],
	  "refined_positions": {"p1": [-4, 0, 0]},
	  "spatial_summary": ""
	}`
	s, _ := testSynthesizer(reply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err == nil || !strings.Contains(err.Error(), "refined_positions") {
		t.Fatalf("expected missing-position error, got %v", err)
	}
}

func TestSynthesizeRejectsOutOfRangeCoordinate(t *testing.T) {
	reply := `{
	  "clusters": [
	    {"id": "pro", "label": "Pro", "center": [-5, 0, 0], "summary": "", "post_ids": ["p1"]},
	    {"id": "con", "label": "Con", "center": [5, 0, 0], "summary": "", "post_ids": ["p2"]}
	  ],
	  "refined_positions": {"p1": [-4, 0, 0], "p2": [11, 0, 0]},
	  "spatial_summary": ""
	}`
	s, _ := testSynthesizer(reply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err == nil || !strings.Contains(err.Error(), "outside") {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestSynthesizeRejectsDoubleAssignment(t *testing.T) {
	reply := `{
	  "clusters": [
	    {"id": "pro", "label": "Pro", "center": [-5, 0, 0], "summary": "", "post_ids": ["p1", "p2"]},
	    {"id": "con", "label": "Con", "center": [5, 0, 0], "summary": "", "post_ids": ["p2"]}
	  ],
	  "refined_positions": {"p1": [-4, 0, 0], "p2": [4, 0, 0]},
	  "spatial_summary": ""
	}`
	s, _ := testSynthesizer(reply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err == nil || !strings.Contains(err.Error(), "assigned to both") {
		t.Fatalf("expected double-assignment error, got %v", err)
	}
}

func TestSynthesizeRejectsOrphanPost(t *testing.T) {
	reply := `{
	  "clusters": [
	    {"id": "pro", "label": "Pro", "center": [-5, 0, 0], "summary": "", "post_ids": ["p1"]},
	    {"id": "con", "label": "Con", "center": [5, 0, 0], "summary": "", "post_ids": []}
	  ],
	  "refined_positions": {"p1": [-4, 0, 0], "p2": [4, 0, 0]},
	  "spatial_summary": ""
	}`
	s, _ := testSynthesizer(reply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err == nil || !strings.Contains(err.Error(), "not assigned") {
		t.Fatalf("expected orphan error, got %v", err)
	}
}

func TestSynthesizeRejectsCrowdedCenters(t *testing.T) {
	reply := `{
	  "clusters": [
	    {"id": "pro", "label": "Pro", "center": [0, 0, 0], "summary": "", "post_ids": ["p1"]},
	    {"id": "con", "label": "Con", "center": [1, 0, 0], "summary": "", "post_ids": ["p2"]}
	  ],
	  "refined_positions": {"p1": [0, 0, 0], "p2": [1, 0, 0]},
	  "spatial_summary": ""
	}`
	s, _ := testSynthesizer(reply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err == nil || !strings.Contains(err.Error(), "apart") {
		t.Fatalf("expected separation error, got %v", err)
	}
}

func TestSynthesizeRejectsUnknownBridgePost(t *testing.T) {
	reply := `{
	  "clusters": [
	    {"id": "pro", "label": "Pro", "center": [-5, 0, 0], "summary": "", "post_ids": ["p1"]},
	    {"id": "con", "label": "Con", "center": [5, 0, 0], "summary": "", "post_ids": ["p2"]}
	  ],
	  "refined_positions": {"p1": [-4, 0, 0], "p2": [4, 0, 0]},
	  "bridge_posts": ["nope"],
	  "spatial_summary": ""
	}`
	s, _ := testSynthesizer(reply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err == nil || !strings.Contains(err.Error(), "bridge") {
		t.Fatalf("expected bridge error, got %v", err)
	}
}

func TestSynthesizeUsesDeepTier(t *testing.T) {
	s, p := testSynthesizer(validTwoClusterReply)
	_, _, err := s.Synthesize(context.Background(), twoEnriched(), Labels{}, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.calls) != 1 {
		t.Fatalf("expected exactly one layout call, got %d", len(p.calls))
	}
	if p.calls[0].Tier != TierDeep {
		t.Fatalf("layout must use the deep tier, got %s", p.calls[0].Tier)
	}
}

func TestSynthesizeRejectsEmptyInput(t *testing.T) {
	s, _ := testSynthesizer(validTwoClusterReply)
	_, _, err := s.Synthesize(context.Background(), nil, Labels{}, "t")
	if err == nil {
		t.Fatalf("expected error for empty enriched set")
	}
}
