package cosmos

import (
	"strings"
	"testing"
)

func narratorLayout() *CosmosLayout {
	pos := func(x float64) *Position { return &Position{X: x} }
	return &CosmosLayout{
		Topic:          "transit",
		SpatialSummary: "two camps",
		Posts: []EnrichedPost{
			{RawPost: RawPost{ID: "far"}, Stance: "pro-car", CoreClaim: "cars are freedom", Importance: 9, Position: pos(8)},
			{RawPost: RawPost{ID: "near"}, Stance: "pro-rail", CoreClaim: "trains scale", Importance: 3, Position: pos(1)},
		},
		Clusters: []Cluster{
			{ID: "rail", Label: "Rail", Summary: "wants trains", PostIDs: []string{"near"}},
			{ID: "car", Label: "Car", Summary: "wants roads", PostIDs: []string{"far"}},
		},
	}
}

func TestBuildNarratorContextOrdersByDistance(t *testing.T) {
	user := &UserPosition{Position: Position{X: 0}}
	nc := BuildNarratorContext(narratorLayout(), nil, user, 10)

	if len(nc.NearbyPosts) != 2 {
		t.Fatalf("expected 2 nearby posts, got %d", len(nc.NearbyPosts))
	}
	if !strings.Contains(nc.NearbyPosts[0], "id=near") {
		t.Fatalf("nearest post should come first: %v", nc.NearbyPosts)
	}
}

func TestBuildNarratorContextFallsBackToImportance(t *testing.T) {
	nc := BuildNarratorContext(narratorLayout(), nil, nil, 1)
	if len(nc.NearbyPosts) != 1 || !strings.Contains(nc.NearbyPosts[0], "id=far") {
		t.Fatalf("without a position the most important post leads: %v", nc.NearbyPosts)
	}
}

func TestNarratorContextRenderIncludesReactions(t *testing.T) {
	swipes := []SwipeEvent{
		{PostID: "near", Reaction: "agree"},
		{PostID: "", Reaction: "skip"}, // malformed, dropped
	}
	nc := BuildNarratorContext(narratorLayout(), swipes, nil, 10)
	out := nc.Render()

	if !strings.Contains(out, "TOPIC: transit") {
		t.Fatalf("topic missing from render:\n%s", out)
	}
	if !strings.Contains(out, "Rail (1 posts): wants trains") {
		t.Fatalf("cluster line missing:\n%s", out)
	}
	if !strings.Contains(out, "near: agree") {
		t.Fatalf("reaction missing:\n%s", out)
	}
	if len(nc.Reactions) != 1 {
		t.Fatalf("malformed swipe should be dropped: %v", nc.Reactions)
	}
}
