package cosmos

import (
	"reflect"
	"testing"
)

func TestAccumulateLabelsDeduplicates(t *testing.T) {
	posts := []EnrichedPost{
		{Stance: "pro-regulation", Themes: []string{"safety", "cost"}, LogicalChain: LogicalChain{RootAssumption: "markets self-correct"}},
		{Stance: "pro-regulation", Themes: []string{"cost", "liberty"}, LogicalChain: LogicalChain{RootAssumption: "markets self-correct"}},
		{Stance: "anti-regulation", Themes: []string{"safety"}},
	}

	got := AccumulateLabels(posts)
	if !reflect.DeepEqual(got.Stances, []string{"pro-regulation", "anti-regulation"}) {
		t.Fatalf("unexpected stances: %v", got.Stances)
	}
	if !reflect.DeepEqual(got.Themes, []string{"safety", "cost", "liberty"}) {
		t.Fatalf("unexpected themes: %v", got.Themes)
	}
	if !reflect.DeepEqual(got.Roots, []string{"markets self-correct"}) {
		t.Fatalf("unexpected roots: %v", got.Roots)
	}
}

func TestAccumulateLabelsIgnoresEmptyValues(t *testing.T) {
	posts := []EnrichedPost{
		{Stance: "", Themes: []string{"", "energy"}},
	}
	got := AccumulateLabels(posts)
	if len(got.Stances) != 0 {
		t.Fatalf("empty stance should be absent, got %v", got.Stances)
	}
	if !reflect.DeepEqual(got.Themes, []string{"energy"}) {
		t.Fatalf("unexpected themes: %v", got.Themes)
	}
}

// Labels only ever grow within a run: accumulating over a superset of posts
// never loses a label and never reorders the ones already present.
func TestAccumulateLabelsMonotonic(t *testing.T) {
	first := []EnrichedPost{
		{Stance: "optimist", Themes: []string{"jobs"}},
		{Stance: "pessimist", Themes: []string{"jobs", "automation"}},
	}
	second := append(append([]EnrichedPost(nil), first...),
		EnrichedPost{Stance: "optimist", Themes: []string{"retraining"}},
	)

	before := AccumulateLabels(first)
	after := AccumulateLabels(second)

	if !reflect.DeepEqual(after.Stances[:len(before.Stances)], before.Stances) {
		t.Fatalf("stance prefix changed: %v vs %v", before.Stances, after.Stances)
	}
	if !reflect.DeepEqual(after.Themes[:len(before.Themes)], before.Themes) {
		t.Fatalf("theme prefix changed: %v vs %v", before.Themes, after.Themes)
	}
	if len(after.Themes) != len(before.Themes)+1 {
		t.Fatalf("expected one new theme, got %v", after.Themes)
	}
}

func TestLabelsIsEmpty(t *testing.T) {
	if !(Labels{}).IsEmpty() {
		t.Fatalf("zero Labels should be empty")
	}
	if (Labels{Stances: []string{"x"}}).IsEmpty() {
		t.Fatalf("non-zero Labels should not be empty")
	}
}
