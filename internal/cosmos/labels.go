package cosmos

// AccumulateLabels derives the label vocabulary from every post enriched
// so far: deduplicated stances, flattened themes, and root assumptions.
// Pure; empty values are treated as absent. Callers feed the result into
// the next batch's prompt so the model reuses exact label strings.
func AccumulateLabels(posts []EnrichedPost) Labels {
	stances := newStringSet()
	themes := newStringSet()
	roots := newStringSet()

	for _, p := range posts {
		stances.add(p.Stance)
		for _, t := range p.Themes {
			themes.add(t)
		}
		roots.add(p.LogicalChain.RootAssumption)
	}

	return Labels{
		Stances: stances.values(),
		Themes:  themes.values(),
		Roots:   roots.values(),
	}
}

// IsEmpty reports whether no labels have been accumulated yet.
func (l Labels) IsEmpty() bool {
	return len(l.Stances) == 0 && len(l.Themes) == 0 && len(l.Roots) == 0
}

// stringSet preserves first-seen order, which keeps prompts stable
// across identical runs.
type stringSet struct {
	seen  map[string]struct{}
	order []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{})}
}

func (s *stringSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *stringSet) values() []string {
	return s.order
}
