package config

import "testing"

func validPipeline() PipelineConfig {
	return PipelineConfig{
		BatchSize:         20,
		MaxConcurrentRuns: 4,
		ClassifyTopPosts:  40,
		Layout: LayoutConfig{
			AxisMin:           -10,
			AxisMax:           10,
			MinClusterDist:    4,
			MaxPostRadius:     6,
			MinClusters:       3,
			MaxClusters:       7,
			SampledPerCluster: 5,
		},
	}
}

func TestPipelineValidate(t *testing.T) {
	if err := validPipeline().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	bad := validPipeline()
	bad.BatchSize = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero batch size")
	}

	bad = validPipeline()
	bad.MaxConcurrentRuns = -1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for non-positive max concurrent runs")
	}

	bad = validPipeline()
	bad.Layout.AxisMin = 10
	bad.Layout.AxisMax = -10
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for empty axis range")
	}

	bad = validPipeline()
	bad.Layout.MaxClusters = 1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for inverted cluster bounds")
	}
}
