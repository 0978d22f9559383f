package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/cosmos"
)

type fixedProvider struct {
	reply string
}

func (f fixedProvider) Complete(context.Context, cosmos.CompletionRequest) (string, cosmos.Usage, error) {
	return f.reply, cosmos.Usage{}, nil
}

func (f fixedProvider) CalculateCost(cosmos.Usage, cosmos.Tier) float64 { return 0 }

func testHandlers(reply string) *handlers {
	cfg := config.PipelineConfig{
		BatchSize:         20,
		MaxConcurrentRuns: 1,
		ClassifyTopPosts:  40,
		Layout: config.LayoutConfig{
			AxisMin: -10, AxisMax: 10,
			MinClusterDist: 4, MaxPostRadius: 6,
			MinClusters: 3, MaxClusters: 7,
			SampledPerCluster: 5,
		},
	}
	pipe := cosmos.NewPipeline(cfg, fixedProvider{reply: reply}, nil, nil, nil)
	return &handlers{pipeline: pipe}
}

func postJSON(path, body string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

// A schema violation in model output is a 422, even though the pipeline
// wraps the validation error on its way up.
func TestRunPipelineMapsValidationErrorTo422(t *testing.T) {
	h := testHandlers(`{"not": "an array"}`)

	c := postJSON("/api/cosmos", `{"source":"s","topic":"t","posts":[{"id":"p1","content":"x"}]}`)
	err := h.runPipeline(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected an HTTP error, got %v", err)
	}
	if he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a schema violation, got %d", he.Code)
	}
}

func TestRunPipelineRejectsMissingSource(t *testing.T) {
	h := testHandlers("")

	c := postJSON("/api/cosmos", `{"topic":"t","posts":[{"id":"p1"}]}`)
	err := h.runPipeline(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing source, got %v", err)
	}
}
