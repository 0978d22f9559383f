package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/cosmos"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible chat-completions endpoint and maps
// the pipeline's fast/deep quality tiers onto configured models.
type Client struct {
	cfg     config.LLMProvider
	routing config.LLMRoutingConfig
	http    *http.Client
}

// NewClient creates a client for one configured provider.
func NewClient(cfg config.LLMProvider, routing config.LLMRoutingConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:     cfg,
		routing: routing,
		http:    &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements cosmos.LLMProvider.
func (c *Client) Complete(ctx context.Context, req cosmos.CompletionRequest) (string, cosmos.Usage, error) {
	apiKey := c.cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return "", cosmos.Usage{}, fmt.Errorf("OpenAI API key not configured")
	}

	model, err := c.model(req.Tier)
	if err != nil {
		return "", cosmos.Usage{}, err
	}
	apiModel := model.APIName
	if apiModel == "" {
		apiModel = model.Name
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 || (model.MaxTokens > 0 && maxTokens > model.MaxTokens) {
		maxTokens = model.MaxTokens
	}

	messages := []chatMessage{
		{Role: "system", Content: req.SystemPrompt},
		{Role: "user", Content: req.UserMessage},
	}
	body, err := json.Marshal(chatRequest{
		Model:       apiModel,
		Messages:    messages,
		Temperature: model.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", cosmos.Usage{}, fmt.Errorf("marshal: %w", err)
	}

	baseURL := c.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", cosmos.Usage{}, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", cosmos.Usage{}, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", cosmos.Usage{}, fmt.Errorf("OpenAI status %d: %s", resp.StatusCode, string(b))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", cosmos.Usage{}, fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", cosmos.Usage{}, fmt.Errorf("no choices in response")
	}

	usage := cosmos.Usage{
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}
	return out.Choices[0].Message.Content, usage, nil
}

// CalculateCost implements cosmos.LLMProvider.
func (c *Client) CalculateCost(usage cosmos.Usage, tier cosmos.Tier) float64 {
	model, err := c.model(tier)
	if err != nil {
		return 0
	}
	return float64(usage.InputTokens)/1000.0*model.CostPer1K +
		float64(usage.OutputTokens)/1000.0*model.CostPer1KOutput
}

// model resolves a tier through the routing table, falling back to the
// configured fallback model.
func (c *Client) model(tier cosmos.Tier) (config.LLMModel, error) {
	var key string
	switch tier {
	case cosmos.TierDeep:
		key = c.routing.Deep
	default:
		key = c.routing.Fast
	}
	if key == "" {
		key = c.routing.Fallback
	}
	m, ok := c.cfg.Models[key]
	if !ok {
		return config.LLMModel{}, fmt.Errorf("model %q not configured for tier %q", key, tier)
	}
	return m, nil
}
