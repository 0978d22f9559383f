package cosmos

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/discourselab/cosmos/internal/helpers"
)

// Gateway is the single entry point to the inference service. It retries
// transient call failures with exponential backoff and hands back the
// JSON payload carved out of the model's raw reply.
type Gateway struct {
	provider LLMProvider
	logger   *log.Logger
	retries  int
	backoff  time.Duration
}

// NewGateway wraps a provider with the pipeline's retry policy:
// two retries beyond the first attempt, delays doubling from one second.
func NewGateway(provider LLMProvider, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(log.Writer(), "[GATEWAY] ", log.LstdFlags)
	}
	return &Gateway{
		provider: provider,
		logger:   logger,
		retries:  2,
		backoff:  time.Second,
	}
}

// CallJSON performs one logical inference call and returns the extracted
// JSON payload together with token usage. Transport failures and empty
// replies are retried up to the gateway's budget; a reply that survives
// the retries but yields no parseable JSON is a hard failure.
func (g *Gateway) CallJSON(ctx context.Context, req CompletionRequest) (json.RawMessage, Usage, error) {
	text, usage, err := g.complete(ctx, req)
	if err != nil {
		return nil, usage, err
	}

	payload, err := helpers.ExtractJSON(text)
	if err != nil {
		return nil, usage, fmt.Errorf("extracting JSON from model reply: %w", err)
	}
	if !json.Valid([]byte(payload)) {
		return nil, usage, fmt.Errorf("model reply is not valid JSON after extraction")
	}
	return json.RawMessage(payload), usage, nil
}

// complete drives the retry loop. The backoff timer is cancellable so an
// abandoned run releases the goroutine immediately.
func (g *Gateway) complete(ctx context.Context, req CompletionRequest) (string, Usage, error) {
	var lastErr error
	tries := g.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		text, usage, err := g.provider.Complete(ctx, req)
		if err == nil && text != "" {
			return text, usage, nil
		}
		if err == nil {
			err = fmt.Errorf("response contained no text content")
		}
		lastErr = err
		g.logger.Printf("inference call attempt %d/%d failed: %v", attempt+1, tries, err)

		if attempt < tries-1 {
			select {
			case <-time.After(g.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return "", Usage{}, ctx.Err()
			}
		}
	}
	return "", Usage{}, fmt.Errorf("inference call failed after %d attempts: %w", tries, lastErr)
}
