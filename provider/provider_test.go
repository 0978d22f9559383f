package provider

import (
	"testing"

	"github.com/discourselab/cosmos/config"
)

func TestNewLLMProviderSkipsUnsupportedEntries(t *testing.T) {
	cfg := config.LLMConfig{Providers: map[string]config.LLMProvider{
		"legacy": {Type: "anthropic-bedrock"},
		"main":   {Type: "openai"},
	}}

	p, err := NewLLMProvider(cfg)
	if err != nil {
		t.Fatalf("a supported provider must win regardless of map order: %v", err)
	}
	if p == nil {
		t.Fatalf("expected a provider")
	}
}

func TestNewLLMProviderErrors(t *testing.T) {
	if _, err := NewLLMProvider(config.LLMConfig{}); err == nil {
		t.Fatalf("expected error for empty providers map")
	}

	cfg := config.LLMConfig{Providers: map[string]config.LLMProvider{
		"legacy": {Type: "anthropic-bedrock"},
	}}
	if _, err := NewLLMProvider(cfg); err == nil {
		t.Fatalf("expected error when no entry is supported")
	}
}
