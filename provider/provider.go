package provider

import (
	"fmt"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/cosmos"
	openai_provider "github.com/discourselab/cosmos/provider/openai"
)

// NewLLMProvider builds the inference-service client from configuration.
// The first configured provider of a supported type wins.
func NewLLMProvider(cfg config.LLMConfig) (cosmos.LLMProvider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	for _, p := range cfg.Providers {
		switch p.Type {
		case "openai":
			return openai_provider.NewClient(p, cfg.Routing), nil
		}
	}
	return nil, fmt.Errorf("no supported LLM provider configured")
}
