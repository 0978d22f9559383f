package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/discourselab/cosmos/config"
	"github.com/discourselab/cosmos/internal/cosmos"
	"github.com/discourselab/cosmos/provider"
	"github.com/discourselab/cosmos/repository"
)

type runInput struct {
	Source string           `json:"source"`
	Topic  string           `json:"topic"`
	Posts  []cosmos.RawPost `json:"posts"`
}

// runCMD synthesizes a cosmos for a single discussion file and prints the
// layout to stdout. Useful for smoke-testing prompts without the server.
func runCMD() *cobra.Command {
	var cfgPath string
	var inputPath string
	var run = &cobra.Command{
		Use:   "run",
		Short: "Build a cosmos from a discussion JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			raw, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			var in runInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("parsing input: %w", err)
			}
			if in.Source == "" {
				return fmt.Errorf("input is missing source")
			}

			logger := log.New(os.Stderr, "[RUN] ", log.LstdFlags)

			llm, err := provider.NewLLMProvider(cfg.LLM)
			if err != nil {
				return err
			}
			cache, err := repository.NewResultCache(cmd.Context(), cfg.Storage, logger)
			if err != nil {
				logger.Printf("warning: running without result cache: %v", err)
				cache = nil
			}

			pipeline := cosmos.NewPipeline(cfg.Pipeline, llm, cache, nil, logger)
			layout, err := pipeline.Run(cmd.Context(), in.Source, in.Topic, in.Posts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(layout)
		},
	}
	run.Flags().StringVarP(&inputPath, "input", "i", "", "discussion JSON file (source, topic, posts)")
	run.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	_ = run.MarkFlagRequired("input")

	return run
}
