package cmd

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/undercover-ai/undercover/internal/agent"
	"github.com/undercover-ai/undercover/internal/config"
	"github.com/undercover-ai/undercover/internal/logging"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every configured provider is reachable",
	Long: `Check sends a trivial completion to each configured provider in
parallel and reports which endpoints answered. Run it before a game to
catch bad API keys or URLs early.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("no providers configured; add a providers section to %s", config.ConfigFile())
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	results := make(map[string]error, len(names))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var wg conc.WaitGroup
	for _, name := range names {
		provider := cfg.Providers[name]
		wg.Go(func() {
			err := checkProvider(ctx, provider)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		})
	}
	wg.Wait()

	failures := 0
	for _, name := range names {
		if err := results[name]; err != nil {
			failures++
			fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", name, err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s OK\n", name, cfg.Providers[name].Model)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d providers failed the health check", failures, len(names))
	}
	return nil
}

func checkProvider(ctx context.Context, provider config.ProviderConfig) error {
	client, err := agent.NewClient(agent.ClientConfig{
		APIKey:      provider.APIKey,
		BaseURL:     provider.BaseURL,
		Model:       provider.Model,
		Temperature: provider.Temperature,
		MaxTokens:   provider.MaxTokens,
	}, logging.NopLogger())
	if err != nil {
		return err
	}
	return client.HealthCheck(ctx)
}
