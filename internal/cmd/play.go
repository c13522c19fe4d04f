package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/undercover-ai/undercover/internal/agent"
	"github.com/undercover-ai/undercover/internal/config"
	"github.com/undercover-ai/undercover/internal/display"
	"github.com/undercover-ai/undercover/internal/engine"
	"github.com/undercover-ai/undercover/internal/event"
	"github.com/undercover-ai/undercover/internal/logging"
	"github.com/undercover-ai/undercover/internal/report"
	"github.com/undercover-ai/undercover/internal/session"
	"github.com/undercover-ai/undercover/internal/words"
)

var (
	playSeed      int64
	playMinority  int
	playMaxLength int
	playPair      string
	playSkipCheck bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a full game with the configured players",
	Long: `Play runs a complete match: a word pair is drawn, roles are dealt,
and rounds of description, voting and elimination repeat until one
faction wins. The finished game is saved as a report.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Int64Var(&playSeed, "seed", 0, "fix the random seed (0 seeds from the clock)")
	playCmd.Flags().IntVar(&playMinority, "minority", 0, "override the number of minority players")
	playCmd.Flags().IntVar(&playMaxLength, "statement-length", 0, "override the statement length cap")
	playCmd.Flags().StringVar(&playPair, "pair", "", "play a fixed word pair instead of drawing one (majority/minority)")
	playCmd.Flags().BoolVar(&playSkipCheck, "skip-check", false, "skip the pre-game provider health check")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.Players) == 0 {
		return fmt.Errorf("no players configured; add a players section to %s", config.ConfigFile())
	}
	if playMinority > 0 {
		cfg.Game.MinorityCount = playMinority
	}
	if playMaxLength > 0 {
		cfg.Game.MaxStatementLength = playMaxLength
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	seed := cfg.Game.Seed
	if playSeed != 0 {
		seed = playSeed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	logger.Info("starting game", "seed", seed, "players", len(cfg.Players))

	pair, err := drawPair(cfg, rng)
	if err != nil {
		return err
	}

	bus := event.NewBus()
	console := display.NewConsole(os.Stdout)
	console.Attach(bus)
	defer console.Detach(bus)

	manager := session.NewManager(bus, rng, logger,
		session.WithMemoryBudget(cfg.Memory.MaxTokens, cfg.Memory.RecentMessages))

	roster, clients, err := buildRoster(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !playSkipCheck {
		if err := checkClients(ctx, clients); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "all providers reachable")
	}

	if _, err := manager.CreateSession(roster, cfg.Game.MinorityCount); err != nil {
		return err
	}
	if err := manager.InitializeGame(pair.Majority, pair.Minority); err != nil {
		return err
	}

	agents := make(map[string]engine.Agent, len(roster))
	for _, spec := range roster {
		player, err := manager.Player(spec.Name)
		if err != nil {
			return err
		}
		agents[spec.Name] = agent.NewPlayer(spec.Name, player.Word, clients[spec.Name], player.Context, logger)
	}

	eng := engine.New(manager, agents, bus, rng, logger, engine.Options{
		MaxStatementLength: cfg.Game.MaxStatementLength,
		DescribeTimeout:    cfg.Game.DescribeTimeout(),
		VoteTimeout:        cfg.Game.VoteTimeout(),
		LeaveTimeout:       cfg.Game.LeaveTimeout(),
		JitterMin:          cfg.Game.JitterMin(),
		JitterMax:          cfg.Game.JitterMax(),
		Advisory:           engine.AdvisoryPolicy(cfg.Advisory.Policy),
	})

	finished, err := eng.Run(ctx)
	if err != nil {
		return fmt.Errorf("game aborted: %w", err)
	}

	if cfg.Report.SaveJSON || cfg.Report.SaveMarkdown {
		writer, err := report.NewWriter(cfg.Report.Dir,
			report.WithJSON(cfg.Report.SaveJSON),
			report.WithMarkdown(cfg.Report.SaveMarkdown))
		if err != nil {
			return err
		}
		paths, err := writer.Save(finished)
		if err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		for _, path := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "report saved: %s\n", path)
		}
	}

	return nil
}

// drawPair resolves the word pair for this game: the --pair flag wins,
// otherwise one is drawn from the configured bank.
func drawPair(cfg *config.Config, rng *rand.Rand) (words.Pair, error) {
	if playPair != "" {
		majority, minority, ok := strings.Cut(playPair, "/")
		majority = strings.TrimSpace(majority)
		minority = strings.TrimSpace(minority)
		if !ok || majority == "" || minority == "" || majority == minority {
			return words.Pair{}, fmt.Errorf("invalid --pair %q: want two different words as majority/minority", playPair)
		}
		return words.Pair{Majority: majority, Minority: minority}, nil
	}

	bank, err := words.Load(cfg.Words.File)
	if err != nil {
		return words.Pair{}, fmt.Errorf("loading word bank: %w", err)
	}
	return bank.RandomPair(rng), nil
}

// checkClients runs the provider health checks, one per distinct
// client, before any game state exists.
func checkClients(ctx context.Context, clients map[string]*agent.Client) error {
	checked := make(map[string]bool, len(clients))
	names := make([]string, 0, len(clients))
	for name := range clients {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	var failed []string

	var wg conc.WaitGroup
	for _, name := range names {
		client := clients[name]
		if checked[client.Model()] {
			continue
		}
		checked[client.Model()] = true
		wg.Go(func() {
			if err := client.HealthCheck(ctx); err != nil {
				mu.Lock()
				failed = append(failed, err.Error())
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("provider health check failed: %s", strings.Join(failed, "; "))
	}
	return nil
}

// buildLogger creates the game logger from config. Disabled logging
// still returns a usable no-op logger so callers need no nil checks.
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// buildRoster resolves each configured player to a chat client.
func buildRoster(cfg *config.Config, logger *logging.Logger) ([]session.PlayerSpec, map[string]*agent.Client, error) {
	roster := make([]session.PlayerSpec, 0, len(cfg.Players))
	clients := make(map[string]*agent.Client, len(cfg.Players))

	for _, p := range cfg.Players {
		provider, ok := cfg.Providers[p.Provider]
		if !ok {
			return nil, nil, fmt.Errorf("player %q references unknown provider %q", p.Name, p.Provider)
		}

		client, err := agent.NewClient(agent.ClientConfig{
			APIKey:      provider.APIKey,
			BaseURL:     provider.BaseURL,
			Model:       provider.Model,
			Temperature: provider.Temperature,
			MaxTokens:   provider.MaxTokens,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("provider %q: %w", p.Provider, err)
		}

		roster = append(roster, session.PlayerSpec{Name: p.Name, Model: provider.Model})
		clients[p.Name] = client
	}

	return roster, clients, nil
}
