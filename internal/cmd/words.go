package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/undercover-ai/undercover/internal/config"
	"github.com/undercover-ai/undercover/internal/words"
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Manage the word-pair bank",
}

var wordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the word pairs games draw from",
	RunE:  runWordsList,
}

var wordsAddCmd = &cobra.Command{
	Use:   "add <majority-word> <minority-word>",
	Short: "Add a word pair to the configured bank file",
	Args:  cobra.ExactArgs(2),
	RunE:  runWordsAdd,
}

func init() {
	wordsCmd.AddCommand(wordsListCmd)
	wordsCmd.AddCommand(wordsAddCmd)
	rootCmd.AddCommand(wordsCmd)
}

func runWordsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bank, err := words.Load(cfg.Words.File)
	if err != nil {
		return fmt.Errorf("loading word bank: %w", err)
	}

	source := cfg.Words.File
	if source == "" {
		source = "built-in"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d pairs (%s)\n", bank.Len(), source)
	for _, pair := range bank.Pairs() {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s / %s\n", pair.Majority, pair.Minority)
	}
	return nil
}

func runWordsAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Words.File == "" {
		return fmt.Errorf("set words.file in the config to add pairs; the built-in bank is read-only")
	}

	bank, err := words.Load(cfg.Words.File)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading word bank: %w", err)
		}
		// First pair in a fresh bank file.
		bank = words.NewBank()
	}

	pair := words.Pair{Majority: args[0], Minority: args[1]}
	if err := bank.Add(pair); err != nil {
		return err
	}
	if err := bank.Save(cfg.Words.File); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added %s / %s (%d pairs total)\n", pair.Majority, pair.Minority, bank.Len())
	return nil
}
