package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/undercover-ai/undercover/internal/config"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// resetConfig gives each test a clean viper state with defaults applied.
func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	config.SetDefaults()
	t.Cleanup(viper.Reset)
}

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "undercover" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "undercover")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"play", "check", "words"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestWordsListBuiltinBank(t *testing.T) {
	resetConfig(t)

	out, err := executeCommand(rootCmd, "words", "list")
	if err != nil {
		t.Fatalf("words list: %v", err)
	}
	if !strings.Contains(out, "pairs (built-in)") {
		t.Errorf("output missing bank summary: %q", out)
	}
	if !strings.Contains(out, "/") {
		t.Error("output lists no pairs")
	}
}

func TestWordsAddRequiresBankFile(t *testing.T) {
	resetConfig(t)

	if _, err := executeCommand(rootCmd, "words", "add", "coffee", "tea"); err == nil {
		t.Error("words add succeeded without a configured bank file")
	}
}

func TestPlayRequiresPlayers(t *testing.T) {
	resetConfig(t)

	_, err := executeCommand(rootCmd, "play")
	if err == nil || !strings.Contains(err.Error(), "no players configured") {
		t.Errorf("play without players returned %v, want roster error", err)
	}
}

func TestCheckRequiresProviders(t *testing.T) {
	resetConfig(t)

	_, err := executeCommand(rootCmd, "check")
	if err == nil || !strings.Contains(err.Error(), "no providers configured") {
		t.Errorf("check without providers returned %v, want provider error", err)
	}
}
