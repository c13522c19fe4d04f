package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete undercover configuration
type Config struct {
	Game      GameConfig                `mapstructure:"game"`
	Advisory  AdvisoryConfig            `mapstructure:"advisory"`
	Memory    MemoryConfig              `mapstructure:"memory"`
	Logging   LoggingConfig             `mapstructure:"logging"`
	Report    ReportConfig              `mapstructure:"report"`
	Words     WordsConfig               `mapstructure:"words"`
	Players   []PlayerConfig            `mapstructure:"players"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// GameConfig controls the round loop and per-call limits
type GameConfig struct {
	// MinorityCount is how many players receive the minority word
	MinorityCount int `mapstructure:"minority_count"`
	// MaxStatementLength caps descriptions and debate defenses (in characters)
	MaxStatementLength int `mapstructure:"max_statement_length"`
	// DescribeTimeoutSeconds bounds a single describe or debate call
	DescribeTimeoutSeconds int `mapstructure:"describe_timeout_seconds"`
	// VoteTimeoutSeconds bounds a single ballot call
	VoteTimeoutSeconds int `mapstructure:"vote_timeout_seconds"`
	// LeaveTimeoutSeconds bounds the best-effort leave message call
	LeaveTimeoutSeconds int `mapstructure:"leave_timeout_seconds"`
	// JitterMinMs and JitterMaxMs bound the randomized delay before
	// each concurrent ballot call, to stay under provider rate limits
	JitterMinMs int `mapstructure:"jitter_min_ms"`
	JitterMaxMs int `mapstructure:"jitter_max_ms"`
	// Seed fixes the engine's random source when non-zero; 0 seeds
	// from the clock
	Seed int64 `mapstructure:"seed"`
}

// AdvisoryConfig controls the secondary vote track
type AdvisoryConfig struct {
	// Policy is one of "off", "observe", "threshold"
	Policy string `mapstructure:"policy"`
}

// MemoryConfig controls per-player conversation memory
type MemoryConfig struct {
	// MaxTokens is the estimated token budget per player context
	MaxTokens int `mapstructure:"max_tokens"`
	// RecentMessages is how many trailing messages survive compression
	RecentMessages int `mapstructure:"recent_messages"`
}

// LoggingConfig controls structured logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Dir is where log files are written (default: "logs")
	Dir string `mapstructure:"dir"`
	// Level is the log level: "DEBUG", "INFO", "WARN", "ERROR"
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size before rotation
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// ReportConfig controls post-game report generation
type ReportConfig struct {
	// Dir is where finished-game reports are written
	Dir string `mapstructure:"dir"`
	// SaveJSON writes the full session as JSON
	SaveJSON bool `mapstructure:"save_json"`
	// SaveMarkdown writes a human-readable transcript
	SaveMarkdown bool `mapstructure:"save_markdown"`
}

// WordsConfig controls the word-pair bank
type WordsConfig struct {
	// File is the YAML word bank path; empty uses the built-in pairs
	File string `mapstructure:"file"`
}

// PlayerConfig names one roster entry and the provider backing it
type PlayerConfig struct {
	Name     string `mapstructure:"name"`
	Provider string `mapstructure:"provider"`
}

// ProviderConfig describes one OpenAI-compatible chat completions
// endpoint. APIKey may also come from the environment as
// UNDERCOVER_PROVIDERS_<NAME>_API_KEY.
type ProviderConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DescribeTimeout returns the describe timeout as a time.Duration
func (g *GameConfig) DescribeTimeout() time.Duration {
	return time.Duration(g.DescribeTimeoutSeconds) * time.Second
}

// VoteTimeout returns the vote timeout as a time.Duration
func (g *GameConfig) VoteTimeout() time.Duration {
	return time.Duration(g.VoteTimeoutSeconds) * time.Second
}

// LeaveTimeout returns the leave message timeout as a time.Duration
func (g *GameConfig) LeaveTimeout() time.Duration {
	return time.Duration(g.LeaveTimeoutSeconds) * time.Second
}

// JitterMin returns the lower jitter bound as a time.Duration
func (g *GameConfig) JitterMin() time.Duration {
	return time.Duration(g.JitterMinMs) * time.Millisecond
}

// JitterMax returns the upper jitter bound as a time.Duration
func (g *GameConfig) JitterMax() time.Duration {
	return time.Duration(g.JitterMaxMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Game: GameConfig{
			MinorityCount:          2,
			MaxStatementLength:     200,
			DescribeTimeoutSeconds: 60,
			VoteTimeoutSeconds:     30,
			LeaveTimeoutSeconds:    30,
			JitterMinMs:            1000,
			JitterMaxMs:            5000,
			Seed:                   0, // seed from the clock
		},
		Advisory: AdvisoryConfig{
			Policy: "threshold",
		},
		Memory: MemoryConfig{
			MaxTokens:      8000,
			RecentMessages: 20,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Dir:        "logs",
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Report: ReportConfig{
			Dir:          "reports",
			SaveJSON:     true,
			SaveMarkdown: true,
		},
		Words: WordsConfig{
			File: "",
		},
		Players:   []PlayerConfig{},
		Providers: map[string]ProviderConfig{},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Game defaults
	viper.SetDefault("game.minority_count", defaults.Game.MinorityCount)
	viper.SetDefault("game.max_statement_length", defaults.Game.MaxStatementLength)
	viper.SetDefault("game.describe_timeout_seconds", defaults.Game.DescribeTimeoutSeconds)
	viper.SetDefault("game.vote_timeout_seconds", defaults.Game.VoteTimeoutSeconds)
	viper.SetDefault("game.leave_timeout_seconds", defaults.Game.LeaveTimeoutSeconds)
	viper.SetDefault("game.jitter_min_ms", defaults.Game.JitterMinMs)
	viper.SetDefault("game.jitter_max_ms", defaults.Game.JitterMaxMs)
	viper.SetDefault("game.seed", defaults.Game.Seed)

	// Advisory defaults
	viper.SetDefault("advisory.policy", defaults.Advisory.Policy)

	// Memory defaults
	viper.SetDefault("memory.max_tokens", defaults.Memory.MaxTokens)
	viper.SetDefault("memory.recent_messages", defaults.Memory.RecentMessages)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Report defaults
	viper.SetDefault("report.dir", defaults.Report.Dir)
	viper.SetDefault("report.save_json", defaults.Report.SaveJSON)
	viper.SetDefault("report.save_markdown", defaults.Report.SaveMarkdown)

	// Words defaults
	viper.SetDefault("words.file", defaults.Words.File)
}

// Load reads the configuration from viper into a Config struct and
// validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "undercover")
	}
	// Fall back to ~/.config/undercover
	home, err := os.UserHomeDir()
	if err != nil {
		return ".undercover"
	}
	return filepath.Join(home, ".config", "undercover")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidAdvisoryPolicies returns the list of valid advisory policy values
func ValidAdvisoryPolicies() []string {
	return []string{"off", "observe", "threshold"}
}

// IsValidAdvisoryPolicy checks if the given policy is valid
func IsValidAdvisoryPolicy(policy string) bool {
	for _, valid := range ValidAdvisoryPolicies() {
		if policy == valid {
			return true
		}
	}
	return false
}
