package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "game.minority_count")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// playerNameRegex validates player names: start with alphanumeric,
// then alphanumeric, hyphen, underscore or dot.
var playerNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}
}

// Validate checks the Config for invalid values and returns all
// validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGame()...)
	errors = append(errors, c.validateAdvisory()...)
	errors = append(errors, c.validateMemory()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePlayers()...)
	errors = append(errors, c.validateProviders()...)

	return errors
}

// validateGame validates the GameConfig
func (c *Config) validateGame() []ValidationError {
	var errors []ValidationError

	if c.Game.MinorityCount < 1 {
		errors = append(errors, ValidationError{
			Field:   "game.minority_count",
			Value:   c.Game.MinorityCount,
			Message: "must be at least 1",
		})
	}
	// The count must leave a strict majority; checked against the
	// roster only when players are configured.
	if n := len(c.Players); n > 0 && c.Game.MinorityCount >= n {
		errors = append(errors, ValidationError{
			Field:   "game.minority_count",
			Value:   c.Game.MinorityCount,
			Message: fmt.Sprintf("must be less than the roster size (%d)", n),
		})
	}

	const minStatementLength = 20
	const maxStatementLength = 2000
	if c.Game.MaxStatementLength < minStatementLength {
		errors = append(errors, ValidationError{
			Field:   "game.max_statement_length",
			Value:   c.Game.MaxStatementLength,
			Message: fmt.Sprintf("must be at least %d characters", minStatementLength),
		})
	}
	if c.Game.MaxStatementLength > maxStatementLength {
		errors = append(errors, ValidationError{
			Field:   "game.max_statement_length",
			Value:   c.Game.MaxStatementLength,
			Message: fmt.Sprintf("exceeds maximum of %d characters", maxStatementLength),
		})
	}

	if c.Game.DescribeTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "game.describe_timeout_seconds",
			Value:   c.Game.DescribeTimeoutSeconds,
			Message: "must be positive",
		})
	}
	if c.Game.VoteTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "game.vote_timeout_seconds",
			Value:   c.Game.VoteTimeoutSeconds,
			Message: "must be positive",
		})
	}
	if c.Game.LeaveTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "game.leave_timeout_seconds",
			Value:   c.Game.LeaveTimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.Game.JitterMinMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "game.jitter_min_ms",
			Value:   c.Game.JitterMinMs,
			Message: "must be non-negative",
		})
	}
	if c.Game.JitterMaxMs < c.Game.JitterMinMs {
		errors = append(errors, ValidationError{
			Field:   "game.jitter_max_ms",
			Value:   c.Game.JitterMaxMs,
			Message: fmt.Sprintf("must be at least jitter_min_ms (%d)", c.Game.JitterMinMs),
		})
	}

	return errors
}

// validateAdvisory validates the AdvisoryConfig
func (c *Config) validateAdvisory() []ValidationError {
	var errors []ValidationError

	if c.Advisory.Policy != "" && !IsValidAdvisoryPolicy(c.Advisory.Policy) {
		errors = append(errors, ValidationError{
			Field:   "advisory.policy",
			Value:   c.Advisory.Policy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidAdvisoryPolicies(), ", ")),
		})
	}

	return errors
}

// validateMemory validates the MemoryConfig
func (c *Config) validateMemory() []ValidationError {
	var errors []ValidationError

	const minTokenBudget = 500
	if c.Memory.MaxTokens < minTokenBudget {
		errors = append(errors, ValidationError{
			Field:   "memory.max_tokens",
			Value:   c.Memory.MaxTokens,
			Message: fmt.Sprintf("must be at least %d", minTokenBudget),
		})
	}
	if c.Memory.RecentMessages < 1 {
		errors = append(errors, ValidationError{
			Field:   "memory.recent_messages",
			Value:   c.Memory.RecentMessages,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 disables rotation)",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePlayers validates the roster
func (c *Config) validatePlayers() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool)
	for i, player := range c.Players {
		fieldName := fmt.Sprintf("players[%d]", i)

		if strings.TrimSpace(player.Name) == "" {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".name",
				Value:   player.Name,
				Message: "cannot be empty",
			})
			continue
		}
		if !playerNameRegex.MatchString(player.Name) {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".name",
				Value:   player.Name,
				Message: "must start with an alphanumeric character and contain only alphanumerics, dots, hyphens, or underscores",
			})
		}
		if seen[player.Name] {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".name",
				Value:   player.Name,
				Message: "duplicate player name",
			})
		}
		seen[player.Name] = true

		if player.Provider == "" {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".provider",
				Value:   player.Provider,
				Message: "cannot be empty",
			})
		} else if len(c.Providers) > 0 {
			if _, ok := c.Providers[player.Provider]; !ok {
				errors = append(errors, ValidationError{
					Field:   fieldName + ".provider",
					Value:   player.Provider,
					Message: "no such provider configured",
				})
			}
		}
	}

	// A playable game needs at least three entries, but an empty
	// roster is allowed so `undercover check` works without one.
	if n := len(c.Players); n > 0 && n < 3 {
		errors = append(errors, ValidationError{
			Field:   "players",
			Value:   n,
			Message: "a game needs at least 3 players",
		})
	}

	return errors
}

// validateProviders validates provider endpoint configuration
func (c *Config) validateProviders() []ValidationError {
	var errors []ValidationError

	for name, provider := range c.Providers {
		fieldName := fmt.Sprintf("providers.%s", name)

		if provider.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".base_url",
				Value:   provider.BaseURL,
				Message: "cannot be empty",
			})
		}
		if provider.Model == "" {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".model",
				Value:   provider.Model,
				Message: "cannot be empty",
			})
		}
		if provider.Temperature < 0 || provider.Temperature > 2 {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".temperature",
				Value:   provider.Temperature,
				Message: "must be between 0 and 2",
			})
		}
		if provider.MaxTokens < 0 {
			errors = append(errors, ValidationError{
				Field:   fieldName + ".max_tokens",
				Value:   provider.MaxTokens,
				Message: "must be non-negative (0 uses the provider default)",
			})
		}
	}

	return errors
}
