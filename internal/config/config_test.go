package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config has %d validation errors: %v", len(errs), ValidationErrors(errs))
	}
}

func TestDurationHelpers(t *testing.T) {
	g := GameConfig{
		DescribeTimeoutSeconds: 60,
		VoteTimeoutSeconds:     30,
		LeaveTimeoutSeconds:    15,
		JitterMinMs:            1000,
		JitterMaxMs:            5000,
	}

	if g.DescribeTimeout() != 60*time.Second {
		t.Errorf("DescribeTimeout = %v", g.DescribeTimeout())
	}
	if g.VoteTimeout() != 30*time.Second {
		t.Errorf("VoteTimeout = %v", g.VoteTimeout())
	}
	if g.LeaveTimeout() != 15*time.Second {
		t.Errorf("LeaveTimeout = %v", g.LeaveTimeout())
	}
	if g.JitterMin() != time.Second || g.JitterMax() != 5*time.Second {
		t.Errorf("jitter bounds = %v..%v", g.JitterMin(), g.JitterMax())
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.MinorityCount != 2 {
		t.Errorf("minority_count = %d, want 2", cfg.Game.MinorityCount)
	}
	if cfg.Memory.MaxTokens != 8000 {
		t.Errorf("memory.max_tokens = %d, want 8000", cfg.Memory.MaxTokens)
	}
	if cfg.Advisory.Policy != "threshold" {
		t.Errorf("advisory.policy = %s, want threshold", cfg.Advisory.Policy)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()
	viper.Set("game.minority_count", 0)
	viper.Set("advisory.policy", "sometimes")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted invalid configuration")
	}
}

func TestIsValidAdvisoryPolicy(t *testing.T) {
	for _, policy := range ValidAdvisoryPolicies() {
		if !IsValidAdvisoryPolicy(policy) {
			t.Errorf("IsValidAdvisoryPolicy(%q) = false", policy)
		}
	}
	if IsValidAdvisoryPolicy("maybe") {
		t.Error("IsValidAdvisoryPolicy accepted unknown policy")
	}
}
