package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spicycabbage/spotdiff/internal/game"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if got, want := cfg.Game.Rules(), game.DefaultRules(); got != want {
		t.Errorf("default rules = %+v, want %+v", got, want)
	}
	if cfg.Payment.Enabled() {
		t.Errorf("payments should be disabled by default")
	}
	if cfg.Server.WebDir != "web" || cfg.Redis.Addr != "" || cfg.Ledger.Path == "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration is invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  addr: "127.0.0.1:9000"
game:
  level_duration: 90s
  starting_hints: 5
redis:
  addr: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SPOTDIFF_GAME_WRONG_CLICK_PENALTY", "10s")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	rules := cfg.Game.Rules()
	if rules.LevelDuration != 90*time.Second || rules.StartingPowerups.Hints != 5 {
		t.Errorf("file values not applied: %+v", rules)
	}
	if rules.WrongClickPenalty != 10*time.Second {
		t.Errorf("environment override not applied: %s", rules.WrongClickPenalty)
	}
	if rules.TimeBoost != 15*time.Second || rules.StartingPowerups.Time != 3 {
		t.Errorf("defaults not applied: %+v", rules)
	}
	if !cfg.Payment.Enabled() || cfg.Payment.StripeWebhookSecret != "whsec_123" {
		t.Errorf("Stripe keys not read from the environment: %+v", cfg.Payment)
	}
}

func TestLoadPort(t *testing.T) {
	t.Setenv("PORT", "3001")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":3001" {
		t.Errorf("server.addr = %q, want :3001", cfg.Server.Addr)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("SPOTDIFF_GAME_LEVEL_DURATION", "0s")
		t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
		if _, err := Load(""); err == nil {
			t.Errorf("expected a validation error")
		}
	})
}
