package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtables/internal/lobby"
	"github.com/lox/holdemtables/internal/timer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holdem.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.ServerAddress())
	assert.Equal(t, timer.DefaultTiming(), cfg.TableTiming())
	assert.Equal(t, time.Minute, cfg.CleanupInterval())
	assert.Equal(t, 500, cfg.EngineOptions().RakeBasisPoints)
	assert.Len(t, cfg.Stakes, 2)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

timing {
  action_timeout_ms = 15000
  next_hand_ms      = 500
}

rules {
  rake_percent             = 0
  max_consecutive_timeouts = 2
  no_flop_no_drop          = false
}

stake "low" {
  small_blind = 1
  big_blind   = 3
  bots        = 2
  bot_profiles = ["rock", "maniac"]
}

stake "low-fast" {
  small_blind = 1
  big_blind   = 3
  fast_fold   = true
  buy_in_max  = 500
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddress())
	assert.Equal(t, "debug", cfg.Server.LogLevel)

	timing := cfg.TableTiming()
	assert.Equal(t, 15*time.Second, timing.ActionTimeout)
	assert.Equal(t, 500*time.Millisecond, timing.NextHand)
	assert.Equal(t, timer.DefaultTiming().ShowdownReveal, timing.ShowdownReveal)

	rules := cfg.EngineOptions()
	assert.Zero(t, rules.RakeBasisPoints, "explicit zero rake is kept")
	assert.False(t, rules.NoFlopNoDrop)
	assert.Equal(t, 2, rules.MinPlayersToStart)

	fast, ok := cfg.StakeByName("low-fast")
	require.True(t, ok)
	assert.Equal(t, lobby.Pool{Blinds: lobby.Blinds{Small: 1, Big: 3}, FastFold: true}, fast.Pool())
	assert.Equal(t, 150, fast.BuyInMin)
	assert.Equal(t, 500, fast.BuyInMax)
	assert.Equal(t, 500, fast.ClampBuyIn(0))
	assert.Equal(t, 150, fast.ClampBuyIn(10))
	assert.Equal(t, 200, fast.ClampBuyIn(200))

	lo := cfg.LobbyOptions()
	assert.Equal(t, 2, lo.MaxConsecutiveTimeouts)
	require.Len(t, lo.Stakes, 2)
	assert.Equal(t, 2, lo.Stakes[0].Bots)
	assert.Equal(t, []string{"rock", "maniac"}, lo.Stakes[0].Profiles)
	assert.Equal(t, 600, lo.Stakes[0].BotChips)
}

func TestLoadRejectsBadHCL(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, `server {`))
	assert.ErrorContains(t, err, "failed to parse HCL file")

	_, err = Load(writeConfig(t, `server {}
stake "x" { small_blind = "one" }`))
	assert.ErrorContains(t, err, "failed to decode HCL")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"no stakes", func(c *Config) { c.Stakes = nil }, "at least one stake"},
		{"zero timeout", func(c *Config) { c.Timing.ActionTimeoutMS = -1 }, "action_timeout_ms"},
		{"rake too high", func(c *Config) { pct := 25.0; c.Rules.RakePercent = &pct }, "rake_percent"},
		{"min players", func(c *Config) { c.Rules.MinPlayersToStart = 9 }, "min_players_to_start"},
		{"blinds", func(c *Config) { c.Stakes[0].BigBlind = 1 }, "big blind must be greater"},
		{"buy-in", func(c *Config) { c.Stakes[0].BuyInMin = c.Stakes[0].BuyInMax + 1 }, "buy-in range"},
		{"profile", func(c *Config) { c.Stakes[0].BotProfiles = []string{"shark"} }, "unknown bot profile"},
		{"duplicate pool", func(c *Config) { c.Stakes[1].FastFold = false }, "same blinds and mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
