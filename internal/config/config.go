// Package config loads the server's HCL configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdemtables/internal/bot"
	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/lobby"
	"github.com/lox/holdemtables/internal/timer"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Timing *TimingConfig  `hcl:"timing,block"`
	Rules  *RulesConfig   `hcl:"rules,block"`
	Stakes []StakeConfig  `hcl:"stake,block"`
}

// ServerSettings contains listener and logging settings.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TimingConfig holds pacing in milliseconds.
type TimingConfig struct {
	ActionTimeoutMS    int `hcl:"action_timeout_ms,optional"`
	ActionAnimationMS  int `hcl:"action_animation_ms,optional"`
	StreetTransitionMS int `hcl:"street_transition_ms,optional"`
	AllInRunoutMS      int `hcl:"allin_runout_ms,optional"`
	ShowdownRevealMS   int `hcl:"showdown_reveal_ms,optional"`
	HandCompleteMS     int `hcl:"hand_complete_ms,optional"`
	NextHandMS         int `hcl:"next_hand_ms,optional"`
	BotThinkMS         int `hcl:"bot_think_ms,optional"`
	CleanupIntervalMS  int `hcl:"cleanup_interval_ms,optional"`
}

// RulesConfig holds rake and table policy.
type RulesConfig struct {
	RakePercent            *float64 `hcl:"rake_percent,optional"`
	RakeCapBB              int      `hcl:"rake_cap_bb,optional"`
	MaxConsecutiveTimeouts int      `hcl:"max_consecutive_timeouts,optional"`
	MinPlayersToStart      int      `hcl:"min_players_to_start,optional"`
	NoFlopNoDrop           *bool    `hcl:"no_flop_no_drop,optional"`
}

// StakeConfig defines a table pool the lobby keeps open.
type StakeConfig struct {
	Name        string   `hcl:"name,label"`
	SmallBlind  int      `hcl:"small_blind"`
	BigBlind    int      `hcl:"big_blind"`
	FastFold    bool     `hcl:"fast_fold,optional"`
	BuyInMin    int      `hcl:"buy_in_min,optional"`
	BuyInMax    int      `hcl:"buy_in_max,optional"`
	Bots        int      `hcl:"bots,optional"`
	BotProfiles []string `hcl:"bot_profiles,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Stakes: []StakeConfig{
			{Name: "micro", SmallBlind: 1, BigBlind: 2, Bots: 3},
			{Name: "micro-fast", SmallBlind: 1, BigBlind: 2, FastFold: true},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Timing == nil {
		c.Timing = &TimingConfig{}
	}
	def := timer.DefaultTiming()
	t := c.Timing
	fill := func(v *int, d time.Duration) {
		if *v == 0 {
			*v = int(d.Milliseconds())
		}
	}
	fill(&t.ActionTimeoutMS, def.ActionTimeout)
	fill(&t.ActionAnimationMS, def.ActionAnimation)
	fill(&t.StreetTransitionMS, def.StreetTransition)
	fill(&t.AllInRunoutMS, def.AllInRunout)
	fill(&t.ShowdownRevealMS, def.ShowdownReveal)
	fill(&t.HandCompleteMS, def.HandComplete)
	fill(&t.NextHandMS, def.NextHand)
	fill(&t.BotThinkMS, def.BotThink)
	fill(&t.CleanupIntervalMS, time.Minute)

	if c.Rules == nil {
		c.Rules = &RulesConfig{}
	}
	r := c.Rules
	rules := engine.DefaultOptions()
	if r.RakePercent == nil {
		pct := float64(rules.RakeBasisPoints) / 100
		r.RakePercent = &pct
	}
	if r.RakeCapBB == 0 {
		r.RakeCapBB = rules.RakeCapBB
	}
	if r.MaxConsecutiveTimeouts == 0 {
		r.MaxConsecutiveTimeouts = 3
	}
	if r.MinPlayersToStart == 0 {
		r.MinPlayersToStart = rules.MinPlayersToStart
	}
	if r.NoFlopNoDrop == nil {
		r.NoFlopNoDrop = &rules.NoFlopNoDrop
	}

	for i := range c.Stakes {
		s := &c.Stakes[i]
		if s.BuyInMin == 0 {
			s.BuyInMin = s.BigBlind * 50
		}
		if s.BuyInMax == 0 {
			s.BuyInMax = s.BigBlind * 200
		}
	}
}

// Validate checks ranges and references.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if len(c.Stakes) == 0 {
		return errors.New("at least one stake must be configured")
	}

	if c.Timing.ActionTimeoutMS <= 0 {
		return fmt.Errorf("timing: action_timeout_ms must be positive, got %d", c.Timing.ActionTimeoutMS)
	}
	if c.Timing.CleanupIntervalMS <= 0 {
		return fmt.Errorf("timing: cleanup_interval_ms must be positive, got %d", c.Timing.CleanupIntervalMS)
	}

	if pct := *c.Rules.RakePercent; pct < 0 || pct > 10 {
		return fmt.Errorf("rules: rake_percent must be between 0 and 10, got %g", pct)
	}
	if c.Rules.RakeCapBB < 0 {
		return fmt.Errorf("rules: rake_cap_bb must not be negative, got %d", c.Rules.RakeCapBB)
	}
	if c.Rules.MaxConsecutiveTimeouts < 1 {
		return fmt.Errorf("rules: max_consecutive_timeouts must be at least 1, got %d", c.Rules.MaxConsecutiveTimeouts)
	}
	if c.Rules.MinPlayersToStart < 2 || c.Rules.MinPlayersToStart > engine.MaxSeats {
		return fmt.Errorf("rules: min_players_to_start must be between 2 and %d, got %d", engine.MaxSeats, c.Rules.MinPlayersToStart)
	}

	seen := make(map[lobby.Pool]string)
	for _, s := range c.Stakes {
		if s.SmallBlind <= 0 {
			return fmt.Errorf("stake %s: small blind must be positive", s.Name)
		}
		if s.BigBlind <= s.SmallBlind {
			return fmt.Errorf("stake %s: big blind must be greater than small blind", s.Name)
		}
		if s.BuyInMin <= 0 || s.BuyInMin > s.BuyInMax {
			return fmt.Errorf("stake %s: buy-in range %d-%d is invalid", s.Name, s.BuyInMin, s.BuyInMax)
		}
		if s.Bots < 0 || s.Bots > engine.MaxSeats {
			return fmt.Errorf("stake %s: bots must be between 0 and %d", s.Name, engine.MaxSeats)
		}
		for _, name := range s.BotProfiles {
			if _, ok := bot.Profile(name); !ok {
				return fmt.Errorf("stake %s: unknown bot profile %q (want one of %v)", s.Name, name, bot.ProfileNames())
			}
		}
		pool := s.Pool()
		if other, dup := seen[pool]; dup {
			return fmt.Errorf("stake %s: same blinds and mode as stake %s", s.Name, other)
		}
		seen[pool] = s.Name
	}
	return nil
}

// ServerAddress returns host:port.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// StakeByName returns the named stake.
func (c *Config) StakeByName(name string) (StakeConfig, bool) {
	for _, s := range c.Stakes {
		if s.Name == name {
			return s, true
		}
	}
	return StakeConfig{}, false
}

// Pool is the lobby pool the stake opens.
func (s StakeConfig) Pool() lobby.Pool {
	return lobby.Pool{
		Blinds:   lobby.Blinds{Small: s.SmallBlind, Big: s.BigBlind},
		FastFold: s.FastFold,
	}
}

// ClampBuyIn bounds a requested buy-in to the stake's range. Zero asks for
// the maximum.
func (s StakeConfig) ClampBuyIn(chips int) int {
	if chips <= 0 {
		return s.BuyInMax
	}
	return min(max(chips, s.BuyInMin), s.BuyInMax)
}

// EngineOptions converts the rules block.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		RakeBasisPoints:   int(math.Round(*c.Rules.RakePercent * 100)),
		RakeCapBB:         c.Rules.RakeCapBB,
		NoFlopNoDrop:      *c.Rules.NoFlopNoDrop,
		MinPlayersToStart: c.Rules.MinPlayersToStart,
	}
}

// TableTiming converts the timing block.
func (c *Config) TableTiming() timer.Timing {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	t := c.Timing
	return timer.Timing{
		ActionTimeout:    ms(t.ActionTimeoutMS),
		ActionAnimation:  ms(t.ActionAnimationMS),
		StreetTransition: ms(t.StreetTransitionMS),
		AllInRunout:      ms(t.AllInRunoutMS),
		ShowdownReveal:   ms(t.ShowdownRevealMS),
		HandComplete:     ms(t.HandCompleteMS),
		NextHand:         ms(t.NextHandMS),
		BotThink:         ms(t.BotThinkMS),
	}
}

// CleanupInterval is how often the lobby sweeps empty tables.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Timing.CleanupIntervalMS) * time.Millisecond
}

// LobbyOptions builds the lobby configuration. Runtime dependencies such as
// the clock and logger are left for the caller.
func (c *Config) LobbyOptions() lobby.Options {
	opts := lobby.Options{
		Rules:                  c.EngineOptions(),
		Timing:                 c.TableTiming(),
		MaxConsecutiveTimeouts: c.Rules.MaxConsecutiveTimeouts,
		CleanupInterval:        c.CleanupInterval(),
	}
	for _, s := range c.Stakes {
		opts.Stakes = append(opts.Stakes, lobby.Stake{
			Pool:     s.Pool(),
			Bots:     s.Bots,
			BotChips: s.BuyInMax,
			Profiles: s.BotProfiles,
		})
	}
	return opts
}
