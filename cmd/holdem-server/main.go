package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtables/internal/config"
	"github.com/lox/holdemtables/internal/lobby"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/server"
)

var CLI struct {
	Config string `short:"c" default:"holdem-server.hcl" help:"Path to HCL configuration file"`
	Addr   string `short:"a" help:"Server address to bind to (overrides config)"`
	Debug  bool   `help:"Enable debug logging (overrides config)"`
	Seed   int64  `help:"Deterministic seed for decks and bots (0 picks one)"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("holdem-server"),
		kong.Description("Multi-table No-Limit Hold'em server"),
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	addr := cfg.ServerAddress()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}
	if CLI.Debug {
		cfg.Server.LogLevel = "debug"
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	seed := CLI.Seed
	if seed == 0 {
		seed = randutil.RandomSeed()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, addr, seed, logger); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, addr string, seed int64, logger *log.Logger) error {
	srv := server.New(server.Options{
		Addr:   addr,
		Stakes: cfg.Stakes,
		Logger: logger,
	})

	opts := cfg.LobbyOptions()
	opts.Clock = quartz.NewReal()
	opts.Logger = logger
	opts.Seed = seed
	opts.Deliver = srv.Deliver
	opts.CashOut = srv.CashOut
	manager := lobby.NewManager(opts)
	defer manager.Close()
	srv.SetLobby(manager)

	logger.Info("Starting Holdem Server",
		"addr", addr,
		"stakes", len(cfg.Stakes),
		"seed", seed)
	for _, s := range cfg.Stakes {
		logger.Info("Stake open", "name", s.Name, "pool", s.Pool(), "bots", s.Bots,
			"buyIn", fmt.Sprintf("%d-%d", s.BuyInMin, s.BuyInMax))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	err := g.Wait()
	logger.Info("Server stopped")
	return err
}
