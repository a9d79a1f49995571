// Package server exposes the lobby over websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtables/internal/config"
	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/lobby"
	"github.com/lox/holdemtables/internal/stats"
	"github.com/lox/holdemtables/internal/table"
)

var errNameTaken = errors.New("player name already connected")

const (
	shutdownTimeout   = 5 * time.Second
	disconnectTimeout = 5 * time.Second
)

// Lobby is the part of the lobby manager the server drives.
type Lobby interface {
	List() []lobby.Listing
	QuickSeat(ctx context.Context, playerID string, pool lobby.Pool, buyIn int) (string, int, error)
	CreatePrivateTable(blinds lobby.Blinds) (string, string, error)
	Join(ctx context.Context, tableID, playerID string, buyIn int) (int, error)
	JoinByInviteCode(ctx context.Context, code, playerID string, buyIn int) (string, int, error)
	InviteTable(code string) (string, lobby.Blinds, bool)
	Act(ctx context.Context, playerID string, action engine.Action, amount int) error
	Leave(ctx context.Context, playerID string) error
	TableFor(playerID string) (string, bool)
	Stats() *stats.Recorder
}

// Options configure a Server.
type Options struct {
	Addr   string
	Stakes []config.StakeConfig
	Logger *log.Logger
}

// Server represents the WebSocket server
type Server struct {
	addr     string
	stakes   []config.StakeConfig
	upgrader websocket.Upgrader
	logger   *log.Logger
	lobby    Lobby

	mu          sync.RWMutex
	connections map[*Connection]bool
	players     map[string]*Connection
}

// New creates a server. The lobby is attached with SetLobby because the
// lobby in turn delivers table output through Deliver and CashOut.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:   opts.Addr,
		stakes: opts.Stakes,
		upgrader: websocket.Upgrader{
			// Browser clients are served from other origins
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]bool),
		players:     make(map[string]*Connection),
	}
}

// SetLobby attaches the lobby. Call before serving.
func (s *Server) SetLobby(l Lobby) {
	s.lobby = l
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", s.addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Deliver routes a table envelope to the connections that may see it.
func (s *Server) Deliver(env table.Envelope) {
	if seated, ok := env.Notice.(table.PlayerSeated); ok {
		if c := s.connection(seated.PlayerID); c != nil {
			c.setTable(env.TableID)
		}
	}

	msg, err := EnvelopeMessage(env)
	if err != nil {
		s.logger.Error("Failed to render table envelope", "table", env.TableID, "type", env.Type(), "error", err)
		return
	}

	s.mu.RLock()
	if env.Recipient != "" {
		if c := s.players[env.Recipient]; c != nil {
			_ = c.SendMessage(msg)
		}
	} else {
		for c := range s.connections {
			if c.Table() == env.TableID && env.VisibleTo(c.Player()) {
				_ = c.SendMessage(msg)
			}
		}
	}
	s.mu.RUnlock()

	if left, ok := env.Notice.(table.PlayerLeft); ok {
		if c := s.connection(left.PlayerID); c != nil {
			c.clearTable(env.TableID)
		}
	}
}

// CashOut tells a player their chips have left the tables.
func (s *Server) CashOut(playerID string, chips int, reason table.LeaveReason) {
	s.logger.Info("Player cashed out", "player", playerID, "chips", chips, "reason", reason)
	c := s.connection(playerID)
	if c == nil {
		return
	}
	msg, err := NewMessage(MessageTypeCashOut, CashOutData{Chips: chips, Reason: string(reason)})
	if err != nil {
		s.logger.Error("Failed to create cash out message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

// ConnectedPlayers returns the authenticated players, sorted.
func (s *Server) ConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]string, 0, len(s.players))
	for id := range s.players {
		players = append(players, id)
	}
	slices.Sort(players)
	return players
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := newConnection(conn, s)
	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "session", client.id, "total", total)

	client.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) connection(playerID string) *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[playerID]
}

// claim binds a player name to a connection.
func (s *Server) claim(playerID string, c *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.players[playerID]; taken {
		return fmt.Errorf("%w: %s", errNameTaken, playerID)
	}
	s.players[playerID] = c
	return nil
}

// unregister forgets a closed connection and takes its player off the
// tables.
func (s *Server) unregister(c *Connection) {
	playerID := c.Player()
	s.mu.Lock()
	delete(s.connections, c)
	if playerID != "" && s.players[playerID] == c {
		delete(s.players, playerID)
	}
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client disconnected", "session", c.id, "player", playerID, "total", total)

	if playerID == "" || s.lobby == nil {
		return
	}
	if _, seated := s.lobby.TableFor(playerID); !seated {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := s.lobby.Leave(ctx, playerID); err != nil && !errors.Is(err, table.ErrNotSeated) {
		s.logger.Warn("Failed to remove disconnected player", "player", playerID, "error", err)
	}
}

func (s *Server) closeAll() {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.RUnlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) stake(name string) (config.StakeConfig, bool) {
	for _, st := range s.stakes {
		if st.Name == name {
			return st, true
		}
	}
	return config.StakeConfig{}, false
}

// buyInForInvite bounds a buy-in by the stake sharing the private table's
// blinds, or 50 to 200 big blinds when no stake matches.
func (s *Server) buyInForInvite(code string, requested int) int {
	_, blinds, ok := s.lobby.InviteTable(code)
	if !ok {
		return max(requested, 1)
	}
	for _, st := range s.stakes {
		if st.SmallBlind == blinds.Small && st.BigBlind == blinds.Big {
			return st.ClampBuyIn(requested)
		}
	}
	return config.StakeConfig{BuyInMin: blinds.Big * 50, BuyInMax: blinds.Big * 200}.ClampBuyIn(requested)
}
