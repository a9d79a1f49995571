package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/lobby"
	"github.com/lox/holdemtables/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBuffer = 256
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection is one client session.
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.RWMutex
	playerID string
	tableID  string
}

func newConnection(conn *websocket.Conn, s *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan *Message, sendBuffer),
		server: s,
		logger: s.logger.WithPrefix("conn").With("session", id),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues msg. A client that cannot keep up is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection", "player", c.Player())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) setPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// Table returns the table the client is following.
func (c *Connection) Table() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) setTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// clearTable stops following tableID unless the client already moved on.
func (c *Connection) clearTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tableID == tableID {
		c.tableID = ""
	}
}

func (c *Connection) readPump() {
	defer func() {
		_ = c.Close()
		c.server.unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Player())

	if msg.Type != MessageTypeAuth && msg.Type != MessageTypeListTables && c.Player() == "" {
		c.sendError(msg, "not_authenticated", "Must authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if !c.decode(msg, &data) {
			return
		}
		c.handleAuth(msg, data)

	case MessageTypeListTables:
		c.handleListTables(msg)

	case MessageTypeQuickSeat:
		var data QuickSeatData
		if !c.decode(msg, &data) {
			return
		}
		c.handleQuickSeat(msg, data)

	case MessageTypeCreatePrivate:
		var data CreatePrivateData
		if !c.decode(msg, &data) {
			return
		}
		c.handleCreatePrivate(msg, data)

	case MessageTypeJoinInvite:
		var data JoinInviteData
		if !c.decode(msg, &data) {
			return
		}
		c.handleJoinInvite(msg, data)

	case MessageTypeAction:
		var data ActionData
		if !c.decode(msg, &data) {
			return
		}
		c.handleAction(msg, data)

	case MessageTypeLeave:
		c.handleLeave(msg)

	case MessageTypeStats:
		c.handleStats(msg)

	default:
		c.sendError(msg, "unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) decode(msg *Message, v any) bool {
	if len(msg.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError(msg, "invalid_message", "Failed to parse "+msg.Type.String()+" data: "+err.Error())
		return false
	}
	return true
}

func (c *Connection) reply(req *Message, messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	if req != nil {
		msg.RequestID = req.RequestID
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(req *Message, code, message string) {
	c.reply(req, MessageTypeError, ErrorData{Code: code, Message: message})
}

func (c *Connection) fail(req *Message, err error) {
	c.sendError(req, errorCode(err), err.Error())
}

func (c *Connection) handleAuth(req *Message, data AuthData) {
	if c.Player() != "" {
		c.sendError(req, "already_authenticated", "Session already has a player")
		return
	}
	name := data.PlayerName
	if name == "" {
		name = "guest-" + c.id[:8]
	}
	if err := c.server.claim(name, c); err != nil {
		c.fail(req, err)
		return
	}
	c.setPlayer(name)
	c.logger.Info("Player authenticated", "player", name)
	c.reply(req, MessageTypeAuthResponse, AuthResponseData{SessionID: c.id, PlayerID: name})
}

func (c *Connection) handleListTables(req *Message) {
	listings := c.server.lobby.List()
	tables := make([]TableInfo, 0, len(listings))
	for _, l := range listings {
		if l.Private {
			continue
		}
		tables = append(tables, TableInfo{
			ID:             l.ID,
			Stakes:         l.Blinds.String(),
			FastFold:       l.FastFold,
			Players:        l.Players,
			OpenSeats:      l.OpenSeats,
			HandInProgress: l.HandInProgress,
		})
	}
	c.reply(req, MessageTypeTableList, TableListData{Tables: tables})
}

func (c *Connection) handleQuickSeat(req *Message, data QuickSeatData) {
	stake, ok := c.server.stake(data.Stake)
	if !ok {
		c.sendError(req, "unknown_stake", "Unknown stake: "+data.Stake)
		return
	}
	chips := stake.ClampBuyIn(data.BuyIn)
	tableID, seat, err := c.server.lobby.QuickSeat(c.ctx, c.Player(), stake.Pool(), chips)
	if err != nil {
		c.fail(req, err)
		return
	}
	c.setTable(tableID)
	c.reply(req, MessageTypeSeated, SeatedData{TableID: tableID, SeatNumber: seat, Chips: chips})
}

func (c *Connection) handleCreatePrivate(req *Message, data CreatePrivateData) {
	stake, ok := c.server.stake(data.Stake)
	if !ok {
		c.sendError(req, "unknown_stake", "Unknown stake: "+data.Stake)
		return
	}
	code, tableID, err := c.server.lobby.CreatePrivateTable(stake.Pool().Blinds)
	if err != nil {
		c.fail(req, err)
		return
	}
	chips := stake.ClampBuyIn(data.BuyIn)
	seat, err := c.server.lobby.Join(c.ctx, tableID, c.Player(), chips)
	if err != nil {
		c.fail(req, err)
		return
	}
	c.setTable(tableID)
	c.reply(req, MessageTypeSeated, SeatedData{TableID: tableID, SeatNumber: seat, Chips: chips, InviteCode: code})
}

func (c *Connection) handleJoinInvite(req *Message, data JoinInviteData) {
	chips := c.server.buyInForInvite(data.Code, data.BuyIn)
	tableID, seat, err := c.server.lobby.JoinByInviteCode(c.ctx, data.Code, c.Player(), chips)
	if err != nil {
		c.fail(req, err)
		return
	}
	c.setTable(tableID)
	c.reply(req, MessageTypeSeated, SeatedData{TableID: tableID, SeatNumber: seat, Chips: chips})
}

func (c *Connection) handleAction(req *Message, data ActionData) {
	if err := c.server.lobby.Act(c.ctx, c.Player(), data.Action, data.Amount); err != nil {
		c.fail(req, err)
	}
}

func (c *Connection) handleLeave(req *Message) {
	tableID, _ := c.server.lobby.TableFor(c.Player())
	if err := c.server.lobby.Leave(c.ctx, c.Player()); err != nil {
		c.fail(req, err)
		return
	}
	c.reply(req, MessageTypeLeft, map[string]string{"tableId": tableID})
}

func (c *Connection) handleStats(req *Message) {
	t, _ := c.server.lobby.Stats().Player(c.Player())
	c.reply(req, MessageTypeStatsResult, StatsData{
		Hands:        t.Hands,
		Profit:       t.TotalProfit,
		AllInEV:      t.TotalAllInEVProfit,
		BB100:        t.BB100(),
		VPIP:         t.VPIP(),
		PFR:          t.PFR(),
		ShowdownWins: t.ShowdownWinRate(),
		RakePaid:     t.RakePaid,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errNameTaken):
		return "name_taken"
	case errors.Is(err, lobby.ErrAlreadySeated):
		return "already_seated"
	case errors.Is(err, lobby.ErrInviteCodeNotFound):
		return "invite_not_found"
	case errors.Is(err, lobby.ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, table.ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, table.ErrNotSeated):
		return "not_seated"
	case errors.Is(err, table.ErrTableClosed), errors.Is(err, lobby.ErrManagerClosed):
		return "unavailable"
	case errors.Is(err, engine.ErrCommandRejected):
		return "action_rejected"
	default:
		return "internal"
	}
}
