package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/holdemtables/internal/engine"
	"github.com/lox/holdemtables/internal/table"
	"github.com/lox/holdemtables/poker"
)

// Message is the websocket frame in both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
}

type QuickSeatData struct {
	Stake string `json:"stake"`
	BuyIn int    `json:"buyIn,omitempty"`
}

type CreatePrivateData struct {
	Stake string `json:"stake"`
	BuyIn int    `json:"buyIn,omitempty"`
}

type JoinInviteData struct {
	Code  string `json:"code"`
	BuyIn int    `json:"buyIn,omitempty"`
}

type ActionData struct {
	Action engine.Action `json:"action"`
	Amount int           `json:"amount,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	ID             string `json:"id"`
	Stakes         string `json:"stakes"`
	FastFold       bool   `json:"fastFold"`
	Private        bool   `json:"private"`
	Players        int    `json:"players"`
	OpenSeats      int    `json:"openSeats"`
	HandInProgress bool   `json:"handInProgress"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type SeatedData struct {
	TableID    string `json:"tableId"`
	SeatNumber int    `json:"seatNumber"`
	Chips      int    `json:"chips"`
	InviteCode string `json:"inviteCode,omitempty"`
}

type CashOutData struct {
	Chips  int    `json:"chips"`
	Reason string `json:"reason"`
}

type StatsData struct {
	Hands        int     `json:"hands"`
	Profit       int     `json:"profit"`
	AllInEV      float64 `json:"allInEvProfit"`
	BB100        float64 `json:"bb100"`
	VPIP         float64 `json:"vpip"`
	PFR          float64 `json:"pfr"`
	ShowdownWins float64 `json:"showdownWinRate"`
	RakePaid     int     `json:"rakePaid"`
}

// TableEventData wraps every forwarded table envelope.
type TableEventData struct {
	TableID string `json:"tableId"`
	Seq     uint64 `json:"seq"`
	Payload any    `json:"payload"`
}

type SeatData struct {
	SeatNumber int    `json:"seatNumber"`
	PlayerID   string `json:"playerId"`
	Chips      int    `json:"chips"`
}

type HandStartData struct {
	HandID         string     `json:"handId"`
	DealerSeat     int        `json:"dealerSeat"`
	SmallBlindSeat int        `json:"smallBlindSeat"`
	BigBlindSeat   int        `json:"bigBlindSeat"`
	SmallBlind     int        `json:"smallBlind"`
	BigBlind       int        `json:"bigBlind"`
	Seats          []SeatData `json:"seats"`
}

type BlindPostedData struct {
	SeatNumber int    `json:"seatNumber"`
	Blind      string `json:"blind"`
	Amount     int    `json:"amount"`
	AllIn      bool   `json:"allIn"`
}

type HoleCardsData struct {
	SeatNumber int          `json:"seatNumber"`
	Cards      []poker.Card `json:"cards"`
}

type PlayerActionData struct {
	SeatNumber int           `json:"seatNumber"`
	PlayerID   string        `json:"playerId"`
	Street     engine.Street `json:"street"`
	Action     engine.Action `json:"action"`
	Amount     int           `json:"amount"`
	To         int           `json:"to"`
	Chips      int           `json:"chips"`
	AllIn      bool          `json:"allIn"`
	Forced     bool          `json:"forced"`
	PotAfter   int           `json:"potAfter"`
	CurrentBet int           `json:"currentBet"`
}

type StreetChangeData struct {
	Street   engine.Street `json:"street"`
	NewCards []poker.Card  `json:"newCards"`
	Board    []poker.Card  `json:"board"`
	Runout   bool          `json:"runout"`
}

type UncalledBetData struct {
	SeatNumber int `json:"seatNumber"`
	Amount     int `json:"amount"`
}

type PotData struct {
	Amount        int   `json:"amount"`
	EligibleSeats []int `json:"eligibleSeats"`
}

type SidePotsData struct {
	Pots []PotData `json:"pots"`
}

type RevealedHandData struct {
	SeatNumber  int          `json:"seatNumber"`
	PlayerID    string       `json:"playerId"`
	Cards       []poker.Card `json:"cards"`
	Description string       `json:"description"`
}

type ShowdownData struct {
	Hands []RevealedHandData `json:"hands"`
}

type PotAwardedData struct {
	PotIndex int         `json:"potIndex"`
	Amount   int         `json:"amount"`
	Rake     int         `json:"rake"`
	Shares   map[int]int `json:"shares"`
}

type WinnerData struct {
	SeatNumber      int    `json:"seatNumber"`
	PlayerID        string `json:"playerId"`
	AmountWon       int    `json:"amountWon"`
	HandDescription string `json:"handDescription,omitempty"`
	Revealed        bool   `json:"revealed"`
}

type HandEndData struct {
	HandID     string       `json:"handId"`
	Winners    []WinnerData `json:"winners"`
	Rake       int          `json:"rake"`
	FinalBoard []poker.Card `json:"finalBoard"`
	Showdown   bool         `json:"showdown"`
}

type ValidActionInfo struct {
	Action    engine.Action `json:"action"`
	MinAmount int           `json:"minAmount"`
	MaxAmount int           `json:"maxAmount"`
}

type ActionRequiredData struct {
	HandID         string            `json:"handId"`
	SeatNumber     int               `json:"seatNumber"`
	PlayerID       string            `json:"playerId"`
	ValidActions   []ValidActionInfo `json:"validActions"`
	ToCall         int               `json:"toCall"`
	Pot            int               `json:"pot"`
	TimeoutSeconds float64           `json:"timeoutSeconds"`
}

type CountdownData struct {
	StartsInSeconds float64 `json:"startsInSeconds"`
}

type PlayerSeatedData struct {
	SeatNumber int    `json:"seatNumber"`
	PlayerID   string `json:"playerId"`
	Chips      int    `json:"chips"`
	Bot        bool   `json:"bot"`
}

type PlayerLeftData struct {
	SeatNumber int    `json:"seatNumber"`
	PlayerID   string `json:"playerId"`
	Chips      int    `json:"chips"`
	Reason     string `json:"reason"`
}

type PlayerTimeoutData struct {
	HandID      string        `json:"handId"`
	SeatNumber  int           `json:"seatNumber"`
	PlayerID    string        `json:"playerId"`
	Consecutive int           `json:"consecutive"`
	Action      engine.Action `json:"action"`
	Removed     bool          `json:"removed"`
}

// EnvelopeMessage renders a table envelope for the wire. Callers check
// visibility first.
func EnvelopeMessage(env table.Envelope) (*Message, error) {
	var payload any
	switch {
	case env.Event != nil:
		payload = eventPayload(env.Event)
	case env.Notice != nil:
		payload = noticePayload(env.Notice)
	}
	if payload == nil {
		return nil, fmt.Errorf("envelope %d from %s has no payload", env.Seq, env.TableID)
	}
	return NewMessage(MessageType(env.Type()), TableEventData{
		TableID: env.TableID,
		Seq:     env.Seq,
		Payload: payload,
	})
}

func eventPayload(ev engine.Event) any {
	switch e := ev.(type) {
	case engine.HandStarted:
		seats := make([]SeatData, len(e.Seats))
		for i, s := range e.Seats {
			seats[i] = SeatData{SeatNumber: s.SeatID, PlayerID: s.PlayerID, Chips: s.Chips}
		}
		return HandStartData{
			HandID:         e.HandID,
			DealerSeat:     e.DealerSeat,
			SmallBlindSeat: e.SmallBlindSeat,
			BigBlindSeat:   e.BigBlindSeat,
			SmallBlind:     e.SmallBlind,
			BigBlind:       e.BigBlind,
			Seats:          seats,
		}
	case engine.BlindPosted:
		return BlindPostedData{SeatNumber: e.SeatID, Blind: e.Action.String(), Amount: e.Amount, AllIn: e.AllIn}
	case engine.HoleCardsDealt:
		return HoleCardsData{SeatNumber: e.SeatID, Cards: e.Cards}
	case engine.ActionTaken:
		return PlayerActionData{
			SeatNumber: e.SeatID,
			PlayerID:   e.PlayerID,
			Street:     e.Street,
			Action:     e.Action,
			Amount:     e.Amount,
			To:         e.To,
			Chips:      e.Chips,
			AllIn:      e.AllIn,
			Forced:     e.Forced,
			PotAfter:   e.PotAfter,
			CurrentBet: e.CurrentBet,
		}
	case engine.StreetAdvanced:
		return StreetChangeData{Street: e.Street, NewCards: e.NewCards, Board: e.Board, Runout: e.Runout}
	case engine.UncalledBetReturned:
		return UncalledBetData{SeatNumber: e.SeatID, Amount: e.Amount}
	case engine.SidePotsFormed:
		pots := make([]PotData, len(e.Pots))
		for i, p := range e.Pots {
			pots[i] = PotData{Amount: p.Amount, EligibleSeats: p.EligibleSeats}
		}
		return SidePotsData{Pots: pots}
	case engine.ShowdownRevealed:
		hands := make([]RevealedHandData, len(e.Hands))
		for i, h := range e.Hands {
			hands[i] = RevealedHandData{SeatNumber: h.SeatID, PlayerID: h.PlayerID, Cards: h.Cards, Description: h.Description}
		}
		return ShowdownData{Hands: hands}
	case engine.PotAwarded:
		return PotAwardedData{PotIndex: e.PotIndex, Amount: e.Amount, Rake: e.Rake, Shares: e.Shares}
	case engine.HandCompleted:
		winners := make([]WinnerData, len(e.Winners))
		for i, w := range e.Winners {
			winners[i] = WinnerData{
				SeatNumber:      w.SeatID,
				PlayerID:        w.PlayerID,
				AmountWon:       w.AmountWon,
				HandDescription: w.HandDescription,
				Revealed:        w.HoleCardsRevealed,
			}
		}
		return HandEndData{HandID: e.HandID, Winners: winners, Rake: e.Rake, FinalBoard: e.Board, Showdown: e.Showdown}
	}
	return nil
}

func noticePayload(n table.Notice) any {
	switch v := n.(type) {
	case table.ActionRequired:
		valid := make([]ValidActionInfo, len(v.Legal))
		for i, la := range v.Legal {
			valid[i] = ValidActionInfo{Action: la.Action, MinAmount: la.Min, MaxAmount: la.Max}
		}
		return ActionRequiredData{
			HandID:         v.HandID,
			SeatNumber:     v.SeatID,
			PlayerID:       v.PlayerID,
			ValidActions:   valid,
			ToCall:         v.ToCall,
			Pot:            v.Pot,
			TimeoutSeconds: v.Timeout.Seconds(),
		}
	case table.Countdown:
		return CountdownData{StartsInSeconds: v.StartsIn.Seconds()}
	case table.PlayerSeated:
		return PlayerSeatedData{SeatNumber: v.SeatID, PlayerID: v.PlayerID, Chips: v.Chips, Bot: v.Bot}
	case table.PlayerLeft:
		return PlayerLeftData{SeatNumber: v.SeatID, PlayerID: v.PlayerID, Chips: v.Chips, Reason: string(v.Reason)}
	case table.PlayerTimedOut:
		return PlayerTimeoutData{
			HandID:      v.HandID,
			SeatNumber:  v.SeatID,
			PlayerID:    v.PlayerID,
			Consecutive: v.Consecutive,
			Action:      v.Action,
			Removed:     v.Removed,
		}
	}
	return nil
}
