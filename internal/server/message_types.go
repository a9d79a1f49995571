package server

// MessageType names a websocket message. Table envelopes are forwarded
// under their event or notice name (hand_started, action_required, ...).
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth          MessageType = "auth"
	MessageTypeListTables    MessageType = "list_tables"
	MessageTypeQuickSeat     MessageType = "quick_seat"
	MessageTypeCreatePrivate MessageType = "create_private"
	MessageTypeJoinInvite    MessageType = "join_invite"
	MessageTypeAction        MessageType = "action"
	MessageTypeLeave         MessageType = "leave"
	MessageTypeStats         MessageType = "stats"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeSeated       MessageType = "seated"
	MessageTypeLeft         MessageType = "left"
	MessageTypeStatsResult  MessageType = "stats_result"
	MessageTypeCashOut      MessageType = "cash_out"
	MessageTypeError        MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}
