package network

import "encoding/json"

// Client -> Server
const (
	EventJoin      = "join"
	EventStartGame = "start_game"
	EventDrawCard  = "draw_card"
	EventEndTurn   = "end_turn"
	EventPlayCard  = "play_card"
	EventAttack    = "attack"
	EventLeaveRoom = "leave_room"
)

// Server -> Client
const (
	EventConnected      = "connected"
	EventPlayerJoined   = "player_joined"  // roster snapshot, sent to the joiner
	EventUpdatePlayers  = "update_players" // roster update, sent to the room
	EventGameStarted    = "game_started"
	EventCardPlayed     = "card_played"
	EventCardDrawn      = "card_drawn"
	EventAttackResult   = "attack_result"
	EventPlayerDefeated = "player_defeated"
	EventPlayerLeft     = "player_left"
	EventGameOver       = "game_over"
	EventTurnChanged    = "turn_changed"
	EventTurnTimeout    = "turn_timeout"
	EventActionError    = "action_error"
	EventError          = "error"
)

// InboundEvents lists every server event the client registers a handler for.
var InboundEvents = []string{
	EventPlayerJoined,
	EventUpdatePlayers,
	EventGameStarted,
	EventCardPlayed,
	EventCardDrawn,
	EventAttackResult,
	EventPlayerDefeated,
	EventPlayerLeft,
	EventGameOver,
	EventTurnChanged,
	EventTurnTimeout,
	EventActionError,
	EventError,
}

// Envelope is one JSON text frame on the channel.
// Seq is a per-room sequence number, 0 when the server does not sequence.
// CorrelationID echoes the cid of the client command that caused the event.
type Envelope struct {
	Event         string          `json:"event"`
	Room          string          `json:"room,omitempty"`
	Seq           uint64          `json:"seq,omitempty"`
	CorrelationID string          `json:"cid,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Data, v)
}

// --- outbound payloads ---

type JoinPayload struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
}

type RoomPayload struct {
	RoomID string `json:"room_id"`
}

type PlayCardPayload struct {
	RoomID    string `json:"room_id"`
	CardIndex int    `json:"card_index"`
	Position  string `json:"position"`
}

type AttackPayload struct {
	RoomID         string `json:"room_id"`
	TargetPlayerID string `json:"target_player_id"`
}

// --- inbound control payloads ---

type ConnectedPayload struct {
	PlayerID string `json:"player_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
