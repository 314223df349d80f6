package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Phase is the session-level lifecycle stage. The values double as the
// state machine's state ids.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseLobby        Phase = "lobby"
	PhaseWaiting      Phase = "waiting"
	PhasePlaying      Phase = "playing"
	PhaseGameOver     Phase = "game_over"
)

// Screen identifies what the presentation layer should show.
type Screen string

const (
	ScreenRoomSelection Screen = "room-selection"
	ScreenWaitingRoom   Screen = "waiting-room"
	ScreenGame          Screen = "game-screen"
)

type TimeOfDay string

const (
	Day   TimeOfDay = "day"
	Night TimeOfDay = "night"
)

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch TimeOfDay(strings.ToLower(s)) {
	case Day:
		return Day, nil
	case Night:
		return Night, nil
	}
	return "", fmt.Errorf("unknown time of day %q", s)
}

// Room is one entry of the room discovery list.
type Room struct {
	ID         string `json:"id"`
	Occupants  int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
}

// Full reports whether no seat is left.
func (r Room) Full() bool {
	return r.MaxPlayers > 0 && r.Occupants >= r.MaxPlayers
}

// RosterEntry is a waiting-room member. On the wire it is a [id, name]
// tuple; the object form {"id","name"} is accepted too.
type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (e *RosterEntry) UnmarshalJSON(data []byte) error {
	var tuple []string
	if err := json.Unmarshal(data, &tuple); err == nil {
		if len(tuple) != 2 {
			return fmt.Errorf("roster entry: want [id, name], got %d elements", len(tuple))
		}
		e.ID, e.Name = tuple[0], tuple[1]
		return nil
	}
	type plain RosterEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("roster entry: %w", err)
	}
	*e = RosterEntry(p)
	return nil
}

// Player is a participant of a running game. Life never goes below zero.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Life int    `json:"life"`
}

// Card is a game card. Life and Attack are nil for cards without those
// stats. Opaque cards stand in for opponent cards whose face the mirror
// does not track.
type Card struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description"`
	Life        *int   `json:"life,omitempty"`
	Attack      *int   `json:"attack,omitempty"`
	Position    Zone   `json:"position"`
	Opaque      bool   `json:"-"`
}

// Field is the two board rows owned by one player.
type Field struct {
	Attack  []Card `json:"attack"`
	Defense []Card `json:"defense"`
}

// Row returns the cards of zone z.
func (f Field) Row(z Zone) []Card {
	switch z {
	case ZoneAttack:
		return f.Attack
	case ZoneDefense:
		return f.Defense
	}
	return nil
}

func (f Field) clone() Field {
	return Field{Attack: cloneCards(f.Attack), Defense: cloneCards(f.Defense)}
}

// GameState is the mirrored authoritative game.
type GameState struct {
	Players     map[string]Player `json:"players"`
	Order       []string          `json:"order"`
	CurrentTurn string            `json:"current_turn"`
	TimeOfDay   TimeOfDay         `json:"time_of_day"`
	Hand        []Card            `json:"hand"`
	Field       Field             `json:"field"`
	Opponents   map[string]Field  `json:"opponents"`
}

// NewGameState returns the pre-game empty state.
func NewGameState() GameState {
	return GameState{
		Players:   make(map[string]Player),
		Opponents: make(map[string]Field),
		TimeOfDay: Day,
	}
}

// OrderedPlayers returns the players in roster order.
func (g GameState) OrderedPlayers() []Player {
	out := make([]Player, 0, len(g.Players))
	for _, id := range g.Order {
		if p, ok := g.Players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PlayerName returns the display name for id, or "" when unknown.
func (g GameState) PlayerName(id string) string {
	return g.Players[id].Name
}

func (g GameState) clone() GameState {
	c := GameState{
		Players:     make(map[string]Player, len(g.Players)),
		Order:       append([]string(nil), g.Order...),
		CurrentTurn: g.CurrentTurn,
		TimeOfDay:   g.TimeOfDay,
		Hand:        cloneCards(g.Hand),
		Field:       g.Field.clone(),
		Opponents:   make(map[string]Field, len(g.Opponents)),
	}
	for id, p := range g.Players {
		c.Players[id] = p
	}
	for id, f := range g.Opponents {
		c.Opponents[id] = f.clone()
	}
	return c
}

// Mirror is the complete client-side view of the session.
type Mirror struct {
	Phase       Phase         `json:"phase"`
	RoomID      string        `json:"room_id"`
	Roster      []RosterEntry `json:"roster"`
	RosterCount int           `json:"roster_count"`
	IsHost      bool          `json:"is_host"`
	Game        GameState     `json:"game"`
	IsMyTurn    bool          `json:"is_my_turn"`
}

// NewMirror returns the state of a freshly created, unconnected session.
func NewMirror() Mirror {
	return Mirror{Phase: PhaseDisconnected, Game: NewGameState()}
}

// Clone returns a deep copy.
func (m Mirror) Clone() Mirror {
	c := m
	c.Roster = append([]RosterEntry(nil), m.Roster...)
	c.Game = m.Game.clone()
	return c
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c
		if c.Life != nil {
			v := *c.Life
			out[i].Life = &v
		}
		if c.Attack != nil {
			v := *c.Attack
			out[i].Attack = &v
		}
	}
	return out
}
