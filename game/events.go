package game

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/twilightsync/network"
)

// Event is one input of the reducer: either a decoded server event or a
// local lifecycle event (Connected, Disconnected, LeftRoom).
type Event interface {
	Name() string
	isEvent()
}

// RosterSnapshot is sent to a player right after joining. RoomID comes
// from the envelope; the store fills in the optimistic room when empty.
type RosterSnapshot struct {
	RoomID  string
	Players []RosterEntry
}

type RosterUpdate struct {
	Players []RosterEntry
	Count   int
}

type GameStarted struct {
	Players     []Player
	CurrentTurn string
	TimeOfDay   TimeOfDay
}

// CardPlayed moves a card onto the actor's field. CardIndex is the hand
// index when the server reports it, -1 otherwise.
type CardPlayed struct {
	ActorID   string
	Card      Card
	Position  Zone
	CardIndex int
}

type CardDrawn struct {
	ActorID string
	Card    Card
}

type AttackResult struct {
	AttackerID    string
	DefenderID    string
	Damage        int
	DefenderLife  int
	DefenderField []Card
}

type PlayerDefeated struct {
	PlayerID   string
	PlayerName string
}

type PlayerLeft struct {
	PlayerID string
}

type GameOver struct {
	WinnerID   string
	WinnerName string
}

type TurnChanged struct {
	CurrentPlayerID string
	TimeOfDay       TimeOfDay
}

type TurnTimeout struct {
	PlayerID string
}

// ActionRejected is the server refusing a client command.
type ActionRejected struct {
	Message string
}

// Local lifecycle events.
type (
	Connected    struct{}
	Disconnected struct{ Reason string }
	LeftRoom     struct{}
)

func (RosterSnapshot) Name() string { return network.EventPlayerJoined }
func (RosterUpdate) Name() string   { return network.EventUpdatePlayers }
func (GameStarted) Name() string    { return network.EventGameStarted }
func (CardPlayed) Name() string     { return network.EventCardPlayed }
func (CardDrawn) Name() string      { return network.EventCardDrawn }
func (AttackResult) Name() string   { return network.EventAttackResult }
func (PlayerDefeated) Name() string { return network.EventPlayerDefeated }
func (PlayerLeft) Name() string     { return network.EventPlayerLeft }
func (GameOver) Name() string       { return network.EventGameOver }
func (TurnChanged) Name() string    { return network.EventTurnChanged }
func (TurnTimeout) Name() string    { return network.EventTurnTimeout }
func (ActionRejected) Name() string { return network.EventActionError }
func (Connected) Name() string      { return "connected" }
func (Disconnected) Name() string   { return "disconnected" }
func (LeftRoom) Name() string       { return "left_room" }

func (RosterSnapshot) isEvent() {}
func (RosterUpdate) isEvent()   {}
func (GameStarted) isEvent()    {}
func (CardPlayed) isEvent()     {}
func (CardDrawn) isEvent()      {}
func (AttackResult) isEvent()   {}
func (PlayerDefeated) isEvent() {}
func (PlayerLeft) isEvent()     {}
func (GameOver) isEvent()       {}
func (TurnChanged) isEvent()    {}
func (TurnTimeout) isEvent()    {}
func (ActionRejected) isEvent() {}
func (Connected) isEvent()      {}
func (Disconnected) isEvent()   {}
func (LeftRoom) isEvent()       {}

// --- wire payloads ---

type rosterWire struct {
	Players []RosterEntry `json:"players"`
	Count   *int          `json:"count"`
}

// playerEntry decodes [id, [name, life]] or {"id","name","life"}.
type playerEntry Player

func (p *playerEntry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		var obj Player
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*p = playerEntry(obj)
		return nil
	}
	if len(tuple) != 2 {
		return fmt.Errorf("player entry: want [id, [name, life]], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &p.ID); err != nil {
		return fmt.Errorf("player entry id: %w", err)
	}

	var stats []json.RawMessage
	if err := json.Unmarshal(tuple[1], &stats); err != nil {
		var obj struct {
			Name string `json:"name"`
			Life int    `json:"life"`
		}
		if err := json.Unmarshal(tuple[1], &obj); err != nil {
			return fmt.Errorf("player entry stats: %w", err)
		}
		p.Name, p.Life = obj.Name, obj.Life
		return nil
	}
	if len(stats) != 2 {
		return fmt.Errorf("player entry: want [name, life], got %d elements", len(stats))
	}
	if err := json.Unmarshal(stats[0], &p.Name); err != nil {
		return fmt.Errorf("player entry name: %w", err)
	}
	if err := json.Unmarshal(stats[1], &p.Life); err != nil {
		return fmt.Errorf("player entry life: %w", err)
	}
	return nil
}

type gameStartedWire struct {
	Players     []playerEntry `json:"players"`
	CurrentTurn string        `json:"current_turn"`
	TimeOfDay   string        `json:"time_of_day"`
}

type cardPlayedWire struct {
	PlayerID  string `json:"player_id"`
	Card      Card   `json:"card"`
	Position  Zone   `json:"position"`
	CardIndex *int   `json:"card_index"`
}

type cardDrawnWire struct {
	PlayerID string `json:"player_id"`
	Card     Card   `json:"card"`
}

type attackResultWire struct {
	AttackerID    string `json:"attacker_id"`
	DefenderID    string `json:"defender_id"`
	Damage        int    `json:"damage"`
	DefenderLife  int    `json:"defender_life"`
	DefenderField []Card `json:"defender_field"`
}

type playerRefWire struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type gameOverWire struct {
	WinnerID   string `json:"winner_id"`
	WinnerName string `json:"winner_name"`
}

type turnChangedWire struct {
	CurrentPlayer string `json:"current_player"`
	TimeOfDay     string `json:"time_of_day"`
}

// Decode turns a server envelope into a typed Event.
func Decode(env network.Envelope) (Event, error) {
	malformed := func(err error) error {
		return &ProtocolError{Event: env.Event, Err: ErrMalformedEvent, Detail: err.Error()}
	}

	switch env.Event {
	case network.EventPlayerJoined:
		var w rosterWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return RosterSnapshot{RoomID: env.Room, Players: w.Players}, nil

	case network.EventUpdatePlayers:
		var w rosterWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		count := len(w.Players)
		if w.Count != nil {
			count = *w.Count
		}
		return RosterUpdate{Players: w.Players, Count: count}, nil

	case network.EventGameStarted:
		var w gameStartedWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		tod, err := ParseTimeOfDay(w.TimeOfDay)
		if err != nil {
			return nil, malformed(err)
		}
		players := make([]Player, len(w.Players))
		for i, p := range w.Players {
			players[i] = Player(p)
		}
		return GameStarted{Players: players, CurrentTurn: w.CurrentTurn, TimeOfDay: tod}, nil

	case network.EventCardPlayed:
		var w cardPlayedWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		if w.Position == ZoneNone {
			return nil, malformed(fmt.Errorf("card played without a zone"))
		}
		idx := -1
		if w.CardIndex != nil {
			idx = *w.CardIndex
		}
		return CardPlayed{ActorID: w.PlayerID, Card: w.Card, Position: w.Position, CardIndex: idx}, nil

	case network.EventCardDrawn:
		var w cardDrawnWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return CardDrawn{ActorID: w.PlayerID, Card: w.Card}, nil

	case network.EventAttackResult:
		var w attackResultWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return AttackResult(w), nil

	case network.EventPlayerDefeated:
		var w playerRefWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return PlayerDefeated{PlayerID: w.PlayerID, PlayerName: w.PlayerName}, nil

	case network.EventPlayerLeft:
		var w playerRefWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return PlayerLeft{PlayerID: w.PlayerID}, nil

	case network.EventGameOver:
		var w gameOverWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return GameOver{WinnerID: w.WinnerID, WinnerName: w.WinnerName}, nil

	case network.EventTurnChanged:
		var w turnChangedWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		tod, err := ParseTimeOfDay(w.TimeOfDay)
		if err != nil {
			return nil, malformed(err)
		}
		return TurnChanged{CurrentPlayerID: w.CurrentPlayer, TimeOfDay: tod}, nil

	case network.EventTurnTimeout:
		var w playerRefWire
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return TurnTimeout{PlayerID: w.PlayerID}, nil

	case network.EventActionError, network.EventError:
		var w network.ErrorPayload
		if err := env.Decode(&w); err != nil {
			return nil, malformed(err)
		}
		return ActionRejected{Message: w.Message}, nil
	}

	return nil, &ProtocolError{Event: env.Event, Err: ErrUnknownEvent}
}
