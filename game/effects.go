package game

// Effect is an observable consequence of a reduction. Presentation effects
// go to the Presenter; PhaseChanged and GameFinished are consumed by the
// client loop.
type Effect interface {
	isEffect()
}

type ScreenChanged struct {
	Screen Screen
}

type PlayersChanged struct {
	Players []Player
}

type HandChanged struct {
	Cards []Card
}

type FieldChanged struct {
	Owner string
	Zone  Zone
	Cards []Card
}

type Notified struct {
	Message string
}

type TurnUpdated struct {
	IsMyTurn   bool
	TimeOfDay  TimeOfDay
	PlayerName string
}

// PhaseChanged is emitted once per step, so a game-over yields
// Playing->GameOver followed by GameOver->Lobby.
type PhaseChanged struct {
	From Phase
	To   Phase
}

// GameFinished is emitted before teardown with the final roster.
type GameFinished struct {
	RoomID     string
	WinnerID   string
	WinnerName string
	Won        bool
	Eliminated bool
	Players    []Player
}

func (ScreenChanged) isEffect()  {}
func (PlayersChanged) isEffect() {}
func (HandChanged) isEffect()    {}
func (FieldChanged) isEffect()   {}
func (Notified) isEffect()       {}
func (TurnUpdated) isEffect()    {}
func (PhaseChanged) isEffect()   {}
func (GameFinished) isEffect()   {}

// Phases returns the phase steps contained in effects, in order.
func Phases(effects []Effect) []PhaseChanged {
	var out []PhaseChanged
	for _, e := range effects {
		if pc, ok := e.(PhaseChanged); ok {
			out = append(out, pc)
		}
	}
	return out
}
