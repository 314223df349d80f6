package game

import "fmt"

// Reduce applies ev to m on behalf of player self and returns the next
// mirror together with the effects to publish. m is never modified. When
// an error is returned the event is discarded and m is returned as is.
func Reduce(m Mirror, self string, ev Event) (Mirror, []Effect, error) {
	r := &reduction{next: m.Clone(), self: self}

	var err error
	switch e := ev.(type) {
	case Connected:
		err = r.connected()
	case Disconnected:
		r.teardown(PhaseDisconnected)
	case LeftRoom:
		err = r.leftRoom()
	case RosterSnapshot:
		err = r.rosterSnapshot(e)
	case RosterUpdate:
		err = r.rosterUpdate(e)
	case GameStarted:
		err = r.gameStarted(e)
	case CardPlayed:
		err = r.cardPlayed(e)
	case CardDrawn:
		err = r.cardDrawn(e)
	case AttackResult:
		err = r.attackResult(e)
	case PlayerDefeated:
		err = r.removePlayer(e.Name(), e.PlayerID, e.PlayerName, "%s was defeated!")
	case PlayerLeft:
		err = r.playerLeft(e)
	case GameOver:
		err = r.gameOver(e)
	case TurnChanged:
		err = r.turnChanged(e)
	case TurnTimeout:
		err = r.turnTimeout(e)
	case ActionRejected:
		r.actionRejected(e)
	default:
		name := "<nil>"
		if ev != nil {
			name = ev.Name()
		}
		err = &ProtocolError{Event: name, Err: ErrUnknownEvent}
	}
	if err != nil {
		return m, nil, err
	}
	return r.next, r.effects, nil
}

type reduction struct {
	next    Mirror
	self    string
	effects []Effect
}

func (r *reduction) emit(e ...Effect) {
	r.effects = append(r.effects, e...)
}

func (r *reduction) setPhase(to Phase) {
	if r.next.Phase == to {
		return
	}
	r.emit(PhaseChanged{From: r.next.Phase, To: to})
	r.next.Phase = to
}

// require fails unless the mirror is in one of the given phases.
func (r *reduction) require(event string, phases ...Phase) error {
	for _, p := range phases {
		if r.next.Phase == p {
			return nil
		}
	}
	return protocolErr(event, ErrUnexpectedEvent, "phase %s", r.next.Phase)
}

func (r *reduction) connected() error {
	if err := r.require("connected", PhaseDisconnected); err != nil {
		return err
	}
	r.setPhase(PhaseLobby)
	r.emit(ScreenChanged{Screen: ScreenRoomSelection})
	return nil
}

func (r *reduction) leftRoom() error {
	if err := r.require("left_room", PhaseWaiting, PhasePlaying); err != nil {
		return err
	}
	r.teardown(PhaseLobby)
	return nil
}

// teardown empties the mirror and walks the phase machine to target.
func (r *reduction) teardown(target Phase) {
	if r.next.Phase == PhasePlaying && target == PhaseLobby {
		r.setPhase(PhaseGameOver)
	}
	r.next.RoomID = ""
	r.next.Roster = nil
	r.next.RosterCount = 0
	r.next.IsHost = false
	r.next.IsMyTurn = false
	r.next.Game = NewGameState()
	r.setPhase(target)
	if target == PhaseLobby {
		r.emit(ScreenChanged{Screen: ScreenRoomSelection})
	}
}

func (r *reduction) setRoster(players []RosterEntry, count int) {
	r.next.Roster = append([]RosterEntry(nil), players...)
	r.next.RosterCount = count
	r.next.IsHost = len(players) > 0 && players[0].ID == r.self
	r.emit(PlayersChanged{Players: rosterPlayers(players)})
}

func rosterPlayers(entries []RosterEntry) []Player {
	out := make([]Player, len(entries))
	for i, e := range entries {
		out[i] = Player{ID: e.ID, Name: e.Name}
	}
	return out
}

func (r *reduction) rosterSnapshot(e RosterSnapshot) error {
	if err := r.require(e.Name(), PhaseLobby, PhaseWaiting); err != nil {
		return err
	}
	if e.RoomID != "" {
		r.next.RoomID = e.RoomID
	}
	r.setRoster(e.Players, len(e.Players))
	if r.next.Phase == PhaseLobby {
		r.setPhase(PhaseWaiting)
		r.emit(ScreenChanged{Screen: ScreenWaitingRoom})
	}
	return nil
}

func (r *reduction) rosterUpdate(e RosterUpdate) error {
	if err := r.require(e.Name(), PhaseLobby, PhaseWaiting); err != nil {
		return err
	}
	count := e.Count
	if count < len(e.Players) {
		count = len(e.Players)
	}
	r.setRoster(e.Players, count)
	return nil
}

func (r *reduction) gameStarted(e GameStarted) error {
	if r.next.Phase == PhasePlaying {
		return protocolErr(e.Name(), ErrDuplicateStart, "room %s", r.next.RoomID)
	}
	if err := r.require(e.Name(), PhaseWaiting); err != nil {
		return err
	}
	if len(e.Players) == 0 {
		return protocolErr(e.Name(), ErrMalformedEvent, "no players")
	}

	g := NewGameState()
	for _, p := range e.Players {
		if p.ID == "" {
			return protocolErr(e.Name(), ErrMalformedEvent, "player without id")
		}
		if p.Life < 0 {
			p.Life = 0
		}
		if _, dup := g.Players[p.ID]; !dup {
			g.Order = append(g.Order, p.ID)
		}
		g.Players[p.ID] = p
		if p.ID != r.self {
			g.Opponents[p.ID] = Field{}
		}
	}
	if _, ok := g.Players[e.CurrentTurn]; !ok {
		return protocolErr(e.Name(), ErrUnknownPlayer, "current turn %q", e.CurrentTurn)
	}
	g.CurrentTurn = e.CurrentTurn
	g.TimeOfDay = e.TimeOfDay

	r.next.Game = g
	r.next.IsMyTurn = e.CurrentTurn == r.self
	r.setPhase(PhasePlaying)
	r.emit(
		ScreenChanged{Screen: ScreenGame},
		PlayersChanged{Players: g.OrderedPlayers()},
		HandChanged{Cards: nil},
		TurnUpdated{IsMyTurn: r.next.IsMyTurn, TimeOfDay: g.TimeOfDay, PlayerName: g.PlayerName(g.CurrentTurn)},
	)
	return nil
}

func (r *reduction) requirePlayer(event, id string) error {
	if _, ok := r.next.Game.Players[id]; !ok {
		return protocolErr(event, ErrUnknownPlayer, "player %q", id)
	}
	return nil
}

func (r *reduction) cardPlayed(e CardPlayed) error {
	if err := r.require(e.Name(), PhasePlaying); err != nil {
		return err
	}
	if err := r.requirePlayer(e.Name(), e.ActorID); err != nil {
		return err
	}

	g := &r.next.Game
	if e.ActorID == r.self {
		card := e.Card
		idx := -1
		if e.CardIndex >= 0 && e.CardIndex < len(g.Hand) && g.Hand[e.CardIndex].ID == card.ID {
			idx = e.CardIndex
		} else {
			for i, c := range g.Hand {
				if c.ID == card.ID {
					idx = i
					break
				}
			}
		}
		if idx >= 0 {
			if card.Name == "" {
				card = g.Hand[idx]
			}
			g.Hand = append(g.Hand[:idx:idx], g.Hand[idx+1:]...)
		}
		card.Position = e.Position
		card.Opaque = false
		g.Field = appendToRow(g.Field, card)
		r.emit(
			HandChanged{Cards: cloneCards(g.Hand)},
			FieldChanged{Owner: r.self, Zone: e.Position, Cards: cloneCards(g.Field.Row(e.Position))},
		)
		return nil
	}

	field := appendToRow(g.Opponents[e.ActorID], Card{Position: e.Position, Opaque: true})
	g.Opponents[e.ActorID] = field
	r.emit(FieldChanged{Owner: e.ActorID, Zone: e.Position, Cards: cloneCards(field.Row(e.Position))})
	return nil
}

func appendToRow(f Field, c Card) Field {
	switch c.Position {
	case ZoneAttack:
		f.Attack = append(f.Attack, c)
	case ZoneDefense:
		f.Defense = append(f.Defense, c)
	}
	return f
}

func (r *reduction) cardDrawn(e CardDrawn) error {
	if err := r.require(e.Name(), PhasePlaying); err != nil {
		return err
	}
	if e.ActorID != r.self {
		return nil
	}
	card := e.Card
	card.Position = ZoneNone
	r.next.Game.Hand = append(r.next.Game.Hand, card)
	r.emit(HandChanged{Cards: cloneCards(r.next.Game.Hand)})
	return nil
}

func (r *reduction) attackResult(e AttackResult) error {
	if err := r.require(e.Name(), PhasePlaying); err != nil {
		return err
	}
	if err := r.requirePlayer(e.Name(), e.DefenderID); err != nil {
		return err
	}

	for i, c := range e.DefenderField {
		if c.Position == ZoneNone {
			return protocolErr(e.Name(), ErrMalformedEvent, "defender card %d (%s) has no position", i, c.ID)
		}
	}

	if e.DefenderID == r.self {
		g := &r.next.Game
		me := g.Players[r.self]
		me.Life = e.DefenderLife
		if me.Life < 0 {
			me.Life = 0
		}
		g.Players[r.self] = me

		var field Field
		for _, c := range e.DefenderField {
			field = appendToRow(field, c)
		}
		g.Field = field
		r.emit(
			PlayersChanged{Players: g.OrderedPlayers()},
			FieldChanged{Owner: r.self, Zone: ZoneAttack, Cards: cloneCards(field.Attack)},
			FieldChanged{Owner: r.self, Zone: ZoneDefense, Cards: cloneCards(field.Defense)},
		)
	}
	r.emit(Notified{Message: fmt.Sprintf("Attack! Damage: %d", e.Damage)})
	return nil
}

func (r *reduction) playerLeft(e PlayerLeft) error {
	// The waiting room learns about departures through update_players.
	if r.next.Phase == PhaseWaiting {
		return nil
	}
	return r.removePlayer(e.Name(), e.PlayerID, "", "%s left the game")
}

func (r *reduction) removePlayer(event, id, name, format string) error {
	if err := r.require(event, PhasePlaying); err != nil {
		return err
	}
	if err := r.requirePlayer(event, id); err != nil {
		return err
	}

	g := &r.next.Game
	if name == "" {
		name = g.PlayerName(id)
	}
	final := g.OrderedPlayers()

	delete(g.Players, id)
	delete(g.Opponents, id)
	for i, pid := range g.Order {
		if pid == id {
			g.Order = append(g.Order[:i:i], g.Order[i+1:]...)
			break
		}
	}
	// No turn until the server's turn_changed names the next player.
	if g.CurrentTurn == id {
		g.CurrentTurn = ""
		r.next.IsMyTurn = false
	}
	r.emit(Notified{Message: fmt.Sprintf(format, name)})

	if id == r.self {
		r.emit(GameFinished{RoomID: r.next.RoomID, Eliminated: true, Players: final})
		r.teardown(PhaseLobby)
		return nil
	}
	r.emit(PlayersChanged{Players: g.OrderedPlayers()})
	return nil
}

func (r *reduction) gameOver(e GameOver) error {
	if err := r.require(e.Name(), PhasePlaying); err != nil {
		return err
	}
	g := r.next.Game
	winner := e.WinnerName
	if winner == "" {
		winner = g.PlayerName(e.WinnerID)
	}
	won := e.WinnerID != "" && e.WinnerID == r.self

	msg := fmt.Sprintf("%s won the game!", winner)
	if won {
		msg = "Congratulations! You won the game!"
	} else if winner == "" {
		msg = "Game over!"
	}
	r.emit(
		Notified{Message: msg},
		GameFinished{RoomID: r.next.RoomID, WinnerID: e.WinnerID, WinnerName: winner, Won: won, Players: g.OrderedPlayers()},
	)
	r.teardown(PhaseLobby)
	return nil
}

func (r *reduction) turnChanged(e TurnChanged) error {
	if err := r.require(e.Name(), PhasePlaying); err != nil {
		return err
	}
	if err := r.requirePlayer(e.Name(), e.CurrentPlayerID); err != nil {
		return err
	}
	g := &r.next.Game
	g.CurrentTurn = e.CurrentPlayerID
	g.TimeOfDay = e.TimeOfDay
	r.next.IsMyTurn = e.CurrentPlayerID == r.self
	r.emit(TurnUpdated{IsMyTurn: r.next.IsMyTurn, TimeOfDay: g.TimeOfDay, PlayerName: g.PlayerName(g.CurrentTurn)})
	return nil
}

func (r *reduction) turnTimeout(e TurnTimeout) error {
	if err := r.require(e.Name(), PhasePlaying); err != nil {
		return err
	}
	if e.PlayerID == r.self {
		r.emit(Notified{Message: "Time is up! Passing the turn..."})
	}
	return nil
}

func (r *reduction) actionRejected(e ActionRejected) {
	msg := e.Message
	if msg == "" {
		msg = "Action rejected by server"
	}
	r.emit(Notified{Message: msg})
}
