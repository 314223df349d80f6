package turn

import (
	"fmt"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/network"
)

// Emitter sends one event to the server.
type Emitter interface {
	Emit(event, cid string, payload interface{}) error
}

// View is what the coordinator needs to know about the session.
type View interface {
	PlayerID() string
	RoomID() string
	CurrentTurn() string
}

// Coordinator gates user actions on the mirrored turn and emits them.
// It never touches the mirror; the server's answer does. A gated request
// returns a nil command and a nil error.
type Coordinator struct {
	emitter Emitter
	view    View
	ledger  *Ledger
}

func NewCoordinator(emitter Emitter, view View, ledger *Ledger) *Coordinator {
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Coordinator{emitter: emitter, view: view, ledger: ledger}
}

func (c *Coordinator) Ledger() *Ledger {
	return c.ledger
}

func (c *Coordinator) myTurn() bool {
	self := c.view.PlayerID()
	return self != "" && c.view.CurrentTurn() == self
}

// Issue records a command and emits it with its correlation id.
func (c *Coordinator) Issue(event string, payload interface{}) (*Command, error) {
	cmd := c.ledger.Issue(event, payload)
	if err := c.emitter.Emit(event, cmd.ID, payload); err != nil {
		c.ledger.Drop(cmd.ID)
		return nil, fmt.Errorf("emit %s: %w", event, err)
	}
	return cmd, nil
}

// RequestStartGame always emits; only the host is offered the action.
func (c *Coordinator) RequestStartGame() (*Command, error) {
	return c.Issue(network.EventStartGame, network.RoomPayload{RoomID: c.view.RoomID()})
}

func (c *Coordinator) RequestDrawCard() (*Command, error) {
	if !c.myTurn() {
		return nil, nil
	}
	return c.Issue(network.EventDrawCard, network.RoomPayload{RoomID: c.view.RoomID()})
}

// RequestEndTurn always emits; the server ignores it out of turn.
func (c *Coordinator) RequestEndTurn() (*Command, error) {
	return c.Issue(network.EventEndTurn, network.RoomPayload{RoomID: c.view.RoomID()})
}

// RequestPlayCard plays hand card index into the zone named by label.
func (c *Coordinator) RequestPlayCard(index int, label string) (*Command, error) {
	zone, err := game.ParseZone(label)
	if err != nil {
		return nil, err
	}
	if !c.myTurn() {
		return nil, nil
	}
	return c.Issue(network.EventPlayCard, network.PlayCardPayload{
		RoomID:    c.view.RoomID(),
		CardIndex: index,
		Position:  zone.Wire(),
	})
}

func (c *Coordinator) RequestAttack(target string) (*Command, error) {
	if !c.myTurn() || target == c.view.PlayerID() {
		return nil, nil
	}
	return c.Issue(network.EventAttack, network.AttackPayload{
		RoomID:         c.view.RoomID(),
		TargetPlayerID: target,
	})
}
