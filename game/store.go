package game

import (
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/network"
)

// Store owns the single mirror of a session. It is not safe for
// concurrent use; the client loop is its only caller.
type Store struct {
	mirror    Mirror
	presenter Presenter
	seq       sequencer
}

// NewStore returns a store in the Disconnected phase. A nil presenter is
// replaced by NopPresenter.
func NewStore(p Presenter) *Store {
	if p == nil {
		p = NopPresenter{}
	}
	return &Store{mirror: NewMirror(), presenter: p}
}

// Mirror returns a deep copy of the current mirror.
func (s *Store) Mirror() Mirror {
	return s.mirror.Clone()
}

func (s *Store) Phase() Phase {
	return s.mirror.Phase
}

func (s *Store) RoomID() string {
	return s.mirror.RoomID
}

func (s *Store) CurrentTurn() string {
	return s.mirror.Game.CurrentTurn
}

// HandCard returns the card at index i of the hand.
func (s *Store) HandCard(i int) (Card, bool) {
	if i < 0 || i >= len(s.mirror.Game.Hand) {
		return Card{}, false
	}
	return s.mirror.Game.Hand[i], true
}

// Apply decodes env, checks its sequence number and reduces it. room is
// the session's current room and stands in when the envelope names none.
func (s *Store) Apply(self, room string, env network.Envelope) ([]Effect, error) {
	ev, err := Decode(env)
	if err != nil {
		return nil, err
	}

	key := env.Room
	if key == "" {
		key = room
	}
	gap, err := s.seq.check(key, env.Seq)
	if err != nil {
		return nil, &ProtocolError{Event: env.Event, Err: err, Detail: s.seq.String()}
	}
	if gap > 0 {
		logger.Log.Warnf("Room %s: %d event(s) missing before seq %d (%s)", key, gap, env.Seq, env.Event)
	}

	if snap, ok := ev.(RosterSnapshot); ok && snap.RoomID == "" {
		snap.RoomID = room
		ev = snap
	}
	effects, err := s.Handle(self, ev)
	if err != nil {
		// a rejected event does not consume its sequence number
		return nil, err
	}
	if s.mirror.Phase != PhaseLobby && s.mirror.Phase != PhaseDisconnected {
		s.seq.commit(key, env.Seq)
	}
	return effects, nil
}

// Handle reduces ev, commits the result and publishes presentation
// effects. All effects are returned to the caller.
func (s *Store) Handle(self string, ev Event) ([]Effect, error) {
	next, effects, err := Reduce(s.mirror, self, ev)
	if err != nil {
		return nil, err
	}
	s.mirror = next
	if next.Phase == PhaseLobby || next.Phase == PhaseDisconnected {
		s.seq.reset()
	}
	Dispatch(s.presenter, effects)
	return effects, nil
}
