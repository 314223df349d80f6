package state

import (
	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
)

// Hooks are the callbacks of one session phase. Any of them may be nil.
type Hooks struct {
	Enter  func()
	Exit   func()
	Update func()
}

// PhaseState 会话阶段状态
type PhaseState struct {
	StateBase
	hooks Hooks
}

func NewPhaseState(phase game.Phase, hooks Hooks) *PhaseState {
	return &PhaseState{StateBase: StateBase{ID: string(phase)}, hooks: hooks}
}

func (s *PhaseState) Phase() game.Phase {
	return game.Phase(s.ID)
}

func (s *PhaseState) OnEnter() {
	logger.Log.Debugf("Session entered %s", s.ID)
	if s.hooks.Enter != nil {
		s.hooks.Enter()
	}
}

func (s *PhaseState) OnExit() {
	if s.hooks.Exit != nil {
		s.hooks.Exit()
	}
}

func (s *PhaseState) OnUpdate() {
	if s.hooks.Update != nil {
		s.hooks.Update()
	}
}

// sessionTransitions 会话阶段转换表
var sessionTransitions = []struct{ from, to game.Phase }{
	{game.PhaseDisconnected, game.PhaseLobby},
	{game.PhaseLobby, game.PhaseWaiting},
	{game.PhaseWaiting, game.PhaseLobby},
	{game.PhaseWaiting, game.PhasePlaying},
	{game.PhasePlaying, game.PhaseGameOver},
	{game.PhaseGameOver, game.PhaseLobby},
	{game.PhaseLobby, game.PhaseDisconnected},
	{game.PhaseWaiting, game.PhaseDisconnected},
	{game.PhasePlaying, game.PhaseDisconnected},
	{game.PhaseGameOver, game.PhaseDisconnected},
}

// NewSessionMachine builds the session phase machine, starting in
// Disconnected. hooks may omit phases.
func NewSessionMachine(hooks map[game.Phase]Hooks) *BaseStateMachine {
	states := make(map[game.Phase]*PhaseState)
	for _, p := range []game.Phase{
		game.PhaseDisconnected,
		game.PhaseLobby,
		game.PhaseWaiting,
		game.PhasePlaying,
		game.PhaseGameOver,
	} {
		states[p] = NewPhaseState(p, hooks[p])
	}

	sm := NewBaseStateMachine(states[game.PhaseDisconnected])
	for _, t := range sessionTransitions {
		sm.AddTransition(states[t.from], states[t.to], nil)
	}
	return sm
}
