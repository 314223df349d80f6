package state

import (
	"errors"
	"testing"

	"github.com/wfunc/twilightsync/game"
)

// MockState is a test double for the State interface.
// It helps us track which methods have been called.
type MockState struct {
	ID             string
	OnEnterCalled  bool
	OnExitCalled   bool
	OnUpdateCalled bool
}

func (m *MockState) OnEnter() {
	m.OnEnterCalled = true
}

func (m *MockState) OnExit() {
	m.OnExitCalled = true
}

func (m *MockState) OnUpdate() {
	m.OnUpdateCalled = true
}

func (m *MockState) GetID() string {
	return m.ID
}

// reset clears the call tracking flags.
func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
	m.OnUpdateCalled = false
}

func TestStateMachine_InitialState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	sm := NewBaseStateMachine(initialState)

	if !initialState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the initial state")
	}

	if sm.GetCurrentState() != initialState {
		t.Error("GetCurrentState should return the initial state")
	}
}

func TestStateMachine_ChangeState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	nextState := &MockState{ID: "next"}

	sm := NewBaseStateMachine(initialState)
	initialState.reset() // Reset after initialization

	err := sm.ChangeState(nextState)
	if err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}

	if !initialState.OnExitCalled {
		t.Error("Expected OnExit to be called on the old state")
	}

	if !nextState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the new state")
	}

	if sm.GetCurrentState() != nextState {
		t.Error("GetCurrentState should return the new state")
	}
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}
	stateC := &MockState{ID: "C"}

	sm := NewBaseStateMachine(stateA)

	// Add a valid transition from A to B
	err := sm.AddTransition(stateA, stateB, func() bool { return true })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// Add a blocked transition from B to C
	err = sm.AddTransition(stateB, stateC, func() bool { return false })
	if err != nil {
		t.Fatalf("AddTransition failed: %v", err)
	}

	// --- Test valid transition ---
	stateA.reset()
	err = sm.ChangeState(stateB)
	if err != nil {
		t.Errorf("Expected transition from A to B to be allowed, but got error: %v", err)
	}
	if sm.GetCurrentState().GetID() != "B" {
		t.Errorf("Expected current state to be B, but got %s", sm.GetCurrentState().GetID())
	}

	// --- Test blocked transition ---
	stateB.reset()
	err = sm.ChangeState(stateC)
	if err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.GetCurrentState().GetID() != "B" {
		t.Errorf("Expected current state to remain B after a blocked transition, but got %s", sm.GetCurrentState().GetID())
	}
	if stateB.OnExitCalled {
		t.Error("OnExit should not be called on the current state if transition is blocked")
	}
	if stateC.OnEnterCalled {
		t.Error("OnEnter should not be called on the new state if transition is blocked")
	}
}

func TestStateMachine_UnregisteredTransition(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}
	stateC := &MockState{ID: "C"}

	sm := NewBaseStateMachine(stateA)
	sm.AddTransition(stateA, stateB, nil)

	if err := sm.ChangeState(stateC); err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed for A->C, got: %v", err)
	}
	if err := sm.ChangeTo("B"); err != nil {
		t.Errorf("Expected A->B by id to be allowed, got: %v", err)
	}
	if err := sm.ChangeTo("Z"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("Expected ErrUnknownState, got: %v", err)
	}

	// B has no outgoing table, anything goes
	if err := sm.ChangeState(stateC); err != nil {
		t.Errorf("Expected B->C to be allowed, got: %v", err)
	}
}

func TestSessionMachine(t *testing.T) {
	var entered, exited []string
	hooks := make(map[game.Phase]Hooks)
	for _, p := range []game.Phase{game.PhaseLobby, game.PhaseWaiting, game.PhasePlaying, game.PhaseGameOver} {
		p := p
		hooks[p] = Hooks{
			Enter: func() { entered = append(entered, string(p)) },
			Exit:  func() { exited = append(exited, string(p)) },
		}
	}
	updates := 0
	hooks[game.PhasePlaying] = Hooks{
		Enter:  hooks[game.PhasePlaying].Enter,
		Exit:   hooks[game.PhasePlaying].Exit,
		Update: func() { updates++ },
	}

	sm := NewSessionMachine(hooks)
	if sm.CurrentID() != string(game.PhaseDisconnected) {
		t.Fatalf("Expected to start disconnected, got %s", sm.CurrentID())
	}

	if err := sm.ChangeTo(string(game.PhasePlaying)); err != ErrTransitionNotAllowed {
		t.Errorf("Disconnected->Playing should be refused, got %v", err)
	}

	path := []game.Phase{game.PhaseLobby, game.PhaseWaiting, game.PhasePlaying, game.PhaseGameOver, game.PhaseLobby}
	for _, p := range path {
		if err := sm.ChangeTo(string(p)); err != nil {
			t.Fatalf("ChangeTo(%s): %v", p, err)
		}
		sm.Update()
	}
	if updates != 1 {
		t.Errorf("Expected one update while playing, got %d", updates)
	}
	if len(entered) != 5 || entered[4] != string(game.PhaseLobby) {
		t.Errorf("Unexpected enter order %v", entered)
	}
	if len(exited) != 4 || exited[0] != string(game.PhaseLobby) {
		t.Errorf("Unexpected exit order %v", exited)
	}

	if err := sm.ChangeTo(string(game.PhaseGameOver)); err != ErrTransitionNotAllowed {
		t.Errorf("Lobby->GameOver should be refused, got %v", err)
	}
	if err := sm.ChangeTo(string(game.PhaseDisconnected)); err != nil {
		t.Errorf("Lobby->Disconnected should be allowed, got %v", err)
	}
}
