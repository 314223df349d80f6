package state

import (
	"errors"
	"sync"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// ErrUnknownState is returned by ChangeTo for an unregistered id.
var ErrUnknownState = errors.New("unknown state")

// 基础状态机实现
// Once a state has outgoing transitions registered, only those are allowed.
type BaseStateMachine struct {
	currentState State
	states       map[string]State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		states:       map[string]State{initialState.GetID(): initialState},
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	return sm.change(newState)
}

func (sm *BaseStateMachine) change(newState State) error {
	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	// 检查是否有转换条件
	if conditions, exists := sm.transitions[currentID]; exists {
		condition, allowed := conditions[newID]
		if !allowed {
			return ErrTransitionNotAllowed
		}
		if condition != nil && !condition() {
			return ErrTransitionNotAllowed
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

// ChangeTo switches to the registered state with the given id.
func (sm *BaseStateMachine) ChangeTo(id string) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	next, ok := sm.states[id]
	if !ok {
		return ErrUnknownState
	}
	return sm.change(next)
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// CurrentID 返回当前状态ID
func (sm *BaseStateMachine) CurrentID() string {
	return sm.GetCurrentState().GetID()
}

// Update runs OnUpdate of the current state.
func (sm *BaseStateMachine) Update() {
	if current := sm.GetCurrentState(); current != nil {
		current.OnUpdate()
	}
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	sm.states[fromID] = from
	sm.states[toID] = to
	return nil
}

// 状态基础结构
type StateBase struct {
	ID string
}

func (s *StateBase) GetID() string {
	return s.ID
}

func (s *StateBase) OnEnter() {
	// 默认实现
}

func (s *StateBase) OnExit() {
	// 默认实现
}

func (s *StateBase) OnUpdate() {
	// 默认实现
}
