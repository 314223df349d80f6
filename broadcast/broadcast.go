// broadcast/broadcast.go
package broadcast

import (
	"sync"

	"github.com/wfunc/twilightsync/game"
)

// Fanout 将展示回调广播给所有注册的展示层
type Fanout struct {
	presenters map[string]game.Presenter
	order      []string
	mutex      sync.RWMutex
}

func NewFanout() *Fanout {
	return &Fanout{presenters: make(map[string]game.Presenter)}
}

// Add registers p under name, replacing any presenter with that name.
func (f *Fanout) Add(name string, p game.Presenter) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if _, exists := f.presenters[name]; !exists {
		f.order = append(f.order, name)
	}
	f.presenters[name] = p
}

func (f *Fanout) Remove(name string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if _, exists := f.presenters[name]; !exists {
		return
	}
	delete(f.presenters, name)
	for i, n := range f.order {
		if n == name {
			f.order = append(f.order[:i:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *Fanout) Len() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.order)
}

// each calls fn for every presenter in registration order, on a snapshot.
func (f *Fanout) each(fn func(game.Presenter)) {
	f.mutex.RLock()
	targets := make([]game.Presenter, 0, len(f.order))
	for _, n := range f.order {
		targets = append(targets, f.presenters[n])
	}
	f.mutex.RUnlock()

	for _, p := range targets {
		fn(p)
	}
}

func (f *Fanout) OnScreenChange(screen game.Screen) {
	f.each(func(p game.Presenter) { p.OnScreenChange(screen) })
}

func (f *Fanout) OnRoomsChange(rooms []game.Room) {
	f.each(func(p game.Presenter) { p.OnRoomsChange(rooms) })
}

func (f *Fanout) OnPlayersListChange(players []game.Player) {
	f.each(func(p game.Presenter) { p.OnPlayersListChange(players) })
}

func (f *Fanout) OnHandChange(cards []game.Card) {
	f.each(func(p game.Presenter) { p.OnHandChange(cards) })
}

func (f *Fanout) OnFieldChange(owner string, zone game.Zone, cards []game.Card) {
	f.each(func(p game.Presenter) { p.OnFieldChange(owner, zone, cards) })
}

func (f *Fanout) OnNotification(message string) {
	f.each(func(p game.Presenter) { p.OnNotification(message) })
}

func (f *Fanout) OnTurnChange(isMyTurn bool, tod game.TimeOfDay, currentPlayerName string) {
	f.each(func(p game.Presenter) { p.OnTurnChange(isMyTurn, tod, currentPlayerName) })
}
