// room/room.go
package room

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/twilightsync/game"
)

// Directory 保存最近一次拉取的房间列表
type Directory struct {
	rooms     map[string]game.Room
	order     []string
	updatedAt time.Time
	mutex     sync.RWMutex
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]game.Room)}
}

// Replace swaps in a freshly fetched list, keeping the server's order.
func (d *Directory) Replace(rooms []game.Room) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.rooms = make(map[string]game.Room, len(rooms))
	d.order = d.order[:0]
	for _, r := range rooms {
		if _, dup := d.rooms[r.ID]; !dup {
			d.order = append(d.order, r.ID)
		}
		d.rooms[r.ID] = r
	}
	d.updatedAt = time.Now()
}

// List 返回副本
func (d *Directory) List() []game.Room {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	out := make([]game.Room, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.rooms[id])
	}
	return out
}

func (d *Directory) Get(id string) (game.Room, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	r, ok := d.rooms[id]
	return r, ok
}

// Available returns the rooms with a free seat, emptiest first.
func (d *Directory) Available() []game.Room {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var out []game.Room
	for _, id := range d.order {
		if r := d.rooms[id]; !r.Full() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Occupants < out[j].Occupants
	})
	return out
}

// UpdatedAt is the time of the last successful Replace.
func (d *Directory) UpdatedAt() time.Time {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.updatedAt
}
