package room

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/timer"
)

// DefaultRefreshInterval is how often the lobby re-reads the room list.
const DefaultRefreshInterval = 5 * time.Second

// Result is one refresh outcome. On error Rooms holds the stale list.
type Result struct {
	Rooms []game.Room
	Err   error
}

// Refresher periodically lists rooms on a TimerManager and hands each
// result to sink. Start and Stop may be called repeatedly.
type Refresher struct {
	timers   *timer.TimerManager
	lister   Lister
	dir      *Directory
	interval time.Duration
	sink     func(Result)

	mutex   sync.Mutex
	timerID int64
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRefresher(timers *timer.TimerManager, lister Lister, dir *Directory, interval time.Duration, sink func(Result)) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{timers: timers, lister: lister, dir: dir, interval: interval, sink: sink}
}

// Start fetches immediately and then every interval until Stop or until
// ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.timerID != 0 {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	runCtx := r.ctx
	r.timerID = r.timers.AddTimer(0, r.interval, func() { r.refresh(runCtx) })
	logger.Log.Debugf("Room refresh started, every %s", r.interval)
}

func (r *Refresher) Stop() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.timerID == 0 {
		return
	}
	r.timers.RemoveTimer(r.timerID)
	r.cancel()
	r.timerID = 0
	logger.Log.Debugf("Room refresh stopped")
}

// Running reports whether a refresh timer is scheduled.
func (r *Refresher) Running() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.timerID != 0
}

// Refresh runs one query now and returns its outcome.
func (r *Refresher) Refresh(ctx context.Context) Result {
	rooms, err := r.lister.ListRooms(ctx)
	if err != nil {
		logger.Log.Warnf("Failed to refresh room list: %v", err)
		return Result{Rooms: r.dir.List(), Err: err}
	}
	r.dir.Replace(rooms)
	return Result{Rooms: rooms}
}

func (r *Refresher) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res := r.Refresh(ctx)
	if ctx.Err() != nil {
		return
	}
	if r.sink != nil {
		r.sink(res)
	}
}
