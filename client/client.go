package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/monitor"
	"github.com/wfunc/twilightsync/network"
	"github.com/wfunc/twilightsync/room"
	"github.com/wfunc/twilightsync/services"
	"github.com/wfunc/twilightsync/session"
	"github.com/wfunc/twilightsync/state"
	"github.com/wfunc/twilightsync/timer"
	"github.com/wfunc/twilightsync/turn"
)

var (
	ErrClosed         = errors.New("client is not running")
	ErrAlreadyRunning = errors.New("client is already running")
)

const inboxSize = 256

type Options struct {
	AckTimeout      time.Duration
	SweepInterval   time.Duration
	RefreshInterval time.Duration
}

func (o *Options) withDefaults() {
	if o.AckTimeout <= 0 {
		o.AckTimeout = 10 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 500 * time.Millisecond
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = room.DefaultRefreshInterval
	}
}

// Deps are the collaborators of a Client. Channel and Lister are
// required; the rest have defaults.
type Deps struct {
	Channel   *network.Channel
	Lister    room.Lister
	Presenter game.Presenter
	Monitor   *monitor.Monitor
	History   *services.HistoryService
	Timers    *timer.TimerManager
	Sessions  *session.Manager
}

// Client is the session synchronizer. A single loop goroutine owns the
// store, the phase machine and every presenter call; the exported methods
// hand work to that loop and are safe for concurrent use.
type Client struct {
	channel    *network.Channel
	session    *session.Session
	store      *game.Store
	ledger     *turn.Ledger
	coord      *turn.Coordinator
	controller *session.Controller
	machine    *state.BaseStateMachine
	refresher  *room.Refresher
	timers     *timer.TimerManager
	ownTimers  bool
	presenter  game.Presenter
	monitor    *monitor.Monitor
	history    *services.HistoryService
	sessions   *session.Manager
	opts       Options

	inbox     chan message
	ctx       context.Context
	startedAt time.Time

	runMutex sync.Mutex
	running  bool
	done     chan struct{}
}

func New(deps Deps, opts Options) *Client {
	opts.withDefaults()
	if deps.Presenter == nil {
		deps.Presenter = game.NopPresenter{}
	}
	if deps.Monitor == nil {
		deps.Monitor = monitor.NewMonitor("twilight")
	}
	ownTimers := deps.Timers == nil
	if ownTimers {
		deps.Timers = timer.NewTimerManager()
	}

	c := &Client{
		channel:   deps.Channel,
		session:   session.NewSession(uuid.NewString()),
		store:     game.NewStore(deps.Presenter),
		ledger:    turn.NewLedger(),
		timers:    deps.Timers,
		ownTimers: ownTimers,
		presenter: deps.Presenter,
		monitor:   deps.Monitor,
		history:   deps.History,
		sessions:  deps.Sessions,
		opts:      opts,
		inbox:     make(chan message, inboxSize),
		ctx:       context.Background(),
		done:      make(chan struct{}),
	}
	c.coord = turn.NewCoordinator(deps.Channel, c, c.ledger)
	dir := room.NewDirectory()
	c.controller = session.NewController(c.session, deps.Lister, dir, c.coord)
	c.refresher = room.NewRefresher(c.timers, deps.Lister, dir, opts.RefreshInterval, c.postRooms)
	c.machine = state.NewSessionMachine(c.phaseHooks())

	for _, event := range network.InboundEvents {
		c.channel.On(event, c.handleEnvelope)
	}
	c.channel.OnUnknown(func(env network.Envelope) {
		logger.Log.Debugf("Ignoring unknown event %q", env.Event)
		c.monitor.IncEventsDiscarded(env.Event, "unknown event")
	})
	c.channel.OnMalformed(func(err error) {
		c.monitor.IncEventsDiscarded("", "malformed frame")
	})
	return c
}

// --- turn.View, read on the loop ---

func (c *Client) PlayerID() string {
	return c.session.PlayerID()
}

func (c *Client) RoomID() string {
	if id := c.store.RoomID(); id != "" {
		return id
	}
	return c.session.RoomID()
}

func (c *Client) CurrentTurn() string {
	return c.store.CurrentTurn()
}

func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) phaseHooks() map[game.Phase]state.Hooks {
	return map[game.Phase]state.Hooks{
		game.PhaseDisconnected: {
			Enter: func() { c.ledger.Clear(); c.monitor.SetPendingCommands(0) },
		},
		game.PhaseLobby: {
			Enter: func() {
				c.session.SetRoom("")
				c.refresher.Start(c.ctx)
			},
			Exit:   c.refresher.Stop,
			Update: c.sweep,
		},
		game.PhaseWaiting: {Update: c.sweep},
		game.PhasePlaying: {
			Enter:  func() { c.startedAt = time.Now() },
			Update: c.sweep,
		},
		game.PhaseGameOver: {Update: c.sweep},
	}
}

// Run connects, then processes events until ctx is done or the connection
// drops. It returns nil on cancellation.
func (c *Client) Run(ctx context.Context) error {
	c.runMutex.Lock()
	if c.running {
		c.runMutex.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.runMutex.Unlock()
	defer close(c.done)
	if c.ownTimers {
		defer c.timers.Stop()
	}

	c.ctx = ctx
	playerID, err := c.channel.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.session.SetPlayerID(playerID)
	if c.sessions != nil {
		c.sessions.Add(c.session)
		defer c.sessions.Remove(c.session.ID)
	}
	c.handleLocal(game.Connected{})

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		err := c.channel.Run(readCtx, func(env network.Envelope) {
			select {
			case c.inbox <- inboundMsg{env: env}:
			case <-readCtx.Done():
			}
		})
		select {
		case c.inbox <- readErrMsg{err: err}:
		case <-readCtx.Done():
		}
	}()

	sweep := time.NewTicker(c.opts.SweepInterval)
	defer sweep.Stop()
	defer c.refresher.Stop()

	for {
		select {
		case <-ctx.Done():
			c.handleLocal(game.Disconnected{Reason: "shutdown"})
			c.channel.Close()
			return nil
		case <-sweep.C:
			c.machine.Update()
		case msg := <-c.inbox:
			if err := c.handle(msg); err != nil {
				return err
			}
		}
	}
}

func (c *Client) handle(msg message) error {
	switch m := msg.(type) {
	case inboundMsg:
		c.channel.Dispatch(m.env)
	case roomsMsg:
		c.applyRooms(m.res)
	case doMsg:
		m.fn()
		close(m.done)
	case readErrMsg:
		if m.err == nil || errors.Is(m.err, context.Canceled) {
			return nil
		}
		logger.Log.Errorf("Connection to server lost: %v", m.err)
		c.handleLocal(game.Disconnected{Reason: m.err.Error()})
		c.presenter.OnNotification("Connection to server lost")
		return fmt.Errorf("connection lost: %w", m.err)
	}
	return nil
}

// Do runs fn on the loop goroutine and waits for it.
func (c *Client) Do(ctx context.Context, fn func()) error {
	msg := doMsg{fn: fn, done: make(chan struct{})}
	select {
	case c.inbox <- msg:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-msg.done:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleEnvelope is the channel handler for every inbound event.
func (c *Client) handleEnvelope(env network.Envelope) {
	c.monitor.IncEventsReceived(env.Event)

	if env.CorrelationID != "" {
		var cmd *turn.Command
		var ok bool
		if env.Event == network.EventActionError || env.Event == network.EventError {
			var p network.ErrorPayload
			_ = env.Decode(&p)
			cmd, ok = c.ledger.Reject(env.CorrelationID, p.Message)
		} else {
			cmd, ok = c.ledger.Resolve(env.CorrelationID)
		}
		if ok {
			c.settled(cmd)
		}
	}

	effects, err := c.store.Apply(c.session.PlayerID(), c.session.RoomID(), env)
	if err != nil {
		c.discard(env.Event, err)
		return
	}
	c.applyEffects(effects)
}

func (c *Client) handleLocal(ev game.Event) {
	effects, err := c.store.Handle(c.session.PlayerID(), ev)
	if err != nil {
		logger.Log.Debugf("Local event %s ignored: %v", ev.Name(), err)
		return
	}
	c.applyEffects(effects)
}

func (c *Client) discard(event string, err error) {
	reason := "protocol"
	switch {
	case errors.Is(err, game.ErrStaleEvent):
		reason = "stale"
	case errors.Is(err, game.ErrUnexpectedEvent):
		reason = "out of phase"
	case errors.Is(err, game.ErrUnknownPlayer):
		reason = "unknown player"
	case errors.Is(err, game.ErrDuplicateStart):
		reason = "duplicate start"
	case errors.Is(err, game.ErrMalformedEvent):
		reason = "malformed"
	}
	c.monitor.IncEventsDiscarded(event, reason)

	// game_over after our own defeat lands in the lobby
	if errors.Is(err, game.ErrUnexpectedEvent) && c.store.Phase() == game.PhaseLobby {
		logger.Log.Debugf("Discarded %s: %v", event, err)
		return
	}
	logger.Log.Warnf("Discarded %s: %v", event, err)
}

func (c *Client) applyEffects(effects []game.Effect) {
	for _, e := range effects {
		switch e := e.(type) {
		case game.PhaseChanged:
			if err := c.machine.ChangeTo(string(e.To)); err != nil {
				logger.Log.Errorf("Phase %s -> %s: %v", e.From, e.To, err)
			}
		case game.GameFinished:
			c.recordHistory(e)
		}
	}
}

func (c *Client) recordHistory(f game.GameFinished) {
	if c.history == nil {
		return
	}
	playerID, name, started := c.session.PlayerID(), c.session.PlayerName(), c.startedAt
	ctx := c.ctx
	go func() {
		if _, err := c.history.Record(ctx, f, playerID, name, started); err != nil {
			logger.Log.Errorf("Failed to record game of room %s: %v", f.RoomID, err)
		}
	}()
}

// sweep expires commands the server never answered.
func (c *Client) sweep() {
	for _, cmd := range c.ledger.Expire(c.opts.AckTimeout) {
		logger.Log.Warnf("Command %s (%s) got no answer within %s", cmd.Event, cmd.ID, c.opts.AckTimeout)
		c.settled(cmd)
		c.presenter.OnNotification(fmt.Sprintf("Request %s timed out", cmd.Event))
	}
}

func (c *Client) settled(cmd *turn.Command) {
	c.monitor.ObserveCommand(cmd.Status.String(), cmd.Latency())
	c.monitor.SetPendingCommands(c.ledger.Len())
	if c.controller.Reconcile(cmd) {
		c.presenter.OnNotification("Could not join room")
	}
}

func (c *Client) postRooms(res room.Result) {
	select {
	case c.inbox <- roomsMsg{res: res}:
	case <-c.done:
	}
}

func (c *Client) applyRooms(res room.Result) {
	if res.Err != nil {
		c.monitor.IncRoomListFailures()
		return
	}
	c.monitor.SetRoomsAvailable(len(c.controller.Directory().Available()))
	c.presenter.OnRoomsChange(res.Rooms)
}
