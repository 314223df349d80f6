package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/network"
	"github.com/wfunc/twilightsync/persistence"
	"github.com/wfunc/twilightsync/services"
	"github.com/wfunc/twilightsync/session"
)

// fakeConn is a scripted network.Connection.
type fakeConn struct {
	inbound   chan *network.Envelope
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	sent []network.Envelope
}

func newFakeConn(playerID string) *fakeConn {
	c := &fakeConn{inbound: make(chan *network.Envelope, 64), closed: make(chan struct{})}
	c.push(network.EventConnected, "", `{"player_id":"`+playerID+`"}`)
	return c
}

func (c *fakeConn) push(event, cid, data string) {
	c.inbound <- &network.Envelope{Event: event, CorrelationID: cid, Data: json.RawMessage(data)}
}

func (c *fakeConn) Send(env network.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) Sent() []network.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]network.Envelope(nil), c.sent...)
}

func (c *fakeConn) last(t *testing.T) network.Envelope {
	t.Helper()
	sent := c.Sent()
	require.NotEmpty(t, sent)
	return sent[len(sent)-1]
}

func (c *fakeConn) Ping() error                         { return nil }
func (c *fakeConn) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (c *fakeConn) SetHeartbeat(interval time.Duration) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) ReadEnvelope() (*network.Envelope, error) {
	select {
	case env, ok := <-c.inbound:
		if !ok {
			return nil, io.EOF
		}
		if env == nil {
			return nil, fmt.Errorf("%w: invalid character 'o'", network.ErrMalformedFrame)
		}
		return env, nil
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

type fakeLister struct{}

func (fakeLister) ListRooms(ctx context.Context) ([]game.Room, error) {
	return []game.Room{{ID: "R1", Occupants: 1, MaxPlayers: 4}}, nil
}

func (fakeLister) CreateRoom(ctx context.Context) (string, error) {
	return "R2", nil
}

// recorder is a presenter safe to read from the test goroutine.
type recorder struct {
	game.NopPresenter
	mu      sync.Mutex
	screens []game.Screen
	notes   []string
	rooms   int
}

func (r *recorder) OnScreenChange(s game.Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens = append(r.screens, s)
}

func (r *recorder) OnNotification(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, msg)
}

func (r *recorder) OnRoomsChange(rooms []game.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms++
}

func (r *recorder) lastScreen() game.Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.screens) == 0 {
		return ""
	}
	return r.screens[len(r.screens)-1]
}

func (r *recorder) hasNote(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n == msg {
			return true
		}
	}
	return false
}

type harness struct {
	client   *Client
	sessions *session.Manager
	conn     *fakeConn
	rec      *recorder
	cancel   context.CancelFunc
	errc     chan error
}

func start(t *testing.T, opts Options, history *services.HistoryService) *harness {
	t.Helper()
	conn := newFakeConn("A")
	ch := network.NewChannel(func(ctx context.Context) (network.Connection, error) { return conn, nil }, time.Second, 0)
	rec := &recorder{}
	sessions := session.NewManager()
	c := New(Deps{Channel: ch, Lister: fakeLister{}, Presenter: rec, History: history, Sessions: sessions}, opts)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{client: c, sessions: sessions, conn: conn, rec: rec, cancel: cancel, errc: make(chan error, 1)}
	go func() { h.errc <- c.Run(ctx) }()
	t.Cleanup(h.stop)

	require.Eventually(t, func() bool { return rec.lastScreen() == game.ScreenRoomSelection }, time.Second, 5*time.Millisecond)
	return h
}

func (h *harness) stop() {
	h.cancel()
	select {
	case <-h.errc:
	case <-time.After(time.Second):
	}
}

func (h *harness) phase(t *testing.T) game.Phase {
	t.Helper()
	m, err := h.client.State(context.Background())
	require.NoError(t, err)
	return m.Phase
}

func (h *harness) waitPhase(t *testing.T, want game.Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return h.phase(t) == want }, time.Second, 5*time.Millisecond, "phase %s", want)
}

// joined drives the client into a running game between A and B.
func (h *harness) joined(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.client.JoinRoom(ctx, "R1", "Alice"))
	join := h.conn.last(t)
	require.Equal(t, network.EventJoin, join.Event)

	h.conn.push(network.EventPlayerJoined, join.CorrelationID, `{"players":[["A","Alice"],["B","Bob"]]}`)
	h.waitPhase(t, game.PhaseWaiting)
	require.Empty(t, h.client.Pending(), "roster snapshot acknowledges the join")

	h.conn.push(network.EventGameStarted, "", `{"players":[["A",["Alice",20]],["B",["Bob",20]]],"current_turn":"A","time_of_day":"day"}`)
	h.waitPhase(t, game.PhasePlaying)
}

func TestClient_FullGame(t *testing.T) {
	db := persistence.NewMemory()
	h := start(t, Options{}, services.NewHistoryService(db))
	ctx := context.Background()

	assert.Equal(t, "A", h.client.PlayerID())
	sess, ok := h.sessions.GetByPlayerID("A")
	require.True(t, ok, "running client registers its session")
	assert.Same(t, h.client.Session(), sess)
	require.Eventually(t, func() bool {
		h.rec.mu.Lock()
		defer h.rec.mu.Unlock()
		return h.rec.rooms > 0
	}, 2*time.Second, 10*time.Millisecond, "lobby refresh publishes rooms")

	err := h.client.JoinRoom(ctx, "R1", "")
	var verr *session.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, h.conn.Sent())

	h.joined(t)

	before := len(h.conn.Sent())
	cmd, err := h.client.Act(ctx, ActionDraw)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Len(t, h.conn.Sent(), before+1)

	h.conn.push(network.EventCardDrawn, cmd.ID, `{"player_id":"A","card":{"id":"c1","name":"Wolf","description":"d"}}`)
	require.Eventually(t, func() bool {
		m, _ := h.client.State(ctx)
		return len(m.Game.Hand) == 1
	}, time.Second, 5*time.Millisecond)

	h.conn.push(network.EventTurnChanged, "", `{"current_player":"B","time_of_day":"night"}`)
	require.Eventually(t, func() bool {
		m, _ := h.client.State(ctx)
		return !m.IsMyTurn && m.Game.TimeOfDay == game.Night
	}, time.Second, 5*time.Millisecond)

	before = len(h.conn.Sent())
	for _, act := range [][]string{{ActionDraw}, {ActionPlay, "0", "ataque"}, {ActionAttack, "B"}} {
		cmd, err := h.client.Act(ctx, act[0], act[1:]...)
		require.NoError(t, err, act[0])
		assert.Nil(t, cmd, act[0])
	}
	assert.Len(t, h.conn.Sent(), before, "nothing is sent out of turn")

	h.conn.push(network.EventGameOver, "", `{"winner_id":"B","winner_name":"Bob"}`)
	h.waitPhase(t, game.PhaseLobby)
	assert.True(t, h.rec.hasNote("Bob won the game!"))
	assert.Equal(t, "", h.client.Session().RoomID())

	require.Eventually(t, func() bool {
		records, _ := h.client.History(ctx, 10)
		return len(records) == 1
	}, time.Second, 5*time.Millisecond)
	stats, err := h.client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Losses)
}

func TestClient_RoomRefreshOnlyInLobby(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()

	running := func() bool {
		var on bool
		require.NoError(t, h.client.Do(ctx, func() { on = h.client.refresher.Running() }))
		return on
	}
	assert.True(t, running(), "lobby refreshes rooms")

	require.NoError(t, h.client.JoinRoom(ctx, "R1", "Alice"))
	assert.True(t, running(), "still in the lobby until the roster arrives")

	h.conn.push(network.EventPlayerJoined, h.conn.last(t).CorrelationID, `{"players":[["A","Alice"]]}`)
	h.waitPhase(t, game.PhaseWaiting)
	assert.False(t, running(), "waiting room stops the refresh")

	_, err := h.client.Act(ctx, ActionLeave)
	require.NoError(t, err)
	assert.True(t, running(), "back in the lobby")
}

func TestClient_CreateRoomOnlyInLobby(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()
	h.joined(t)

	before := len(h.conn.Sent())
	roomID, err := h.client.CreateRoom(ctx, "Alice")
	var verr *session.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "", roomID)
	assert.Len(t, h.conn.Sent(), before, "no join is emitted mid-game")
	assert.Equal(t, "R1", h.client.Session().RoomID())
	m, err := h.client.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "R1", m.RoomID)
	assert.Equal(t, game.PhasePlaying, m.Phase)
}

func TestClient_CreateRoomJoins(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()

	roomID, err := h.client.CreateRoom(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "R2", roomID)
	join := h.conn.last(t)
	assert.Equal(t, network.EventJoin, join.Event)
	assert.Equal(t, "R2", h.client.Session().RoomID())

	h.conn.push(network.EventPlayerJoined, join.CorrelationID, `{"players":[["A","Alice"]]}`)
	h.waitPhase(t, game.PhaseWaiting)
	m, err := h.client.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "R2", m.RoomID)
}

func TestClient_MalformedFrameIsSkipped(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()
	h.joined(t)

	h.conn.inbound <- nil
	h.conn.push(network.EventTurnChanged, "", `{"current_player":"B","time_of_day":"night"}`)
	require.Eventually(t, func() bool {
		m, err := h.client.State(ctx)
		return err == nil && m.Game.CurrentTurn == "B"
	}, time.Second, 5*time.Millisecond, "frame after the bad one is applied")

	assert.Equal(t, game.PhasePlaying, h.phase(t))
	var discarded dto.Metric
	require.NoError(t, h.client.monitor.Metrics().EventsDiscarded.WithLabelValues("", "malformed frame").Write(&discarded))
	assert.Equal(t, float64(1), discarded.GetCounter().GetValue())
	select {
	case err := <-h.errc:
		t.Fatalf("Run returned on a bad frame: %v", err)
	default:
	}
}

func TestClient_RejectedCommand(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()
	h.joined(t)

	_, err := h.client.Act(ctx, ActionPlay, "3", "defense")
	require.NoError(t, err)
	play := h.conn.last(t)
	require.Len(t, h.client.Pending(), 1)

	h.conn.push(network.EventActionError, play.CorrelationID, `{"message":"Invalid card index"}`)
	require.Eventually(t, func() bool { return len(h.client.Pending()) == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.rec.hasNote("Invalid card index") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, game.PhasePlaying, h.phase(t))
}

func TestClient_RejectedJoinClearsRoom(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()

	require.NoError(t, h.client.JoinRoom(ctx, "R1", "Alice"))
	assert.Equal(t, "R1", h.client.Session().RoomID())

	h.conn.push(network.EventError, h.conn.last(t).CorrelationID, `{"message":"Room is full"}`)
	require.Eventually(t, func() bool { return h.client.Session().RoomID() == "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, game.PhaseLobby, h.phase(t))
}

func TestClient_ExpiredCommandNotifies(t *testing.T) {
	h := start(t, Options{AckTimeout: 30 * time.Millisecond, SweepInterval: 5 * time.Millisecond}, nil)
	ctx := context.Background()
	h.joined(t)

	_, err := h.client.Act(ctx, ActionEnd)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.rec.hasNote("Request end_turn timed out") }, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.client.Pending())
}

func TestClient_LeaveRoom(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()
	h.joined(t)

	cmd, err := h.client.Act(ctx, ActionLeave)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, network.EventLeaveRoom, h.conn.last(t).Event)
	assert.Equal(t, game.PhaseLobby, h.phase(t))
}

func TestClient_BadAction(t *testing.T) {
	h := start(t, Options{}, nil)
	ctx := context.Background()

	_, err := h.client.Act(ctx, "dance")
	assert.True(t, errors.Is(err, ErrUnknownAction))
	_, err = h.client.Act(ctx, ActionPlay, "x", "attack")
	assert.True(t, errors.Is(err, ErrBadArguments))
	_, err = h.client.Act(ctx, ActionPlay, "0", "sideways")
	assert.True(t, errors.Is(err, game.ErrUnknownZone))
}

func TestClient_ConnectionLost(t *testing.T) {
	h := start(t, Options{}, nil)
	close(h.conn.inbound)

	select {
	case err := <-h.errc:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection lost")
	case <-time.After(time.Second):
		t.Fatal("Run should return after the connection drops")
	}
	_, err := h.client.State(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, h.sessions.All(), "session is removed when Run returns")
}
