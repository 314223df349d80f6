package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/twilightsync/client"
	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/models"
	"github.com/wfunc/twilightsync/monitor"
	"github.com/wfunc/twilightsync/room"
	"github.com/wfunc/twilightsync/session"
	"github.com/wfunc/twilightsync/turn"
)

type stubBackend struct {
	acted  []string
	joined string
	gated  bool
}

func (b *stubBackend) State(ctx context.Context) (game.Mirror, error) {
	return game.Mirror{Phase: game.PhaseWaiting, RoomID: "R1"}, nil
}

func (b *stubBackend) Rooms() []game.Room {
	return []game.Room{{ID: "R1", Occupants: 1, MaxPlayers: 4}}
}

func (b *stubBackend) RefreshRooms(ctx context.Context) ([]game.Room, error) {
	return nil, &room.TransportError{Op: "list rooms", Err: fmt.Errorf("connection refused")}
}

func (b *stubBackend) CreateRoom(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", &session.ValidationError{Field: "name", Message: "Please enter a name"}
	}
	return "R2", nil
}

func (b *stubBackend) JoinRoom(ctx context.Context, roomID, name string) error {
	b.joined = roomID
	return nil
}

func (b *stubBackend) Act(ctx context.Context, action string, args ...string) (*turn.Command, error) {
	if action == "dance" {
		return nil, fmt.Errorf("%w: %q", client.ErrUnknownAction, action)
	}
	b.acted = append(b.acted, action+" "+strings.Join(args, " "))
	if b.gated {
		return nil, nil
	}
	return &turn.Command{ID: "cid-9", Event: action}, nil
}

func (b *stubBackend) Pending() []turn.Command { return nil }

func (b *stubBackend) History(ctx context.Context, limit int) ([]models.GameRecord, error) {
	return make([]models.GameRecord, limit), nil
}

func (b *stubBackend) Stats(ctx context.Context) (*models.PlayerStats, error) {
	return &models.PlayerStats{TotalGames: 2, Wins: 1, Losses: 1}, nil
}

func newTestServer(t *testing.T, backend Backend) *httptest.Server {
	t.Helper()
	s := NewControlServer("", backend, monitor.NewMonitor("test").Handler())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestControlServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, &stubBackend{})

	resp, _ := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestControlServer_State(t *testing.T) {
	srv := newTestServer(t, &stubBackend{})

	resp, body := do(t, http.MethodGet, srv.URL+"/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mirror := body["mirror"].(map[string]interface{})
	assert.Equal(t, "waiting", mirror["phase"])
	assert.Equal(t, "R1", mirror["room_id"])
}

func TestControlServer_Rooms(t *testing.T) {
	srv := newTestServer(t, &stubBackend{})

	resp, err := http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	var rooms []game.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	resp.Body.Close()
	assert.Equal(t, []game.Room{{ID: "R1", Occupants: 1, MaxPlayers: 4}}, rooms)

	resp, body := do(t, http.MethodGet, srv.URL+"/rooms?refresh=1", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "list rooms")
}

func TestControlServer_CreateAndJoin(t *testing.T) {
	backend := &stubBackend{}
	srv := newTestServer(t, backend)

	resp, body := do(t, http.MethodPost, srv.URL+"/rooms", `{"name":"Alice"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "R2", body["room_id"])

	resp, body = do(t, http.MethodPost, srv.URL+"/rooms", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please enter a name", body["error"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/rooms/R7/join", `{"name":"Alice"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "R7", backend.joined)
}

func TestControlServer_Actions(t *testing.T) {
	backend := &stubBackend{}
	srv := newTestServer(t, backend)

	resp, body := do(t, http.MethodPost, srv.URL+"/actions/play", `{"args":["0","attack"]}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["sent"])
	assert.Equal(t, "cid-9", body["cid"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/actions/draw", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"play 0 attack", "draw "}, backend.acted)

	resp, _ = do(t, http.MethodPost, srv.URL+"/actions/dance", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	backend.gated = true
	_, body = do(t, http.MethodPost, srv.URL+"/actions/end", "")
	assert.Equal(t, false, body["sent"])
}

func TestControlServer_History(t *testing.T) {
	srv := newTestServer(t, &stubBackend{})

	resp, body := do(t, http.MethodGet, srv.URL+"/history?limit=3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["records"], 3)
	assert.Equal(t, float64(2), body["stats"].(map[string]interface{})["total_games"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/history?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestControlServer_Sessions(t *testing.T) {
	m := session.NewManager()
	sess := session.NewSession("s1")
	sess.SetPlayerID("A")
	m.Add(sess)

	s := NewControlServer("", &stubBackend{}, nil).WithSessions(m)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	var infos []session.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	resp.Body.Close()
	require.Len(t, infos, 1)
	assert.Equal(t, "A", infos[0].PlayerID)

	resp, body := do(t, http.MethodGet, srv.URL+"/sessions/A", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s1", body["id"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/sessions/Z", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no metrics handler given")
}
