package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/models"
	"github.com/wfunc/twilightsync/turn"
)

type call struct {
	name string
	args []string
}

type fakeBackend struct {
	calls  []call
	mirror game.Mirror
	gated  bool
}

func (f *fakeBackend) record(name string, args ...string) {
	f.calls = append(f.calls, call{name, args})
}

func (f *fakeBackend) RefreshRooms(ctx context.Context) ([]game.Room, error) {
	f.record("rooms")
	return nil, nil
}

func (f *fakeBackend) CreateRoom(ctx context.Context, name string) (string, error) {
	f.record("create", name)
	return "R5", nil
}

func (f *fakeBackend) JoinRoom(ctx context.Context, roomID, name string) error {
	f.record("join", roomID, name)
	return nil
}

func (f *fakeBackend) Act(ctx context.Context, action string, args ...string) (*turn.Command, error) {
	f.record(action, args...)
	if f.gated {
		return nil, nil
	}
	return &turn.Command{ID: "c1", Event: action}, nil
}

func (f *fakeBackend) State(ctx context.Context) (game.Mirror, error) {
	return f.mirror, nil
}

func (f *fakeBackend) Pending() []turn.Command { return nil }

func (f *fakeBackend) History(ctx context.Context, limit int) ([]models.GameRecord, error) {
	return []models.GameRecord{{RoomID: "R1", Outcome: models.OutcomeWin, WinnerName: "Alice"}}, nil
}

func (f *fakeBackend) Stats(ctx context.Context) (*models.PlayerStats, error) {
	return &models.PlayerStats{TotalGames: 1, Wins: 1}, nil
}

func TestShell_Run(t *testing.T) {
	backend := &fakeBackend{}
	var out bytes.Buffer
	sh := NewShell(backend, &out)

	input := strings.Join([]string{
		"rooms",
		"create Alice Smith",
		"join R1 Bob",
		"",
		"play 0 attack",
		"attack B",
		"quit",
		"draw",
	}, "\n")
	require.NoError(t, sh.Run(context.Background(), strings.NewReader(input)))

	want := []call{
		{"rooms", nil},
		{"create", []string{"Alice Smith"}},
		{"join", []string{"R1", "Bob"}},
		{"play", []string{"0", "attack"}},
		{"attack", []string{"B"}},
	}
	assert.Equal(t, want, backend.calls, "commands after quit are not run")
	assert.Contains(t, out.String(), "Created room R5")
}

func TestShell_Gated(t *testing.T) {
	backend := &fakeBackend{gated: true}
	var out bytes.Buffer
	sh := NewShell(backend, &out)

	require.NoError(t, sh.Exec(context.Background(), "draw"))
	assert.Contains(t, out.String(), "Not your turn")

	out.Reset()
	require.NoError(t, sh.Exec(context.Background(), "leave"))
	assert.NotContains(t, out.String(), "Not your turn")

	assert.Error(t, sh.Exec(context.Background(), "join"))

	sh.DefaultName = "Carol"
	require.NoError(t, sh.Exec(context.Background(), "join R4"))
	last := backend.calls[len(backend.calls)-1]
	assert.Equal(t, call{"join", []string{"R4", "Carol"}}, last)
	assert.ErrorIs(t, sh.Exec(context.Background(), "EXIT"), ErrQuit)
}

func TestShell_StateAndHistory(t *testing.T) {
	g := game.NewGameState()
	g.Players["A"] = game.Player{ID: "A", Name: "Alice", Life: 18}
	g.Order = []string{"A"}
	g.CurrentTurn = "A"
	g.Hand = []game.Card{{ID: "c1", Name: "Wolf"}}
	backend := &fakeBackend{mirror: game.Mirror{Phase: game.PhasePlaying, RoomID: "R1", IsHost: true, Game: g}}

	var out bytes.Buffer
	sh := NewShell(backend, &out)
	require.NoError(t, sh.Exec(context.Background(), "state"))
	s := out.String()
	assert.Contains(t, s, `Phase playing, room "R1" (host)`)
	assert.Contains(t, s, "> Alice [A] life 18")
	assert.Contains(t, s, "hand 0) Wolf")

	out.Reset()
	require.NoError(t, sh.Exec(context.Background(), "history"))
	assert.Contains(t, out.String(), "1 games, 1 won, 0 lost")
	assert.Contains(t, out.String(), "winner Alice")
}

func TestPresenter(t *testing.T) {
	var out bytes.Buffer
	p := NewPresenter(&out)
	atk, life := 3, 2

	p.OnRoomsChange([]game.Room{{ID: "R1", Occupants: 4, MaxPlayers: 4}})
	p.OnHandChange([]game.Card{{Name: "Wolf", Attack: &atk, Life: &life}, {Name: "Spell"}})
	p.OnFieldChange("B", game.ZoneDefense, []game.Card{{Opaque: true}})
	p.OnTurnChange(false, game.Night, "Bob")
	p.OnNotification("Attack! Damage: 3")

	s := out.String()
	assert.Contains(t, s, "R1  4/4 (full)")
	assert.Contains(t, s, "0) Wolf 3/2")
	assert.Contains(t, s, "1) Spell")
	assert.Contains(t, s, "Field B/defense-row: ??")
	assert.Contains(t, s, "Bob's turn (night)")
	assert.Contains(t, s, "* Attack! Damage: 3")
}
