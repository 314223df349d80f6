// console/shell.go
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/models"
	"github.com/wfunc/twilightsync/turn"
)

// Backend is the part of the client the shell drives.
type Backend interface {
	RefreshRooms(ctx context.Context) ([]game.Room, error)
	CreateRoom(ctx context.Context, name string) (string, error)
	JoinRoom(ctx context.Context, roomID, name string) error
	Act(ctx context.Context, action string, args ...string) (*turn.Command, error)
	State(ctx context.Context) (game.Mirror, error)
	Pending() []turn.Command
	History(ctx context.Context, limit int) ([]models.GameRecord, error)
	Stats(ctx context.Context) (*models.PlayerStats, error)
}

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

const usage = `Commands:
  rooms                  refresh the room list
  create <name>          open a room and join it
  join <room> <name>     join a room
  start                  start the game (host)
  draw                   draw a card
  play <index> <zone>    play a hand card to attack or defense
  attack <player id>     attack a player
  end                    end your turn
  leave                  leave the room
  state                  show the session
  history                show finished games
  quit`

// Shell reads commands line by line and runs them against a Backend.
// Errors are printed; the presenter already shows user-facing ones.
type Shell struct {
	backend Backend
	out     io.Writer

	// DefaultName is used by create and join when no name is typed.
	DefaultName string
}

func NewShell(backend Backend, out io.Writer) *Shell {
	return &Shell{backend: backend, out: out}
}

// Run reads commands from in until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Log.Warnf("Console input error: %v", err)
		}
	}()

	fmt.Fprintln(s.out, "Type 'help' for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := s.Exec(ctx, line); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		}
	}
}

// Exec runs one command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, usage)
		return nil
	case "quit", "exit":
		return ErrQuit
	case "rooms":
		_, err := s.backend.RefreshRooms(ctx)
		return err
	case "create":
		roomID, err := s.backend.CreateRoom(ctx, s.name(args))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Created room %s\n", roomID)
		return nil
	case "join":
		if len(args) < 1 {
			return fmt.Errorf("usage: join <room> <name>")
		}
		return s.backend.JoinRoom(ctx, args[0], s.name(args[1:]))
	case "state":
		return s.printState(ctx)
	case "history":
		return s.printHistory(ctx)
	}

	sent, err := s.backend.Act(ctx, cmd, args...)
	if err != nil {
		return err
	}
	if sent == nil && cmd != "leave" {
		fmt.Fprintln(s.out, "Not your turn")
	}
	return nil
}

func (s *Shell) name(args []string) string {
	if name := strings.Join(args, " "); name != "" {
		return name
	}
	return s.DefaultName
}

func (s *Shell) printState(ctx context.Context) error {
	m, err := s.backend.State(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Phase %s, room %q", m.Phase, m.RoomID)
	if m.IsHost {
		fmt.Fprint(s.out, " (host)")
	}
	fmt.Fprintln(s.out)

	switch m.Phase {
	case game.PhaseWaiting:
		for _, e := range m.Roster {
			fmt.Fprintf(s.out, "  %s [%s]\n", e.Name, e.ID)
		}
	case game.PhasePlaying:
		for _, p := range m.Game.OrderedPlayers() {
			marker := " "
			if p.ID == m.Game.CurrentTurn {
				marker = ">"
			}
			fmt.Fprintf(s.out, " %s %s [%s] life %d\n", marker, p.Name, p.ID, p.Life)
		}
		for i, c := range m.Game.Hand {
			fmt.Fprintf(s.out, "  hand %d) %s\n", i, describe(c))
		}
	}
	if n := len(s.backend.Pending()); n > 0 {
		fmt.Fprintf(s.out, "  %d request(s) pending\n", n)
	}
	return nil
}

func (s *Shell) printHistory(ctx context.Context) error {
	records, err := s.backend.History(ctx, 10)
	if err != nil {
		return err
	}
	stats, err := s.backend.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d games, %d won, %d lost\n", stats.TotalGames, stats.Wins, stats.Losses)
	for _, r := range records {
		fmt.Fprintf(s.out, "  %s  room %s  %s  winner %s\n", r.EndedAt.Format("2006-01-02 15:04"), r.RoomID, r.Outcome, r.WinnerName)
	}
	return nil
}
