// console/presenter.go
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wfunc/twilightsync/game"
)

// Presenter prints presenter callbacks as plain text lines.
type Presenter struct {
	out   io.Writer
	mutex sync.Mutex
}

func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

func (p *Presenter) printf(format string, args ...interface{}) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Presenter) OnScreenChange(screen game.Screen) {
	p.printf("== %s ==", screen)
}

func (p *Presenter) OnRoomsChange(rooms []game.Room) {
	if len(rooms) == 0 {
		p.printf("No rooms yet. Type 'create <name>' to open one.")
		return
	}
	var b strings.Builder
	b.WriteString("Rooms:")
	for _, r := range rooms {
		state := ""
		if r.Full() {
			state = " (full)"
		}
		fmt.Fprintf(&b, "\n  %s  %d/%d%s", r.ID, r.Occupants, r.MaxPlayers, state)
	}
	p.printf("%s", b.String())
}

func (p *Presenter) OnPlayersListChange(players []game.Player) {
	parts := make([]string, 0, len(players))
	for _, pl := range players {
		parts = append(parts, fmt.Sprintf("%s[%s] %d", pl.Name, pl.ID, pl.Life))
	}
	p.printf("Players: %s", strings.Join(parts, ", "))
}

func (p *Presenter) OnHandChange(cards []game.Card) {
	if len(cards) == 0 {
		p.printf("Hand: empty")
		return
	}
	var b strings.Builder
	b.WriteString("Hand:")
	for i, c := range cards {
		fmt.Fprintf(&b, "\n  %d) %s", i, describe(c))
	}
	p.printf("%s", b.String())
}

func (p *Presenter) OnFieldChange(owner string, zone game.Zone, cards []game.Card) {
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, describe(c))
	}
	p.printf("Field %s/%s: %s", owner, zone, strings.Join(names, " | "))
}

func (p *Presenter) OnNotification(message string) {
	p.printf("* %s", message)
}

func (p *Presenter) OnTurnChange(isMyTurn bool, tod game.TimeOfDay, currentPlayerName string) {
	if isMyTurn {
		p.printf("Your turn (%s)", tod)
		return
	}
	p.printf("%s's turn (%s)", currentPlayerName, tod)
}

func describe(c game.Card) string {
	if c.Opaque {
		return "??"
	}
	s := c.Name
	if c.Attack != nil || c.Life != nil {
		s += fmt.Sprintf(" %s/%s", stat(c.Attack), stat(c.Life))
	}
	return s
}

func stat(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
