package turn

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/twilightsync/network"
)

type Status int

const (
	StatusPending Status = iota
	StatusAcked
	StatusRejected
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAcked:
		return "acked"
	case StatusRejected:
		return "rejected"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

// Command is one outbound request awaiting the server's answer.
type Command struct {
	ID        string
	Event     string
	Payload   interface{}
	IssuedAt  time.Time
	Settled   time.Time
	Status    Status
	Reason    string
	CardIndex int
}

// Latency is the time between issue and settlement.
func (c *Command) Latency() time.Duration {
	if c.Settled.IsZero() {
		return 0
	}
	return c.Settled.Sub(c.IssuedAt)
}

// Ledger tracks commands by correlation id until they are acked,
// rejected or expired.
type Ledger struct {
	mu      sync.Mutex
	pending map[string]*Command
	now     func() time.Time
	newID   func() string
}

func NewLedger() *Ledger {
	return &Ledger{
		pending: make(map[string]*Command),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SetClock replaces the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) Issue(event string, payload interface{}) *Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	cmd := &Command{
		ID:        l.newID(),
		Event:     event,
		Payload:   payload,
		IssuedAt:  l.now(),
		Status:    StatusPending,
		CardIndex: -1,
	}
	if p, ok := payload.(network.PlayCardPayload); ok {
		cmd.CardIndex = p.CardIndex
	}
	l.pending[cmd.ID] = cmd
	return cmd
}

// Resolve settles cid as acknowledged. ok is false when cid is unknown.
func (l *Ledger) Resolve(cid string) (*Command, bool) {
	return l.settle(cid, StatusAcked, "")
}

// Reject settles cid as refused by the server.
func (l *Ledger) Reject(cid, reason string) (*Command, bool) {
	return l.settle(cid, StatusRejected, reason)
}

// Drop forgets cid without settling it, used when the emit itself failed.
func (l *Ledger) Drop(cid string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, cid)
}

func (l *Ledger) settle(cid string, status Status, reason string) (*Command, bool) {
	if cid == "" {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cmd, ok := l.pending[cid]
	if !ok {
		return nil, false
	}
	delete(l.pending, cid)
	cmd.Status = status
	cmd.Reason = reason
	cmd.Settled = l.now()
	return cmd, true
}

// Expire settles every command older than timeout, oldest first.
func (l *Ledger) Expire(timeout time.Duration) []*Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var out []*Command
	for id, cmd := range l.pending {
		if now.Sub(cmd.IssuedAt) < timeout {
			continue
		}
		delete(l.pending, id)
		cmd.Status = StatusExpired
		cmd.Settled = now
		out = append(out, cmd)
	}
	sortByIssue(out)
	return out
}

// Pending returns a snapshot of the unsettled commands, oldest first.
func (l *Ledger) Pending() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()

	cmds := make([]*Command, 0, len(l.pending))
	for _, cmd := range l.pending {
		cmds = append(cmds, cmd)
	}
	sortByIssue(cmds)
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		out[i] = *c
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Clear forgets every pending command.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = make(map[string]*Command)
}

func sortByIssue(cmds []*Command) {
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].IssuedAt.Before(cmds[j].IssuedAt)
	})
}
