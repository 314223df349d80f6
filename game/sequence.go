package game

import "fmt"

// sequencer tracks the last applied sequence number of the current room.
type sequencer struct {
	room string
	last uint64
}

// check returns ErrStaleEvent when seq was already applied for room and
// the number of skipped events when seq jumps ahead. It records nothing.
// seq 0 means the server does not sequence and is always accepted.
func (s *sequencer) check(room string, seq uint64) (uint64, error) {
	last := s.last
	if room != s.room {
		last = 0
	}
	if seq == 0 {
		return 0, nil
	}
	if seq <= last {
		return 0, ErrStaleEvent
	}
	if last > 0 && seq > last+1 {
		return seq - last - 1, nil
	}
	return 0, nil
}

// commit marks seq as applied for room.
func (s *sequencer) commit(room string, seq uint64) {
	if room != s.room {
		s.room, s.last = room, 0
	}
	if seq > s.last {
		s.last = seq
	}
}

func (s *sequencer) reset() {
	s.room, s.last = "", 0
}

func (s *sequencer) String() string {
	return fmt.Sprintf("room %q last seq %d", s.room, s.last)
}
