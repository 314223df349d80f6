package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownZone = errors.New("unknown zone")

// Zone is where a card sits. ZoneNone means the card is in hand.
type Zone string

const (
	ZoneNone    Zone = ""
	ZoneAttack  Zone = "attack"
	ZoneDefense Zone = "defense"
)

// ParseZone maps every label the client meets to the canonical zone: the
// wire values, the row names used by the board, and the labels offered by
// the play prompt.
func ParseZone(label string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "attack", "attack-row", "ataque":
		return ZoneAttack, nil
	case "defense", "defense-row", "defesa":
		return ZoneDefense, nil
	}
	return ZoneNone, fmt.Errorf("%w: %q", ErrUnknownZone, label)
}

// Wire is the value sent to the server.
func (z Zone) Wire() string {
	return string(z)
}

func (z Zone) String() string {
	switch z {
	case ZoneAttack:
		return "attack-row"
	case ZoneDefense:
		return "defense-row"
	}
	return "hand"
}

func (z Zone) MarshalJSON() ([]byte, error) {
	if z == ZoneNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(z))
}

func (z *Zone) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*z = ZoneNone
		return nil
	}
	parsed, err := ParseZone(*s)
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}
