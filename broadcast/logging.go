package broadcast

import (
	"go.uber.org/zap"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
)

// Logging writes every presenter callback to a zap logger at debug level.
type Logging struct {
	log *zap.SugaredLogger
}

// NewLogging returns a Logging presenter. A nil log uses logger.Log as it
// is when each callback runs.
func NewLogging(log *zap.SugaredLogger) *Logging {
	return &Logging{log: log}
}

func (l *Logging) sugar() *zap.SugaredLogger {
	if l.log != nil {
		return l.log
	}
	return logger.Log
}

func (l *Logging) OnScreenChange(screen game.Screen) {
	l.sugar().Debugw("screen", "screen", screen)
}

func (l *Logging) OnRoomsChange(rooms []game.Room) {
	l.sugar().Debugw("rooms", "count", len(rooms))
}

func (l *Logging) OnPlayersListChange(players []game.Player) {
	l.sugar().Debugw("players", "players", players)
}

func (l *Logging) OnHandChange(cards []game.Card) {
	l.sugar().Debugw("hand", "size", len(cards))
}

func (l *Logging) OnFieldChange(owner string, zone game.Zone, cards []game.Card) {
	l.sugar().Debugw("field", "owner", owner, "zone", zone, "size", len(cards))
}

func (l *Logging) OnNotification(message string) {
	l.sugar().Infow("notification", "message", message)
}

func (l *Logging) OnTurnChange(isMyTurn bool, tod game.TimeOfDay, currentPlayerName string) {
	l.sugar().Debugw("turn", "mine", isMyTurn, "time_of_day", tod, "player", currentPlayerName)
}
