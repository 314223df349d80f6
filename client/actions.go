package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/models"
	"github.com/wfunc/twilightsync/network"
	"github.com/wfunc/twilightsync/room"
	"github.com/wfunc/twilightsync/session"
	"github.com/wfunc/twilightsync/turn"
)

// Action names accepted by Act.
const (
	ActionStart  = "start"
	ActionDraw   = "draw"
	ActionPlay   = "play"
	ActionAttack = "attack"
	ActionEnd    = "end"
	ActionLeave  = "leave"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadArguments  = errors.New("bad action arguments")
)

// State returns a copy of the mirror.
func (c *Client) State(ctx context.Context) (game.Mirror, error) {
	var m game.Mirror
	err := c.Do(ctx, func() { m = c.store.Mirror() })
	return m, err
}

// Rooms returns the last known room list.
func (c *Client) Rooms() []game.Room {
	return c.controller.Directory().List()
}

// RefreshRooms queries the room list now and publishes it.
func (c *Client) RefreshRooms(ctx context.Context) ([]game.Room, error) {
	res := c.refresher.Refresh(ctx)
	if err := c.Do(ctx, func() { c.applyRooms(res) }); err != nil {
		return nil, err
	}
	return res.Rooms, res.Err
}

// CreateRoom creates a room and joins it under name. Like JoinRoom it is
// only allowed in the lobby.
func (c *Client) CreateRoom(ctx context.Context, name string) (string, error) {
	var err error
	if doErr := c.Do(ctx, func() { err = c.requireLobby() }); doErr != nil {
		return "", doErr
	}
	var roomID string
	if err == nil {
		roomID, err = c.controller.OpenRoom(ctx, name)
	}
	if err == nil {
		// the phase may have moved during the HTTP call
		doErr := c.Do(ctx, func() {
			if err = c.requireLobby(); err != nil {
				return
			}
			_, err = c.controller.JoinRoom(roomID, name)
			c.monitor.SetPendingCommands(c.ledger.Len())
		})
		if doErr != nil {
			return "", doErr
		}
	}
	if err != nil {
		c.surface(ctx, err)
		return "", err
	}
	return roomID, nil
}

// JoinRoom joins roomID under name. Completion is signalled by the
// waiting-room screen change.
func (c *Client) JoinRoom(ctx context.Context, roomID, name string) error {
	var err error
	doErr := c.Do(ctx, func() {
		if err = c.requireLobby(); err != nil {
			return
		}
		_, err = c.controller.JoinRoom(roomID, name)
		c.monitor.SetPendingCommands(c.ledger.Len())
	})
	if doErr != nil {
		return doErr
	}
	if err != nil {
		c.surface(ctx, err)
	}
	return err
}

// requireLobby runs on the loop.
func (c *Client) requireLobby() error {
	if phase := c.store.Phase(); phase != game.PhaseLobby {
		return &session.ValidationError{Field: "phase", Message: fmt.Sprintf("cannot join while %s", phase)}
	}
	return nil
}

// Act runs one turn action. A nil command with a nil error means the
// action was not sent because it is not our turn.
func (c *Client) Act(ctx context.Context, action string, args ...string) (*turn.Command, error) {
	var (
		cmd *turn.Command
		err error
	)
	doErr := c.Do(ctx, func() {
		cmd, err = c.act(action, args)
		if err == nil && cmd == nil && action != ActionLeave {
			c.monitor.IncActionsGated(action)
		} else if cmd != nil {
			c.monitor.IncActionsEmitted(action)
			c.monitor.SetPendingCommands(c.ledger.Len())
		}
	})
	if doErr != nil {
		return nil, doErr
	}
	if err != nil {
		c.surface(ctx, err)
	}
	return cmd, err
}

// act runs on the loop.
func (c *Client) act(action string, args []string) (*turn.Command, error) {
	switch action {
	case ActionStart:
		return c.coord.RequestStartGame()
	case ActionDraw:
		return c.coord.RequestDrawCard()
	case ActionEnd:
		return c.coord.RequestEndTurn()
	case ActionPlay:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: play <card index> <zone>", ErrBadArguments)
		}
		index, err := strconv.Atoi(args[0])
		if err != nil || index < 0 {
			return nil, fmt.Errorf("%w: card index %q", ErrBadArguments, args[0])
		}
		return c.coord.RequestPlayCard(index, args[1])
	case ActionAttack:
		if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
			return nil, fmt.Errorf("%w: attack <player id>", ErrBadArguments)
		}
		return c.coord.RequestAttack(strings.TrimSpace(args[0]))
	case ActionLeave:
		cmd, err := c.controller.LeaveRoom()
		c.handleLocal(game.LeftRoom{})
		return cmd, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// Pending lists the commands still awaiting an answer.
func (c *Client) Pending() []turn.Command {
	return c.ledger.Pending()
}

// History returns the local player's latest finished games.
func (c *Client) History(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if c.history == nil {
		return nil, nil
	}
	return c.history.Recent(ctx, c.session.PlayerID(), limit)
}

// Stats returns the local player's win/loss record.
func (c *Client) Stats(ctx context.Context) (*models.PlayerStats, error) {
	if c.history == nil {
		return &models.PlayerStats{}, nil
	}
	return c.history.Stats(ctx, c.session.PlayerID())
}

// surface shows a user-facing error through the presenter.
func (c *Client) surface(ctx context.Context, err error) {
	var (
		verr *session.ValidationError
		terr *room.TransportError
		msg  string
	)
	switch {
	case errors.As(err, &verr):
		msg = verr.Message
	case errors.Is(err, network.ErrNotConnected):
		msg = "Not connected to the server"
	case errors.As(err, &terr):
		logger.Log.Warnf("Transport error: %v", err)
		msg = "Server unavailable, try again"
	case errors.Is(err, game.ErrUnknownZone):
		msg = "Choose attack or defense"
	default:
		msg = err.Error()
	}
	_ = c.Do(ctx, func() { c.presenter.OnNotification(msg) })
}
