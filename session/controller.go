package session

import (
	"context"
	"strings"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/network"
	"github.com/wfunc/twilightsync/room"
	"github.com/wfunc/twilightsync/turn"
)

// Issuer emits a tracked command, see turn.Coordinator.
type Issuer interface {
	Issue(event string, payload interface{}) (*turn.Command, error)
}

// Controller handles room discovery, creation, joining and leaving. It
// is safe for concurrent use and never touches the mirror.
type Controller struct {
	session   *Session
	lister    room.Lister
	directory *room.Directory
	issuer    Issuer
}

func NewController(sess *Session, lister room.Lister, dir *room.Directory, issuer Issuer) *Controller {
	if dir == nil {
		dir = room.NewDirectory()
	}
	return &Controller{session: sess, lister: lister, directory: dir, issuer: issuer}
}

func (c *Controller) Session() *Session {
	return c.session
}

func (c *Controller) Directory() *room.Directory {
	return c.directory
}

// ListRooms queries the room list once. On failure the last known list is
// returned together with the error.
func (c *Controller) ListRooms(ctx context.Context) ([]game.Room, error) {
	rooms, err := c.lister.ListRooms(ctx)
	if err != nil {
		logger.Log.Warnf("Failed to list rooms: %v", err)
		return c.directory.List(), err
	}
	c.directory.Replace(rooms)
	return rooms, nil
}

// OpenRoom asks the server for a new room without joining it.
func (c *Controller) OpenRoom(ctx context.Context, name string) (string, error) {
	if _, err := validName(name); err != nil {
		return "", err
	}
	roomID, err := c.lister.CreateRoom(ctx)
	if err != nil {
		logger.Log.Warnf("Failed to create room: %v", err)
		return "", err
	}
	logger.Log.Infof("Room %s created", roomID)
	return roomID, nil
}

// CreateRoom opens a room and joins it.
func (c *Controller) CreateRoom(ctx context.Context, name string) (string, *turn.Command, error) {
	roomID, err := c.OpenRoom(ctx, name)
	if err != nil {
		return "", nil, err
	}
	cmd, err := c.JoinRoom(roomID, name)
	return roomID, cmd, err
}

// JoinRoom sets roomID as the current room and emits the join request.
// It completes when the roster snapshot arrives.
func (c *Controller) JoinRoom(roomID, name string) (*turn.Command, error) {
	if _, err := validName(name); err != nil {
		return nil, err
	}
	if roomID == "" {
		return nil, &ValidationError{Field: "room", Message: "Please choose a room"}
	}
	name, err := c.session.AcceptName(name)
	if err != nil {
		return nil, err
	}

	prev := c.session.SetRoom(roomID)
	cmd, err := c.issuer.Issue(network.EventJoin, network.JoinPayload{RoomID: roomID, PlayerName: name})
	if err != nil {
		c.session.SetRoom(prev)
		return nil, &room.TransportError{Op: "join " + roomID, Err: err}
	}
	logger.Log.Infof("Player %s joining room %s as %s", c.session.PlayerID(), roomID, name)
	return cmd, nil
}

// LeaveRoom emits leave_room for the current room and clears it. It is a
// no-op outside a room.
func (c *Controller) LeaveRoom() (*turn.Command, error) {
	roomID := c.session.RoomID()
	if roomID == "" {
		return nil, nil
	}
	cmd, err := c.issuer.Issue(network.EventLeaveRoom, network.RoomPayload{RoomID: roomID})
	c.session.ClearRoomIf(roomID)
	if err != nil {
		return nil, &room.TransportError{Op: "leave " + roomID, Err: err}
	}
	logger.Log.Infof("Player %s left room %s", c.session.PlayerID(), roomID)
	return cmd, nil
}

// Reconcile undoes the optimistic room of a join the server rejected.
// It reports whether the current room was cleared.
func (c *Controller) Reconcile(cmd *turn.Command) bool {
	if cmd == nil || cmd.Event != network.EventJoin || cmd.Status != turn.StatusRejected {
		return false
	}
	p, ok := cmd.Payload.(network.JoinPayload)
	if !ok {
		return false
	}
	if c.session.ClearRoomIf(p.RoomID) {
		logger.Log.Infof("Join of room %s rejected: %s", p.RoomID, cmd.Reason)
		return true
	}
	return false
}

func validName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", &ValidationError{Field: "name", Message: "Please enter your name"}
	}
	return name, nil
}
