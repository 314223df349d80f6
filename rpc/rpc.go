package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/twilightsync/game"
	"github.com/wfunc/twilightsync/logger"
	"github.com/wfunc/twilightsync/models"
	"github.com/wfunc/twilightsync/turn"
)

// callTimeout bounds every RPC that reaches the client loop.
const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Register publishes the exported methods of rcvr.
func (s *Server) Register(rcvr interface{}) error {
	return s.rpc.Register(rcvr)
}

// Addr is the bound listen address.
func (s *Server) Addr() string {
	return s.address
}

// Start accepts connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Backend is what SessionService drives.
type Backend interface {
	State(ctx context.Context) (game.Mirror, error)
	CreateRoom(ctx context.Context, name string) (string, error)
	JoinRoom(ctx context.Context, roomID, name string) error
	Act(ctx context.Context, action string, args ...string) (*turn.Command, error)
	Pending() []turn.Command
	History(ctx context.Context, limit int) ([]models.GameRecord, error)
	Stats(ctx context.Context) (*models.PlayerStats, error)
}

// SessionService exposes the local session over net/rpc.
// Methods follow the net/rpc signature: exported args, pointer reply, error.
type SessionService struct {
	backend Backend
}

func NewSessionService(b Backend) *SessionService {
	return &SessionService{backend: b}
}

type StateArgs struct {
	WithPending bool
}

type StateReply struct {
	Mirror  game.Mirror
	Pending int
}

func (s *SessionService) State(args *StateArgs, reply *StateReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	m, err := s.backend.State(ctx)
	if err != nil {
		return err
	}
	reply.Mirror = m
	if args.WithPending {
		reply.Pending = len(s.backend.Pending())
	}
	return nil
}

type JoinArgs struct {
	RoomID string
	Name   string
}

type JoinReply struct {
	RoomID string
}

func (s *SessionService) Join(args *JoinArgs, reply *JoinReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := s.backend.JoinRoom(ctx, args.RoomID, args.Name); err != nil {
		return err
	}
	reply.RoomID = args.RoomID
	return nil
}

type CreateArgs struct {
	Name string
}

type CreateReply struct {
	RoomID string
}

func (s *SessionService) Create(args *CreateArgs, reply *CreateReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	id, err := s.backend.CreateRoom(ctx, args.Name)
	if err != nil {
		return err
	}
	reply.RoomID = id
	return nil
}

type ActArgs struct {
	Action string
	Args   []string
}

// ActReply.Sent is false when the action was gated because it is not our turn.
type ActReply struct {
	Sent      bool
	CommandID string
}

func (s *SessionService) Act(args *ActArgs, reply *ActReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	cmd, err := s.backend.Act(ctx, args.Action, args.Args...)
	if err != nil {
		return err
	}
	if cmd != nil {
		reply.Sent = true
		reply.CommandID = cmd.ID
	}
	return nil
}

type HistoryArgs struct {
	Limit int
}

type HistoryReply struct {
	Records []models.GameRecord
	Stats   models.PlayerStats
}

func (s *SessionService) History(args *HistoryArgs, reply *HistoryReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := s.backend.History(ctx, args.Limit)
	if err != nil {
		return err
	}
	stats, err := s.backend.Stats(ctx)
	if err != nil {
		return err
	}
	reply.Records = records
	reply.Stats = *stats
	return nil
}
