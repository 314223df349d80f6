package client

import (
	"github.com/wfunc/twilightsync/network"
	"github.com/wfunc/twilightsync/room"
)

// message is anything the loop goroutine processes.
type message interface {
	isMsg()
}

type inboundMsg struct {
	env network.Envelope
}

type roomsMsg struct {
	res room.Result
}

type doMsg struct {
	fn   func()
	done chan struct{}
}

type readErrMsg struct {
	err error
}

func (inboundMsg) isMsg() {}
func (roomsMsg) isMsg()   {}
func (doMsg) isMsg()      {}
func (readErrMsg) isMsg() {}
