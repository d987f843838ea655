package comm

import (
	"net"
	"strconv"
)

// SchedulerAddr is where the scheduler listens.
type SchedulerAddr struct {
	Host string
	Port int
}

func (a SchedulerAddr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// SchedulerReply is the daemon's answer to GetScheduler. It is either
// UseScheduler or ProtocolViolation; callers switch over both.
type SchedulerReply interface {
	schedulerReply()
}

// UseScheduler carries the scheduler address announced by the daemon.
type UseScheduler struct {
	Addr SchedulerAddr
}

// ProtocolViolation means the daemon sent something other than
// UseScheduler, or nothing at all.
type ProtocolViolation struct {
	Absent bool
	Got    MsgType
}

func (UseScheduler) schedulerReply()      {}
func (ProtocolViolation) schedulerReply() {}

func (v ProtocolViolation) String() string {
	if v.Absent {
		return "no message"
	}
	return v.Got.String()
}

// AwaitScheduler receives exactly one message and narrows it to a
// SchedulerReply. Violations are not retried.
func AwaitScheduler(ch MessageChannel) SchedulerReply {
	msg, ok := ch.GetMsg()
	if !ok || msg == nil {
		return ProtocolViolation{Absent: true}
	}

	switch m := msg.(type) {
	case *UseSchedulerMsg:
		return UseScheduler{Addr: SchedulerAddr{Host: m.Hostname, Port: m.Port}}
	case UseSchedulerMsg:
		return UseScheduler{Addr: SchedulerAddr{Host: m.Hostname, Port: m.Port}}
	default:
		return ProtocolViolation{Got: msg.Type()}
	}
}
