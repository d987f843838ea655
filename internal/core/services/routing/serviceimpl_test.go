package routing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/icecc-go.net/internal/adapter/logging"
	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/domain"
)

const (
	daemonHost = "localhost"
	daemonPort = 10245
)

// eventLog records connection and build events in order.
type eventLog struct {
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

// fakeChannel replays scripted behaviour.
type fakeChannel struct {
	sendOK bool
	reply  comm.Msg
	sent   []comm.Msg
}

func (c *fakeChannel) SendMsg(msg comm.Msg) bool {
	c.sent = append(c.sent, msg)
	return c.sendOK
}

func (c *fakeChannel) GetMsg() (comm.Msg, bool) {
	if c.reply == nil {
		return nil, false
	}
	return c.reply, true
}

type fakeConnection struct {
	addr   string
	ch     *fakeChannel
	closes int
	log    *eventLog
}

func (c *fakeConnection) Channel() comm.MessageChannel {
	if c.ch == nil {
		return nil
	}
	return c.ch
}

func (c *fakeConnection) Close() error {
	c.closes++
	c.log.add("close %s", c.addr)
	return nil
}

// fakeDialer hands out scripted connections keyed by host:port.
type fakeDialer struct {
	endpoints map[string]*fakeChannel
	opened    []*fakeConnection
	log       *eventLog
}

func (d *fakeDialer) Open(_ context.Context, host string, port int) comm.Connection {
	addr := comm.SchedulerAddr{Host: host, Port: port}.String()
	d.log.add("open %s", addr)
	conn := &fakeConnection{addr: addr, ch: d.endpoints[addr], log: d.log}
	d.opened = append(d.opened, conn)
	return conn
}

type fakeBuilder struct {
	localStatus  int
	remoteStatus int
	log          *eventLog

	localCalls      int
	remoteCalls     int
	localScheduler  comm.MessageChannel
	remoteScheduler comm.MessageChannel
}

func (b *fakeBuilder) BuildLocal(_ context.Context, _ *domain.CompileJob, scheduler comm.MessageChannel) int {
	b.localCalls++
	b.localScheduler = scheduler
	b.log.add("build local")
	return b.localStatus
}

func (b *fakeBuilder) BuildRemote(_ context.Context, _ *domain.CompileJob, scheduler comm.MessageChannel) int {
	b.remoteCalls++
	b.remoteScheduler = scheduler
	b.log.add("build remote")
	return b.remoteStatus
}

func newTestJob() *domain.CompileJob {
	job := domain.NewCompileJob("gcc")
	job.InputFile = "a.c"
	job.OutputFile = "a.o"
	return job
}

func TestRoutingService_FallbackBranches(t *testing.T) {
	const schedulerAddr = "sched.example:8765"
	useScheduler := &comm.UseSchedulerMsg{Hostname: "sched.example", Port: 8765}

	tests := []struct {
		name       string
		endpoints  map[string]*fakeChannel
		wantReason FallbackReason
		wantOpened []string
	}{
		{
			name:       "daemon unreachable",
			endpoints:  map[string]*fakeChannel{},
			wantReason: ReasonNoDaemon,
			wantOpened: []string{"localhost:10245"},
		},
		{
			name: "send get scheduler fails",
			endpoints: map[string]*fakeChannel{
				"localhost:10245": {sendOK: false},
			},
			wantReason: ReasonSendFailed,
			wantOpened: []string{"localhost:10245"},
		},
		{
			name: "no reply",
			endpoints: map[string]*fakeChannel{
				"localhost:10245": {sendOK: true},
			},
			wantReason: ReasonBadReply,
			wantOpened: []string{"localhost:10245"},
		},
		{
			name: "wrong reply tag",
			endpoints: map[string]*fakeChannel{
				"localhost:10245": {sendOK: true, reply: &comm.ErrorMsg{Code: 1002, Message: "no scheduler known"}},
			},
			wantReason: ReasonBadReply,
			wantOpened: []string{"localhost:10245"},
		},
		{
			name: "scheduler unreachable",
			endpoints: map[string]*fakeChannel{
				"localhost:10245": {sendOK: true, reply: useScheduler},
			},
			wantReason: ReasonNoScheduler,
			wantOpened: []string{"localhost:10245", schedulerAddr},
		},
	}

	for _, tt := range tests {
		for _, localOnly := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/localOnly=%v", tt.name, localOnly), func(t *testing.T) {
				// --- Arrange ---
				log := &eventLog{}
				dialer := &fakeDialer{endpoints: tt.endpoints, log: log}
				builder := &fakeBuilder{localStatus: 3, remoteStatus: 99, log: log}
				svc := NewRoutingService(dialer, builder, daemonHost, daemonPort, logging.NewNopLogger())

				// --- Act ---
				outcome := svc.Run(context.Background(), newTestJob(), localOnly)

				// --- Assert ---
				require.Equal(t, PathLocal, outcome.Path)
				require.Equal(t, tt.wantReason, outcome.Reason)
				require.Equal(t, 3, outcome.Status, "local build status must pass through")
				require.Equal(t, 1, builder.localCalls)
				require.Zero(t, builder.remoteCalls)
				require.Nil(t, builder.localScheduler, "fallback builds without a scheduler")

				opened := make([]string, 0, len(dialer.opened))
				for _, conn := range dialer.opened {
					opened = append(opened, conn.addr)
					require.Equal(t, 1, conn.closes, "connection %s must be released exactly once", conn.addr)
				}
				require.Equal(t, tt.wantOpened, opened)
				require.Equal(t, "build local", log.events[len(log.events)-1],
					"every connection is released before the fallback build runs")
			})
		}
	}
}

func TestRoutingService_RemoteHappyPath(t *testing.T) {
	// --- Arrange ---
	log := &eventLog{}
	daemonCh := &fakeChannel{sendOK: true, reply: &comm.UseSchedulerMsg{Hostname: "10.1.2.3", Port: 8765}}
	schedulerCh := &fakeChannel{sendOK: true}
	dialer := &fakeDialer{
		endpoints: map[string]*fakeChannel{
			"localhost:10245": daemonCh,
			"10.1.2.3:8765":   schedulerCh,
		},
		log: log,
	}
	builder := &fakeBuilder{localStatus: 3, remoteStatus: 0, log: log}
	svc := NewRoutingService(dialer, builder, daemonHost, daemonPort, logging.NewNopLogger())

	// --- Act ---
	outcome := svc.Run(context.Background(), newTestJob(), false)

	// --- Assert ---
	require.Equal(t, Outcome{
		Status:    0,
		Path:      PathRemote,
		Reason:    ReasonNone,
		Scheduler: comm.SchedulerAddr{Host: "10.1.2.3", Port: 8765},
	}, outcome)
	require.Equal(t, []string{
		"open localhost:10245",
		"close localhost:10245",
		"open 10.1.2.3:8765",
		"build remote",
		"close 10.1.2.3:8765",
	}, log.events)
	require.Len(t, dialer.opened, 2)
	require.Same(t, schedulerCh, builder.remoteScheduler)
	require.Equal(t, []comm.Msg{comm.GetSchedulerMsg{}}, daemonCh.sent)
	require.Empty(t, schedulerCh.sent, "routing itself sends nothing to the scheduler")
}

func TestRoutingService_LocalOnlyNeverRemote(t *testing.T) {
	// --- Arrange ---
	log := &eventLog{}
	schedulerCh := &fakeChannel{sendOK: true}
	dialer := &fakeDialer{
		endpoints: map[string]*fakeChannel{
			"localhost:10245": {sendOK: true, reply: &comm.UseSchedulerMsg{Hostname: "10.1.2.3", Port: 8765}},
			"10.1.2.3:8765":   schedulerCh,
		},
		log: log,
	}
	builder := &fakeBuilder{localStatus: 0, remoteStatus: 99, log: log}
	svc := NewRoutingService(dialer, builder, daemonHost, daemonPort, logging.NewNopLogger())

	// --- Act ---
	outcome := svc.Run(context.Background(), newTestJob(), true)

	// --- Assert ---
	require.Equal(t, PathLocal, outcome.Path)
	require.Equal(t, ReasonNone, outcome.Reason)
	require.Zero(t, builder.remoteCalls)
	require.Equal(t, 1, builder.localCalls)
	require.Same(t, schedulerCh, builder.localScheduler, "local-only builds still see the live scheduler")
	require.Equal(t, "close 10.1.2.3:8765", log.events[len(log.events)-1])
	for _, conn := range dialer.opened {
		require.Equal(t, 1, conn.closes)
	}
}

func TestRoutingService_RemoteFailureIsSurfaced(t *testing.T) {
	log := &eventLog{}
	dialer := &fakeDialer{
		endpoints: map[string]*fakeChannel{
			"localhost:10245": {sendOK: true, reply: &comm.UseSchedulerMsg{Hostname: "10.1.2.3", Port: 8765}},
			"10.1.2.3:8765":   {sendOK: true},
		},
		log: log,
	}
	builder := &fakeBuilder{localStatus: 0, remoteStatus: 1, log: log}
	svc := NewRoutingService(dialer, builder, daemonHost, daemonPort, logging.NewNopLogger())

	outcome := svc.Run(context.Background(), newTestJob(), false)

	require.Equal(t, 1, outcome.Status)
	require.Equal(t, PathRemote, outcome.Path)
	require.Zero(t, builder.localCalls, "a failed remote build is not retried locally")
}
