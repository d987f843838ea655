package routing

import (
	"context"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/services/build"
	"gitlab.com/icecc-go.net/internal/domain"
)

var _ IRoutingService = &RoutingService{}

// RoutingService runs the two-hop discovery: ask the local daemon for
// the scheduler, connect to the scheduler, then dispatch. Any failure on
// the way ends in a local build. There are no retries.
type RoutingService struct {
	dialer     comm.Dialer
	builder    build.IBuilder
	daemonHost string
	daemonPort int
	logger     primary.Logger
}

// NewRoutingService creates a routing service querying the daemon at
// daemonHost:daemonPort.
func NewRoutingService(
	dialer comm.Dialer,
	builder build.IBuilder,
	daemonHost string,
	daemonPort int,
	logger primary.Logger,
) *RoutingService {
	return &RoutingService{
		dialer:     dialer,
		builder:    builder,
		daemonHost: daemonHost,
		daemonPort: daemonPort,
		logger:     logger,
	}
}

// Run routes job and returns the build's outcome.
func (s *RoutingService) Run(ctx context.Context, job *domain.CompileJob, localOnly bool) Outcome {
	addr, reason := s.discoverScheduler(ctx)
	if reason != ReasonNone {
		return s.fallback(ctx, job, reason, addr)
	}

	outcome, ok := s.buildWithScheduler(ctx, job, localOnly, addr)
	if !ok {
		s.logger.Warn("No scheduler found", "jobId", job.ID, "scheduler", addr.String())
		return s.fallback(ctx, job, ReasonNoScheduler, addr)
	}
	return outcome
}

// discoverScheduler asks the daemon for the scheduler address. The
// daemon connection is released before it returns.
func (s *RoutingService) discoverScheduler(ctx context.Context) (comm.SchedulerAddr, FallbackReason) {
	daemon := s.dialer.Open(ctx, s.daemonHost, s.daemonPort)
	defer s.release(daemon, "daemon")

	ch := daemon.Channel()
	if ch == nil {
		s.logger.Warn("No local daemon found", "host", s.daemonHost, "port", s.daemonPort)
		return comm.SchedulerAddr{}, ReasonNoDaemon
	}

	if !ch.SendMsg(comm.GetSchedulerMsg{}) {
		s.logger.Warn("Failed to write get scheduler")
		return comm.SchedulerAddr{}, ReasonSendFailed
	}

	switch reply := comm.AwaitScheduler(ch).(type) {
	case comm.UseScheduler:
		s.logger.Debug("Contacting scheduler", "scheduler", reply.Addr.String())
		return reply.Addr, ReasonNone
	case comm.ProtocolViolation:
		s.logger.Warn("Unexpected reply from daemon", "got", reply.String())
		return comm.SchedulerAddr{}, ReasonBadReply
	default:
		return comm.SchedulerAddr{}, ReasonBadReply
	}
}

// buildWithScheduler opens the scheduler connection and dispatches the
// job on it. ok is false when the scheduler could not be reached; the
// connection is released in every case.
func (s *RoutingService) buildWithScheduler(
	ctx context.Context,
	job *domain.CompileJob,
	localOnly bool,
	addr comm.SchedulerAddr,
) (Outcome, bool) {
	scheduler := s.dialer.Open(ctx, addr.Host, addr.Port)
	defer s.release(scheduler, "scheduler")

	ch := scheduler.Channel()
	if ch == nil {
		return Outcome{}, false
	}

	if localOnly {
		return Outcome{
			Status:    s.builder.BuildLocal(ctx, job, ch),
			Path:      PathLocal,
			Scheduler: addr,
		}, true
	}

	return Outcome{
		Status:    s.builder.BuildRemote(ctx, job, ch),
		Path:      PathRemote,
		Scheduler: addr,
	}, true
}

// fallback builds locally without a scheduler.
func (s *RoutingService) fallback(
	ctx context.Context,
	job *domain.CompileJob,
	reason FallbackReason,
	addr comm.SchedulerAddr,
) Outcome {
	s.logger.Info("Falling back to local build", "jobId", job.ID, "reason", string(reason))
	return Outcome{
		Status:    s.builder.BuildLocal(ctx, job, nil),
		Path:      PathLocal,
		Reason:    reason,
		Scheduler: addr,
	}
}

func (s *RoutingService) release(conn comm.Connection, role string) {
	if err := conn.Close(); err != nil {
		s.logger.Debug("Failed to close connection", "role", role, "error", err)
	}
}
