package routing

import (
	"context"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/domain"
)

// Path is where a job ended up being built.
type Path string

const (
	PathLocal  Path = "local"
	PathRemote Path = "remote"
)

// FallbackReason explains why the remote path was abandoned.
type FallbackReason string

const (
	ReasonNone        FallbackReason = ""
	ReasonNoDaemon    FallbackReason = "no local daemon found"
	ReasonSendFailed  FallbackReason = "failed to write get scheduler"
	ReasonBadReply    FallbackReason = "unexpected reply from daemon"
	ReasonNoScheduler FallbackReason = "no scheduler found"
)

// Outcome is the result of one routing run.
type Outcome struct {
	// Status is the exit status of whichever build ran.
	Status int
	Path   Path
	// Reason is set when discovery failed and the job fell back to a
	// local build.
	Reason FallbackReason
	// Scheduler is the address announced by the daemon, if any.
	Scheduler comm.SchedulerAddr
}

// IRoutingService decides where a compile job runs and runs it.
type IRoutingService interface {
	Run(ctx context.Context, job *domain.CompileJob, localOnly bool) Outcome
}
