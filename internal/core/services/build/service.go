package build

import (
	"context"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/domain"
)

// Exit statuses produced by the executors themselves rather than the
// compiler.
const (
	// StatusRemoteFailure is returned when the remote path breaks after
	// dispatch. There is no automatic local retry.
	StatusRemoteFailure = 1
	// StatusExecFailure is returned when the compiler cannot be started.
	StatusExecFailure = 1
	// StatusNotFound mirrors the shell's "command not found".
	StatusNotFound = 127
)

// IBuilder runs a compile job and returns the process exit status.
type IBuilder interface {
	// BuildLocal compiles on this machine. scheduler may be nil; the
	// result never depends on it.
	BuildLocal(ctx context.Context, job *domain.CompileJob, scheduler comm.MessageChannel) int

	// BuildRemote hands the job to the compile farm through scheduler.
	BuildRemote(ctx context.Context, job *domain.CompileJob, scheduler comm.MessageChannel) int
}
