package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/domain"
)

var _ IBuilder = &BuildService{}

// BuildService runs compilers locally and talks to the scheduler for
// remote builds.
type BuildService struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger primary.Logger
}

// NewBuildService creates a build service wired to the process's
// standard streams.
func NewBuildService(logger primary.Logger) *BuildService {
	return NewBuildServiceWithStreams(os.Stdin, os.Stdout, os.Stderr, logger)
}

// NewBuildServiceWithStreams creates a build service with explicit streams.
func NewBuildServiceWithStreams(stdin io.Reader, stdout, stderr io.Writer, logger primary.Logger) *BuildService {
	return &BuildService{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}
}

// BuildLocal runs the compiler with the original arguments.
func (s *BuildService) BuildLocal(ctx context.Context, job *domain.CompileJob, scheduler comm.MessageChannel) int {
	s.logger.Debug("Building locally",
		"jobId", job.ID,
		"compiler", job.CompilerPath,
		"schedulerAvailable", scheduler != nil,
	)

	if !s.resolved(job) {
		return StatusNotFound
	}
	return s.run(ctx, job.CompilerPath, job.LocalArgs(), s.stdin, s.stdout)
}

// BuildRemote preprocesses the input locally, ships it to the scheduler
// and writes back the object file it returns.
func (s *BuildService) BuildRemote(ctx context.Context, job *domain.CompileJob, scheduler comm.MessageChannel) int {
	s.logger.Debug("Building remotely", "jobId", job.ID, "input", job.InputFile)

	if !s.resolved(job) {
		return StatusNotFound
	}

	var source bytes.Buffer
	if status := s.run(ctx, job.CompilerPath, job.PreprocessArgs(), nil, &source); status != 0 {
		// A preprocessing error is a compile error, report it as such.
		return status
	}

	request := comm.CompileFileMsg{
		JobID:       job.ID.String(),
		Language:    string(job.Language),
		Compiler:    job.Compiler,
		InputName:   job.InputFile,
		OutputName:  job.OutputFile,
		RemoteFlags: job.Flags.Remote,
		RestFlags:   job.Flags.Rest,
		Source:      source.Bytes(),
	}
	if !scheduler.SendMsg(request) {
		s.logger.Error("Failed to send compile job", "jobId", job.ID)
		return StatusRemoteFailure
	}

	result, err := awaitResult(scheduler)
	if err != nil {
		s.logger.Error("Remote compile failed", "jobId", job.ID, "error", err)
		return StatusRemoteFailure
	}

	_, _ = io.WriteString(s.stdout, result.Stdout)
	_, _ = io.WriteString(s.stderr, result.Stderr)

	if result.Status == 0 {
		if err := os.WriteFile(job.OutputFile, result.Object, 0o644); err != nil {
			s.logger.Error("Failed to write object file", "jobId", job.ID, "output", job.OutputFile, "error", err)
			return StatusRemoteFailure
		}
	}

	scheduler.SendMsg(comm.EndMsg{})

	s.logger.Debug("Remote compile finished", "jobId", job.ID, "status", result.Status)
	return result.Status
}

// resolved reports whether job names an executable by path. Bare names
// are refused: exec would search PATH and could land on icecc itself.
func (s *BuildService) resolved(job *domain.CompileJob) bool {
	if strings.ContainsRune(job.CompilerPath, os.PathSeparator) {
		return true
	}
	s.logger.Error("No compiler to run", "jobId", job.ID, "compiler", job.Compiler)
	fmt.Fprintf(s.stderr, "icecc: %s: compiler not found\n", job.Compiler)
	return false
}

// awaitResult reads the scheduler's answer to a CompileFile request.
func awaitResult(ch comm.MessageChannel) (*comm.CompileResultMsg, error) {
	msg, ok := ch.GetMsg()
	if !ok {
		return nil, errors.New("scheduler closed the channel")
	}

	switch m := msg.(type) {
	case *comm.CompileResultMsg:
		return m, nil
	case *comm.ErrorMsg:
		return nil, fmt.Errorf("scheduler error %d: %s", m.Code, m.Message)
	default:
		return nil, fmt.Errorf("unexpected message %s", msg.Type())
	}
}

// run executes name with args and maps the outcome to an exit status.
func (s *BuildService) run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) int {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = s.stderr

	runErr := cmd.Run()

	switch err := runErr.(type) {
	case nil:
		return 0
	case *exec.ExitError:
		if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return err.ExitCode()
	default:
		s.logger.Error("Failed to run compiler", "compiler", name, "error", runErr)
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			return StatusNotFound
		}
		return StatusExecFailure
	}
}
