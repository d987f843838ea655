package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/icecc-go.net/internal/adapter/logging"
	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/domain"
)

// fakeScheduler answers every GetMsg with its scripted replies in order.
type fakeScheduler struct {
	sendOK  bool
	replies []comm.Msg
	sent    []comm.Msg
}

func (f *fakeScheduler) SendMsg(msg comm.Msg) bool {
	f.sent = append(f.sent, msg)
	return f.sendOK
}

func (f *fakeScheduler) GetMsg() (comm.Msg, bool) {
	if len(f.replies) == 0 {
		return nil, false
	}
	msg := f.replies[0]
	f.replies = f.replies[1:]
	return msg, true
}

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestService() (*BuildService, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return NewBuildServiceWithStreams(nil, &stdout, &stderr, logging.NewNopLogger()), &stdout, &stderr
}

func TestBuildLocal_ExitStatus(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantStatus int
		wantStdout string
		wantStderr string
	}{
		{name: "success", script: `echo "out $@"`, wantStatus: 0, wantStdout: "out -c a.c\n"},
		{name: "compile error", script: `echo broken >&2; exit 3`, wantStatus: 3, wantStderr: "broken\n"},
		{name: "killed by signal", script: `kill -TERM $$`, wantStatus: 128 + 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, stdout, stderr := newTestService()
			job := domain.NewCompileJob("cc")
			job.CompilerPath = writeScript(t, t.TempDir(), "cc", tt.script)
			job.Argv = []string{"-c", "a.c"}

			status := svc.BuildLocal(context.Background(), job, nil)

			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, tt.wantStdout, stdout.String())
			require.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestBuildLocal_CompilerNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	job := domain.NewCompileJob("nope")
	job.CompilerPath = filepath.Join(t.TempDir(), "does-not-exist")

	require.Equal(t, StatusNotFound, svc.BuildLocal(context.Background(), job, nil))
}

func TestBuild_RefusesUnresolvedCompiler(t *testing.T) {
	for _, compilerPath := range []string{"", "gcc"} {
		t.Run("path="+compilerPath, func(t *testing.T) {
			svc, _, stderr := newTestService()
			job := domain.NewCompileJob("gcc")
			job.CompilerPath = compilerPath
			job.InputFile = "a.c"
			scheduler := &fakeScheduler{sendOK: true}

			require.Equal(t, StatusNotFound, svc.BuildLocal(context.Background(), job, nil))
			require.Equal(t, StatusNotFound, svc.BuildRemote(context.Background(), job, scheduler))
			require.Contains(t, stderr.String(), "icecc: gcc: compiler not found")
			require.Empty(t, scheduler.sent)
		})
	}
}

func TestBuildLocal_IgnoresScheduler(t *testing.T) {
	svc, _, _ := newTestService()
	job := domain.NewCompileJob("cc")
	job.CompilerPath = writeScript(t, t.TempDir(), "cc", "exit 0")
	scheduler := &fakeScheduler{sendOK: true}

	require.Zero(t, svc.BuildLocal(context.Background(), job, scheduler))
	require.Empty(t, scheduler.sent)
}

// newRemoteJob returns a job whose compiler prints its last argument, so
// preprocessing yields the source file unchanged.
func newRemoteJob(t *testing.T) (*domain.CompileJob, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(input, []byte("int main(void) { return 0; }\n"), 0o644))

	job := domain.NewCompileJob("gcc")
	job.CompilerPath = writeScript(t, dir, "gcc", `for last; do :; done; cat "$last"`)
	job.InputFile = input
	job.OutputFile = filepath.Join(dir, "a.o")
	job.Flags.Local = []string{"-DX=1"}
	job.Flags.Remote = []string{"-O2"}
	return job, dir
}

func TestBuildRemote_Success(t *testing.T) {
	// --- Arrange ---
	svc, stdout, stderr := newTestService()
	job, _ := newRemoteJob(t)
	scheduler := &fakeScheduler{
		sendOK: true,
		replies: []comm.Msg{&comm.CompileResultMsg{
			JobID:  job.ID.String(),
			Stdout: "remote out\n",
			Stderr: "warning: unused\n",
			Object: []byte("\x7fELF object"),
		}},
	}

	// --- Act ---
	status := svc.BuildRemote(context.Background(), job, scheduler)

	// --- Assert ---
	require.Zero(t, status)
	require.Equal(t, "remote out\n", stdout.String())
	require.Equal(t, "warning: unused\n", stderr.String())

	object, err := os.ReadFile(job.OutputFile)
	require.NoError(t, err)
	require.Equal(t, []byte("\x7fELF object"), object)

	require.Len(t, scheduler.sent, 2)
	request, ok := scheduler.sent[0].(comm.CompileFileMsg)
	require.True(t, ok, "got %T", scheduler.sent[0])
	require.Equal(t, job.ID.String(), request.JobID)
	require.Equal(t, "gcc", request.Compiler)
	require.Equal(t, "C", request.Language)
	require.Equal(t, []string{"-O2"}, request.RemoteFlags)
	require.Equal(t, []byte("int main(void) { return 0; }\n"), request.Source)
	require.Equal(t, comm.EndMsg{}, scheduler.sent[1])
}

func TestBuildRemote_CompileErrorKeepsNoObject(t *testing.T) {
	svc, _, stderr := newTestService()
	job, _ := newRemoteJob(t)
	scheduler := &fakeScheduler{
		sendOK:  true,
		replies: []comm.Msg{&comm.CompileResultMsg{Status: 1, Stderr: "a.c:1: error\n"}},
	}

	status := svc.BuildRemote(context.Background(), job, scheduler)

	require.Equal(t, 1, status)
	require.Equal(t, "a.c:1: error\n", stderr.String())
	_, err := os.Stat(job.OutputFile)
	require.True(t, os.IsNotExist(err))
}

func TestBuildRemote_Failures(t *testing.T) {
	tests := []struct {
		name      string
		scheduler *fakeScheduler
		wantSent  int
	}{
		{
			name:      "send fails",
			scheduler: &fakeScheduler{sendOK: false},
			wantSent:  1,
		},
		{
			name:      "scheduler hangs up",
			scheduler: &fakeScheduler{sendOK: true},
			wantSent:  1,
		},
		{
			name: "scheduler error",
			scheduler: &fakeScheduler{
				sendOK:  true,
				replies: []comm.Msg{&comm.ErrorMsg{Code: 7, Message: "no compile server"}},
			},
			wantSent: 1,
		},
		{
			name: "unexpected reply",
			scheduler: &fakeScheduler{
				sendOK:  true,
				replies: []comm.Msg{&comm.UseSchedulerMsg{Hostname: "x", Port: 1}},
			},
			wantSent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			job, _ := newRemoteJob(t)

			status := svc.BuildRemote(context.Background(), job, tt.scheduler)

			require.Equal(t, StatusRemoteFailure, status)
			require.Len(t, tt.scheduler.sent, tt.wantSent)
			_, err := os.Stat(job.OutputFile)
			require.True(t, os.IsNotExist(err))
		})
	}
}

func TestBuildRemote_PreprocessorFailure(t *testing.T) {
	svc, _, _ := newTestService()
	job, dir := newRemoteJob(t)
	job.CompilerPath = writeScript(t, dir, "badcc", "exit 4")
	scheduler := &fakeScheduler{sendOK: true}

	status := svc.BuildRemote(context.Background(), job, scheduler)

	require.Equal(t, 4, status)
	require.Empty(t, scheduler.sent, "nothing is sent when preprocessing fails")
}
