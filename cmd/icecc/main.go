package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"

	"gitlab.com/icecc-go.net/internal/adapter/logging"
	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/config"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/services/analysis"
	"gitlab.com/icecc-go.net/internal/core/services/build"
	"gitlab.com/icecc-go.net/internal/core/services/routing"
	logger2 "gitlab.com/icecc-go.net/internal/global/logger"
	"gitlab.com/icecc-go.net/internal/signals"
)

// version is overridden at link time.
var version = "0.1.0"

// statusSetupFailure is returned when the environment cannot be prepared
// before any build is attempted.
const statusSetupFailure = -1

const usage = `Usage:
   icecc [COMPILER] [compile options] -o OBJECT -c SOURCE
   icecc --help

Options:
   COMPILER                   defaults to "cc"
   --help                     explain usage and exit
   --version                  show version and exit
`

// client holds everything one invocation needs. Tests swap the dialer,
// builder and process-group hook.
type client struct {
	cfg     *config.ClientConfig
	logger  primary.Logger
	stdout  io.Writer
	stderr  io.Writer
	dialer  comm.Dialer
	builder build.IBuilder
	setpgid func() error
}

func main() {
	InitReader()
	cfg := config.NewClientConfig()
	logger := logging.NewZapLoggerWithOptions(logging.Options{
		Debug:    cfg.Debug,
		Level:    zapcore.WarnLevel,
		Encoding: "console",
	})
	logger2.Set(logger)

	stopSignals := signals.Catch(filepath.Base(os.Args[0]), logger)

	c := &client{
		cfg:     cfg,
		logger:  logger,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		dialer:  comm.NewTCPDialer(cfg.ConnectTimeout, cfg.IOTimeout, logger),
		builder: build.NewBuildService(logger),
		setpgid: func() error { return unix.Setpgid(0, 0) },
	}
	status := c.run(context.Background(), os.Args)

	stopSignals()
	logger.Sync()
	os.Exit(status)
}

// run executes one compiler invocation and returns the exit status.
func (c *client) run(ctx context.Context, argv []string) int {
	if len(argv) > 0 && filepath.Base(argv[0]) == analysis.ProgramName {
		if len(argv) == 1 {
			fmt.Fprint(c.stdout, usage)
			return 0
		}
		switch argv[1] {
		case "--help":
			fmt.Fprint(c.stdout, usage)
			return 0
		case "--version":
			fmt.Fprintf(c.stdout, "%s %s\n", analysis.ProgramName, version)
			return 0
		}
	}

	// Broken sockets must surface as failed writes, not kill the build.
	signals.IgnorePipe()

	if err := c.setpgid(); err != nil {
		fmt.Fprintf(c.stderr, "setpgid: %v\n", err)
		return statusSetupFailure
	}

	job, local := analysis.NewAnalyzer(c.logger).Analyse(argv)

	router := routing.NewRoutingService(c.dialer, c.builder, c.cfg.DaemonHost, c.cfg.DaemonPort, c.logger)
	outcome := router.Run(ctx, job, local)

	c.logger.Debug("Build finished",
		"jobId", job.ID,
		"path", string(outcome.Path),
		"status", outcome.Status,
		"fallbackReason", string(outcome.Reason),
	)
	return outcome.Status
}

// InitReader loads optional env files before configuration is read.
// The working directory belongs to the build, so only per-user and
// system-wide files are considered.
func InitReader() {
	files := []string{"/etc/icecc/icecc.env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append([]string{filepath.Join(home, ".config", "icecc", "icecc.env")}, files...)
	}
	loadEnvFiles(files...)
}

func loadEnvFiles(files ...string) {
	if err := config.LoadEnv(files...); err != nil {
		logger2.Warn("Failed to load env file", "error", err)
	}
}
