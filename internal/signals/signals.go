// Package signals implements the client's signal policy: termination
// signals are logged and then re-raised with their default disposition
// so the process dies the way the build system expects, and SIGPIPE is
// ignored so broken sockets show up as write errors.
//
// The OS-level handler installed by signal.Notify only records the
// signal. Logging and re-raising happen on an ordinary goroutine.
package signals

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"gitlab.com/icecc-go.net/internal/core/ports/primary"
)

// Terminating lists the signals that are logged and re-raised.
var Terminating = []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}

// IgnorePipe ignores SIGPIPE for the whole process.
func IgnorePipe() {
	signal.Ignore(syscall.SIGPIPE)
}

// Catch starts watching the terminating signals. The returned function
// stops watching; it is safe to call more than once.
func Catch(program string, logger primary.Logger) (stop func()) {
	return catch(program, logger, raise)
}

func catch(program string, logger primary.Logger, raiseFn func(syscall.Signal) error) func() {
	received := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(received, Terminating...)

	go func() {
		select {
		case sig := <-received:
			signal.Stop(received)
			sysSig, ok := sig.(syscall.Signal)
			if !ok {
				return
			}
			logger.Warn(fmt.Sprintf("%s: %s", program, sig), "signal", unix.SignalName(sysSig))

			signal.Reset(sysSig)
			if err := raiseFn(sysSig); err != nil {
				logger.Error("Failed to re-raise signal", "signal", unix.SignalName(sysSig), "error", err)
			}
		case <-done:
			signal.Stop(received)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// raise sends sig to the current process.
func raise(sig syscall.Signal) error {
	return unix.Kill(unix.Getpid(), sig)
}
