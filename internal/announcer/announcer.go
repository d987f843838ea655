package announcer

import (
	"context"
	"sync"
	"time"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
)

// DefaultInterval is used when no positive refresh interval is given.
const DefaultInterval = 30 * time.Second

// Announcer keeps a statically configured scheduler address published in
// the shared registry so daemons without local configuration find it.
// Entries expire after three missed refreshes.
type Announcer struct {
	repo     secondary.SchedulerRepository
	addr     comm.SchedulerAddr
	interval time.Duration
	logger   primary.Logger
	wg       sync.WaitGroup
}

func NewAnnouncer(
	repo secondary.SchedulerRepository,
	addr comm.SchedulerAddr,
	interval time.Duration,
	logger primary.Logger,
) *Announcer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Announcer{
		repo:     repo,
		addr:     addr,
		interval: interval,
		logger:   logger,
	}
}

// Start publishes immediately, then refreshes every interval until ctx
// is cancelled, at which point the entry is withdrawn.
func (a *Announcer) Start(ctx context.Context) {
	a.publish(ctx)

	ticker := time.NewTicker(a.interval)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				a.withdraw()
				return
			case <-ticker.C:
				a.publish(ctx)
			}
		}
	}()
}

// Wait blocks until the refresh loop has exited.
func (a *Announcer) Wait() {
	a.wg.Wait()
}

func (a *Announcer) publish(ctx context.Context) {
	if err := a.repo.Publish(ctx, a.addr, 3*a.interval); err != nil {
		a.logger.Error("Failed to announce scheduler", "scheduler", a.addr.String(), "error", err)
		return
	}
	a.logger.Debug("Scheduler announced", "scheduler", a.addr.String())
}

func (a *Announcer) withdraw() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.repo.Withdraw(ctx); err != nil {
		a.logger.Warn("Failed to withdraw scheduler", "error", err)
		return
	}
	a.logger.Info("Scheduler announcement withdrawn", "scheduler", a.addr.String())
}
