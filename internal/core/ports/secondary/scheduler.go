package secondary

import (
	"context"
	"time"

	"gitlab.com/icecc-go.net/internal/comm"
)

// SchedulerLocator finds the scheduler the daemon should hand out.
type SchedulerLocator interface {
	// Locate returns the current scheduler address. found is false when
	// no scheduler is known; err is reserved for backend failures.
	Locate(ctx context.Context) (addr comm.SchedulerAddr, found bool, err error)
}

// SchedulerRepository stores the address a scheduler announces.
type SchedulerRepository interface {
	SchedulerLocator

	// Publish records addr; it disappears after ttl unless refreshed.
	Publish(ctx context.Context, addr comm.SchedulerAddr, ttl time.Duration) error

	// Withdraw removes the published address.
	Withdraw(ctx context.Context) error
}
