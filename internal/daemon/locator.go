package daemon

import (
	"context"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
)

var (
	_ secondary.SchedulerLocator = StaticLocator{}
	_ secondary.SchedulerLocator = (*ChainLocator)(nil)
)

// StaticLocator always returns the configured scheduler. An empty host
// means no scheduler is configured.
type StaticLocator struct {
	Addr comm.SchedulerAddr
}

func (l StaticLocator) Locate(context.Context) (comm.SchedulerAddr, bool, error) {
	if l.Addr.Host == "" {
		return comm.SchedulerAddr{}, false, nil
	}
	return l.Addr, true, nil
}

// ChainLocator asks each locator in order and returns the first hit.
// Backend errors are logged and the next locator is tried.
type ChainLocator struct {
	locators []secondary.SchedulerLocator
	logger   primary.Logger
}

func NewChainLocator(logger primary.Logger, locators ...secondary.SchedulerLocator) *ChainLocator {
	return &ChainLocator{locators: locators, logger: logger}
}

func (c *ChainLocator) Locate(ctx context.Context) (comm.SchedulerAddr, bool, error) {
	var lastErr error
	for _, l := range c.locators {
		addr, found, err := l.Locate(ctx)
		if err != nil {
			c.logger.Warn("Scheduler locator failed", "error", err)
			lastErr = err
			continue
		}
		if found {
			return addr, true, nil
		}
	}
	return comm.SchedulerAddr{}, false, lastErr
}
