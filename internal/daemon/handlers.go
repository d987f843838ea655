package daemon

import (
	"context"
	"fmt"

	"gitlab.com/icecc-go.net/internal/comm"
	"gitlab.com/icecc-go.net/internal/core/ports/primary"
	"gitlab.com/icecc-go.net/internal/core/ports/secondary"
)

// Error codes sent in comm.ErrorMsg.
const (
	ErrCodeUnknownMessage = 1001
	ErrCodeNoScheduler    = 1002
	ErrCodeLocateFailed   = 1003
)

// MessageHandler handles one message received on a daemon connection
// and answers on the same channel.
type MessageHandler interface {
	HandleMessage(ctx context.Context, ch comm.MessageChannel, msg comm.Msg) error
}

var _ MessageHandler = (*GetSchedulerHandler)(nil)

// GetSchedulerHandler answers GetScheduler with the current scheduler.
type GetSchedulerHandler struct {
	Locator secondary.SchedulerLocator
	Logger  primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *GetSchedulerHandler) HandleMessage(ctx context.Context, ch comm.MessageChannel, _ comm.Msg) error {
	addr, found, err := h.Locator.Locate(ctx)
	if err != nil {
		h.Logger.Error("Failed to locate scheduler", "error", err)
		sendError(ch, ErrCodeLocateFailed, "failed to locate scheduler")
		return err
	}
	if !found {
		h.Logger.Warn("No scheduler known")
		sendError(ch, ErrCodeNoScheduler, "no scheduler known")
		return fmt.Errorf("no scheduler known")
	}

	if !ch.SendMsg(comm.UseSchedulerMsg{Hostname: addr.Host, Port: addr.Port}) {
		return fmt.Errorf("failed to send use scheduler")
	}

	h.Logger.Info("Scheduler handed out", "scheduler", addr.String())
	return nil
}

// sendError tells the peer its request was rejected. Errors are ignored
// since the connection is about to close anyway.
func sendError(ch comm.MessageChannel, code int, message string) {
	_ = ch.SendMsg(comm.ErrorMsg{Code: code, Message: message})
}
