package comm

import (
	"errors"
	"io"
	"net"
	"time"

	"gitlab.com/icecc-go.net/internal/core/ports/primary"
)

// MessageChannel is a whole-message conversation with one peer.
// Failures are reported as values, never as panics: SendMsg returns
// false and GetMsg returns ok == false once the transport is gone.
type MessageChannel interface {
	SendMsg(msg Msg) bool
	GetMsg() (Msg, bool)
}

var _ MessageChannel = (*MsgChannel)(nil)

// MsgChannel is the framed CBOR channel over a net.Conn.
type MsgChannel struct {
	conn      net.Conn
	ioTimeout time.Duration
	logger    primary.Logger
}

// NewMsgChannel wraps an established connection. A zero ioTimeout means
// reads and writes block until the transport gives up.
func NewMsgChannel(conn net.Conn, ioTimeout time.Duration, logger primary.Logger) *MsgChannel {
	return &MsgChannel{
		conn:      conn,
		ioTimeout: ioTimeout,
		logger:    logger,
	}
}

// SendMsg encodes and writes msg as one frame.
func (c *MsgChannel) SendMsg(msg Msg) bool {
	payload, err := EncodePayload(msg)
	if err != nil {
		c.logger.Error("Failed to encode message", "type", msg.Type(), "error", err)
		return false
	}

	if c.ioTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.ioTimeout))
	}
	if err := WriteFrame(c.conn, msg.Type(), payload); err != nil {
		c.logger.Debug("Failed to send message", "type", msg.Type(), "peer", c.peer(), "error", err)
		return false
	}
	return true
}

// GetMsg reads and decodes the next message. Decoded messages are
// pointers to the concrete types in messages.go.
func (c *MsgChannel) GetMsg() (Msg, bool) {
	if c.ioTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.ioTimeout))
	}

	msgType, payload, err := ReadFrame(c.conn)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.logger.Debug("Failed to read message", "peer", c.peer(), "error", err)
		}
		return nil, false
	}

	msg, err := DecodeMessage(msgType, payload)
	if err != nil {
		c.logger.Warn("Failed to decode message", "type", msgType, "peer", c.peer(), "error", err)
		return nil, false
	}
	return msg, true
}

// RemoteAddr returns the peer address.
func (c *MsgChannel) RemoteAddr() string {
	return c.peer()
}

func (c *MsgChannel) peer() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
