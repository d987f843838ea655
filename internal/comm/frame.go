package comm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrBadMagic      = errors.New("invalid magic number")
	ErrFrameTooLarge = errors.New("frame payload too large")
	ErrUnknownType   = errors.New("unknown message type")
)

// WriteFrame writes one header+payload frame in a single write.
func WriteFrame(w io.Writer, msgType MsgType, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	frame := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], MagicNumber)
	frame[2] = byte(msgType)
	frame[3] = 0 // Reserved
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[headerSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame and returns its type and payload.
func ReadFrame(r io.Reader) (MsgType, []byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	magic := binary.BigEndian.Uint16(header[0:2])
	msgType := MsgType(header[2])
	payloadLen := binary.BigEndian.Uint32(header[4:8])

	if magic != MagicNumber {
		return 0, nil, fmt.Errorf("%w: %x", ErrBadMagic, magic)
	}
	if payloadLen > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	return msgType, payload, nil
}
