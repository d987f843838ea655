package comm

import (
	"fmt"
	"time"
)

// MsgType identifies the kind of message carried by a frame.
type MsgType byte

// Protocol constants
const (
	MagicNumber uint16 = 0x1CEC

	// Message types
	MsgGetScheduler  MsgType = 0x01
	MsgUseScheduler  MsgType = 0x02
	MsgCompileFile   MsgType = 0x03
	MsgCompileResult MsgType = 0x04
	MsgEnd           MsgType = 0x05
	MsgError         MsgType = 0x07

	// headerSize is magic(2) + type(1) + reserved(1) + length(4).
	headerSize = 8

	// MaxPayloadSize bounds a single frame. Preprocessed translation
	// units and object files travel in one frame each.
	MaxPayloadSize = 64 << 20

	// Configuration constants
	DefaultDaemonHost     = "localhost"
	DefaultDaemonPort     = 10245
	DefaultConnectTimeout = 5 * time.Second
)

var msgTypeNames = map[MsgType]string{
	MsgGetScheduler:  "GetScheduler",
	MsgUseScheduler:  "UseScheduler",
	MsgCompileFile:   "CompileFile",
	MsgCompileResult: "CompileResult",
	MsgEnd:           "End",
	MsgError:         "Error",
}

func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MsgType(0x%02x)", byte(t))
}
