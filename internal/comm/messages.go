package comm

// Msg is a protocol message. Every concrete message reports its tag.
type Msg interface {
	Type() MsgType
}

// Protocol data structures
type (
	// GetSchedulerMsg asks the local daemon where the scheduler lives.
	GetSchedulerMsg struct{}

	// UseSchedulerMsg is the daemon's answer to GetSchedulerMsg.
	UseSchedulerMsg struct {
		Hostname string `cbor:"hostname"`
		Port     int    `cbor:"port"`
	}

	// CompileFileMsg carries one preprocessed translation unit to the
	// scheduler for remote compilation.
	CompileFileMsg struct {
		JobID       string   `cbor:"job_id"`
		Language    string   `cbor:"language"`
		Compiler    string   `cbor:"compiler"`
		InputName   string   `cbor:"input_name"`
		OutputName  string   `cbor:"output_name"`
		RemoteFlags []string `cbor:"remote_flags,omitempty"`
		RestFlags   []string `cbor:"rest_flags,omitempty"`
		Source      []byte   `cbor:"source"`
	}

	// CompileResultMsg reports the outcome of a remote compile.
	CompileResultMsg struct {
		JobID  string `cbor:"job_id"`
		Status int    `cbor:"status"`
		Stdout string `cbor:"stdout,omitempty"`
		Stderr string `cbor:"stderr,omitempty"`
		Object []byte `cbor:"object,omitempty"`
	}

	// EndMsg closes a conversation politely.
	EndMsg struct{}

	// ErrorMsg is sent by a peer that rejects a request.
	ErrorMsg struct {
		Code    int    `cbor:"code"`
		Message string `cbor:"message"`
	}
)

func (GetSchedulerMsg) Type() MsgType  { return MsgGetScheduler }
func (UseSchedulerMsg) Type() MsgType  { return MsgUseScheduler }
func (CompileFileMsg) Type() MsgType   { return MsgCompileFile }
func (CompileResultMsg) Type() MsgType { return MsgCompileResult }
func (EndMsg) Type() MsgType           { return MsgEnd }
func (ErrorMsg) Type() MsgType         { return MsgError }

// newMsg returns a pointer to a zero message for t, ready for decoding.
func newMsg(t MsgType) (Msg, error) {
	switch t {
	case MsgGetScheduler:
		return &GetSchedulerMsg{}, nil
	case MsgUseScheduler:
		return &UseSchedulerMsg{}, nil
	case MsgCompileFile:
		return &CompileFileMsg{}, nil
	case MsgCompileResult:
		return &CompileResultMsg{}, nil
	case MsgEnd:
		return &EndMsg{}, nil
	case MsgError:
		return &ErrorMsg{}, nil
	default:
		return nil, ErrUnknownType
	}
}
