package comm

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so equal messages always
// produce identical payload bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields so older clients keep working against
// newer daemons.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("comm: CBOR encoder initialization failed: " + err.Error())
	}

	// Byte strings are bounded by MaxPayloadSize in ReadFrame.
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 10,
	}.DecMode()
	if err != nil {
		panic("comm: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodePayload encodes a message body to CBOR.
func EncodePayload(msg Msg) ([]byte, error) {
	return encMode.Marshal(msg)
}

// DecodeMessage builds the concrete message for t from its payload.
func DecodeMessage(t MsgType, payload []byte) (Msg, error) {
	msg, err := newMsg(t)
	if err != nil {
		return nil, err
	}
	if err := decMode.Unmarshal(payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
