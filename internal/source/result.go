package source

import (
	"encoding/json"

	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// Result is one element of an iteration. It is a closed set of variants:
// MessageEventResult, ProblemResult and StampResult.
type Result interface {
	isResult()
}

// MessageEvent is a single message received on a topic.
type MessageEvent struct {
	Topic       string          `json:"topic"`
	ReceiveTime timestamp.Time  `json:"receive_time"`
	SchemaName  string          `json:"schema_name,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	SizeInBytes int             `json:"size_in_bytes,omitempty"`
}

// MessageEventResult carries a message event.
type MessageEventResult struct {
	MsgEvent MessageEvent
}

// ProblemResult reports a recoverable issue found while reading the source.
type ProblemResult struct {
	ConnectionID int
	Message      string
}

// StampResult reports the time the source has read up to.
type StampResult struct {
	Stamp timestamp.Time
}

func (MessageEventResult) isResult() {}
func (ProblemResult) isResult()      {}
func (StampResult) isResult()        {}

// ReceiveTime returns the receive time of r when it is a message event.
func ReceiveTime(r Result) (timestamp.Time, bool) {
	switch v := r.(type) {
	case MessageEventResult:
		return v.MsgEvent.ReceiveTime, true
	case *MessageEventResult:
		return v.MsgEvent.ReceiveTime, true
	default:
		return timestamp.Time{}, false
	}
}
