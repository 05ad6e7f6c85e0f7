package model

// Frame header operations.
const (
	OpMessage int64 = 1
	OpError   int64 = -1
)

// EventHeader is the first CBOR value of every firehose frame.
// T is only meaningful when Op is OpMessage, e.g. "#commit".
type EventHeader struct {
	Op int64  `cbor:"op"`
	T  string `cbor:"t,omitempty"`
}

// ErrorFrame is the body carried by an op = -1 frame.
type ErrorFrame struct {
	Error   string `cbor:"error" json:"error"`
	Message string `cbor:"message,omitempty" json:"message,omitempty"`
}
