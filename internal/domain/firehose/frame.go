package firehose

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/webitel/hose-relay/internal/domain/model"
)

// Frame holds the two raw CBOR values of a firehose message.
type Frame struct {
	Header cbor.RawMessage
	Body   cbor.RawMessage
}

// Decoder is an immutable CBOR decoder configured for firehose payloads.
// It holds no per-call state and is safe to share between sessions.
type Decoder struct {
	dm cbor.DecMode
}

// NewDecoder builds a Decoder. CID links are decoded by model.Link, so the
// decoder itself needs no tag registrations.
func NewDecoder() (*Decoder, error) {
	dm, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 64,
		IndefLength:     cbor.IndefLengthForbidden,
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("firehose: cbor decoder: %w", err)
	}
	return &Decoder{dm: dm}, nil
}

// DecodeFrame splits raw into header and body. Any failure wraps
// ErrFrameDecode: empty input, fewer than two values, malformed CBOR or
// bytes left over after the body.
func (d *Decoder) DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) == 0 {
		return Frame{}, fmt.Errorf("%w: empty message", ErrFrameDecode)
	}

	var f Frame
	rest, err := d.dm.UnmarshalFirst(raw, &f.Header)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: header: %v", ErrFrameDecode, err)
	}
	if len(rest) == 0 {
		return Frame{}, fmt.Errorf("%w: missing body", ErrFrameDecode)
	}

	rest, err = d.dm.UnmarshalFirst(rest, &f.Body)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: body: %v", ErrFrameDecode, err)
	}
	if len(rest) != 0 {
		return Frame{}, fmt.Errorf("%w: %d trailing bytes", ErrFrameDecode, len(rest))
	}

	return f, nil
}

// DecodeHeader reads the header map. A header that is well-formed CBOR but
// not a map of the expected shape is reported as an error; callers treat it
// as an unknown frame.
func (d *Decoder) DecodeHeader(raw cbor.RawMessage) (model.EventHeader, error) {
	var h model.EventHeader
	if err := d.dm.Unmarshal(raw, &h); err != nil {
		return model.EventHeader{}, err
	}
	return h, nil
}

// DecodeCommit reads a "#commit" body.
func (d *Decoder) DecodeCommit(raw cbor.RawMessage) (*model.CommitEventBody, error) {
	var body model.CommitEventBody
	if err := d.dm.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommitDecode, err)
	}
	return &body, nil
}

// DecodeErrorFrame reads the body of an op = -1 frame.
func (d *Decoder) DecodeErrorFrame(raw cbor.RawMessage) (model.ErrorFrame, error) {
	var ef model.ErrorFrame
	err := d.dm.Unmarshal(raw, &ef)
	return ef, err
}

// Unmarshal decodes raw into v with the firehose options.
func (d *Decoder) Unmarshal(raw []byte, v any) error {
	return d.dm.Unmarshal(raw, v)
}
