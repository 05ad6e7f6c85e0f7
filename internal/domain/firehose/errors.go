package firehose

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameDecode means the transport framing is broken. The connection
	// cannot be resynchronized and must be dropped.
	ErrFrameDecode = errors.New("frame decode failed")

	ErrCommitDecode          = errors.New("commit decode failed")
	ErrArchiveDecode         = errors.New("archive decode failed")
	ErrBlockNotFound         = errors.New("block not found in archive")
	ErrRecordDecode          = errors.New("record decode failed")
	ErrUnsupportedRecordType = errors.New("unsupported record type")
)

// SkipError reports a payload-level failure. The frame is dropped and the
// connection stays open.
type SkipError struct {
	Stage  string
	Reason Reason
	Err    error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

func skip(stage string, reason Reason, err error) *SkipError {
	return &SkipError{Stage: stage, Reason: reason, Err: err}
}

// IsFatal reports whether err must tear down the upstream connection.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFrameDecode)
}
