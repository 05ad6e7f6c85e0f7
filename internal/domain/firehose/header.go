package firehose

import (
	"strings"

	"github.com/webitel/hose-relay/internal/domain/model"
)

// FrameKind is the classification of a frame header.
type FrameKind int

const (
	KindUnknown FrameKind = iota
	KindCommit
	KindAccount
	KindError
)

func (k FrameKind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindAccount:
		return "account"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// knownTypes maps the header "t" discriminator (without '#') to its kind.
var knownTypes = map[string]FrameKind{
	"commit":  KindCommit,
	"account": KindAccount,
}

// ClassifyHeader classifies a decoded header. Frames with an unknown op or
// type are KindUnknown and must be ignored rather than treated as errors.
func ClassifyHeader(h model.EventHeader) FrameKind {
	switch h.Op {
	case model.OpError:
		return KindError
	case model.OpMessage:
		if kind, ok := knownTypes[strings.TrimPrefix(h.T, "#")]; ok {
			return kind
		}
	}
	return KindUnknown
}
