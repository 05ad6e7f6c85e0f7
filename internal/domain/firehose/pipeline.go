package firehose

import (
	"context"
	"errors"

	"github.com/webitel/hose-relay/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hose-relay/firehose")

// Outcome is the result of running one frame through the pipeline.
type Outcome struct {
	Kind   FrameKind
	Reason Reason
	Post   *model.RelayedPost

	// ErrorFrame is set for op = -1 frames whose body could be read.
	ErrorFrame *model.ErrorFrame
}

// Pipeline runs frames through decoding, filtering and projection. It keeps
// no state between calls.
type Pipeline struct {
	decoder *Decoder
	records *RecordRegistry
}

func NewPipeline(decoder *Decoder, records *RecordRegistry) *Pipeline {
	return &Pipeline{decoder: decoder, records: records}
}

// Process handles one upstream binary message.
//
// The returned error is nil when the frame was relayed or filtered, wraps
// ErrFrameDecode when the connection must be dropped, and is a *SkipError
// for any other payload failure.
func (p *Pipeline) Process(ctx context.Context, raw []byte) (Outcome, error) {
	_, span := tracer.Start(ctx, "Pipeline.Process", trace.WithAttributes(attribute.Int("frame.size", len(raw))))
	defer span.End()

	out, err := p.process(raw)
	span.SetAttributes(
		attribute.String("frame.kind", out.Kind.String()),
		attribute.String("frame.reason", string(out.Reason)),
	)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

func (p *Pipeline) process(raw []byte) (Outcome, error) {
	frame, err := p.decoder.DecodeFrame(raw)
	if err != nil {
		return Outcome{Reason: ReasonFrameDecode}, err
	}

	header, err := p.decoder.DecodeHeader(frame.Header)
	if err != nil {
		return Outcome{Kind: KindUnknown, Reason: ReasonUnknownFrame}, nil
	}

	out := Outcome{Kind: ClassifyHeader(header)}
	switch out.Kind {
	case KindError:
		out.Reason = ReasonErrorFrame
		if ef, err := p.decoder.DecodeErrorFrame(frame.Body); err == nil {
			out.ErrorFrame = &ef
		}
		return out, nil
	case KindUnknown:
		out.Reason = ReasonUnknownFrame
		return out, nil
	case KindAccount:
		out.Reason = ReasonNotCommit
		return out, nil
	}

	body, err := p.decoder.DecodeCommit(frame.Body)
	if err != nil {
		out.Reason = ReasonCommitDecode
		return out, skip("commit", out.Reason, err)
	}

	op, reason := FilterCommit(body)
	if reason != ReasonNone {
		out.Reason = reason
		return out, nil
	}

	block, err := ExtractBlock(body.Blocks, op.CID.Cid)
	if err != nil {
		out.Reason = ReasonArchiveDecode
		if errors.Is(err, ErrBlockNotFound) {
			out.Reason = ReasonBlockNotFound
		}
		return out, skip("archive", out.Reason, err)
	}

	post, err := p.records.Project(p.decoder, block, body)
	if err != nil {
		out.Reason = ReasonRecordDecode
		if errors.Is(err, ErrUnsupportedRecordType) {
			out.Reason = ReasonUnsupportedRecord
		}
		return out, skip("record", out.Reason, err)
	}
	if post == nil {
		out.Reason = ReasonEmptyText
		return out, nil
	}

	out.Reason = ReasonRelayed
	out.Post = post
	return out, nil
}
