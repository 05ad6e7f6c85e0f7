package registry

import "github.com/webitel/hose-relay/internal/domain/firehose"

// DeliveryResult labels what happened to a produced post.
type DeliveryResult string

const (
	DeliveryQueued      DeliveryResult = "queued"
	DeliveryRateLimited DeliveryResult = "rate_limited"
	DeliveryDropped     DeliveryResult = "outbox_full"
)

// Recorder receives session telemetry. Implementations must be safe for
// concurrent use by many sessions.
type Recorder interface {
	SessionStarted()
	SessionEnded()
	FrameProcessed(reason firehose.Reason)
	PostDelivered(result DeliveryResult)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()                {}
func (nopRecorder) SessionEnded()                  {}
func (nopRecorder) FrameProcessed(firehose.Reason) {}
func (nopRecorder) PostDelivered(DeliveryResult)   {}
