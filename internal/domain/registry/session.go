package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/webitel/hose-relay/internal/domain/firehose"
	"github.com/webitel/hose-relay/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUpstreamConnect  = errors.New("upstream connect failed")
	ErrUpstreamClosed   = errors.New("upstream closed")
	ErrSubscriberClosed = errors.New("subscriber closed")
	ErrShutdown         = errors.New("server shutting down")
)

// Dialer opens the upstream firehose connection for one session.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Processor turns one upstream message into an outcome. *firehose.Pipeline
// implements it.
type Processor interface {
	Process(ctx context.Context, raw []byte) (firehose.Outcome, error)
}

// Encoder serializes a post into a WebSocket message.
type Encoder func(post *model.RelayedPost) (messageType int, data []byte, err error)

// State is the lifecycle stage of a Session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type outMessage struct {
	messageType int
	data        []byte
}

// Session relays one upstream firehose connection to one subscriber.
type Session struct {
	// [IDENTITY]
	id         uuid.UUID
	remoteAddr string
	createdAt  time.Time

	// [TRANSPORT]
	// upstream is set once by Run after a successful dial.
	subscriber *guardedConn
	upstream   *guardedConn
	dialer     Dialer

	// [PIPELINE]
	processor Processor
	encode    Encoder
	limiter   *RateLimiter

	// [MAILBOX]
	// Bounded queue between the upstream pump and the subscriber writer.
	// A full outbox drops the post.
	outbox chan outMessage

	logger   *slog.Logger
	recorder Recorder
	config   sessionConfig

	state       atomic.Int32 // [ATOMIC_FIELD]
	relayed     atomic.Uint64
	rateLimited atomic.Uint64
	dropped     atomic.Uint64

	// [LIFECYCLE_CONTROL]
	stopOnce sync.Once
	stopCh   chan struct{}
}

type sessionConfig struct {
	rateLimit    int
	rateWindow   time.Duration
	outboxSize   int
	writeTimeout time.Duration
	dialTimeout  time.Duration
}

// NewSession prepares a session for an accepted subscriber socket. Nothing
// is dialed until Run.
func NewSession(subscriber Conn, dialer Dialer, processor Processor, opts ...Option) *Session {
	s := &Session{
		id:         uuid.New(),
		createdAt:  time.Now(),
		subscriber: guard(subscriber),
		dialer:     dialer,
		processor:  processor,
		encode:     EncodeJSON,
		logger:     slog.Default(),
		recorder:   nopRecorder{},
		config: sessionConfig{
			rateLimit:    DefaultRateLimit,
			rateWindow:   DefaultRateWindow,
			outboxSize:   64,
			writeTimeout: 5 * time.Second,
			dialTimeout:  5 * time.Second,
		},
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.limiter = NewRateLimiter(s.config.rateLimit, s.config.rateWindow)
	s.outbox = make(chan outMessage, max(s.config.outboxSize, 1))
	s.logger = s.logger.With("session_id", s.id, "remote_addr", s.remoteAddr)
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Stats returns a point-in-time snapshot of the session counters.
func (s *Session) Stats() model.SessionStats {
	return model.SessionStats{
		ID:          s.id.String(),
		State:       s.State().String(),
		RemoteAddr:  s.remoteAddr,
		Relayed:     s.relayed.Load(),
		RateLimited: s.rateLimited.Load(),
		Dropped:     s.dropped.Load(),
	}
}

// Stop asks a running session to close both sockets. It is safe to call
// more than once and before Run.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run dials upstream and relays until either side closes, ctx is cancelled
// or Stop is called. Both sockets are closed when Run returns.
//
// The returned error describes why the session ended. It is nil when the
// subscriber closed the connection.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// [STOP_SIGNAL] Bridge Stop into the session context.
	go func() {
		select {
		case <-s.stopCh:
			cancel(ErrShutdown)
		case <-ctx.Done():
		}
	}()

	s.recorder.SessionStarted()
	s.setState(StateConnecting)

	if err := s.connect(ctx); err != nil {
		s.setState(StateClosed)
		s.recorder.SessionEnded()
		return err
	}

	s.setState(StateOpen)
	s.logger.Info("[SESSION] opened")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.pumpUpstream(gctx) })
	g.Go(s.pumpSubscriber)
	g.Go(func() error { return s.pumpOutbox(gctx) })
	g.Go(func() error {
		// [TEARDOWN] Closing the sockets unblocks both readers.
		<-gctx.Done()
		s.teardown(context.Cause(gctx))
		return nil
	})
	_ = g.Wait()

	cause := context.Cause(gctx)
	s.setState(StateClosed)
	s.recorder.SessionEnded()
	s.logger.Info("[SESSION] closed",
		"cause", cause,
		"relayed", s.relayed.Load(),
		"rate_limited", s.rateLimited.Load(),
		"dropped", s.dropped.Load(),
	)

	if errors.Is(cause, ErrSubscriberClosed) {
		return nil
	}
	return cause
}

func (s *Session) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.config.dialTimeout)
	defer cancel()

	up, err := s.dialer.Dial(dialCtx)
	if err != nil {
		code, reason := websocket.CloseInternalServerErr, "upstream unavailable"
		if errors.Is(context.Cause(ctx), ErrShutdown) {
			code, reason = websocket.CloseGoingAway, "server shutting down"
		}
		s.logger.Warn("[UPSTREAM] dial failed", "err", err)
		s.subscriber.closeWith(code, reason)
		return fmt.Errorf("%w: %v", ErrUpstreamConnect, err)
	}

	s.upstream = guard(up)
	return nil
}

// pumpUpstream reads firehose frames and runs each through the pipeline.
func (s *Session) pumpUpstream(ctx context.Context) error {
	for {
		mt, raw, err := s.upstream.ReadMessage()
		if err != nil {
			return upstreamGone(err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if err := s.handleFrame(ctx, raw); err != nil {
			return err
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, raw []byte) error {
	out, err := s.processor.Process(ctx, raw)
	defer s.recorder.FrameProcessed(out.Reason)

	switch {
	case firehose.IsFatal(err):
		s.logger.Warn("[UPSTREAM] invalid framing", "err", err)
		return &closeCause{
			subscriberCode:   websocket.CloseInternalServerErr,
			subscriberReason: "upstream protocol error",
			upstreamCode:     websocket.CloseProtocolError,
			err:              err,
		}
	case err != nil:
		s.logger.Debug("[PIPELINE] frame skipped", "reason", out.Reason, "err", err)
		return nil
	}

	if out.ErrorFrame != nil {
		s.logger.Warn("[UPSTREAM] error frame",
			"error", out.ErrorFrame.Error,
			"message", out.ErrorFrame.Message,
		)
	}
	if out.Post != nil {
		s.deliver(out.Post)
	}
	return nil
}

// deliver applies the rate limit and queues post without blocking.
func (s *Session) deliver(post *model.RelayedPost) {
	if !s.limiter.Allow() {
		s.rateLimited.Add(1)
		s.recorder.PostDelivered(DeliveryRateLimited)
		return
	}

	mt, data, err := s.encode(post)
	if err != nil {
		s.logger.Error("[SUBSCRIBER] encode failed", "err", err)
		return
	}

	select {
	case s.outbox <- outMessage{messageType: mt, data: data}:
		s.relayed.Add(1)
		s.recorder.PostDelivered(DeliveryQueued)
	default:
		// [BACKPRESSURE] Slow subscriber, shed the post.
		s.dropped.Add(1)
		s.recorder.PostDelivered(DeliveryDropped)
	}
}

// pumpSubscriber watches the subscriber for close. Inbound data is ignored.
func (s *Session) pumpSubscriber() error {
	for {
		mt, data, err := s.subscriber.ReadMessage()
		if err != nil {
			return &closeCause{
				upstreamCode: websocket.CloseNormalClosure,
				err:          fmt.Errorf("%w: %v", ErrSubscriberClosed, err),
			}
		}
		s.logger.Debug("[SUBSCRIBER] inbound message ignored", "type", mt, "size", len(data))
	}
}

// pumpOutbox is the only writer of data frames to the subscriber.
func (s *Session) pumpOutbox(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.outbox:
			if s.config.writeTimeout > 0 {
				_ = s.subscriber.SetWriteDeadline(time.Now().Add(s.config.writeTimeout))
			}
			if err := s.subscriber.WriteMessage(msg.messageType, msg.data); err != nil {
				return &closeCause{
					upstreamCode: websocket.CloseNormalClosure,
					err:          fmt.Errorf("%w: write: %v", ErrSubscriberClosed, err),
				}
			}
		}
	}
}

func (s *Session) teardown(cause error) {
	s.setState(StateClosing)

	cc := asCloseCause(cause)
	s.upstream.closeWith(cc.upstreamCode, "")
	s.subscriber.closeWith(cc.subscriberCode, cc.subscriberReason)
}

// closeCause carries the close frames each side should receive.
type closeCause struct {
	subscriberCode   int
	subscriberReason string
	upstreamCode     int
	err              error
}

func (c *closeCause) Error() string { return c.err.Error() }

func (c *closeCause) Unwrap() error { return c.err }

func upstreamGone(err error) *closeCause {
	if code, text, ok := closeCodeOf(err); ok {
		return &closeCause{
			subscriberCode:   relayCloseCode(code),
			subscriberReason: text,
			err:              fmt.Errorf("%w: %v", ErrUpstreamClosed, err),
		}
	}
	return &closeCause{
		subscriberCode:   websocket.CloseInternalServerErr,
		subscriberReason: "upstream error",
		err:              fmt.Errorf("%w: %v", ErrUpstreamClosed, err),
	}
}

func asCloseCause(err error) *closeCause {
	var cc *closeCause
	if errors.As(err, &cc) {
		return cc
	}
	if errors.Is(err, ErrShutdown) {
		return &closeCause{
			subscriberCode:   websocket.CloseGoingAway,
			subscriberReason: "server shutting down",
			upstreamCode:     websocket.CloseNormalClosure,
			err:              err,
		}
	}
	// Parent context gone: the subscriber request ended.
	return &closeCause{
		subscriberCode: websocket.CloseGoingAway,
		upstreamCode:   websocket.CloseNormalClosure,
		err:            err,
	}
}
