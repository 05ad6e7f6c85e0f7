package registry

import (
	"log/slog"
	"time"
)

// Option defines a functional configuration type for the Session.
type Option func(*Session)

// WithRateLimit caps forwarded posts at limit per window. A limit <= 0
// disables the cap.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Session) {
		s.config.rateLimit = limit
		s.config.rateWindow = window
	}
}

// WithOutboxSize sets the [BACKPRESSURE] threshold: posts queued for the
// subscriber beyond this are dropped.
func WithOutboxSize(size int) Option {
	return func(s *Session) {
		s.config.outboxSize = size
	}
}

// WithWriteTimeout bounds a single write to the subscriber.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.config.writeTimeout = d
	}
}

// WithDialTimeout bounds the upstream handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.config.dialTimeout = d
	}
}

func WithRemoteAddr(addr string) Option {
	return func(s *Session) {
		s.remoteAddr = addr
	}
}

func WithEncoder(enc Encoder) Option {
	return func(s *Session) {
		if enc != nil {
			s.encode = enc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}
