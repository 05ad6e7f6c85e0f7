// Package upstream dials the firehose relay each session subscribes to.
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/hose-relay/internal/domain/registry"
)

const (
	DefaultURL = "wss://bsky.network/xrpc/com.atproto.sync.subscribeRepos"

	// maxFrameSize caps a single firehose message. Commit frames are
	// bounded well below this by the relay.
	maxFrameSize = 8 << 20
)

// Interface guard
var _ registry.Dialer = (*Dialer)(nil)

// Dialer opens one live firehose subscription per call. No cursor is sent,
// so every connection starts at the live tail.
type Dialer struct {
	url       string
	userAgent string
	dialer    *websocket.Dialer
}

func NewDialer(rawURL, userAgent string, handshakeTimeout time.Duration) (*Dialer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("upstream: unsupported scheme %q", u.Scheme)
	}

	d := *websocket.DefaultDialer
	d.HandshakeTimeout = handshakeTimeout
	return &Dialer{url: u.String(), userAgent: userAgent, dialer: &d}, nil
}

func (d *Dialer) Dial(ctx context.Context) (registry.Conn, error) {
	header := http.Header{}
	if d.userAgent != "" {
		header.Set("User-Agent", d.userAgent)
	}

	conn, resp, err := d.dialer.DialContext(ctx, d.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", d.url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}

	conn.SetReadLimit(maxFrameSize)
	return conn, nil
}
