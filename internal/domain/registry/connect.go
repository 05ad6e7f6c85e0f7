package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn a session needs. Both the subscriber
// and the upstream socket are used through it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Interface guard
var _ Conn = (*websocket.Conn)(nil)

// closeWriteWait bounds the best-effort close frame sent before a socket is torn down.
const closeWriteWait = time.Second

// guardedConn makes closing a Conn idempotent.
type guardedConn struct {
	Conn
	closeOnce sync.Once // [PROTECTION]
}

func guard(c Conn) *guardedConn {
	return &guardedConn{Conn: c}
}

// closeWith sends a close frame carrying code and reason, then closes the
// socket. Only the first call has any effect. A zero code skips the frame.
func (c *guardedConn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		if code != 0 {
			msg := websocket.FormatCloseMessage(code, truncateReason(reason))
			// [BEST_EFFORT] The peer may already be gone.
			_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		}
		_ = c.Conn.Close()
	})
}

// Close closes the socket without a close frame.
func (c *guardedConn) Close() error {
	c.closeWith(0, "")
	return nil
}

// maxCloseReason is the largest reason that fits a 125 byte control frame.
const maxCloseReason = 123

func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	return reason[:maxCloseReason]
}

// relayCloseCode returns a code that may be sent to the subscriber for an
// upstream close. Reserved and private-range codes become 1011.
func relayCloseCode(code int) int {
	switch {
	case code >= websocket.CloseNormalClosure && code <= websocket.CloseUnsupportedData,
		code >= websocket.CloseInvalidFramePayloadData && code <= websocket.CloseInternalServerErr:
		return code
	}
	return websocket.CloseInternalServerErr
}

// closeCodeOf extracts the close code from a read error, if it carries one.
func closeCodeOf(err error) (int, string, bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}
