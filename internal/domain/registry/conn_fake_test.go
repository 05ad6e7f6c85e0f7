package registry_test

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/webitel/hose-relay/internal/domain/registry"
)

type inbound struct {
	messageType int
	data        []byte
	err         error
}

type written struct {
	messageType int
	data        []byte
}

// fakeConn is an in-memory registry.Conn.
type fakeConn struct {
	in     chan inbound
	writes chan written
	closed chan struct{}

	closeOnce  sync.Once
	closeCalls atomic.Int32

	// blockWrites makes WriteMessage wait until the conn is closed.
	blockWrites bool

	mu         sync.Mutex
	closeCodes []int
	reasons    []string
}

var _ registry.Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan inbound, 64),
		writes: make(chan written, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) send(data []byte) {
	c.in <- inbound{messageType: websocket.BinaryMessage, data: data}
}

// peerClose simulates the remote side sending a close frame.
func (c *fakeConn) peerClose(code int) {
	c.in <- inbound{err: &websocket.CloseError{Code: code}}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.in:
		return m.messageType, m.data, m.err
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.blockWrites {
		<-c.closed
		return net.ErrClosed
	}
	select {
	case <-c.closed:
		return net.ErrClosed
	case c.writes <- written{messageType: messageType, data: data}:
		return nil
	}
}

func (c *fakeConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType != websocket.CloseMessage {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(data) >= 2 {
		c.closeCodes = append(c.closeCodes, int(binary.BigEndian.Uint16(data)))
		c.reasons = append(c.reasons, string(data[2:]))
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.closeCalls.Add(1)
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) sentClose() (codes []int, reasons []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.closeCodes...), append([]string(nil), c.reasons...)
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	calls atomic.Int32
}

func (d *fakeDialer) Dial(context.Context) (registry.Conn, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}
