package session

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is an open live channel.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens live channels.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	dialer websocket.Dialer
}

// NewWebsocketDialer creates a dialer whose handshake is bounded by timeout.
func NewWebsocketDialer(timeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{dialer: websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: timeout,
	}}
}

// Dial opens a websocket to url.
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Join(ErrHandshakeTimeout, err)
		}
		return nil, err
	}
	return conn, nil
}
