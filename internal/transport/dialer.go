package transport

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn is the subset of the websocket connection the client uses.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens alert server connections. Swapped for a fake in tests.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type websocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer returns the production dialer backed by gorilla/websocket.
func NewWebsocketDialer() Dialer {
	return &websocketDialer{dialer: websocket.DefaultDialer}
}

func (d *websocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}
