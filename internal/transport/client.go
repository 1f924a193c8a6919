// Package transport maintains the persistent connection to the alert server:
// it dials, reconnects with exponential backoff, decodes inbound frames and
// publishes them as events, and carries outbound subscription control frames.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/events"
	"github.com/gigflow/gigwatch/internal/gig"
)

// State is the connection lifecycle position of the client.
type State string

const (
	StateDisconnected       State = "disconnected"
	StateConnecting         State = "connecting"
	StateConnected          State = "connected"
	StateReconnectScheduled State = "reconnect_scheduled"
	StateGivenUp            State = "given_up"
)

const (
	defaultBaseDelay   = time.Second
	defaultMaxAttempts = 5
)

// Status is a point-in-time snapshot of the connection.
type Status struct {
	State    State
	Attempts int
}

// Client owns exactly one logical connection to the alert server.
//
// All state transitions happen under a single mutex. A generation counter
// invalidates in-flight dials, read loops, and reconnect timers that belong
// to an earlier connection attempt, so a deliberate Disconnect can never be
// resurrected by a racing timer.
type Client struct {
	ctx    context.Context
	url    string
	userID string
	dialer Dialer
	bus    *events.Bus
	logger *zap.Logger

	maxAttempts int
	baseDelay   time.Duration

	// afterFunc is swapped in tests to observe and drive the backoff timer.
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu              sync.Mutex
	state           State
	conn            Conn
	attempts        int
	shouldReconnect bool
	reconnectTimer  *time.Timer
	gen             int
}

func New(ctx context.Context, serverURL, userID string, bus *events.Bus, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		ctx:         ctx,
		url:         serverURL,
		userID:      userID,
		dialer:      NewWebsocketDialer(),
		bus:         bus,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		afterFunc:   time.AfterFunc,
		state:       StateDisconnected,
	}
}

// SetDialer replaces the connection dialer. Must be called before Connect.
func (c *Client) SetDialer(d Dialer) {
	c.dialer = d
}

// Connect starts the connection attempt. Calling it while already connecting
// or connected is a no-op; calling it after GivenUp resets the attempt budget
// and starts over.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnecting || c.state == StateConnected {
		c.logger.Debug("connect ignored", zap.String("state", string(c.state)))
		return
	}

	c.shouldReconnect = true
	c.attempts = 0
	c.startConnectLocked()
}

// Disconnect is the manual stop: it disables reconnection, cancels any armed
// reconnect timer, and closes the socket.
func (c *Client) Disconnect() {
	c.mu.Lock()

	c.shouldReconnect = false
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}

	// Invalidate in-flight dials, read loops and timers.
	c.gen++

	conn := c.conn
	c.conn = nil
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected

	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if wasConnected {
		c.bus.Publish(events.Disconnected{})
	}

	c.logger.Info("alert transport stopped")
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the client currently holds an open connection.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// ConnectionStatus returns the state together with the reconnect attempt count.
func (c *Client) ConnectionStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Attempts: c.attempts}
}

func (c *Client) startConnectLocked() {
	c.state = StateConnecting
	c.gen++
	gen := c.gen

	go c.dial(gen)
}

func (c *Client) dial(gen int) {
	conn, err := c.dialer.Dial(c.ctx, c.buildURL())

	c.mu.Lock()

	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.logger.Warn("connecting to alert server failed", zap.Error(err))
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info("connected to alert server", zap.String("user_id", c.userID))
	c.bus.Publish(events.Connected{})

	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleClose(gen int, cause error) {
	c.mu.Lock()

	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	c.logger.Info("alert server connection closed", zap.Error(cause))

	c.conn = nil
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	c.bus.Publish(events.Disconnected{})
}

// scheduleReconnectLocked decides what follows a failed or closed connection.
// Caller holds the mutex.
func (c *Client) scheduleReconnectLocked() {
	if !c.shouldReconnect {
		c.state = StateDisconnected
		return
	}

	if c.attempts >= c.maxAttempts {
		c.state = StateGivenUp
		c.logger.Warn("giving up on reconnecting", zap.Int("attempts", c.attempts))
		return
	}

	c.attempts++
	delay := c.baseDelay << (c.attempts - 1)
	c.state = StateReconnectScheduled
	gen := c.gen

	c.logger.Info("reconnect scheduled",
		zap.Duration("delay", delay),
		zap.Int("attempt", c.attempts),
	)

	c.reconnectTimer = c.afterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen || !c.shouldReconnect || c.state != StateReconnectScheduled {
			return
		}

		c.reconnectTimer = nil
		c.startConnectLocked()
	})
}

func (c *Client) handleFrame(data []byte) {
	var f inboundFrame
	if err := unmarshalFrame(data, &f); err != nil {
		c.logger.Warn("dropping undecodable frame", zap.Error(err))
		return
	}

	if f.Type == msgPing {
		c.Send(msgPong, nil)
		return
	}

	event, err := decodeEvent(&f)
	if err != nil {
		c.logger.Warn("dropping frame",
			zap.String("type", f.Type),
			zap.Error(err),
		)
		return
	}

	c.bus.Publish(event)
}

// Send marshals and writes an outbound frame. When the transport is not
// connected the message is dropped with a warning instead of an error, so
// call sites never have to track connection state themselves.
func (c *Client) Send(msgType string, payload any) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Warn("not connected, dropping outbound message", zap.String("type", msgType))
		return
	}

	data, err := encodeFrame(msgType, payload)
	if err != nil {
		c.logger.Error("encoding outbound message", zap.String("type", msgType), zap.Error(err))
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Error("writing outbound message", zap.String("type", msgType), zap.Error(err))
	}
}

// SubscribeGigAlerts registers the user's alert subscription on the server.
func (c *Client) SubscribeGigAlerts(userID string, prefs gig.SubscriptionPreferences) {
	c.Send(msgSubscribe, subscriptionPayload{UserID: userID, Preferences: prefs})
}

// UnsubscribeGigAlerts removes the user's alert subscription.
func (c *Client) UnsubscribeGigAlerts(userID string) {
	c.Send(msgUnsubscribe, unsubscribePayload{UserID: userID})
}

// UpdateGigAlertPreferences replaces the server-side subscription filter.
func (c *Client) UpdateGigAlertPreferences(userID string, prefs gig.SubscriptionPreferences) {
	c.Send(msgUpdate, subscriptionPayload{UserID: userID, Preferences: prefs})
}

func (c *Client) buildURL() string {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Sprintf("%s?userId=%s", c.url, url.QueryEscape(c.userID))
	}

	q := u.Query()
	q.Set("userId", c.userID)
	u.RawQuery = q.Encode()

	return u.String()
}
