package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrAuthFailed means the feed rejected our credentials. This is fatal: the
// caller should exit rather than reconnect.
var ErrAuthFailed = errors.New("websocket authentication failed")

const authTimeout = 10 * time.Second

// Client is a client for the upstream market data WebSocket feed. It owns a
// single connection and speaks the feed's authenticate/subscribe protocol.
type Client struct {
	url     string
	key     string
	secret  string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewClient creates a new WebSocket client
func NewClient(url, key, secret string) *Client {
	return &Client{
		url:    url,
		key:    key,
		secret: secret,
	}
}

// Connect dials the feed and authenticates. It returns ErrAuthFailed when the
// feed answers the auth frame with an error; any other failure is transient
// and the caller may retry.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	c.conn = conn
	log.Printf("✅ Connected to %s", c.url)

	if err := c.authenticate(); err != nil {
		conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// authenticate sends the auth frame and waits for the "authenticated"
// confirmation. The feed sends a "connected" success frame first; anything
// else before the confirmation is skipped.
func (c *Client) authenticate() error {
	auth := map[string]string{
		"action": "auth",
		"key":    c.key,
		"secret": c.secret,
	}
	if err := c.writeJSON(auth); err != nil {
		return fmt.Errorf("failed to send auth: %w", err)
	}

	deadline := time.Now().Add(authTimeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	for time.Now().Before(deadline) {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read during auth: %w", err)
		}
		messages, err := DecodeFrames(data)
		if err != nil {
			continue
		}
		for _, msg := range messages {
			if msg.Control == nil {
				continue
			}
			switch {
			case msg.Control.Type == frameTypeSuccess && msg.Control.Msg == "authenticated":
				log.Println("✅ Feed authentication successful")
				return nil
			case msg.Control.Type == frameTypeError:
				return fmt.Errorf("%w: %s (code %d)", ErrAuthFailed, msg.Control.Msg, msg.Control.Code)
			}
		}
	}
	return fmt.Errorf("%w: no confirmation before deadline", ErrAuthFailed)
}

// Subscribe asks the feed for trades and bars on the given symbols.
func (c *Client) Subscribe(tradeSymbols, barSymbols []string) error {
	sub := map[string]interface{}{
		"action": "subscribe",
		"trades": tradeSymbols,
		"bars":   barSymbols,
	}
	if err := c.writeJSON(sub); err != nil {
		return fmt.Errorf("failed to send subscription: %w", err)
	}
	log.Printf("📡 Subscribed: %d trade symbols, %d bar symbols", len(tradeSymbols), len(barSymbols))
	return nil
}

// ReadMessages reads one WebSocket payload and decodes its frames.
func (c *Client) ReadMessages() ([]Message, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("connection is nil")
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return DecodeFrames(data)
}

// writeJSON sends a JSON text frame thread-safely
func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("connection is nil")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
