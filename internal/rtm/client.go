// Package rtm implements the realtime transport: one long-lived websocket
// connection delivering a stream of (type, data) event frames, plus the
// connection-level calls the realtime driver needs (typing indicator,
// connection check, file upload, API calls).
//
// Frames are delivered on a channel and handled serially by the consumer;
// the client never invokes callbacks concurrently.
package rtm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/keepmind9/slackline/internal/logger"
)

const (
	handshakeTimeout = 15 * time.Second
	writeTimeout     = 10 * time.Second
	frameBuffer      = 16
)

// WebCaller is the REST surface the realtime client uses for the connection
// handshake and API-backed calls.
type WebCaller interface {
	Call(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error)
	UploadFile(ctx context.Context, title, path, initialComment, channel string) (map[string]interface{}, error)
}

// Frame is one inbound realtime event.
type Frame struct {
	Type string
	Data map[string]interface{}
}

// FileUpload describes one staged file upload.
type FileUpload struct {
	Title          string
	Path           string
	InitialComment string
}

// Client owns one realtime connection.
//
// Connect performs the rtm.connect handshake and starts the read loop; the
// loop runs until the connection drops or Close is called, then closes the
// frame channel. Reconnecting is the caller's responsibility; CheckConnection
// only detects a dead connection, it does not repair it.
type Client struct {
	token string
	web   WebCaller

	writeMu sync.Mutex
	conn    *websocket.Conn
	msgID   int64

	mu     sync.Mutex
	selfID string

	frames chan Frame
	done   chan struct{}
}

// NewClient builds a realtime client on top of the given Web API caller.
func NewClient(token string, web WebCaller) *Client {
	return &Client{
		token:  token,
		web:    web,
		frames: make(chan Frame, frameBuffer),
		done:   make(chan struct{}),
	}
}

// Connect performs the rtm.connect handshake, dials the returned websocket
// URL and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	response, err := c.web.Call(ctx, "rtm.connect", map[string]interface{}{"token": c.token})
	if err != nil {
		return fmt.Errorf("rtm connect: %w", err)
	}

	wsURL, _ := response["url"].(string)
	if wsURL == "" {
		return fmt.Errorf("rtm connect: response carried no websocket url")
	}

	if self, ok := response["self"].(map[string]interface{}); ok {
		if id, ok := self["id"].(string); ok {
			c.mu.Lock()
			c.selfID = id
			c.mu.Unlock()
		}
	}

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("rtm dial: %w", err)
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	logger.WithField("self_id", c.SelfID()).Info("rtm-connection-established")

	go c.readLoop(conn)
	return nil
}

// Frames returns the inbound frame channel. It is closed when the
// connection drops or the client is closed.
func (c *Client) Frames() <-chan Frame {
	return c.frames
}

// SelfID returns the authenticated user id from the connection handshake.
func (c *Client) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.frames)

	for {
		var data map[string]interface{}
		if err := conn.ReadJSON(&data); err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.WithField("error", err).Error("rtm-read-failed")
				} else {
					logger.Info("rtm-connection-closed")
				}
			}
			return
		}

		frameType, _ := data["type"].(string)
		// Untyped frames are delivery acks for our own writes; pongs answer
		// CheckConnection pings. Neither is an event.
		if frameType == "" || frameType == "pong" {
			continue
		}

		select {
		case c.frames <- Frame{Type: frameType, Data: data}:
		case <-c.done:
			return
		}
	}
}

// APICall performs a Web API call on behalf of the realtime driver, filling
// in the connection token when absent.
func (c *Client) APICall(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	merged := map[string]interface{}{"token": c.token}
	for key, value := range params {
		merged[key] = value
	}
	return c.web.Call(ctx, method, merged)
}

// Upload delivers a staged file upload to the channel.
func (c *Client) Upload(ctx context.Context, upload FileUpload, channel string) (map[string]interface{}, error) {
	return c.web.UploadFile(ctx, upload.Title, upload.Path, upload.InitialComment, channel)
}

// Typing sends a typing indicator frame for the channel.
func (c *Client) Typing(channel string) error {
	return c.writeFrame(map[string]interface{}{
		"type":    "typing",
		"channel": channel,
	})
}

// CheckConnection sends a ping frame. A dead connection surfaces as a write
// error here and as a closed frame channel in the read loop.
func (c *Client) CheckConnection() error {
	return c.writeFrame(map[string]interface{}{"type": "ping"})
}

func (c *Client) writeFrame(frame map[string]interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("rtm: not connected")
	}

	frame["id"] = atomic.AddInt64(&c.msgID, 1)
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// GetUserByID fetches one user record via users.info.
func (c *Client) GetUserByID(ctx context.Context, userID string) (map[string]interface{}, error) {
	response, err := c.APICall(ctx, "users.info", map[string]interface{}{"user": userID})
	if err != nil {
		return nil, err
	}
	user, _ := response["user"].(map[string]interface{})
	if user == nil {
		return nil, fmt.Errorf("users.info: response carried no user")
	}
	return user, nil
}

// ResolveConversation resolves a channel, group or DM id to its conversation
// record.
func (c *Client) ResolveConversation(ctx context.Context, id string) (map[string]interface{}, error) {
	response, err := c.APICall(ctx, "conversations.info", map[string]interface{}{"channel": id})
	if err != nil {
		return nil, err
	}
	channel, _ := response["channel"].(map[string]interface{})
	if channel == nil {
		return nil, fmt.Errorf("conversations.info: response carried no channel")
	}
	return channel, nil
}

// Close tears the connection down and stops the read loop.
func (c *Client) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}

	c.writeMu.Lock()
	conn := c.conn
	c.conn = nil
	c.writeMu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			return err
		}
		logger.Info("rtm-connection-stopped")
	}
	return nil
}
