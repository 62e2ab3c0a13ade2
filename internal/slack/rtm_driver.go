package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/keepmind9/slackline/internal/driver"
	"github.com/keepmind9/slackline/internal/logger"
	"github.com/keepmind9/slackline/internal/rtm"
	"github.com/sirupsen/logrus"
)

// RTMDriverName identifies the realtime driver to the host framework.
const RTMDriverName = "SlackRTM"

const typingResolveTimeout = 2 * time.Second

// RealtimeClient is the connection surface the realtime driver drives.
// *rtm.Client implements it; tests substitute a mock.
type RealtimeClient interface {
	Frames() <-chan rtm.Frame
	SelfID() string
	APICall(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error)
	Upload(ctx context.Context, upload rtm.FileUpload, channel string) (map[string]interface{}, error)
	Typing(channel string) error
	GetUserByID(ctx context.Context, userID string) (map[string]interface{}, error)
	ResolveConversation(ctx context.Context, id string) (map[string]interface{}, error)
}

// RTMDriver is the realtime driver. It consumes frames from the realtime
// client one at a time and exposes the same normalized query surface as the
// webhook driver.
//
// Per-cycle state (the current frame's event, messages and pending platform
// event) is rebuilt by each processed frame. Run handles frames serially, so
// a handler always observes the snapshot of the frame that invoked it.
type RTMDriver struct {
	client RealtimeClient
	token  string

	event        map[string]interface{}
	messages     []driver.IncomingMessage
	pendingEvent *driver.GenericEvent

	pendingUpload *rtm.FileUpload
	mode          ResultMode

	identityMu sync.Mutex
	botID      string
	botUserID  string
}

// NewRTMDriver builds a realtime driver on top of a connected (or
// connecting) realtime client.
func NewRTMDriver(cfg Config, client RealtimeClient) *RTMDriver {
	return &RTMDriver{
		client: client,
		token:  cfg.Token,
		event:  map[string]interface{}{},
	}
}

// Run consumes frames until the context is canceled or the connection
// closes. For each frame it rebuilds the driver's per-cycle state and then
// invokes handler, mirroring the host framework's listen loop.
//
// The hello frame marks handshake completion and triggers identity
// resolution before regular handling.
func (d *RTMDriver) Run(ctx context.Context, handler func(*RTMDriver)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-d.client.Frames():
			if !ok {
				logger.Info("rtm-frame-stream-ended")
				return nil
			}
			d.process(frame)
			if handler != nil {
				handler(d)
			}
		}
	}
}

// process installs one frame as the current event cycle.
func (d *RTMDriver) process(frame rtm.Frame) {
	if frame.Type == "hello" {
		d.Connected()
	}

	d.event = frame.Data
	d.messages = nil
	d.pendingUpload = nil

	if frame.Type != "message" {
		d.pendingEvent = &driver.GenericEvent{Name: frame.Type, Payload: frame.Data}
	} else {
		d.pendingEvent = nil
	}
}

// Connected resolves the authenticated identity in the background. The
// result is published under a mutex; BotID and BotUserID are best-effort and
// may return empty until resolution completes.
func (d *RTMDriver) Connected() {
	selfID := d.client.SelfID()
	if selfID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()

		raw, err := d.client.GetUserByID(ctx, selfID)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"self_id": selfID,
				"error":   err,
			}).Warn("rtm-identity-resolution-failed")
			return
		}

		user := NewUserRecord(raw)
		d.identityMu.Lock()
		d.botUserID = selfID
		if user.IsBot() {
			d.botID = user.BotID()
		}
		d.identityMu.Unlock()

		logger.WithFields(logrus.Fields{
			"bot_user_id": selfID,
			"bot_id":      user.BotID(),
		}).Info("rtm-identity-resolved")
	}()
}

// GetName returns the driver name used for registration and logging.
func (d *RTMDriver) GetName() string {
	return RTMDriverName
}

// IsConfigured reports whether a bot token is configured.
func (d *RTMDriver) IsConfigured() bool {
	return d.token != ""
}

// MatchesRequest is always false: this transport is event-driven, never
// request-driven.
func (d *RTMDriver) MatchesRequest() bool {
	return false
}

// SerializesCallbacks is always false: conversation continuations must not
// be persisted across process restarts, the in-memory connection state
// cannot be resumed from serialized form.
func (d *RTMDriver) SerializesCallbacks() bool {
	return false
}

// HasMatchingEvent returns the pending platform-level event for the current
// cycle. It is superseded by the next frame, not explicitly cleared.
func (d *RTMDriver) HasMatchingEvent() (*driver.GenericEvent, bool) {
	if d.pendingEvent == nil {
		return nil, false
	}
	return d.pendingEvent, true
}

// GetMessages returns the normalized messages for the current frame.
func (d *RTMDriver) GetMessages() []driver.IncomingMessage {
	if d.messages == nil {
		d.loadMessages()
	}
	return d.messages
}

func (d *RTMDriver) loadMessages() {
	sender := driver.UnwrapID(d.event["user"])
	recipient := driver.UnwrapID(d.event["channel"])

	if stringField(d.event, "subtype") == "file_share" {
		d.messages = []driver.IncomingMessage{d.fileShareMessage(sender, recipient)}
		return
	}

	message := driver.NewIncomingMessage(stringField(d.event, "text"), sender, recipient, d.event)
	message.FromBot = d.isBot()
	d.messages = []driver.IncomingMessage{message}
}

// fileShareMessage classifies a shared file by MIME prefix into the matching
// attachment kind. The message text becomes the kind's sentinel pattern
// instead of literal text.
func (d *RTMDriver) fileShareMessage(sender, recipient string) driver.IncomingMessage {
	file, _ := d.event["file"].(map[string]interface{})
	mimetype := stringField(file, "mimetype")
	permalink := stringField(file, "permalink")

	attachment := driver.Attachment{URL: permalink, Meta: file}

	var message driver.IncomingMessage
	switch {
	case strings.HasPrefix(mimetype, "image"):
		attachment.Kind = driver.AttachmentImage
		message = driver.NewIncomingMessage(driver.ImagePattern, sender, recipient, d.event)
		message.Images = []driver.Attachment{attachment}
	case strings.HasPrefix(mimetype, "audio"):
		attachment.Kind = driver.AttachmentAudio
		message = driver.NewIncomingMessage(driver.AudioPattern, sender, recipient, d.event)
		message.Audio = []driver.Attachment{attachment}
	case strings.HasPrefix(mimetype, "video"):
		attachment.Kind = driver.AttachmentVideo
		message = driver.NewIncomingMessage(driver.VideoPattern, sender, recipient, d.event)
		message.Videos = []driver.Attachment{attachment}
	default:
		attachment.Kind = driver.AttachmentFile
		message = driver.NewIncomingMessage(driver.FilePattern, sender, recipient, d.event)
		message.Files = []driver.Attachment{attachment}
	}

	message.FromBot = d.isBot()
	return message
}

func (d *RTMDriver) isBot() bool {
	botID := stringField(d.event, "bot_id")
	return botID != "" && botID == d.BotID()
}

// GetConversationAnswer returns the current event's text as the answer.
func (d *RTMDriver) GetConversationAnswer(message driver.IncomingMessage) driver.Answer {
	text := stringField(d.event, "text")
	return driver.Answer{Text: text, Value: text, Message: &message}
}

// BuildServicePayload converts an outgoing message into the realtime wire
// payload. A file attachment resolving to an existing local path switches to
// file-upload mode: the staged descriptor carries the bytes' location and
// the returned payload only carries the channel target.
func (d *RTMDriver) BuildServicePayload(message interface{}, matching *driver.IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error) {
	params := mergeParams(map[string]interface{}{
		"channel": matching.Target(),
		"as_user": true,
	}, extra)

	d.pendingUpload = nil
	d.mode = ResultToken

	switch msg := message.(type) {
	case string:
		params["text"] = msg

	case *driver.Question:
		params["text"] = ""
		params["attachments"] = encodeAttachments([]interface{}{convertQuestion(msg)})

	case *driver.OutgoingMessage:
		params["text"] = msg.Text
		if msg.Attachment == nil {
			break
		}
		switch {
		case msg.Attachment.Kind == driver.AttachmentImage:
			params["attachments"] = encodeAttachments([]interface{}{
				map[string]interface{}{
					"title":     msg.Text,
					"image_url": msg.Attachment.URL,
				},
			})
		case msg.Attachment.Kind == driver.AttachmentFile && fileExists(msg.Attachment.URL):
			d.pendingUpload = &rtm.FileUpload{
				Title:          filepath.Base(msg.Attachment.URL),
				Path:           msg.Attachment.URL,
				InitialComment: msg.Text,
			}
			d.mode = ResultFileUpload
			return map[string]interface{}{"channel": matching.Target()}, nil
		}

	default:
		if err := applyMessageFields(params, message); err != nil {
			return nil, err
		}
	}

	return params, nil
}

// SendPayload delivers a built payload: staged uploads go through the file
// upload call, everything else through chat.postMessage. The driver handles
// success and failure itself rather than relying on connection-level
// defaults.
func (d *RTMDriver) SendPayload(ctx context.Context, payload map[string]interface{}) (*driver.Response, error) {
	if d.mode == ResultFileUpload && d.pendingUpload != nil {
		upload := *d.pendingUpload
		d.pendingUpload = nil
		response, err := d.client.Upload(ctx, upload, stringField(payload, "channel"))
		if err != nil {
			return nil, err
		}
		return wrapResponse(response), nil
	}

	response, err := d.client.APICall(ctx, "chat.postMessage", payload)
	if err != nil {
		return nil, err
	}
	return wrapResponse(response), nil
}

// ReplyInThread builds a payload answering in the matching message's thread,
// falling back to the message's own timestamp when it started the thread.
func (d *RTMDriver) ReplyInThread(message interface{}, matching *driver.IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error) {
	extra = mergeParams(map[string]interface{}{}, extra)
	if threadTS := stringField(matching.Payload, "thread_ts"); threadTS != "" {
		extra["thread_ts"] = threadTS
	} else {
		extra["thread_ts"] = stringField(matching.Payload, "ts")
	}
	return d.BuildServicePayload(message, matching, extra)
}

// Types sends a typing indicator for the matching message's conversation.
// Best effort: the target is resolved with a short timeout and the indicator
// is dropped with a debug log when resolution fails.
func (d *RTMDriver) Types(matching *driver.IncomingMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), typingResolveTimeout)
	defer cancel()

	conversation, err := d.client.ResolveConversation(ctx, matching.Target())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"channel": matching.Target(),
			"error":   err,
		}).Debug("rtm-typing-target-resolution-failed")
		return
	}

	if err := d.client.Typing(stringField(conversation, "id")); err != nil {
		logger.WithField("error", err).Debug("rtm-typing-indicator-failed")
	}
}

// GetUser resolves the sender's profile, degrading to a minimal record
// carrying only the sender id on any failure.
func (d *RTMDriver) GetUser(matching *driver.IncomingMessage) driver.User {
	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()

	raw, err := d.client.GetUserByID(ctx, matching.Sender)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"user":  matching.Sender,
			"error": err,
		}).Warn("rtm-user-info-lookup-failed")
		return NewUserRecord(map[string]interface{}{"id": matching.Sender})
	}
	return NewUserRecord(raw)
}

// GetChannel resolves the matching message's conversation record.
func (d *RTMDriver) GetChannel(ctx context.Context, matching *driver.IncomingMessage) (map[string]interface{}, error) {
	return d.client.ResolveConversation(ctx, matching.Target())
}

// SendRequest performs a driver-specific API request over the realtime
// client.
func (d *RTMDriver) SendRequest(ctx context.Context, endpoint string, params map[string]interface{}) (map[string]interface{}, error) {
	return d.client.APICall(ctx, endpoint, params)
}

// Client returns the underlying realtime client.
func (d *RTMDriver) Client() RealtimeClient {
	return d.client
}

// BotID returns the resolved bot account id, empty until identity
// resolution completes.
func (d *RTMDriver) BotID() string {
	d.identityMu.Lock()
	defer d.identityMu.Unlock()
	return d.botID
}

// BotUserID returns the authenticated user id, empty until identity
// resolution completes.
func (d *RTMDriver) BotUserID() string {
	d.identityMu.Lock()
	defer d.identityMu.Unlock()
	return d.botUserID
}

func wrapResponse(response map[string]interface{}) *driver.Response {
	body, _ := json.Marshal(response)
	return &driver.Response{StatusCode: http.StatusOK, Body: body}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
