package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/keepmind9/slackline/internal/driver"
	"github.com/keepmind9/slackline/internal/logger"
	"github.com/sirupsen/logrus"
)

// DriverName identifies the webhook driver to the host framework.
const DriverName = "Slack"

// Config is the driver configuration surface.
type Config struct {
	// Token is the bot token used for token-authenticated API calls
	Token string

	// BaseURL overrides the platform API root for API-compatible backends
	BaseURL string
}

// Driver is the webhook driver: one HTTP request in, one reply out.
//
// Per-request state (the classified inbound body, the chosen reply mode and
// the normalized messages) is rebuilt by each BuildPayload call; the host
// drives one request at a time. The lazily resolved bot identity is the only
// state kept across requests and is guarded by its own mutex.
type Driver struct {
	api   WebAPI
	token string

	inbound  *Inbound
	mode     ResultMode
	messages []driver.IncomingMessage

	identityMu sync.Mutex
	botID      string
	botUserID  string
}

// NewDriver builds a webhook driver. A nil api gets the default Web API
// client for the configured base URL.
func NewDriver(cfg Config, api WebAPI) *Driver {
	if api == nil {
		api = NewClient(cfg.Token, cfg.BaseURL)
	}
	return &Driver{api: api, token: cfg.Token}
}

// GetName returns the driver name used for registration and logging.
func (d *Driver) GetName() string {
	return DriverName
}

// IsConfigured reports whether a bot token is configured.
func (d *Driver) IsConfigured() bool {
	return d.token != ""
}

// BuildPayload classifies one inbound webhook request and resets the
// per-request state. Events API requests trigger the one-time bot identity
// resolution once a token is configured.
func (d *Driver) BuildPayload(r *http.Request) error {
	d.inbound = Classify(r)
	d.mode = ResultJSON
	d.messages = nil

	logger.WithFields(logrus.Fields{
		"kind": d.inbound.Kind.String(),
	}).Debug("slack-webhook-request-classified")

	if d.inbound.Kind == KindEventsAPI && d.token != "" && d.BotID() == "" {
		d.resolveBotIdentity()
	}
	return nil
}

// MatchesRequest reports whether the classifier produced something this
// driver recognizes: a sender, a team domain or a bot id.
func (d *Driver) MatchesRequest() bool {
	if d.inbound == nil {
		return false
	}
	event := d.inbound.Event
	return stringField(event, "user") != "" ||
		stringField(event, "team_domain") != "" ||
		stringField(event, "bot_id") != ""
}

// VerifyRequest answers the platform's url_verification handshake. It
// restores the request body so a later BuildPayload can still read it.
func (d *Driver) VerifyRequest(r *http.Request) (string, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", false
	}
	restoreBody(r, body)

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	if stringField(payload, "type") != "url_verification" {
		return "", false
	}
	return stringField(payload, "challenge"), true
}

// GetMessages returns exactly one normalized message for the current
// request.
func (d *Driver) GetMessages() []driver.IncomingMessage {
	if d.messages == nil {
		d.loadMessages()
	}
	return d.messages
}

func (d *Driver) loadMessages() {
	if d.inbound == nil {
		d.messages = []driver.IncomingMessage{}
		return
	}
	event := d.inbound.Event

	text := ""
	if d.inbound.Kind != KindInteractiveAction {
		text = stringField(event, "text")
		if command := stringField(event, "command"); command != "" {
			text = command + " " + text
		}
	}

	sender := stringField(event, "user")
	if userID := stringField(event, "user_id"); userID != "" {
		sender = userID
	}

	recipient := stringField(event, "channel")
	if channelID := stringField(event, "channel_id"); channelID != "" {
		recipient = channelID
	}

	message := driver.NewIncomingMessage(text, sender, recipient, event)
	message.FromBot = d.isBot(event)

	d.messages = []driver.IncomingMessage{message}
}

func (d *Driver) isBot(event map[string]interface{}) bool {
	botID := stringField(event, "bot_id")
	return botID != "" && botID == d.BotID()
}

// GetConversationAnswer extracts the answer from either the interactive
// callback payload or the plain event text.
func (d *Driver) GetConversationAnswer(message driver.IncomingMessage) driver.Answer {
	if d.inbound != nil && d.inbound.Kind == KindInteractiveAction {
		return d.interactiveAnswer(message)
	}

	text := stringField(message.Payload, "text")
	return driver.Answer{Text: text, Value: text, Message: &message}
}

func (d *Driver) interactiveAnswer(message driver.IncomingMessage) driver.Answer {
	payload := d.inbound.Payload
	answer := driver.Answer{
		Interactive: true,
		CallbackID:  stringField(payload, "callback_id"),
		Message:     &message,
	}

	if stringField(payload, "type") == TypeDialogSubmission {
		answer.Text = TypeDialogSubmission
		answer.Value, _ = payload["submission"].(map[string]interface{})
		return answer
	}

	actions, _ := payload["actions"].([]interface{})
	if len(actions) == 0 {
		return answer
	}
	action, _ := actions[0].(map[string]interface{})

	answer.Text = stringField(action, "name")
	if stringField(action, "type") == "select" {
		answer.Value = action["selected_options"]
	} else {
		answer.Value = action["value"]
	}
	return answer
}

// BuildServicePayload converts an outgoing message into the wire payload,
// choosing token mode when the matching message arrived via the token-based
// API flow and inline JSON mode for webhook form posts.
func (d *Driver) BuildServicePayload(message interface{}, matching *driver.IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error) {
	if stringField(matching.Payload, "team_domain") == "" {
		d.mode = ResultToken
		return d.replyWithToken(message, matching, extra)
	}

	d.mode = ResultJSON
	params := mergeParams(map[string]interface{}{}, extra)
	if err := applyMessageFields(params, message); err != nil {
		return nil, err
	}
	return params, nil
}

// replyWithToken builds the chat.postMessage payload. The configured driver
// token always wins: it is written last, after the base payload and any
// caller-supplied parameters.
func (d *Driver) replyWithToken(message interface{}, matching *driver.IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error) {
	requestToken := ""
	if d.inbound != nil {
		requestToken = stringField(d.inbound.Payload, "token")
	}

	params := mergeParams(map[string]interface{}{
		"as_user": true,
		"token":   requestToken,
		"channel": matching.Target(),
	}, extra)

	if err := applyMessageFields(params, message); err != nil {
		return nil, err
	}

	params["token"] = d.token
	return params, nil
}

// SendPayload delivers a built payload. Token and dialog modes POST to the
// platform API; JSON mode returns the serialized payload as the synchronous
// webhook response body.
func (d *Driver) SendPayload(ctx context.Context, payload map[string]interface{}) (*driver.Response, error) {
	switch d.mode {
	case ResultToken:
		return d.post(ctx, "chat.postMessage", payload)
	case ResultDialog:
		return d.post(ctx, "dialog.open", payload)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode json response: %w", err)
	}
	return &driver.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func (d *Driver) post(ctx context.Context, method string, payload map[string]interface{}) (*driver.Response, error) {
	response, err := d.api.Call(ctx, method, payload)
	if err != nil {
		return nil, err
	}
	body, _ := json.Marshal(response)
	return &driver.Response{StatusCode: http.StatusOK, Body: body}, nil
}

// ReplyDialog builds and stages a dialog.open payload for the interactive
// trigger that produced the matching message.
func (d *Driver) ReplyDialog(dialog *Dialog, matching *driver.IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error) {
	encoded, err := dialog.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode dialog: %w", err)
	}

	triggerID := ""
	if d.inbound != nil {
		triggerID = stringField(d.inbound.Payload, "trigger_id")
	}

	d.mode = ResultDialog
	return map[string]interface{}{
		"trigger_id": triggerID,
		"channel":    matching.Target(),
		"token":      d.token,
		"dialog":     encoded,
	}, nil
}

// ReplyInThread builds a payload answering in the matching message's thread,
// falling back to the message's own timestamp when it started the thread.
func (d *Driver) ReplyInThread(message interface{}, matching *driver.IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error) {
	extra = mergeParams(map[string]interface{}{}, extra)
	if threadTS := stringField(matching.Payload, "thread_ts"); threadTS != "" {
		extra["thread_ts"] = threadTS
	} else {
		extra["thread_ts"] = stringField(matching.Payload, "ts")
	}
	return d.BuildServicePayload(message, matching, extra)
}

// GetUser resolves the sender's profile via users.info, degrading to a
// minimal record carrying only the sender id on any failure.
func (d *Driver) GetUser(matching *driver.IncomingMessage) driver.User {
	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()

	response, err := d.SendRequest(ctx, "users.info", map[string]interface{}{
		"user": matching.Sender,
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"user":  matching.Sender,
			"error": err,
		}).Warn("slack-user-info-lookup-failed")
		return NewUserRecord(map[string]interface{}{"id": matching.Sender})
	}

	user, _ := response["user"].(map[string]interface{})
	if user == nil {
		return NewUserRecord(map[string]interface{}{"id": matching.Sender})
	}
	return NewUserRecord(user)
}

// SendRequest performs a driver-specific API request, filling in the
// configured token when the caller did not supply one.
func (d *Driver) SendRequest(ctx context.Context, endpoint string, params map[string]interface{}) (map[string]interface{}, error) {
	merged := mergeParams(map[string]interface{}{"token": d.token}, params)
	return d.api.Call(ctx, endpoint, merged)
}

// Mode returns the reply strategy chosen by the last payload build.
func (d *Driver) Mode() ResultMode {
	return d.mode
}

// BotID returns the cached bot account id, empty until resolution succeeds.
func (d *Driver) BotID() string {
	d.identityMu.Lock()
	defer d.identityMu.Unlock()
	return d.botID
}

// BotUserID returns the cached authenticated user id, empty until
// resolution succeeds.
func (d *Driver) BotUserID() string {
	d.identityMu.Lock()
	defer d.identityMu.Unlock()
	return d.botUserID
}

// resolveBotIdentity performs the one-time auth.test plus users.info lookup
// that maps the configured token to a bot account id. Failure leaves the
// identity unset, so messages are never classified as from-bot via this
// path.
func (d *Driver) resolveBotIdentity() {
	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()

	auth, err := d.api.Call(ctx, "auth.test", map[string]interface{}{"token": d.token})
	if err != nil {
		logger.WithField("error", err).Warn("slack-auth-test-failed")
		return
	}
	userID := stringField(auth, "user_id")
	if userID == "" {
		return
	}

	d.identityMu.Lock()
	d.botUserID = userID
	d.identityMu.Unlock()

	response, err := d.api.Call(ctx, "users.info", map[string]interface{}{
		"user":  userID,
		"token": d.token,
	})
	if err != nil {
		logger.WithField("error", err).Warn("slack-bot-user-lookup-failed")
		return
	}

	user := NewUserRecord(mapField(response, "user"))
	if !user.IsBot() {
		return
	}

	d.identityMu.Lock()
	d.botID = user.BotID()
	d.identityMu.Unlock()

	logger.WithFields(logrus.Fields{
		"bot_user_id": userID,
		"bot_id":      user.BotID(),
	}).Info("slack-bot-identity-resolved")
}

func mapField(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

// restoreBody puts a consumed request body back so it can be read again.
func restoreBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
}
