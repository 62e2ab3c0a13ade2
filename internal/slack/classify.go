// Package slack implements the Slack drivers for the chatbot host framework:
// a stateless webhook driver fed by HTTP events and a stateful realtime
// driver fed by RTM websocket frames. Both normalize platform payloads into
// the driver package's message model and translate framework replies back
// into Slack API calls.
package slack

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// RequestKind is the closed set of inbound webhook body shapes.
type RequestKind int

const (
	// KindUnknown marks a body that parsed to nothing recognizable
	KindUnknown RequestKind = iota

	// KindInteractiveAction is a callback payload from a button, menu or
	// dialog interaction, delivered as a form field named "payload"
	KindInteractiveAction

	// KindLegacyForm is a classic outgoing-webhook or slash-command form
	// post, recognized by its team_domain field
	KindLegacyForm

	// KindEventsAPI is an Events API JSON body wrapping an "event" object
	KindEventsAPI
)

// String returns the kind name for logging.
func (k RequestKind) String() string {
	switch k {
	case KindInteractiveAction:
		return "interactive_action"
	case KindLegacyForm:
		return "legacy_form"
	case KindEventsAPI:
		return "events_api"
	}
	return "unknown"
}

// Inbound is one classified webhook body.
//
// Payload is the structured source the classification produced: the parsed
// interactive callback, the flattened form fields, or the full Events API
// body. Event is the normalized event map all downstream queries operate on.
type Inbound struct {
	Kind    RequestKind
	Payload map[string]interface{}
	Event   map[string]interface{}
}

// Classify reads and classifies one webhook request body.
//
// The interactive-action check runs first: interactive payloads are also
// form-encoded and may carry other recognizable fields, so field order is
// significant.
func Classify(r *http.Request) *Inbound {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return &Inbound{Kind: KindUnknown, Payload: map[string]interface{}{}, Event: map[string]interface{}{}}
	}
	return ClassifyBody(body)
}

// ClassifyBody classifies a raw webhook body into one of the three inbound
// shapes. Unparseable bodies fall through to an empty Events API event so the
// driver's MatchesRequest reports false instead of failing.
func ClassifyBody(body []byte) *Inbound {
	if form, err := url.ParseQuery(string(body)); err == nil {
		if raw := form.Get("payload"); raw != "" {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &payload); err == nil {
				return &Inbound{
					Kind:    KindInteractiveAction,
					Payload: payload,
					Event: map[string]interface{}{
						"channel": nestedID(payload, "channel"),
						"user":    nestedID(payload, "user"),
					},
				}
			}
		}

		if form.Get("team_domain") != "" {
			fields := flattenForm(form)
			return &Inbound{Kind: KindLegacyForm, Payload: fields, Event: fields}
		}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		payload = map[string]interface{}{}
	}

	event, _ := payload["event"].(map[string]interface{})
	if event == nil {
		event = map[string]interface{}{}
	}

	return &Inbound{Kind: KindEventsAPI, Payload: payload, Event: event}
}

// nestedID extracts payload[key]["id"] from an interactive callback.
func nestedID(payload map[string]interface{}, key string) string {
	obj, _ := payload[key].(map[string]interface{})
	id, _ := obj["id"].(string)
	return id
}

// flattenForm keeps the first value of each form field.
func flattenForm(form url.Values) map[string]interface{} {
	fields := make(map[string]interface{}, len(form))
	for key := range form {
		fields[key] = form.Get(key)
	}
	return fields
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}
