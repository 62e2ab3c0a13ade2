package slack

import (
	"encoding/json"
	"fmt"

	"github.com/keepmind9/slackline/internal/driver"
)

// ResultMode selects the reply strategy for a built payload.
type ResultMode int

const (
	// ResultJSON serializes the payload as the synchronous webhook response
	ResultJSON ResultMode = iota

	// ResultToken POSTs the payload to chat.postMessage with the driver token
	ResultToken

	// ResultDialog POSTs the payload to dialog.open
	ResultDialog

	// ResultFileUpload delivers the staged file via the upload call; the
	// payload itself only carries the channel target
	ResultFileUpload
)

// String returns the mode name for logging.
func (m ResultMode) String() string {
	switch m {
	case ResultToken:
		return "token"
	case ResultDialog:
		return "dialog"
	case ResultFileUpload:
		return "file_upload"
	}
	return "json"
}

// applyMessageFields maps a framework outgoing message onto the payload
// fields shared by every reply mode: plain strings become text, questions
// become text plus a serialized attachments array, image attachments become
// an attachments entry with title and image_url.
func applyMessageFields(params map[string]interface{}, message interface{}) error {
	switch msg := message.(type) {
	case string:
		params["text"] = msg

	case *driver.Question:
		if _, ok := params["text"]; !ok {
			params["text"] = msg.Text
		}
		if _, ok := params["attachments"]; !ok {
			params["attachments"] = encodeAttachments([]interface{}{convertQuestion(msg)})
		}

	case *driver.OutgoingMessage:
		params["text"] = msg.Text
		if msg.Attachment != nil && msg.Attachment.Kind == driver.AttachmentImage {
			params["attachments"] = encodeAttachments([]interface{}{
				map[string]interface{}{
					"title":     msg.Attachment.Title,
					"image_url": msg.Attachment.URL,
				},
			})
		}

	default:
		return fmt.Errorf("unsupported outgoing message type %T", message)
	}

	return nil
}

// encodeAttachments serializes the attachments array to the JSON string form
// the form-encoded API expects.
func encodeAttachments(attachments []interface{}) string {
	encoded, err := json.Marshal(attachments)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

// mergeParams copies extra parameters over the base payload.
func mergeParams(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for key, value := range extra {
		base[key] = value
	}
	return base
}
