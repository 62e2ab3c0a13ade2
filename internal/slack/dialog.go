package slack

import (
	"encoding/json"
	"net/http"

	"github.com/keepmind9/slackline/internal/driver"
)

// TypeDialogSubmission is the answer identifier carried by dialog
// submission callbacks.
const TypeDialogSubmission = "dialog_submission"

// Dialog is a modal form definition sent to the platform for user input.
//
// Fields accumulate in insertion order. Validate, when set, maps a submitted
// value map to human-readable field errors; a nil or empty result accepts
// the submission.
type Dialog struct {
	Title       string
	SubmitLabel string
	CallbackID  string

	// Validate is the overridable submission validation hook
	Validate func(submission map[string]interface{}) []string

	elements []map[string]interface{}
}

// NewDialog builds an empty dialog definition.
func NewDialog(title, submitLabel, callbackID string) *Dialog {
	return &Dialog{
		Title:       title,
		SubmitLabel: submitLabel,
		CallbackID:  callbackID,
	}
}

// Add appends one form element of the given type.
func (d *Dialog) Add(label, name, fieldType string, additional map[string]interface{}) *Dialog {
	element := map[string]interface{}{
		"type":  fieldType,
		"name":  name,
		"label": label,
	}
	for key, value := range additional {
		element[key] = value
	}
	d.elements = append(d.elements, element)
	return d
}

// Text appends a single-line text input.
func (d *Dialog) Text(label, name, value string, additional map[string]interface{}) *Dialog {
	return d.addWithValue(label, name, "text", "", value, additional)
}

// Textarea appends a multi-line text input.
func (d *Dialog) Textarea(label, name, value string, additional map[string]interface{}) *Dialog {
	return d.addWithValue(label, name, "textarea", "", value, additional)
}

// Email appends a text input with the email subtype.
func (d *Dialog) Email(label, name, value string, additional map[string]interface{}) *Dialog {
	return d.addWithValue(label, name, "text", "email", value, additional)
}

// Number appends a text input with the number subtype.
func (d *Dialog) Number(label, name, value string, additional map[string]interface{}) *Dialog {
	return d.addWithValue(label, name, "text", "number", value, additional)
}

// Tel appends a text input with the tel subtype.
func (d *Dialog) Tel(label, name, value string, additional map[string]interface{}) *Dialog {
	return d.addWithValue(label, name, "text", "tel", value, additional)
}

// URL appends a text input with the url subtype.
func (d *Dialog) URL(label, name, value string, additional map[string]interface{}) *Dialog {
	return d.addWithValue(label, name, "text", "url", value, additional)
}

func (d *Dialog) addWithValue(label, name, fieldType, subtype, value string, additional map[string]interface{}) *Dialog {
	merged := map[string]interface{}{"value": value}
	if subtype != "" {
		merged["subtype"] = subtype
	}
	for key, v := range additional {
		merged[key] = v
	}
	return d.Add(label, name, fieldType, merged)
}

// Errors runs the validation hook against a submission. The default accepts
// every submission.
func (d *Dialog) Errors(submission map[string]interface{}) []string {
	if d.Validate == nil {
		return nil
	}
	return d.Validate(submission)
}

// Serialize emits the wire form of the dialog.
func (d *Dialog) Serialize() map[string]interface{} {
	elements := d.elements
	if elements == nil {
		elements = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"callback_id":  d.CallbackID,
		"title":        d.Title,
		"submit_label": d.SubmitLabel,
		"elements":     elements,
	}
}

// Encode returns the JSON string form used as the dialog API parameter.
func (d *Dialog) Encode() (string, error) {
	encoded, err := json.Marshal(d.Serialize())
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// DialogSender is the capability a host conversation accepts at construction
// to open dialogs through the driver.
type DialogSender interface {
	ReplyDialog(dialog *Dialog, matching *driver.IncomingMessage, extra map[string]interface{}) (map[string]interface{}, error)
}

// HandleDialogSubmission runs dialog validation against a submission answer.
//
// On validation failure it calls resurface so the host re-surfaces the
// conversation for another attempt, and returns the error body to write back
// as the HTTP response. On success it invokes next with the answer and
// returns nil.
func HandleDialogSubmission(dialog *Dialog, answer driver.Answer, resurface func(), next func(driver.Answer)) *driver.Response {
	submission, _ := answer.Value.(map[string]interface{})
	errs := dialog.Errors(submission)
	if len(errs) > 0 {
		if resurface != nil {
			resurface()
		}
		body, _ := json.Marshal(map[string]interface{}{"errors": errs})
		return &driver.Response{StatusCode: http.StatusOK, Body: body}
	}

	if next != nil {
		next(answer)
	}
	return nil
}
