package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTarget(t *testing.T) {
	withRecipient := NewIncomingMessage("hi", "U1", "C1", nil)
	assert.Equal(t, "C1", withRecipient.Target())

	direct := NewIncomingMessage("hi", "U1", "", nil)
	assert.Equal(t, "U1", direct.Target())
}

func TestUnwrapID(t *testing.T) {
	assert.Equal(t, "U1", UnwrapID("U1"))
	assert.Equal(t, "U2", UnwrapID(map[string]interface{}{"id": "U2"}))
	assert.Equal(t, "", UnwrapID(map[string]interface{}{"name": "no id"}))
	assert.Equal(t, "", UnwrapID(nil))
	assert.Equal(t, "", UnwrapID(42))
}

func TestPayloadField(t *testing.T) {
	message := NewIncomingMessage("hi", "U1", "C1", map[string]interface{}{
		"user":    map[string]interface{}{"id": "U9"},
		"channel": "C9",
	})

	assert.Equal(t, "U9", message.PayloadField("user"))
	assert.Equal(t, "C9", message.PayloadField("channel"))
	assert.Equal(t, "", message.PayloadField("missing"))
}

func TestQuestionBuilder(t *testing.T) {
	question := NewQuestion("Pick").
		WithCallbackID("pick").
		WithFallback("fallback").
		AddButton(Button{Name: "a", Text: "A"}).
		AddButton(Button{Name: "menu", Text: "Menu", Type: "select"})

	assert.Equal(t, "Pick", question.Text)
	assert.Equal(t, "pick", question.CallbackID)
	assert.Equal(t, "fallback", question.Fallback)
	assert.Len(t, question.Buttons, 2)
	// Buttons default to the plain button type; explicit types are kept.
	assert.Equal(t, "button", question.Buttons[0].Type)
	assert.Equal(t, "select", question.Buttons[1].Type)
}

func TestOutgoingMessageWithAttachment(t *testing.T) {
	plain := NewOutgoingMessage("hello")
	attached := plain.WithAttachment(Attachment{Kind: AttachmentImage, URL: "https://example.com/a.png"})

	assert.Nil(t, plain.Attachment)
	assert.Equal(t, "hello", attached.Text)
	assert.Equal(t, AttachmentImage, attached.Attachment.Kind)
}
