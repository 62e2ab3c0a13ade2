package slack

import (
	"encoding/json"
	"testing"

	"github.com/keepmind9/slackline/internal/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialog_Serialize(t *testing.T) {
	dialog := NewDialog("Feedback", "Send", "feedback-1")
	dialog.Text("Your name", "name", "prefilled", nil)
	dialog.Email("Email", "email", "", nil)
	dialog.Textarea("Comments", "comments", "", map[string]interface{}{"optional": true})

	serialized := dialog.Serialize()
	assert.Equal(t, "feedback-1", serialized["callback_id"])
	assert.Equal(t, "Feedback", serialized["title"])
	assert.Equal(t, "Send", serialized["submit_label"])

	elements := serialized["elements"].([]map[string]interface{})
	require.Len(t, elements, 3)

	assert.Equal(t, "text", elements[0]["type"])
	assert.Equal(t, "name", elements[0]["name"])
	assert.Equal(t, "Your name", elements[0]["label"])
	assert.Equal(t, "prefilled", elements[0]["value"])

	assert.Equal(t, "text", elements[1]["type"])
	assert.Equal(t, "email", elements[1]["subtype"])

	assert.Equal(t, "textarea", elements[2]["type"])
	assert.Equal(t, true, elements[2]["optional"])
}

func TestDialog_ConvenienceSubtypes(t *testing.T) {
	dialog := NewDialog("T", "S", "cb")
	dialog.Number("Age", "age", "", nil)
	dialog.Tel("Phone", "phone", "", nil)
	dialog.URL("Site", "site", "", nil)

	elements := dialog.Serialize()["elements"].([]map[string]interface{})
	require.Len(t, elements, 3)
	assert.Equal(t, "number", elements[0]["subtype"])
	assert.Equal(t, "tel", elements[1]["subtype"])
	assert.Equal(t, "url", elements[2]["subtype"])
	for _, element := range elements {
		assert.Equal(t, "text", element["type"])
	}
}

func TestDialog_Encode(t *testing.T) {
	dialog := NewDialog("T", "S", "cb")
	encoded, err := dialog.Encode()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	assert.Equal(t, "cb", decoded["callback_id"])
	assert.Equal(t, []interface{}{}, decoded["elements"])
}

func TestDialog_DefaultValidationAcceptsEverything(t *testing.T) {
	dialog := NewDialog("T", "S", "cb")
	assert.Empty(t, dialog.Errors(map[string]interface{}{"any": "thing"}))
}

func TestHandleDialogSubmission_InvalidResurfacesConversation(t *testing.T) {
	dialog := NewDialog("T", "S", "cb")
	dialog.Validate = func(submission map[string]interface{}) []string {
		if submission["name"] == "" {
			return []string{"name is required"}
		}
		return nil
	}

	answer := driver.Answer{
		Text:        TypeDialogSubmission,
		Value:       map[string]interface{}{"name": ""},
		Interactive: true,
	}

	resurfaced := false
	nextCalled := false
	response := HandleDialogSubmission(dialog, answer, func() { resurfaced = true }, func(driver.Answer) { nextCalled = true })

	require.NotNil(t, response)
	assert.True(t, resurfaced)
	assert.False(t, nextCalled)
	assert.JSONEq(t, `{"errors":["name is required"]}`, string(response.Body))
}

func TestHandleDialogSubmission_ValidInvokesContinuation(t *testing.T) {
	dialog := NewDialog("T", "S", "cb")
	dialog.Validate = func(submission map[string]interface{}) []string {
		return nil
	}

	answer := driver.Answer{Value: map[string]interface{}{"name": "jane"}}

	var got driver.Answer
	response := HandleDialogSubmission(dialog, answer, nil, func(a driver.Answer) { got = a })

	assert.Nil(t, response)
	assert.Equal(t, "jane", got.Value.(map[string]interface{})["name"])
}
