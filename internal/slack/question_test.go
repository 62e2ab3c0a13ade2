package slack

import (
	"testing"

	"github.com/keepmind9/slackline/internal/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertQuestion_ButtonsInInsertionOrder(t *testing.T) {
	question := driver.NewQuestion("Pick one").
		WithCallbackID("pick").
		WithFallback("cannot render buttons").
		AddButton(driver.Button{Name: "yes", Text: "Yes", Value: "1", Additional: map[string]interface{}{"style": "primary"}}).
		AddButton(driver.Button{Name: "no", Text: "No", Value: "0"})

	converted := convertQuestion(question)

	assert.Equal(t, "Pick one", converted["text"])
	assert.Equal(t, "pick", converted["callback_id"])
	assert.Equal(t, "cannot render buttons", converted["fallback"])

	actions, ok := converted["actions"].([]interface{})
	require.True(t, ok)
	require.Len(t, actions, 2)

	first := actions[0].(map[string]interface{})
	assert.Equal(t, "yes", first["name"])
	assert.Equal(t, "Yes", first["text"])
	assert.Equal(t, "", first["image_url"])
	assert.Equal(t, "button", first["type"])
	assert.Equal(t, "1", first["value"])
	assert.Equal(t, "primary", first["style"])

	second := actions[1].(map[string]interface{})
	assert.Equal(t, "no", second["name"])
	assert.Equal(t, "0", second["value"])
}

func TestConvertButton_SelectPassesThrough(t *testing.T) {
	options := []interface{}{map[string]interface{}{"text": "A", "value": "a"}}
	action := convertButton(driver.Button{
		Name: "menu", Text: "Choose", Type: "select",
		Additional: map[string]interface{}{"options": options},
	})

	assert.Equal(t, "menu", action["name"])
	assert.Equal(t, "select", action["type"])
	assert.Equal(t, options, action["options"])
	// Select menus do not get the plain-button projection fields forced on
	_, hasImageURL := action["image_url"]
	assert.False(t, hasImageURL)
}

func TestApplyMessageFields_String(t *testing.T) {
	params := map[string]interface{}{}
	require.NoError(t, applyMessageFields(params, "hello"))
	assert.Equal(t, "hello", params["text"])
}

func TestApplyMessageFields_ImageAttachment(t *testing.T) {
	message := driver.NewOutgoingMessage("look at this").WithAttachment(driver.Attachment{
		Kind:  driver.AttachmentImage,
		URL:   "https://example.com/pic.png",
		Title: "A picture",
	})

	params := map[string]interface{}{}
	require.NoError(t, applyMessageFields(params, message))

	assert.Equal(t, "look at this", params["text"])
	assert.JSONEq(t,
		`[{"title":"A picture","image_url":"https://example.com/pic.png"}]`,
		params["attachments"].(string))
}

func TestApplyMessageFields_Question(t *testing.T) {
	question := driver.NewQuestion("Pick").AddButton(driver.Button{Name: "a", Text: "A", Value: "a"})

	params := map[string]interface{}{}
	require.NoError(t, applyMessageFields(params, question))
	assert.Equal(t, "Pick", params["text"])
	assert.Contains(t, params["attachments"].(string), `"actions"`)
}

func TestApplyMessageFields_UnsupportedType(t *testing.T) {
	err := applyMessageFields(map[string]interface{}{}, 42)
	assert.Error(t, err)
}
