package slack

import (
	"github.com/keepmind9/slackline/internal/driver"
)

// convertQuestion turns a framework question into one attachments entry with
// an actions array, one action per button in insertion order.
func convertQuestion(q *driver.Question) map[string]interface{} {
	actions := make([]interface{}, 0, len(q.Buttons))
	for _, button := range q.Buttons {
		actions = append(actions, convertButton(button))
	}

	return map[string]interface{}{
		"text":        q.Text,
		"fallback":    q.Fallback,
		"callback_id": q.CallbackID,
		"actions":     actions,
	}
}

// convertButton projects a button to its wire form. Select menus pass their
// fields through unchanged; plain buttons always carry the five standard
// fields merged with any additional ones.
func convertButton(b driver.Button) map[string]interface{} {
	if b.Type == "select" {
		action := map[string]interface{}{
			"name": b.Name,
			"text": b.Text,
			"type": b.Type,
		}
		for key, value := range b.Additional {
			action[key] = value
		}
		return action
	}

	action := map[string]interface{}{
		"name":      b.Name,
		"text":      b.Text,
		"image_url": b.ImageURL,
		"type":      b.Type,
		"value":     b.Value,
	}
	for key, value := range b.Additional {
		action[key] = value
	}
	return action
}
