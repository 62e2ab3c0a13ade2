package driver

// Attachment kinds for inbound and outbound media.
const (
	AttachmentImage = "image"
	AttachmentAudio = "audio"
	AttachmentVideo = "video"
	AttachmentFile  = "file"
)

// Sentinel message texts used when an inbound event carries media instead of
// text. Conversation handlers match on these patterns to receive attachments.
const (
	ImagePattern = "%%%_IMAGE_%%%"
	AudioPattern = "%%%_AUDIO_%%%"
	VideoPattern = "%%%_VIDEO_%%%"
	FilePattern  = "%%%_FILE_%%%"
)

// Attachment is one piece of media attached to a message.
type Attachment struct {
	Kind  string
	URL   string
	Title string

	// Meta carries the raw platform metadata for the attachment
	Meta map[string]interface{}
}

// IncomingMessage is one normalized inbound chat message.
//
// IncomingMessage is a value object: it is built fresh per inbound event and
// never mutated afterwards. Payload is the raw platform event that produced
// it and does not outlive the event cycle.
type IncomingMessage struct {
	Text      string
	Sender    string
	Recipient string
	Payload   map[string]interface{}
	FromBot   bool

	Images []Attachment
	Audio  []Attachment
	Videos []Attachment
	Files  []Attachment
}

// NewIncomingMessage builds a message from the normalized event fields.
func NewIncomingMessage(text, sender, recipient string, payload map[string]interface{}) IncomingMessage {
	return IncomingMessage{
		Text:      text,
		Sender:    sender,
		Recipient: recipient,
		Payload:   payload,
	}
}

// Target returns the reply target: the recipient channel, falling back to
// the sender for direct conversations.
func (m *IncomingMessage) Target() string {
	if m.Recipient != "" {
		return m.Recipient
	}
	return m.Sender
}

// PayloadField reads one field of the raw event, unwrapping nested id
// objects ({"id": "U123"}) to their bare identifier.
func (m *IncomingMessage) PayloadField(key string) string {
	return UnwrapID(m.Payload[key])
}

// UnwrapID converts either a bare string identifier or a nested {"id": ...}
// object into the identifier string.
func UnwrapID(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]interface{}:
		if id, ok := val["id"].(string); ok {
			return id
		}
	}
	return ""
}
