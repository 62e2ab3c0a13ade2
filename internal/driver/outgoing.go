package driver

// OutgoingMessage is a plain framework reply, optionally carrying one
// attachment.
type OutgoingMessage struct {
	Text       string
	Attachment *Attachment
}

// NewOutgoingMessage builds a text-only reply.
func NewOutgoingMessage(text string) *OutgoingMessage {
	return &OutgoingMessage{Text: text}
}

// WithAttachment returns a copy of the message carrying the attachment.
func (m *OutgoingMessage) WithAttachment(a Attachment) *OutgoingMessage {
	copied := *m
	copied.Attachment = &a
	return &copied
}

// Button is one interactive element of a Question.
type Button struct {
	Name     string
	Text     string
	ImageURL string
	Type     string
	Value    string

	// Additional holds platform-specific button fields merged into the
	// serialized form as-is
	Additional map[string]interface{}
}

// Question is a framework reply asking the user to pick among buttons.
type Question struct {
	Text       string
	Fallback   string
	CallbackID string
	Buttons    []Button
}

// NewQuestion builds a question with the given prompt text.
func NewQuestion(text string) *Question {
	return &Question{Text: text}
}

// WithCallbackID sets the interactive callback identifier.
func (q *Question) WithCallbackID(id string) *Question {
	q.CallbackID = id
	return q
}

// WithFallback sets the plain-text fallback shown on clients that cannot
// render interactive elements.
func (q *Question) WithFallback(fallback string) *Question {
	q.Fallback = fallback
	return q
}

// AddButton appends a button, preserving insertion order.
func (q *Question) AddButton(b Button) *Question {
	if b.Type == "" {
		b.Type = "button"
	}
	q.Buttons = append(q.Buttons, b)
	return q
}

// Answer is the response extracted from an inbound message: either its raw
// text or the value of an interactive widget interaction.
type Answer struct {
	// Text is the answer identifier. For interactive replies it is the
	// acted-on element's name; for plain messages it is the message text.
	Text string

	// Value is the selected value. For select menus it is the raw
	// selected_options list, for dialog submissions the submission map.
	Value interface{}

	Interactive bool
	CallbackID  string
	Message     *IncomingMessage
}

// GenericEvent is a platform-level event that is not a chat message.
type GenericEvent struct {
	Name    string
	Payload map[string]interface{}
}
