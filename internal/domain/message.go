package domain

// Message is any message in a conversation timeline (user or model).
// Variants are value types; identity for list operations is by ID.
type Message interface {
	MessageID() MessageID
	isMessage()
}

// UserMessage is a message typed by the user, optionally carrying image bytes.
// All fields except Status are fixed at construction; status changes go
// through copy-on-write With* methods so a shared value is never mutated
// in place.
type UserMessage struct {
	ID     MessageID
	Text   string
	Status Status

	// Attachment holds the raw image bytes until they are persisted.
	// Once the blob store has them, AttachmentRef holds the generated
	// filename and Attachment is dropped so the bytes live in one place.
	Attachment    []byte
	AttachmentRef string
}

func NewPendingUserMessage(id MessageID, text string, attachment []byte) UserMessage {
	return UserMessage{
		ID:         id,
		Text:       text,
		Status:     StatusPending,
		Attachment: attachment,
	}
}

func (m UserMessage) MessageID() MessageID { return m.ID }
func (m UserMessage) isMessage()           {}

// WithStatus returns a copy with the given status.
func (m UserMessage) WithStatus(s Status) UserMessage {
	m.Status = s
	return m
}

// WithID returns a copy re-keyed to a new id. Used when the backend
// reassigns identity on acceptance.
func (m UserMessage) WithID(id MessageID) UserMessage {
	m.ID = id
	return m
}

// WithAttachmentRef returns a copy holding only the blob store reference.
func (m UserMessage) WithAttachmentRef(ref string) UserMessage {
	m.AttachmentRef = ref
	m.Attachment = nil
	return m
}

// ModelMessage is a reply from the model. While State is ModelLoading the
// Text field holds the partial accumulation so far; the controller replaces
// the value on every fragment and finalizes it as ModelLoaded or ModelFailed.
type ModelMessage struct {
	ID    MessageID
	State ModelState
	Text  string
}

func NewLoadingModelMessage(id MessageID) ModelMessage {
	return ModelMessage{ID: id, State: ModelLoading}
}

func (m ModelMessage) MessageID() MessageID { return m.ID }
func (m ModelMessage) isMessage()           {}

// Loaded returns a terminal copy carrying the full reply text.
func (m ModelMessage) Loaded(text string) ModelMessage {
	m.State = ModelLoaded
	m.Text = text
	return m
}

// Failed returns a terminal copy carrying an error description.
func (m ModelMessage) Failed(description string) ModelMessage {
	m.State = ModelFailed
	m.Text = description
	return m
}
