package domain

import "context"

// Fragment is one incremental chunk of a model reply. A terminal error
// arrives as the last fragment with Err set; the channel is closed after it.
type Fragment struct {
	Text string
	Err  error
}

// Gateway defines how the core talks to a generative AI backend.
type Gateway interface {
	// StartConversation opens a backend chat session primed with history.
	StartConversation(ctx context.Context, history []Message) (ConversationHandle, error)
}

// ConversationHandle is one live backend chat session.
type ConversationHandle interface {
	// SendStream sends a prompt (plus optional image bytes) and returns a
	// finite, single-consumer channel of reply fragments. Cancelling ctx
	// stops delivery and releases the underlying connection. Backend
	// failures surface as a final Fragment with Err set, never a panic.
	SendStream(ctx context.Context, prompt string, image []byte) (<-chan Fragment, error)
}

// Snapshotter persists the conversation timeline as one overwritten
// snapshot. Save writes attachment bytes to the blob store first and
// returns the filenames generated this run, keyed by message id, so the
// caller can drop the in-memory bytes. Load fails soft: an absent or
// unreadable snapshot yields an empty history, and a corrupt record is
// skipped rather than aborting the rest.
type Snapshotter interface {
	Save(messages []Message) (map[MessageID]string, error)
	Load() ([]Message, error)
}

// BlobStore keeps binary attachments out-of-line from the text snapshot,
// addressed by a filename derived from the message id.
type BlobStore interface {
	SaveAttachment(id MessageID, data []byte, ext string) (string, error)
	// ReadAttachment returns nil bytes (not an error) when the blob is gone.
	ReadAttachment(filename string) ([]byte, error)
	DeleteAttachment(filename string) error
}
