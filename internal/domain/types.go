package domain

type MessageID string

// Status represents the delivery state of a user message.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ModelState represents the lifecycle of a model reply.
type ModelState string

const (
	// ModelLoading: fragments are still arriving from the backend.
	ModelLoading ModelState = "loading"
	// ModelLoaded: the reply completed, Text holds the full answer.
	ModelLoaded ModelState = "loaded"
	// ModelFailed: the stream ended abnormally, Text holds a human-readable
	// description of what went wrong.
	ModelFailed ModelState = "error"
)
