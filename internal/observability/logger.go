package observability

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey string

const (
	ctxKeyConversationID ctxKey = "conversation_id"
)

// basic global logger, JSON to stdout.
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func Logger() *slog.Logger {
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithConversationID stores a conversation_id in the context.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ctxKeyConversationID, conversationID)
}

// LoggerFromContext adds conversation_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	convID, _ := ctx.Value(ctxKeyConversationID).(string)
	if convID == "" {
		return logger
	}
	return logger.With("conversation_id", convID)
}
