package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Danny3042/lifely-chat/internal/adapters/storage/memory"
	"github.com/Danny3042/lifely-chat/internal/domain"
)

func TestRoundTripMatchesDurableSemantics(t *testing.T) {
	store := memory.NewStore()

	photo := []byte{1, 2, 3}
	stored, err := store.Save([]domain.Message{
		domain.UserMessage{ID: "u1", Text: "look", Status: domain.StatusSent, Attachment: photo},
		domain.NewLoadingModelMessage("r1"),
		domain.ModelMessage{ID: "r2", State: domain.ModelLoaded, Text: "nice"},
	})
	require.NoError(t, err)
	require.Equal(t, map[domain.MessageID]string{"u1": "u1.png"}, stored)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2, "loading messages must not survive a round trip")

	user := loaded[0].(domain.UserMessage)
	require.Equal(t, photo, user.Attachment)
	require.Equal(t, "u1.png", user.AttachmentRef)
}

func TestDeletedBlobLoadsAsNil(t *testing.T) {
	store := memory.NewStore()

	_, err := store.Save([]domain.Message{
		domain.UserMessage{ID: "u1", Text: "look", Status: domain.StatusSent, Attachment: []byte{1}},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteAttachment("u1.png"))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded[0].(domain.UserMessage).Attachment)
}
