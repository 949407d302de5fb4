package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	file "github.com/Danny3042/lifely-chat/internal/adapters/storage/file"
	"github.com/Danny3042/lifely-chat/internal/domain"
)

func newStore(t *testing.T) (*file.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := file.NewStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newStore(t)

	messages := []domain.Message{
		domain.UserMessage{ID: "u1", Text: "hello", Status: domain.StatusSent},
		domain.ModelMessage{ID: "r1", State: domain.ModelLoaded, Text: "hi there"},
		domain.UserMessage{ID: "u2", Text: "again", Status: domain.StatusFailed},
		domain.ModelMessage{ID: "r2", State: domain.ModelFailed, Text: "quota exceeded"},
	}

	_, err := store.Save(messages)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, messages, loaded)
}

func TestLoadingMessagesAreNotPersisted(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Save([]domain.Message{
		domain.UserMessage{ID: "u1", Text: "hello", Status: domain.StatusSent},
		domain.NewLoadingModelMessage("r1"),
	})
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, domain.MessageID("u1"), loaded[0].MessageID())
}

func TestAttachmentRoundTrip(t *testing.T) {
	store, dir := newStore(t)

	photo := []byte{0x89, 0x50, 0x4E, 0x47}
	stored, err := store.Save([]domain.Message{
		domain.UserMessage{ID: "u1", Text: "look at this", Status: domain.StatusSent, Attachment: photo},
	})
	require.NoError(t, err)
	require.Equal(t, map[domain.MessageID]string{"u1": "u1.png"}, stored)

	// Bytes live out-of-line, not inside the snapshot.
	snapshot, err := os.ReadFile(filepath.Join(dir, "conversation.json"))
	require.NoError(t, err)
	require.NotContains(t, string(snapshot), "PNG")

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	user := loaded[0].(domain.UserMessage)
	require.Equal(t, photo, user.Attachment)
	require.Equal(t, "u1.png", user.AttachmentRef)
}

func TestSaveDoesNotRewriteStoredAttachments(t *testing.T) {
	store, _ := newStore(t)

	stored, err := store.Save([]domain.Message{
		domain.UserMessage{ID: "u1", Text: "photo", Status: domain.StatusSent, AttachmentRef: "u1.png"},
	})
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestMissingBlobYieldsNilAttachment(t *testing.T) {
	store, dir := newStore(t)

	_, err := store.Save([]domain.Message{
		domain.UserMessage{ID: "u1", Text: "photo", Status: domain.StatusSent, Attachment: []byte{1}},
	})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "attachments", "u1.png")))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Nil(t, loaded[0].(domain.UserMessage).Attachment)
}

func TestLoadWithoutSnapshotReturnsEmpty(t *testing.T) {
	store, _ := newStore(t)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestCorruptSnapshotFailsSoft(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversation.json"), []byte("not json"), 0o644))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestUnknownRecordKindIsSkipped(t *testing.T) {
	store, dir := newStore(t)

	snapshot := `[
	  {"kind": "user", "id": "u1", "text": "hello", "status": "sent"},
	  {"kind": "voice_memo", "id": "v1", "text": "???"},
	  {"bogus": true},
	  {"kind": "loaded", "id": "r1", "text": "hi"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conversation.json"), []byte(snapshot), 0o644))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, domain.MessageID("u1"), loaded[0].MessageID())
	require.Equal(t, domain.MessageID("r1"), loaded[1].MessageID())
}

func TestUnreferencedBlobsArePruned(t *testing.T) {
	store, dir := newStore(t)

	_, err := store.Save([]domain.Message{
		domain.UserMessage{ID: "u1", Text: "photo", Status: domain.StatusSent, Attachment: []byte{1}},
	})
	require.NoError(t, err)

	// Message removed; the next save should clean up its blob.
	_, err = store.Save(nil)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "attachments", "u1.png"))
	require.True(t, os.IsNotExist(statErr))
}
