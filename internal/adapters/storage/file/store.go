package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Danny3042/lifely-chat/internal/domain"
)

const (
	snapshotFile   = "conversation.json"
	attachmentsDir = "attachments"

	// AttachmentExt is the fixed extension for persisted image attachments.
	AttachmentExt = ".png"
)

// Store persists the conversation as one JSON snapshot file plus out-of-line
// attachment blobs under an attachments/ directory. Saves overwrite the
// previous snapshot wholesale (last write wins).
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required for file store")
	}
	if err := os.MkdirAll(filepath.Join(dir, attachmentsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// ─────────────────────────────────────────
// Snapshot records
// ─────────────────────────────────────────

type record struct {
	Kind       string `json:"kind"` // "user", "loaded" o "error"
	ID         string `json:"id"`
	Text       string `json:"text"`
	Status     string `json:"status,omitempty"`
	Attachment string `json:"attachment,omitempty"`
}

const (
	kindUser   = "user"
	kindLoaded = "loaded"
	kindError  = "error"
)

// ─────────────────────────────────────────
// Snapshotter implementation
// ─────────────────────────────────────────

// Save serializes the timeline to the snapshot file. Attachment bytes not
// yet in the blob store are written first; the record stores the filename,
// never the bytes. Loading messages are skipped: in-flight work cannot be
// resumed after a restart. The returned map names the blobs written on
// this call, keyed by message id.
func (s *Store) Save(messages []domain.Message) (map[domain.MessageID]string, error) {
	stored := make(map[domain.MessageID]string)
	records := make([]record, 0, len(messages))

	for _, msg := range messages {
		switch m := msg.(type) {
		case domain.UserMessage:
			ref := m.AttachmentRef
			if ref == "" && len(m.Attachment) > 0 {
				name, err := s.SaveAttachment(m.ID, m.Attachment, AttachmentExt)
				if err != nil {
					// Keep the bytes in memory, retry on the next save.
					return stored, fmt.Errorf("saving attachment %s: %w", m.ID, err)
				}
				ref = name
				stored[m.ID] = name
			}
			records = append(records, record{
				Kind:       kindUser,
				ID:         string(m.ID),
				Text:       m.Text,
				Status:     string(m.Status),
				Attachment: ref,
			})

		case domain.ModelMessage:
			switch m.State {
			case domain.ModelLoaded:
				records = append(records, record{Kind: kindLoaded, ID: string(m.ID), Text: m.Text})
			case domain.ModelFailed:
				records = append(records, record{Kind: kindError, ID: string(m.ID), Text: m.Text})
			}
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return stored, fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := atomicWriteFile(filepath.Join(s.dir, snapshotFile), data, 0o644); err != nil {
		return stored, fmt.Errorf("writing snapshot: %w", err)
	}

	s.pruneAttachments(records)

	return stored, nil
}

// Load reads the snapshot back. Fails soft: a missing or unparsable
// snapshot yields an empty history, and a record that matches no known
// shape is skipped so one corrupt entry does not discard the rest.
func (s *Store) Load() ([]domain.Message, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, snapshotFile))
	if err != nil {
		return nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil
	}

	var out []domain.Message
	for _, raw := range raws {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == "" {
			continue
		}

		switch rec.Kind {
		case kindUser:
			msg := domain.UserMessage{
				ID:            domain.MessageID(rec.ID),
				Text:          rec.Text,
				Status:        domain.Status(rec.Status),
				AttachmentRef: rec.Attachment,
			}
			if rec.Attachment != "" {
				// A missing blob leaves the attachment nil, not an error.
				bytes, _ := s.ReadAttachment(rec.Attachment)
				msg.Attachment = bytes
			}
			out = append(out, msg)

		case kindLoaded:
			out = append(out, domain.ModelMessage{
				ID:    domain.MessageID(rec.ID),
				State: domain.ModelLoaded,
				Text:  rec.Text,
			})

		case kindError:
			out = append(out, domain.ModelMessage{
				ID:    domain.MessageID(rec.ID),
				State: domain.ModelFailed,
				Text:  rec.Text,
			})
		}
	}

	return out, nil
}

// pruneAttachments deletes blob files no record references anymore, so
// removed messages do not leak their attachments on disk.
func (s *Store) pruneAttachments(records []record) {
	referenced := make(map[string]bool)
	for _, rec := range records {
		if rec.Attachment != "" {
			referenced[rec.Attachment] = true
		}
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, attachmentsDir))
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() && !referenced[e.Name()] {
			_ = s.DeleteAttachment(e.Name())
		}
	}
}

// ─────────────────────────────────────────
// BlobStore implementation
// ─────────────────────────────────────────

func (s *Store) SaveAttachment(id domain.MessageID, data []byte, ext string) (string, error) {
	filename := string(id) + ext
	if err := atomicWriteFile(filepath.Join(s.dir, attachmentsDir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("writing attachment: %w", err)
	}
	return filename, nil
}

func (s *Store) ReadAttachment(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, attachmentsDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	return data, nil
}

func (s *Store) DeleteAttachment(filename string) error {
	err := os.Remove(filepath.Join(s.dir, attachmentsDir, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

// atomicWriteFile writes data to a temp file in the same directory, syncs
// it, and renames it over path. A crash leaves either the old snapshot or
// the new complete one, never a partial write.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return err
	}
	tempPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
