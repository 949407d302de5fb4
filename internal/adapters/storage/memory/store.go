package memory

import (
	"sync"

	"github.com/Danny3042/lifely-chat/internal/domain"
)

// AttachmentExt mirrors the fixed extension the durable stores use.
const AttachmentExt = ".png"

// Store is an in-memory Snapshotter + BlobStore. It follows the same
// semantics as the durable stores (Loading messages dropped, attachment
// bytes moved out-of-line) so tests exercise the real persistence contract.
type Store struct {
	mu       sync.RWMutex
	snapshot []domain.Message
	blobs    map[string][]byte
}

func NewStore() *Store {
	return &Store{
		blobs: make(map[string][]byte),
	}
}

func (s *Store) Save(messages []domain.Message) (map[domain.MessageID]string, error) {
	stored := make(map[domain.MessageID]string)
	snapshot := make([]domain.Message, 0, len(messages))

	for _, msg := range messages {
		switch m := msg.(type) {
		case domain.UserMessage:
			if m.AttachmentRef == "" && len(m.Attachment) > 0 {
				name, _ := s.SaveAttachment(m.ID, m.Attachment, AttachmentExt)
				m = m.WithAttachmentRef(name)
				stored[m.ID] = name
			}
			m.Attachment = nil
			snapshot = append(snapshot, m)

		case domain.ModelMessage:
			if m.State == domain.ModelLoaded || m.State == domain.ModelFailed {
				snapshot = append(snapshot, m)
			}
		}
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	return stored, nil
}

func (s *Store) Load() ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, 0, len(s.snapshot))
	for _, msg := range s.snapshot {
		if m, ok := msg.(domain.UserMessage); ok && m.AttachmentRef != "" {
			m.Attachment = s.blobs[m.AttachmentRef]
			out = append(out, m)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *Store) SaveAttachment(id domain.MessageID, data []byte, ext string) (string, error) {
	filename := string(id) + ext

	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.blobs[filename] = cp
	s.mu.Unlock()

	return filename, nil
}

func (s *Store) ReadAttachment(filename string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[filename]
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (s *Store) DeleteAttachment(filename string) error {
	s.mu.Lock()
	delete(s.blobs, filename)
	s.mu.Unlock()
	return nil
}
