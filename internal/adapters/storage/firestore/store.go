package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Danny3042/lifely-chat/internal/domain"
)

// Store persists the conversation snapshot and its attachment blobs in
// Firestore: one document holding the tagged records, plus a sub-collection
// of blob documents addressed by the generated filename.
type Store struct {
	client *firestore.Client
	convID string
}

// NewStore creates a Firestore store scoped to one conversation.
// Uses the project passed (LIFELY_GCP_PROJECT).
func NewStore(ctx context.Context, projectID, conversationID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if conversationID == "" {
		return nil, fmt.Errorf("conversationID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, convID: conversationID}, nil
}

// AttachmentExt is the fixed extension for persisted image attachments.
const AttachmentExt = ".png"

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) conversationDoc() *firestore.DocumentRef {
	return s.client.Collection("conversations").Doc(s.convID)
}

func (s *Store) attachmentsCol() *firestore.CollectionRef {
	return s.conversationDoc().Collection("attachments")
}

func (s *Store) attachmentDoc(filename string) *firestore.DocumentRef {
	return s.attachmentsCol().Doc(filename)
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type snapshotDoc struct {
	Records   []recordDoc `firestore:"records"`
	UpdatedAt time.Time   `firestore:"updated_at"`
}

type recordDoc struct {
	Kind       string `firestore:"kind"` // "user", "loaded" o "error"
	ID         string `firestore:"id"`
	Text       string `firestore:"text"`
	Status     string `firestore:"status,omitempty"`
	Attachment string `firestore:"attachment,omitempty"`
}

type blobDoc struct {
	Data      []byte    `firestore:"data"`
	CreatedAt time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// Snapshotter implementation
// ─────────────────────────────────────────

// Save overwrites the conversation document with the current records.
// Attachment bytes not yet stored are written as blob documents first and
// the record keeps the filename. Loading messages are not persisted.
func (s *Store) Save(messages []domain.Message) (map[domain.MessageID]string, error) {
	ctx := context.Background()

	stored := make(map[domain.MessageID]string)
	records := make([]recordDoc, 0, len(messages))

	for _, msg := range messages {
		switch m := msg.(type) {
		case domain.UserMessage:
			ref := m.AttachmentRef
			if ref == "" && len(m.Attachment) > 0 {
				name, err := s.SaveAttachment(m.ID, m.Attachment, AttachmentExt)
				if err != nil {
					return stored, fmt.Errorf("firestore save attachment %s: %w", m.ID, err)
				}
				ref = name
				stored[m.ID] = name
			}
			records = append(records, recordDoc{
				Kind:       "user",
				ID:         string(m.ID),
				Text:       m.Text,
				Status:     string(m.Status),
				Attachment: ref,
			})

		case domain.ModelMessage:
			switch m.State {
			case domain.ModelLoaded:
				records = append(records, recordDoc{Kind: "loaded", ID: string(m.ID), Text: m.Text})
			case domain.ModelFailed:
				records = append(records, recordDoc{Kind: "error", ID: string(m.ID), Text: m.Text})
			}
		}
	}

	doc := snapshotDoc{
		Records:   records,
		UpdatedAt: time.Now(),
	}

	if _, err := s.conversationDoc().Set(ctx, doc); err != nil {
		return stored, fmt.Errorf("firestore Save: %w", err)
	}

	s.pruneAttachments(ctx, records)

	return stored, nil
}

// Load reads the conversation document back. A missing document or an
// unknown record kind is tolerated: one yields an empty history, the
// other skips that record.
func (s *Store) Load() ([]domain.Message, error) {
	ctx := context.Background()

	snap, err := s.conversationDoc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, nil
	}

	var doc snapshotDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, nil
	}

	var out []domain.Message
	for _, rec := range doc.Records {
		if rec.ID == "" {
			continue
		}

		switch rec.Kind {
		case "user":
			msg := domain.UserMessage{
				ID:            domain.MessageID(rec.ID),
				Text:          rec.Text,
				Status:        domain.Status(rec.Status),
				AttachmentRef: rec.Attachment,
			}
			if rec.Attachment != "" {
				bytes, _ := s.ReadAttachment(rec.Attachment)
				msg.Attachment = bytes
			}
			out = append(out, msg)

		case "loaded":
			out = append(out, domain.ModelMessage{
				ID:    domain.MessageID(rec.ID),
				State: domain.ModelLoaded,
				Text:  rec.Text,
			})

		case "error":
			out = append(out, domain.ModelMessage{
				ID:    domain.MessageID(rec.ID),
				State: domain.ModelFailed,
				Text:  rec.Text,
			})
		}
	}

	return out, nil
}

// pruneAttachments deletes blob documents no record references anymore.
func (s *Store) pruneAttachments(ctx context.Context, records []recordDoc) {
	referenced := make(map[string]bool)
	for _, rec := range records {
		if rec.Attachment != "" {
			referenced[rec.Attachment] = true
		}
	}

	iter := s.attachmentsCol().Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			// iterator.Done or a transient failure; either way pruning is
			// best effort.
			if err == iterator.Done {
				break
			}
			return
		}
		if !referenced[snap.Ref.ID] {
			_, _ = snap.Ref.Delete(ctx)
		}
	}
}

// ─────────────────────────────────────────
// BlobStore implementation
// ─────────────────────────────────────────

func (s *Store) SaveAttachment(id domain.MessageID, data []byte, ext string) (string, error) {
	ctx := context.Background()

	filename := string(id) + ext
	doc := blobDoc{
		Data:      data,
		CreatedAt: time.Now(),
	}

	if _, err := s.attachmentDoc(filename).Set(ctx, doc); err != nil {
		return "", fmt.Errorf("firestore SaveAttachment: %w", err)
	}
	return filename, nil
}

func (s *Store) ReadAttachment(filename string) ([]byte, error) {
	ctx := context.Background()

	snap, err := s.attachmentDoc(filename).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore ReadAttachment: %w", err)
	}

	var doc blobDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore ReadAttachment decode: %w", err)
	}
	return doc.Data, nil
}

func (s *Store) DeleteAttachment(filename string) error {
	ctx := context.Background()

	if _, err := s.attachmentDoc(filename).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteAttachment: %w", err)
	}
	return nil
}
