package domain_test

import (
	"testing"

	"github.com/Danny3042/lifely-chat/internal/domain"
)

func TestUserMessageCopyOnWrite(t *testing.T) {
	original := domain.NewPendingUserMessage("m1", "hello", []byte{1, 2, 3})

	sent := original.WithStatus(domain.StatusSent)
	if original.Status != domain.StatusPending {
		t.Fatalf("WithStatus mutated the original: %v", original.Status)
	}
	if sent.Status != domain.StatusSent || sent.ID != "m1" {
		t.Fatalf("unexpected copy: %+v", sent)
	}

	rekeyed := sent.WithID("m2")
	if sent.ID != "m1" {
		t.Fatalf("WithID mutated the original")
	}
	if rekeyed.ID != "m2" {
		t.Fatalf("expected re-keyed id m2, got %s", rekeyed.ID)
	}
}

func TestUserMessageAttachmentRefDropsBytes(t *testing.T) {
	msg := domain.NewPendingUserMessage("m1", "photo", []byte{0xFF})

	persisted := msg.WithAttachmentRef("m1.png")
	if persisted.Attachment != nil {
		t.Fatalf("expected bytes to be dropped once persisted")
	}
	if persisted.AttachmentRef != "m1.png" {
		t.Fatalf("expected ref m1.png, got %q", persisted.AttachmentRef)
	}
	if msg.Attachment == nil {
		t.Fatalf("WithAttachmentRef mutated the original")
	}
}

func TestModelMessageTransitions(t *testing.T) {
	loading := domain.NewLoadingModelMessage("r1")
	if loading.State != domain.ModelLoading {
		t.Fatalf("expected loading state, got %v", loading.State)
	}

	loaded := loading.Loaded("hi there")
	if loaded.State != domain.ModelLoaded || loaded.Text != "hi there" {
		t.Fatalf("unexpected loaded message: %+v", loaded)
	}

	failed := loading.Failed("quota exceeded")
	if failed.State != domain.ModelFailed || failed.Text != "quota exceeded" {
		t.Fatalf("unexpected failed message: %+v", failed)
	}

	if loading.State != domain.ModelLoading {
		t.Fatalf("terminal transitions mutated the loading value")
	}
}
