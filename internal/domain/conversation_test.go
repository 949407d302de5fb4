package domain_test

import (
	"testing"

	"github.com/Danny3042/lifely-chat/internal/domain"
)

func userAt(t *testing.T, conv *domain.Conversation, i int) domain.UserMessage {
	t.Helper()
	msgs := conv.Messages()
	if i >= len(msgs) {
		t.Fatalf("no message at index %d (len %d)", i, len(msgs))
	}
	m, ok := msgs[i].(domain.UserMessage)
	if !ok {
		t.Fatalf("message at %d is not a user message: %T", i, msgs[i])
	}
	return m
}

func TestAppendPreservesArrivalOrder(t *testing.T) {
	conv := domain.NewConversation()
	conv.AddPendingUser("first", "a")
	conv.Append(domain.NewLoadingModelMessage("b"))
	conv.AddPendingUser("second", "c")

	msgs := conv.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].MessageID() != "a" || msgs[1].MessageID() != "b" || msgs[2].MessageID() != "c" {
		t.Fatalf("order not preserved: %v %v %v", msgs[0].MessageID(), msgs[1].MessageID(), msgs[2].MessageID())
	}
}

func TestMarkSentWithRekey(t *testing.T) {
	conv := domain.NewConversation()
	conv.AddPendingUser("hello", "temp-1")

	conv.MarkSent("temp-1", "server-9")

	m := userAt(t, conv, 0)
	if m.Status != domain.StatusSent {
		t.Fatalf("expected sent, got %v", m.Status)
	}
	if m.ID != "server-9" {
		t.Fatalf("expected re-keyed id server-9, got %s", m.ID)
	}
}

func TestMarkFailedIsIdempotent(t *testing.T) {
	conv := domain.NewConversation()
	conv.AddPendingUser("hello", "m1")

	conv.MarkFailed("m1")
	conv.MarkFailed("m1")
	conv.MarkFailed("missing")

	if got := userAt(t, conv, 0).Status; got != domain.StatusFailed {
		t.Fatalf("expected failed, got %v", got)
	}
	if conv.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", conv.Len())
	}
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	conv := domain.NewConversation()
	conv.AddPendingUser("hello", "m1")

	conv.Remove("missing")
	conv.Remove("m1")
	conv.Remove("m1")

	if conv.Len() != 0 {
		t.Fatalf("expected empty conversation, got %d messages", conv.Len())
	}
}

func TestUpdateNewestModelMessage(t *testing.T) {
	conv := domain.NewConversation()
	conv.Append(domain.ModelMessage{ID: "old", State: domain.ModelLoaded, Text: "done"})
	conv.AddPendingUser("hello", "u1")
	conv.Append(domain.NewLoadingModelMessage("new"))

	conv.UpdateNewestModelMessage(func(m domain.ModelMessage) domain.ModelMessage {
		return m.Loaded("finished")
	})

	msgs := conv.Messages()
	if m := msgs[0].(domain.ModelMessage); m.Text != "done" {
		t.Fatalf("older model message was touched: %+v", m)
	}
	if m := msgs[2].(domain.ModelMessage); m.State != domain.ModelLoaded || m.Text != "finished" {
		t.Fatalf("newest model message not updated: %+v", m)
	}
}

func TestUpdateNewestModelMessageWithoutModelIsNoOp(t *testing.T) {
	conv := domain.NewConversation()
	conv.AddPendingUser("hello", "u1")

	conv.UpdateNewestModelMessage(func(m domain.ModelMessage) domain.ModelMessage {
		t.Fatal("transform should not run")
		return m
	})
}

func TestSnapshotUnaffectedByLaterMutation(t *testing.T) {
	conv := domain.NewConversation()
	conv.AddPendingUser("hello", "m1")

	before := conv.Messages()
	conv.MarkFailed("m1")

	if got := before[0].(domain.UserMessage).Status; got != domain.StatusPending {
		t.Fatalf("earlier snapshot changed under mutation: %v", got)
	}
}

func TestTryBeginSendClosesGateOnce(t *testing.T) {
	conv := domain.NewConversation()

	if !conv.TryBeginSend() {
		t.Fatal("fresh conversation should admit a send")
	}
	if conv.CanSend() {
		t.Fatal("gate should be closed after TryBeginSend")
	}
	if conv.TryBeginSend() {
		t.Fatal("second TryBeginSend must lose while the gate is closed")
	}

	conv.SetCanSend(true)
	if !conv.TryBeginSend() {
		t.Fatal("reopened gate should admit the next send")
	}
}

func TestOnChangeNotifies(t *testing.T) {
	conv := domain.NewConversation()

	calls := 0
	conv.OnChange(func() { calls++ })

	conv.AddPendingUser("hello", "m1")
	conv.MarkSent("m1", "")
	conv.SetCanSend(false)

	if calls != 3 {
		t.Fatalf("expected 3 notifications, got %d", calls)
	}
}
