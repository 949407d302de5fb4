package gateway

import (
	"context"
	"fmt"

	"github.com/Danny3042/lifely-chat/internal/domain"
)

type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) StartConversation(ctx context.Context, history []domain.Message) (domain.ConversationHandle, error) {
	return &mockHandle{}, nil
}

type mockHandle struct{}

// SendStream echoes the prompt back in a couple of fragments so the full
// send/stream/finalize path can be exercised without a backend.
func (h *mockHandle) SendStream(ctx context.Context, prompt string, image []byte) (<-chan domain.Fragment, error) {
	out := make(chan domain.Fragment, 2)

	reply := fmt.Sprintf("You said %q. Tell me a bit more about how that is going.", prompt)
	if len(image) > 0 {
		reply = fmt.Sprintf("I see your image (%d bytes). %s", len(image), reply)
	}

	go func() {
		defer close(out)
		half := len(reply) / 2
		for _, chunk := range []string{reply[:half], reply[half:]} {
			select {
			case out <- domain.Fragment{Text: chunk}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
