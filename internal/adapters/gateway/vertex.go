package gateway

import (
	"context"
	"fmt"
	"os"

	"github.com/Danny3042/lifely-chat/internal/domain"
	"google.golang.org/genai"
)

type VertexGateway struct {
	client    *genai.Client
	modelName string
}

// NewVertexGateway creates a Gateway based on Vertex AI (Gemini).
// Uses environment variables for project and region to simplify.
func NewVertexGateway(ctx context.Context) (*VertexGateway, error) {
	projectID := os.Getenv("LIFELY_GCP_PROJECT")
	location := os.Getenv("LIFELY_GCP_LOCATION")
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("LIFELY_GCP_PROJECT and LIFELY_GCP_LOCATION must be set")
	}

	modelName := os.Getenv("LIFELY_MODEL_NAME")
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexGateway{
		client:    client,
		modelName: modelName,
	}, nil
}

// StartConversation implements domain.Gateway using a Vertex chat session
// primed with the recovered history.
func (g *VertexGateway) StartConversation(ctx context.Context, history []domain.Message) (domain.ConversationHandle, error) {
	// 1) History (user / model) as conversation
	var contents []*genai.Content
	for _, m := range history {
		switch msg := m.(type) {
		case domain.UserMessage:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleUser))
		case domain.ModelMessage:
			// Only completed replies belong in the backend history.
			if msg.State == domain.ModelLoaded {
				contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleModel))
			}
		}
	}

	// 2) Model config (without genai.Ptr to avoid generic issues)
	temp := float32(0.7)
	topP := float32(0.9)

	outputTokens := int32(8192)

	cfg := &genai.GenerateContentConfig{
		// According to official examples, the role here is usually RoleUser, not "system"
		SystemInstruction: genai.NewContentFromText(BuildSystemPrompt(), genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   outputTokens,
	}

	chat, err := g.client.Chats.Create(ctx, g.modelName, cfg, contents)
	if err != nil {
		return nil, fmt.Errorf("vertex create chat: %w", err)
	}

	return &vertexHandle{chat: chat}, nil
}

type vertexHandle struct {
	chat *genai.Chat
}

// SendStream implements domain.ConversationHandle. Fragments are forwarded
// in emission order; a backend failure arrives as the final fragment with
// Err set and the channel is closed right after.
func (h *vertexHandle) SendStream(ctx context.Context, prompt string, image []byte) (<-chan domain.Fragment, error) {
	parts := []genai.Part{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, *genai.NewPartFromBytes(image, "image/png"))
	}

	out := make(chan domain.Fragment)

	go func() {
		defer close(out)

		for resp, err := range h.chat.SendMessageStream(ctx, parts...) {
			if err != nil {
				select {
				case out <- domain.Fragment{Err: fmt.Errorf("vertex stream: %w", err)}:
				case <-ctx.Done():
				}
				return
			}

			text := resp.Text()
			if text == "" {
				continue
			}

			select {
			case out <- domain.Fragment{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
