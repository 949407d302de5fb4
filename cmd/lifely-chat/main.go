package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Danny3042/lifely-chat/internal/adapters/gateway"
	filestore "github.com/Danny3042/lifely-chat/internal/adapters/storage/file"
	firestorestore "github.com/Danny3042/lifely-chat/internal/adapters/storage/firestore"
	memstore "github.com/Danny3042/lifely-chat/internal/adapters/storage/memory"
	"github.com/Danny3042/lifely-chat/internal/app/conversation"
	"github.com/Danny3042/lifely-chat/internal/config"
	"github.com/Danny3042/lifely-chat/internal/domain"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// Choose between mock and Vertex by ENV (useful for dev)
	var (
		gw  domain.Gateway
		err error
	)

	if cfg.UseMockGateway {
		log.Println("[GATEWAY] Using MOCK gateway")
		gw = gateway.NewMockGateway()
	} else {
		log.Println("[GATEWAY] Using Vertex gateway")
		gw, err = gateway.NewVertexGateway(ctx)
		if err != nil {
			log.Fatalf("error initializing Vertex gateway: %v", err)
		}
	}

	// Storage: file, Firestore or memory
	var store domain.Snapshotter

	switch cfg.StorageBackend {
	case "firestore":
		if cfg.GCPProjectID == "" {
			log.Fatal("LIFELY_GCP_PROJECT is required for Firestore storage backend")
		}

		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
		store, err = firestorestore.NewStore(ctx, cfg.GCPProjectID, "default")
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}

	case "memory":
		log.Println("[STORE] Using in-memory storage")
		store = memstore.NewStore()

	default:
		log.Printf("[STORE] Using file storage (dir=%s)", cfg.DataDir)
		store, err = filestore.NewStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("error initializing file store: %v", err)
		}
	}

	state := domain.NewConversation()
	ctrl := conversation.NewController(gw, state, store, cfg.SaveInterval)

	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("error starting controller: %v", err)
	}
	defer ctrl.Close()

	printHistory(state)

	// Wake up whenever the open reply resolves.
	replyDone := make(chan struct{}, 1)
	state.OnChange(func() {
		if state.CanSend() {
			select {
			case replyDone <- struct{}{}:
			default:
			}
		}
	})

	fmt.Println("Lifely chat. Type a message, /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "/quit" {
			break
		}
		if text == "" {
			fmt.Print("> ")
			continue
		}

		// Drop any stale wake-up from a previous turn.
		select {
		case <-replyDone:
		default:
		}

		if _, err := ctrl.Send(ctx, text, nil); err != nil {
			log.Printf("send failed: %v", err)
			fmt.Print("> ")
			continue
		}

		<-replyDone
		printNewestReply(state)
		fmt.Print("> ")
	}
}

func printHistory(state *domain.Conversation) {
	for _, msg := range state.Messages() {
		switch m := msg.(type) {
		case domain.UserMessage:
			fmt.Printf("you: %s\n", m.Text)
		case domain.ModelMessage:
			if m.State == domain.ModelLoaded {
				fmt.Printf("lifely: %s\n", m.Text)
			}
		}
	}
}

func printNewestReply(state *domain.Conversation) {
	msgs := state.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if m, ok := msgs[i].(domain.ModelMessage); ok {
			switch m.State {
			case domain.ModelLoaded:
				fmt.Printf("lifely: %s\n", m.Text)
			case domain.ModelFailed:
				fmt.Printf("lifely [error]: %s\n", m.Text)
			}
			return
		}
	}
}
