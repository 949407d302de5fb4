package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Danny3042/lifely-chat/internal/domain"
	"github.com/Danny3042/lifely-chat/internal/observability"
)

// ErrReplyInFlight is returned when a send is requested while a previous
// model reply is still loading.
var ErrReplyInFlight = errors.New("a model reply is still in flight")

// Controller supervises the conversation: it turns each send into a
// cancellable streaming task bound to a stable message id, drives the
// message list from gateway events, and snapshots the conversation to
// storage on a fixed interval.
type Controller struct {
	gateway domain.Gateway
	state   *domain.Conversation
	store   domain.Snapshotter

	handle domain.ConversationHandle

	// jobs and attachments are the only shared mutable state; both are
	// guarded by mu since send, cancel and task completion race.
	mu          sync.Mutex
	jobs        map[domain.MessageID]context.CancelFunc
	attachments map[domain.MessageID][]byte

	baseCtx  context.Context
	baseStop context.CancelFunc

	saveEvery time.Duration
	wg        sync.WaitGroup
}

func NewController(
	gateway domain.Gateway,
	state *domain.Conversation,
	store domain.Snapshotter,
	saveEvery time.Duration,
) *Controller {
	if saveEvery <= 0 {
		saveEvery = 3 * time.Second
	}

	baseCtx, baseStop := context.WithCancel(context.Background())

	return &Controller{
		gateway:     gateway,
		state:       state,
		store:       store,
		jobs:        make(map[domain.MessageID]context.CancelFunc),
		attachments: make(map[domain.MessageID][]byte),
		baseCtx:     baseCtx,
		baseStop:    baseStop,
		saveEvery:   saveEvery,
	}
}

// Start recovers persisted history, opens the backend chat session primed
// with it, and launches the periodic persistence loop. Load failures are
// swallowed: the conversation starts empty rather than unusable.
func (c *Controller) Start(ctx context.Context) error {
	log := observability.LoggerFromContext(ctx)

	recovered, err := c.store.Load()
	if err != nil {
		log.Error("failed to load history", "error", err)
		recovered = nil
	}
	for _, msg := range recovered {
		c.state.Append(msg)
	}
	log.Info("history recovered", "message_count", len(recovered))

	handle, err := c.gateway.StartConversation(ctx, recovered)
	if err != nil {
		return fmt.Errorf("starting backend conversation: %w", err)
	}
	c.handle = handle

	c.wg.Add(1)
	go c.persistLoop()

	return nil
}

// Send appends a PENDING user message, opens a reply stream and supervises
// it. Returns the tempId correlating the message with its task. Rejected
// with ErrReplyInFlight while a previous reply is still loading.
func (c *Controller) Send(ctx context.Context, text string, image []byte) (domain.MessageID, error) {
	if c.handle == nil {
		return "", errors.New("controller not started")
	}
	if !c.state.TryBeginSend() {
		return "", ErrReplyInFlight
	}

	tempID := domain.MessageID(uuid.NewString())

	// Optimistic insertion: the message exists before any network activity.
	c.state.Append(domain.NewPendingUserMessage(tempID, text, image))

	c.startSend(ctx, tempID, text, image)
	return tempID, nil
}

// Retry destructively replaces a failed message with a fresh PENDING copy
// under the same id and opens a new stream from scratch. When the caller
// passes no image, bytes still held for that id (side table, then the
// message itself) are reused.
func (c *Controller) Retry(ctx context.Context, tempID domain.MessageID, text string, image []byte) error {
	if c.handle == nil {
		return errors.New("controller not started")
	}
	if !c.state.TryBeginSend() {
		return ErrReplyInFlight
	}

	var ref string
	if image == nil {
		c.mu.Lock()
		image = c.attachments[tempID]
		c.mu.Unlock()
	}
	if image == nil {
		for _, msg := range c.state.Messages() {
			if m, ok := msg.(domain.UserMessage); ok && m.ID == tempID {
				image = m.Attachment
				ref = m.AttachmentRef
				break
			}
		}
		if image == nil && ref != "" {
			// A save tick already collapsed the bytes into the blob store;
			// read them back so the new upstream request carries the image.
			if blobs, ok := c.store.(domain.BlobStore); ok {
				image, _ = blobs.ReadAttachment(ref)
			}
		}
	}

	c.state.Remove(tempID)
	replacement := domain.NewPendingUserMessage(tempID, text, image)
	if ref != "" {
		// Already durable: the message keeps the reference, the bytes only
		// travel with the in-flight request.
		replacement = replacement.WithAttachmentRef(ref)
	}
	c.state.Append(replacement)

	c.startSend(ctx, tempID, text, image)
	return nil
}

// Cancel stops the in-flight task for tempID, if any. The task itself
// observes the cancellation and marks the user message FAILED; a task that
// already completed keeps its SENT/Loaded result, so a late cancel never
// regresses a success.
func (c *Controller) Cancel(tempID domain.MessageID) {
	c.mu.Lock()
	cancel, ok := c.jobs[tempID]
	delete(c.jobs, tempID)
	delete(c.attachments, tempID)
	c.mu.Unlock()

	if ok {
		cancel()
	}
}

// Close cancels all outstanding tasks, stops the persistence loop, waits
// for them, and writes a final snapshot.
func (c *Controller) Close() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.jobs))
	for _, cancel := range c.jobs {
		cancels = append(cancels, cancel)
	}
	c.jobs = make(map[domain.MessageID]context.CancelFunc)
	c.attachments = make(map[domain.MessageID][]byte)
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	c.baseStop()
	c.wg.Wait()
	c.persist()
}

// ─────────────────────────────────────────
// Send task
// ─────────────────────────────────────────

func (c *Controller) startSend(ctx context.Context, tempID domain.MessageID, text string, image []byte) {
	sendCtx, cancel := context.WithCancel(c.baseCtx)

	c.mu.Lock()
	if len(image) > 0 {
		c.attachments[tempID] = image
	}
	c.jobs[tempID] = cancel
	c.mu.Unlock()

	// The paired model reply starts loading the moment the send is issued.
	// The send gate was already closed by the caller's TryBeginSend.
	c.state.Append(domain.NewLoadingModelMessage(domain.MessageID(uuid.NewString())))

	c.wg.Add(1)
	go c.runSend(sendCtx, cancel, tempID, text, image)

	observability.LoggerFromContext(ctx).Info("send started",
		"temp_id", tempID,
		"has_image", len(image) > 0,
	)
}

func (c *Controller) runSend(ctx context.Context, cancel context.CancelFunc, tempID domain.MessageID, text string, image []byte) {
	defer c.wg.Done()

	log := observability.WithFields("temp_id", tempID)

	// All exit paths release the task handle and the stashed bytes. The
	// deletes tolerate Cancel having removed the entries first.
	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.jobs, tempID)
		delete(c.attachments, tempID)
		c.mu.Unlock()
	}()

	frags, err := c.handle.SendStream(ctx, text, image)
	if err != nil {
		log.Error("failed to open stream", "error", err)
		c.finishFailed(tempID, err)
		return
	}

	// Accepted for processing; the reply may still fail independently.
	c.state.MarkSent(tempID, "")

	var acc strings.Builder
	for frag := range frags {
		if frag.Err != nil {
			log.Error("stream failed", "error", frag.Err)
			c.finishFailed(tempID, frag.Err)
			return
		}

		acc.WriteString(frag.Text)
		partial := acc.String()
		c.state.UpdateNewestModelMessage(func(m domain.ModelMessage) domain.ModelMessage {
			if m.State != domain.ModelLoading {
				return m
			}
			m.Text = partial
			return m
		})
	}

	// Some gateways close the fragment channel silently when their context
	// is cancelled, so a bare close is not proof of natural completion.
	if err := ctx.Err(); err != nil {
		log.Info("send cancelled", "partial_len", acc.Len())
		c.finishFailed(tempID, err)
		return
	}

	reply := acc.String()
	c.state.UpdateNewestModelMessage(func(m domain.ModelMessage) domain.ModelMessage {
		if m.State != domain.ModelLoading {
			return m
		}
		return m.Loaded(reply)
	})
	c.state.SetCanSend(true)

	log.Info("send completed", "reply_len", len(reply))
}

// finishFailed finalizes a failed or cancelled send: the user message
// becomes FAILED and the open Loading reply becomes an Error with a
// human-readable description.
func (c *Controller) finishFailed(tempID domain.MessageID, cause error) {
	description := cause.Error()
	if errors.Is(cause, context.Canceled) {
		description = "cancelled"
	}

	c.state.MarkFailed(tempID)
	c.state.UpdateNewestModelMessage(func(m domain.ModelMessage) domain.ModelMessage {
		if m.State != domain.ModelLoading {
			return m
		}
		return m.Failed(description)
	})
	c.state.SetCanSend(true)
}

// ─────────────────────────────────────────
// Periodic persistence
// ─────────────────────────────────────────

func (c *Controller) persistLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.saveEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.baseCtx.Done():
			return
		case <-ticker.C:
			c.persist()
		}
	}
}

// persist snapshots the current state. Storage errors are swallowed: the
// in-memory conversation stays authoritative and fresher than disk.
func (c *Controller) persist() {
	stored, err := c.store.Save(c.state.Messages())
	if err != nil {
		observability.Logger().Error("failed to save conversation", "error", err)
	}

	// Bytes that reached the blob store collapse to their reference.
	for id, ref := range stored {
		c.state.SetAttachmentRef(id, ref)
	}
}
