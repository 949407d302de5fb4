package domain

import "sync"

// Conversation is the observable message list for one chat session.
// The controller is the single writer; the UI layer reads snapshots and
// subscribes to change notifications. Every mutation replaces the backing
// slice (copy-on-write) so a snapshot handed out earlier stays valid while
// new messages arrive.
type Conversation struct {
	mu        sync.RWMutex
	messages  []Message
	canSend   bool
	listeners []func()
}

func NewConversation() *Conversation {
	return &Conversation{canSend: true}
}

// OnChange registers fn to run after every mutation. Listeners are invoked
// synchronously outside the lock, in registration order.
func (c *Conversation) OnChange(fn func()) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Conversation) notify() {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Messages returns a snapshot of the timeline in arrival order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// CanSend reports whether a new send may be issued. It is false exactly
// while a model reply is still open.
func (c *Conversation) CanSend() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canSend
}

func (c *Conversation) SetCanSend(v bool) {
	c.mu.Lock()
	c.canSend = v
	c.mu.Unlock()
	c.notify()
}

// TryBeginSend atomically closes the send gate. It returns false when the
// gate is already closed because a reply is still open, so two racing
// senders can never both pass the check.
func (c *Conversation) TryBeginSend() bool {
	c.mu.Lock()
	if !c.canSend {
		c.mu.Unlock()
		return false
	}
	c.canSend = false
	c.mu.Unlock()
	c.notify()
	return true
}

// Append inserts a message at the end of the timeline.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	c.messages = appendCopy(c.messages, msg)
	c.mu.Unlock()
	c.notify()
}

// AddPendingUser appends a PENDING user message with the given id.
func (c *Conversation) AddPendingUser(text string, id MessageID) {
	c.Append(NewPendingUserMessage(id, text, nil))
}

// MarkSent replaces the user message with a SENT copy. If newID is
// non-empty the message is re-keyed to it. Unknown ids are a no-op:
// cancellation races can deliver duplicate marks.
func (c *Conversation) MarkSent(id MessageID, newID MessageID) {
	c.updateUser(id, func(m UserMessage) UserMessage {
		m = m.WithStatus(StatusSent)
		if newID != "" {
			m = m.WithID(newID)
		}
		return m
	})
}

// MarkFailed replaces the user message with a FAILED copy. No-op on
// unknown ids.
func (c *Conversation) MarkFailed(id MessageID) {
	c.updateUser(id, func(m UserMessage) UserMessage {
		return m.WithStatus(StatusFailed)
	})
}

// SetAttachmentRef collapses the user message's attachment bytes into a
// blob store reference once the bytes are durable.
func (c *Conversation) SetAttachmentRef(id MessageID, ref string) {
	c.updateUser(id, func(m UserMessage) UserMessage {
		return m.WithAttachmentRef(ref)
	})
}

// Remove deletes the message with the given id. No-op when absent, so
// retry flows stay idempotent.
func (c *Conversation) Remove(id MessageID) {
	c.mu.Lock()
	idx := -1
	for i, m := range c.messages {
		if m.MessageID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	next := make([]Message, 0, len(c.messages)-1)
	next = append(next, c.messages[:idx]...)
	next = append(next, c.messages[idx+1:]...)
	c.messages = next
	c.mu.Unlock()
	c.notify()
}

// UpdateNewestModelMessage locates the last model message by reverse scan
// and replaces it with transform's result. No-op when the timeline has no
// model message.
func (c *Conversation) UpdateNewestModelMessage(transform func(ModelMessage) ModelMessage) {
	c.mu.Lock()
	idx := -1
	for i := len(c.messages) - 1; i >= 0; i-- {
		if _, ok := c.messages[i].(ModelMessage); ok {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	next := make([]Message, len(c.messages))
	copy(next, c.messages)
	next[idx] = transform(next[idx].(ModelMessage))
	c.messages = next
	c.mu.Unlock()
	c.notify()
}

func (c *Conversation) updateUser(id MessageID, transform func(UserMessage) UserMessage) {
	c.mu.Lock()
	idx := -1
	for i, m := range c.messages {
		if um, ok := m.(UserMessage); ok && um.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	next := make([]Message, len(c.messages))
	copy(next, c.messages)
	next[idx] = transform(next[idx].(UserMessage))
	c.messages = next
	c.mu.Unlock()
	c.notify()
}

func appendCopy(msgs []Message, msg Message) []Message {
	next := make([]Message, len(msgs), len(msgs)+1)
	copy(next, msgs)
	return append(next, msg)
}
