// Package bus implements typed point-to-point and broadcast messaging
// between named workers. Delivery is store-and-forward: sends never
// block, mailboxes keep enqueue order, and messages are retained for
// audit rather than destroyed on read.
package bus

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/podium-dev/podium/pkg/models"
)

// DefaultMailboxCap is the sanity threshold on mailbox size. The design
// assumes small graphs, so growth past this is treated as a defect and
// rejected rather than allowed to consume memory silently.
const DefaultMailboxCap = 10000

// mailbox is one recipient's ordered message log.
type mailbox struct {
	messages []models.Message
	nextSeq  uint64
}

// Bus routes messages between named workers. A broadcast addressed to
// models.RecipientAll is duplicated into every known mailbox at the
// same logical instant.
type Bus struct {
	mu         sync.Mutex
	mailboxes  map[string]*mailbox
	mailboxCap int
	// onOverflow is called once per overflowing send, for logging.
	onOverflow func(recipient string, size int)
}

// Option configures a Bus.
type Option func(*Bus)

// WithMailboxCap overrides the mailbox sanity threshold.
func WithMailboxCap(n int) Option {
	return func(b *Bus) { b.mailboxCap = n }
}

// WithOverflowHandler sets a callback invoked when a send is rejected
// because the recipient's mailbox exceeded the cap.
func WithOverflowHandler(fn func(recipient string, size int)) Option {
	return func(b *Bus) { b.onOverflow = fn }
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		mailboxes:  make(map[string]*mailbox),
		mailboxCap: DefaultMailboxCap,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterMailbox creates an empty mailbox for a worker so broadcasts
// reach it even before its first direct message.
func (b *Bus) RegisterMailbox(worker string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.box(worker)
}

// Send enqueues a message and returns its ID. The sender is never
// blocked; the only failure mode is a mailbox past the sanity cap.
// Timestamp and per-recipient sequence numbers are assigned here.
func (b *Bus) Send(msg models.Message) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()[:8]
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	if msg.Recipient == models.RecipientAll {
		// Deliver to every mailbox at the same logical instant, each
		// copy carrying that recipient's own sequence number.
		for name := range b.mailboxes {
			if err := b.deliver(name, msg); err != nil {
				return "", err
			}
		}
		return msg.ID, nil
	}

	if err := b.deliver(msg.Recipient, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// deliver appends a copy of msg to one mailbox.
// Caller must hold b.mu.
func (b *Bus) deliver(recipient string, msg models.Message) error {
	box := b.box(recipient)
	if len(box.messages) >= b.mailboxCap {
		if b.onOverflow != nil {
			b.onOverflow(recipient, len(box.messages))
		}
		return fmt.Errorf("mailbox %s exceeds %d messages", recipient, b.mailboxCap)
	}
	msg.Recipient = recipient
	msg.Sequence = box.nextSeq
	box.nextSeq++
	box.messages = append(box.messages, msg)
	return nil
}

// Receive returns all of a worker's messages at or after sinceSeq, in
// enqueue order. Messages are not removed; consumers track their own
// cursor and message handling is idempotent, so at-least-once delivery
// is safe.
func (b *Bus) Receive(worker string, sinceSeq uint64) []models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	box, ok := b.mailboxes[worker]
	if !ok {
		return nil
	}
	var out []models.Message
	for _, msg := range box.messages {
		if msg.Sequence >= sinceSeq {
			out = append(out, msg)
		}
	}
	return out
}

// PeekAll returns the full message history across every mailbox,
// ordered by timestamp then recipient and sequence for determinism.
// Used by the passive-monitoring role; nothing is consumed.
func (b *Bus) PeekAll() []models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []models.Message
	for _, box := range b.mailboxes {
		out = append(out, box.messages...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].Recipient != out[j].Recipient {
			return out[i].Recipient < out[j].Recipient
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// MailboxSize returns the number of messages held for a worker.
func (b *Bus) MailboxSize(worker string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if box, ok := b.mailboxes[worker]; ok {
		return len(box.messages)
	}
	return 0
}

// box returns the mailbox for a recipient, creating it if needed.
// Caller must hold b.mu.
func (b *Bus) box(recipient string) *mailbox {
	box, ok := b.mailboxes[recipient]
	if !ok {
		box = &mailbox{}
		b.mailboxes[recipient] = box
	}
	return box
}
