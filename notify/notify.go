/*
Package notify delivers employee notifications produced by the
entitlement engine.

DESIGN:
  Core operations never send mail inside their transaction. They return
  pending Messages; the caller dispatches them after the transaction
  commits. Dispatch is best-effort: a delivery failure is logged and
  counted, never propagated, so a mail outage can never be mistaken for
  a data-mutation failure.
*/
package notify

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/metrics"
)

// Message is one pending notification.
type Message struct {
	ID      string
	To      string
	Subject string
	Body    string
}

// NewMessage builds a Message with a fresh id.
func NewMessage(to, subject, body string) Message {
	return Message{
		ID:      uuid.NewString(),
		To:      to,
		Subject: subject,
		Body:    body,
	}
}

// Notifier sends a single message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// DISPATCHER - Best-effort delivery after commit
// =============================================================================

// Dispatcher sends pending messages through a Notifier, swallowing
// failures.
type Dispatcher struct {
	Notifier Notifier
}

func NewDispatcher(n Notifier) *Dispatcher {
	return &Dispatcher{Notifier: n}
}

// Dispatch sends every message, logging and counting failures. It
// returns nothing: by the time messages exist, the balance mutation
// that produced them has already committed.
func (d *Dispatcher) Dispatch(ctx context.Context, msgs []Message) {
	for _, msg := range msgs {
		if msg.To == "" {
			continue
		}
		if err := d.Notifier.Send(ctx, msg); err != nil {
			metrics.NotificationsFailed.Inc()
			log.Printf("[Notify] delivery failed for %s (%q): %v", msg.To, msg.Subject, err)
			continue
		}
		metrics.NotificationsSent.Inc()
	}
}

// =============================================================================
// NOTIFIER IMPLEMENTATIONS
// =============================================================================

// LogNotifier writes messages to the process log. Used when SMTP is
// not configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("[Notify] to=%s subject=%q body=%q", msg.To, msg.Subject, msg.Body)
	return nil
}

// Recorder captures sent messages for assertions in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
