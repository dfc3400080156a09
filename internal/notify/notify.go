// Package notify delivers one-shot error messages to whoever is watching a
// list: the log, the browser, or other processes.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Notifier is fire-and-forget. Implementations must not block for long.
type Notifier interface {
	NotifyError(ctx context.Context, message string)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, message string)

func (f Func) NotifyError(ctx context.Context, message string) {
	f(ctx, message)
}

// Discard drops every message.
var Discard Notifier = Func(func(context.Context, string) {})

// Log writes every message as a warning.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) NotifyError(ctx context.Context, message string) {
	l.logger.WarnContext(ctx, "List notification", "message", message)
}

// Multi fans a message out to every notifier in order.
type Multi []Notifier

func (m Multi) NotifyError(ctx context.Context, message string) {
	for _, n := range m {
		if n != nil {
			n.NotifyError(ctx, message)
		}
	}
}

// Inbox queues messages until a renderer drains them. When full, the oldest
// message is dropped.
type Inbox struct {
	mu    sync.Mutex
	limit int
	msgs  []string
}

const defaultInboxLimit = 16

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return &Inbox{limit: limit}
}

func (b *Inbox) NotifyError(_ context.Context, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, message)
	if over := len(b.msgs) - b.limit; over > 0 {
		b.msgs = append([]string(nil), b.msgs[over:]...)
	}
}

// Drain returns and removes every queued message.
func (b *Inbox) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.msgs
	b.msgs = nil
	return out
}

// Len returns the number of queued messages.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}
