package notify

import (
	"context"
	"sync"
	"time"

	"clouddisk-sync/core/metrics"
	"clouddisk-sync/core/record"

	"go.uber.org/zap"
)

// Type is the kind of change being announced.
type Type string

const (
	TypeAdded    Type = "added"
	TypeUpdated  Type = "update"
	TypeModified Type = "modified"
	TypeDeleted  Type = "deleted"
)

// Op identifies which side of the sync produced the change.
type Op string

const (
	OpPull Op = "pull"
	OpPush Op = "push"
)

// Notification announces a change of one cloud-disk entry.
type Notification struct {
	Op        Op             `json:"op"`
	CloudID   string         `json:"cloud_id"`
	Type      Type           `json:"type"`
	Record    *record.Record `json:"-"`
	Timestamp int64          `json:"timestamp"`
}

// Sink receives notifications. Delivery is fire-and-forget: a sink never
// reports failure back to the caller.
type Sink interface {
	TryNotify(ctx context.Context, n Notification)
}

// Broadcaster fans notifications out to subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Notification]struct{}
	buffer      int
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold
// buffer pending notifications each.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		subscribers: make(map[chan Notification]struct{}),
		buffer:      buffer,
	}
}

// Subscribe adds a new subscriber and returns its channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan Notification {
	ch := make(chan Notification, b.buffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Notification) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// TryNotify sends n to every subscriber. Slow consumers drop it.
func (b *Broadcaster) TryNotify(_ context.Context, n Notification) {
	if n.Timestamp == 0 {
		n.Timestamp = time.Now().UnixMilli()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- n:
		default:
		}
	}
	metrics.RecordNotification(string(n.Type))
}

// LogSink writes notifications to a zap logger at debug level.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) TryNotify(_ context.Context, n Notification) {
	s.Logger.Debug("Change notification",
		zap.String("op", string(n.Op)),
		zap.String("type", string(n.Type)),
		zap.String("cloud_id", n.CloudID),
	)
}

// Multi delivers to every sink in order.
type Multi []Sink

func (m Multi) TryNotify(ctx context.Context, n Notification) {
	for _, s := range m {
		s.TryNotify(ctx, n)
	}
}

// Nop discards every notification.
type Nop struct{}

func (Nop) TryNotify(context.Context, Notification) {}
