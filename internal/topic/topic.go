// Package topic implements the per-topic append-only log with bounded
// retention, and the topic registry that owns all topics by name.
package topic

import (
	"sync"

	"odin-broker/internal/metrics"
	"odin-broker/internal/protocol"
)

// MessageRecord is one published, offset-stamped payload.
type MessageRecord struct {
	Offset  uint64
	Payload []byte
}

// subscriberQueue is the producer side a Topic holds for one subscriber.
// The connection handler owns the consumer side (the same channel); the
// Topic never reads from it, only sends.
type subscriberQueue chan MessageRecord

// outboundQueueSize is generous rather than unbounded in the literal Go
// sense (an actually unbounded channel isn't expressible), matching the
// spec's "unbounded" intent: large enough that a live fan-out essentially
// never blocks in practice, with the send itself still non-blocking (see
// Publish) so a full queue degrades to pruning, never to stalling the
// publisher.
const outboundQueueSize = 4096

// Topic is a named, append-only log with bounded retention and a registry
// of live subscriber queues.
type Topic struct {
	name      protocol.TopicName
	retention uint64
	metrics   *metrics.Registry

	mu          sync.Mutex
	nextOffset  uint64
	log         []MessageRecord // front = oldest retained record
	subscribers map[protocol.ClientID]subscriberQueue
}

// New creates an empty topic with the given retention bound. retention == 0
// is valid and means "no replay, no persistence". m may be nil, in which
// case Topic simply skips recording metrics.
func New(name protocol.TopicName, retention uint64, m *metrics.Registry) *Topic {
	return &Topic{
		name:        name,
		retention:   retention,
		metrics:     m,
		subscribers: make(map[protocol.ClientID]subscriberQueue),
	}
}

// Name returns the topic's immutable name.
func (t *Topic) Name() protocol.TopicName { return t.name }

// Retention returns the topic's immutable retention bound.
func (t *Topic) Retention() uint64 { return t.retention }

// Publish assigns the next offset, appends the record to the bounded log
// (dropping the oldest entry if retention is exceeded), and fans the
// record out to every current subscriber. A subscriber whose queue is full
// — which only happens once its consumer has stopped draining, since
// outboundQueueSize is sized far above any live backlog — is pruned from
// the subscriber map. Publish never blocks on a subscriber.
func (t *Topic) Publish(payload []byte) MessageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	record := MessageRecord{Offset: t.nextOffset, Payload: payload}
	t.nextOffset++

	t.log = append(t.log, record)
	if uint64(len(t.log)) > t.retention {
		t.log = t.log[1:]
	}

	var dead []protocol.ClientID
	for clientID, queue := range t.subscribers {
		select {
		case queue <- record:
		default:
			dead = append(dead, clientID)
		}
	}
	for _, clientID := range dead {
		close(t.subscribers[clientID])
		delete(t.subscribers, clientID)
	}

	if t.metrics != nil {
		t.metrics.Messages.Published.Inc()
		for range dead {
			t.metrics.Messages.SubscribersPruned.Inc()
		}
	}

	return record
}

// Subscribe creates a fresh outbound queue, replays retained records whose
// offset is >= fromOffset (default 0) onto it in order, then installs it
// under clientID. If clientID already has a subscription on this topic,
// the previous queue is replaced atomically: its consumer observes channel
// closure on its next receive and must exit, while the new queue receives
// both the replay and all future live messages (see DESIGN.md's resolution
// of the spec's duplicate-subscribe open question).
//
// The queue is sized to the replay batch plus outboundQueueSize so the
// replay loop below, which runs under t.mu, can never block: retention is
// an unbounded client-supplied value (spec.md §3), and a replay send that
// blocked while holding the topic lock would stall every other Publish,
// Subscribe, and Unsubscribe on this topic.
func (t *Topic) Subscribe(clientID protocol.ClientID, fromOffset *uint64) <-chan MessageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := uint64(0)
	if fromOffset != nil {
		start = *fromOffset
	}

	queue := make(subscriberQueue, uint64(len(t.log))+outboundQueueSize)
	for _, record := range t.log {
		if record.Offset >= start {
			queue <- record
		}
	}

	if old, exists := t.subscribers[clientID]; exists {
		close(old)
	}
	t.subscribers[clientID] = queue

	return queue
}

// Unsubscribe removes clientID's subscription, if any. Idempotent: absence
// is not an error.
func (t *Topic) Unsubscribe(clientID protocol.ClientID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if queue, ok := t.subscribers[clientID]; ok {
		close(queue)
		delete(t.subscribers, clientID)
	}
}

// LiveSubscriberCount returns the number of current subscribers. Diagnostic
// only.
func (t *Topic) LiveSubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}

// Snapshot returns a copy of the currently retained log, oldest first.
// Exposed for tests.
func (t *Topic) Snapshot() []MessageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MessageRecord, len(t.log))
	copy(out, t.log)
	return out
}

// NextOffset returns the next offset that will be assigned. Exposed for
// tests.
func (t *Topic) NextOffset() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextOffset
}
