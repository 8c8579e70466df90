package topic

import (
	"errors"
	"sync"

	"odin-broker/internal/metrics"
	"odin-broker/internal/protocol"
)

// ErrTopicNotFound is returned by per-topic operations when the named
// topic does not exist in the registry.
var ErrTopicNotFound = errors.New("topic not found")

// ErrTopicExists names the duplicate-topic condition. AddTopic does not
// return it; AddTopic reports a duplicate name by returning false.
var ErrTopicExists = errors.New("topic already exists")

// Registry maps topic names to Topics. Structural mutation (add/delete) is
// serialized against other structural mutation and against reads; per-topic
// operations (publish/subscribe/unsubscribe) proceed against the topic's
// own lock once a reference has been looked up, so independent topics never
// contend with each other.
type Registry struct {
	metrics *metrics.Registry

	mu     sync.RWMutex
	topics map[protocol.TopicName]*Topic
}

// NewRegistry creates an empty registry. m may be nil, in which case every
// Topic it creates simply skips recording metrics.
func NewRegistry(m *metrics.Registry) *Registry {
	return &Registry{metrics: m, topics: make(map[protocol.TopicName]*Topic)}
}

// AddTopic inserts a new topic if absent. Returns false without mutating
// anything if a topic of that name already exists.
func (r *Registry) AddTopic(name protocol.TopicName, retention uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.topics[name]; exists {
		return false
	}
	r.topics[name] = New(name, retention, r.metrics)
	return true
}

// DeleteTopic removes a topic if present and closes its subscriber queues.
// Existing subscriber drain goroutines continue draining whatever is
// already queued, then observe the closed queue and exit on their own.
func (r *Registry) DeleteTopic(name protocol.TopicName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, exists := r.topics[name]
	if !exists {
		return false
	}
	delete(r.topics, name)

	t.mu.Lock()
	for clientID, queue := range t.subscribers {
		close(queue)
		delete(t.subscribers, clientID)
	}
	t.mu.Unlock()
	return true
}

// ListTopics returns a snapshot of current topic names in no particular
// order.
func (r *Registry) ListTopics() []protocol.TopicName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]protocol.TopicName, 0, len(r.topics))
	for name := range r.topics {
		names = append(names, name)
	}
	return names
}

// Count returns the number of topics currently in the registry. Diagnostic
// only, used for the topics-active gauge.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}

func (r *Registry) lookup(name protocol.TopicName) (*Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.topics[name]
	return t, ok
}

// PublishTo appends payload to the named topic's log and fans it out to
// current subscribers. Returns ErrTopicNotFound if the topic doesn't exist.
func (r *Registry) PublishTo(name protocol.TopicName, payload []byte) (MessageRecord, error) {
	t, ok := r.lookup(name)
	if !ok {
		return MessageRecord{}, ErrTopicNotFound
	}
	return t.Publish(payload), nil
}

// SubscribeOn opens a subscription on the named topic. Returns
// ErrTopicNotFound if the topic doesn't exist.
func (r *Registry) SubscribeOn(name protocol.TopicName, clientID protocol.ClientID, fromOffset *uint64) (<-chan MessageRecord, error) {
	t, ok := r.lookup(name)
	if !ok {
		return nil, ErrTopicNotFound
	}
	return t.Subscribe(clientID, fromOffset), nil
}

// UnsubscribeFrom removes clientID's subscription on the named topic.
// Returns ErrTopicNotFound if the topic doesn't exist; absence of the
// subscription itself is not an error.
func (r *Registry) UnsubscribeFrom(name protocol.TopicName, clientID protocol.ClientID) error {
	t, ok := r.lookup(name)
	if !ok {
		return ErrTopicNotFound
	}
	t.Unsubscribe(clientID)
	return nil
}
