package dispatch

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"odin-broker/internal/protocol"
	"odin-broker/internal/topic"
)

// fakeRegistry is a hand-written double for the Registry seam so dispatch
// logic can be tested without a real topic.Registry underneath it.
type fakeRegistry struct {
	topics map[protocol.TopicName]bool

	addTopicResult    bool
	deleteTopicResult bool
	publishErr        error
	subscribeQueue    <-chan topic.MessageRecord
	subscribeErr      error
	unsubscribeErr    error

	lastPublishTopic   protocol.TopicName
	lastPublishPayload []byte
	lastSubTopic       protocol.TopicName
	lastSubClient      protocol.ClientID
	lastSubFromOffset  *uint64
	lastUnsubTopic     protocol.TopicName
	lastUnsubClient    protocol.ClientID
}

func (f *fakeRegistry) AddTopic(name protocol.TopicName, retention uint64) bool {
	return f.addTopicResult
}

func (f *fakeRegistry) DeleteTopic(name protocol.TopicName) bool {
	return f.deleteTopicResult
}

func (f *fakeRegistry) ListTopics() []protocol.TopicName {
	names := make([]protocol.TopicName, 0, len(f.topics))
	for n := range f.topics {
		names = append(names, n)
	}
	return names
}

func (f *fakeRegistry) PublishTo(name protocol.TopicName, payload []byte) (topic.MessageRecord, error) {
	f.lastPublishTopic = name
	f.lastPublishPayload = payload
	if f.publishErr != nil {
		return topic.MessageRecord{}, f.publishErr
	}
	return topic.MessageRecord{Offset: 0, Payload: payload}, nil
}

func (f *fakeRegistry) SubscribeOn(name protocol.TopicName, clientID protocol.ClientID, fromOffset *uint64) (<-chan topic.MessageRecord, error) {
	f.lastSubTopic = name
	f.lastSubClient = clientID
	f.lastSubFromOffset = fromOffset
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	return f.subscribeQueue, nil
}

func (f *fakeRegistry) UnsubscribeFrom(name protocol.TopicName, clientID protocol.ClientID) error {
	f.lastUnsubTopic = name
	f.lastUnsubClient = clientID
	return f.unsubscribeErr
}

func TestDispatchPing(t *testing.T) {
	result := Dispatch(&fakeRegistry{}, protocol.PingRequest{})
	if !reflect.DeepEqual(result.Response, protocol.PongResponse{}) {
		t.Fatalf("response = %v, want PongResponse", result.Response)
	}
	if result.Subscription != nil {
		t.Fatal("ping must not start a subscription")
	}
}

func TestDispatchAddTopicSuccess(t *testing.T) {
	reg := &fakeRegistry{addTopicResult: true}
	result := Dispatch(reg, protocol.AddTopicRequest{Topic: "orders", Retention: 10})
	if !reflect.DeepEqual(result.Response, protocol.AckResponse{}) {
		t.Fatalf("response = %v, want AckResponse", result.Response)
	}
}

func TestDispatchAddTopicDuplicateIsNack(t *testing.T) {
	reg := &fakeRegistry{addTopicResult: false}
	result := Dispatch(reg, protocol.AddTopicRequest{Topic: "orders", Retention: 10})
	if !reflect.DeepEqual(result.Response, protocol.NackResponse{}) {
		t.Fatalf("response = %v, want NackResponse", result.Response)
	}
}

func TestDispatchListTopics(t *testing.T) {
	reg := &fakeRegistry{topics: map[protocol.TopicName]bool{"orders": true, "shipments": true}}
	result := Dispatch(reg, protocol.ListTopicsRequest{})
	list, ok := result.Response.(protocol.TopicsListResponse)
	if !ok {
		t.Fatalf("response = %T, want TopicsListResponse", result.Response)
	}
	if len(list.Topics) != 2 {
		t.Fatalf("topics = %v, want 2 entries", list.Topics)
	}
}

func TestDispatchDeleteTopicSuccess(t *testing.T) {
	reg := &fakeRegistry{deleteTopicResult: true}
	result := Dispatch(reg, protocol.DeleteTopicRequest{Topic: "orders"})
	if !reflect.DeepEqual(result.Response, protocol.AckResponse{}) {
		t.Fatalf("response = %v, want AckResponse", result.Response)
	}
}

func TestDispatchDeleteTopicNotFound(t *testing.T) {
	reg := &fakeRegistry{deleteTopicResult: false}
	result := Dispatch(reg, protocol.DeleteTopicRequest{Topic: "orders"})
	want := protocol.ErrorResponse{Message: "Topic orders not found"}
	if !reflect.DeepEqual(result.Response, want) {
		t.Fatalf("response = %v, want %v", result.Response, want)
	}
}

func TestDispatchPublishSuccess(t *testing.T) {
	reg := &fakeRegistry{}
	result := Dispatch(reg, protocol.PublishRequest{Topic: "orders", Payload: []byte("hi")})
	if !reflect.DeepEqual(result.Response, protocol.AckResponse{}) {
		t.Fatalf("response = %v, want AckResponse", result.Response)
	}
	if reg.lastPublishTopic != "orders" || string(reg.lastPublishPayload) != "hi" {
		t.Fatalf("registry received topic=%q payload=%q", reg.lastPublishTopic, reg.lastPublishPayload)
	}
}

func TestDispatchPublishUnknownTopic(t *testing.T) {
	reg := &fakeRegistry{publishErr: errors.New("not found")}
	result := Dispatch(reg, protocol.PublishRequest{Topic: "ghost", Payload: []byte("hi")})
	want := protocol.ErrorResponse{Message: "Topic ghost not found"}
	if !reflect.DeepEqual(result.Response, want) {
		t.Fatalf("response = %v, want %v", result.Response, want)
	}
}

func TestDispatchSubscribeSuccessStartsSubscription(t *testing.T) {
	queue := make(chan topic.MessageRecord)
	reg := &fakeRegistry{subscribeQueue: queue}
	clientID := uuid.New()
	from := uint64(3)

	result := Dispatch(reg, protocol.SubscribeRequest{Topic: "orders", ClientID: clientID, FromOffset: &from})

	if !reflect.DeepEqual(result.Response, protocol.AckResponse{}) {
		t.Fatalf("response = %v, want AckResponse", result.Response)
	}
	if result.Subscription == nil {
		t.Fatal("expected a SubscriptionStarted result")
	}
	if result.Subscription.Topic != "orders" || result.Subscription.ClientID != clientID {
		t.Fatalf("subscription = %+v, want topic=orders client=%v", result.Subscription, clientID)
	}
	if reg.lastSubFromOffset == nil || *reg.lastSubFromOffset != 3 {
		t.Fatalf("fromOffset passed through = %v, want 3", reg.lastSubFromOffset)
	}
}

func TestDispatchSubscribeUnknownTopic(t *testing.T) {
	reg := &fakeRegistry{subscribeErr: errors.New("not found")}
	result := Dispatch(reg, protocol.SubscribeRequest{Topic: "ghost", ClientID: uuid.New()})
	want := protocol.ErrorResponse{Message: "Topic ghost not found"}
	if !reflect.DeepEqual(result.Response, want) {
		t.Fatalf("response = %v, want %v", result.Response, want)
	}
	if result.Subscription != nil {
		t.Fatal("failed subscribe must not start a subscription")
	}
}

func TestDispatchUnsubscribeSuccess(t *testing.T) {
	reg := &fakeRegistry{}
	clientID := uuid.New()
	result := Dispatch(reg, protocol.UnsubscribeRequest{Topic: "orders", ClientID: clientID})
	if !reflect.DeepEqual(result.Response, protocol.AckResponse{}) {
		t.Fatalf("response = %v, want AckResponse", result.Response)
	}
	if reg.lastUnsubTopic != "orders" || reg.lastUnsubClient != clientID {
		t.Fatalf("registry received topic=%q client=%v", reg.lastUnsubTopic, reg.lastUnsubClient)
	}
}

func TestDispatchUnsubscribeUnknownTopic(t *testing.T) {
	reg := &fakeRegistry{unsubscribeErr: errors.New("not found")}
	result := Dispatch(reg, protocol.UnsubscribeRequest{Topic: "ghost", ClientID: uuid.New()})
	want := protocol.ErrorResponse{Message: "Topic ghost not found"}
	if !reflect.DeepEqual(result.Response, want) {
		t.Fatalf("response = %v, want %v", result.Response, want)
	}
}
