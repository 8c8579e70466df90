// Package dispatch maps a decoded protocol.Request onto registry side
// effects and produces the resulting protocol.Response(s). It is the one
// place that knows the error-message text the wire protocol promises.
package dispatch

import (
	"fmt"

	"odin-broker/internal/protocol"
	"odin-broker/internal/topic"
)

// Registry is the narrow six-operation surface the dispatcher needs. A
// concrete *topic.Registry satisfies it; tests can inject a fake instead —
// this is the seam spec.md's design notes call for in place of trait-object
// polymorphism.
type Registry interface {
	AddTopic(name protocol.TopicName, retention uint64) bool
	DeleteTopic(name protocol.TopicName) bool
	ListTopics() []protocol.TopicName
	PublishTo(name protocol.TopicName, payload []byte) (topic.MessageRecord, error)
	SubscribeOn(name protocol.TopicName, clientID protocol.ClientID, fromOffset *uint64) (<-chan topic.MessageRecord, error)
	UnsubscribeFrom(name protocol.TopicName, clientID protocol.ClientID) error
}

// SubscriptionStarted is returned alongside the Ack response for a
// successful Subscribe, carrying the channel the connection handler must
// drain and forward as Message responses.
type SubscriptionStarted struct {
	Topic    protocol.TopicName
	ClientID protocol.ClientID
	Queue    <-chan topic.MessageRecord
}

// Result is what Dispatch produces for one request: always exactly one
// immediate Response, plus a non-nil Subscription when the request was a
// successful Subscribe.
type Result struct {
	Response     protocol.Response
	Subscription *SubscriptionStarted
}

// Dispatch maps req onto a Registry side effect and a Response, per
// spec.md §4.5's table. Error message text is stable and is part of the
// broker's observable interface.
func Dispatch(reg Registry, req protocol.Request) Result {
	switch v := req.(type) {
	case protocol.PingRequest:
		return Result{Response: protocol.PongResponse{}}

	case protocol.AddTopicRequest:
		if reg.AddTopic(v.Topic, v.Retention) {
			return Result{Response: protocol.AckResponse{}}
		}
		return Result{Response: protocol.NackResponse{}}

	case protocol.ListTopicsRequest:
		return Result{Response: protocol.TopicsListResponse{Topics: reg.ListTopics()}}

	case protocol.DeleteTopicRequest:
		if reg.DeleteTopic(v.Topic) {
			return Result{Response: protocol.AckResponse{}}
		}
		return Result{Response: protocol.ErrorResponse{Message: topicNotFound(v.Topic)}}

	case protocol.PublishRequest:
		if _, err := reg.PublishTo(v.Topic, v.Payload); err != nil {
			return Result{Response: protocol.ErrorResponse{Message: topicNotFound(v.Topic)}}
		}
		return Result{Response: protocol.AckResponse{}}

	case protocol.SubscribeRequest:
		queue, err := reg.SubscribeOn(v.Topic, v.ClientID, v.FromOffset)
		if err != nil {
			return Result{Response: protocol.ErrorResponse{Message: topicNotFound(v.Topic)}}
		}
		return Result{
			Response: protocol.AckResponse{},
			Subscription: &SubscriptionStarted{
				Topic:    v.Topic,
				ClientID: v.ClientID,
				Queue:    queue,
			},
		}

	case protocol.UnsubscribeRequest:
		if err := reg.UnsubscribeFrom(v.Topic, v.ClientID); err != nil {
			return Result{Response: protocol.ErrorResponse{Message: topicNotFound(v.Topic)}}
		}
		return Result{Response: protocol.AckResponse{}}

	default:
		panic("dispatch: unknown request type")
	}
}

func topicNotFound(name protocol.TopicName) string {
	return fmt.Sprintf("Topic %s not found", name)
}
