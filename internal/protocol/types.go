// Package protocol implements the broker's wire format: a single
// connection-level length prefix plus a typed, self-describing body.
package protocol

import "github.com/google/uuid"

// TopicName identifies a topic. Equality is byte-exact and case-sensitive.
type TopicName = string

// ClientID identifies a subscription instance, chosen by the client.
type ClientID = uuid.UUID

// Offset is the position of a message within a topic, starting at 0.
type Offset = uint64

// Request tag bytes, stable wire values.
const (
	TagPing        byte = 0x01
	TagAddTopic    byte = 0x03
	TagListTopics  byte = 0x05
	TagDeleteTopic byte = 0x07
	TagPublish     byte = 0x09
	TagSubscribe   byte = 0x11
	TagUnsubscribe byte = 0x13
)

// Response tag bytes, stable wire values.
const (
	TagError      byte = 0x00
	TagPong       byte = 0x02
	TagAck        byte = 0x04
	TagNack       byte = 0x06
	TagMessage    byte = 0x08
	TagTopicsList byte = 0x10
)

// Request is any decoded client request. Some concrete types hold a slice
// (PublishRequest) or a pointer (SubscribeRequest), so decode(encode(r))
// equals r structurally (reflect.DeepEqual), not by ==.
type Request interface {
	requestTag() byte
}

// PingRequest carries no fields.
type PingRequest struct{}

func (PingRequest) requestTag() byte { return TagPing }

// AddTopicRequest creates a topic with a retention bound.
type AddTopicRequest struct {
	Topic     TopicName
	Retention uint64
}

func (AddTopicRequest) requestTag() byte { return TagAddTopic }

// ListTopicsRequest carries no fields.
type ListTopicsRequest struct{}

func (ListTopicsRequest) requestTag() byte { return TagListTopics }

// DeleteTopicRequest removes a topic.
type DeleteTopicRequest struct {
	Topic TopicName
}

func (DeleteTopicRequest) requestTag() byte { return TagDeleteTopic }

// PublishRequest appends a payload to a topic's log.
type PublishRequest struct {
	Topic   TopicName
	Payload []byte
}

func (PublishRequest) requestTag() byte { return TagPublish }

// SubscribeRequest opens (or replaces) a live subscription, optionally
// replaying retained records from FromOffset onward.
type SubscribeRequest struct {
	Topic      TopicName
	ClientID   ClientID
	FromOffset *uint64 // nil means "from the start"
}

func (SubscribeRequest) requestTag() byte { return TagSubscribe }

// UnsubscribeRequest tears down a live subscription.
type UnsubscribeRequest struct {
	Topic    TopicName
	ClientID ClientID
}

func (UnsubscribeRequest) requestTag() byte { return TagUnsubscribe }

// Response is any decoded or to-be-encoded server response.
type Response interface {
	responseTag() byte
}

// ErrorResponse carries a stable, human-readable message. Its exact text is
// part of the observable interface.
type ErrorResponse struct {
	Message string
}

func (ErrorResponse) responseTag() byte { return TagError }

// PongResponse carries no fields.
type PongResponse struct{}

func (PongResponse) responseTag() byte { return TagPong }

// AckResponse carries no fields.
type AckResponse struct{}

func (AckResponse) responseTag() byte { return TagAck }

// NackResponse carries no fields.
type NackResponse struct{}

func (NackResponse) responseTag() byte { return TagNack }

// MessageResponse delivers one retained or live record to a subscriber.
type MessageResponse struct {
	Topic   TopicName
	Payload []byte
	Offset  uint64
}

func (MessageResponse) responseTag() byte { return TagMessage }

// TopicsListResponse carries a snapshot of topic names in no particular order.
type TopicsListResponse struct {
	Topics []TopicName
}

func (TopicsListResponse) responseTag() byte { return TagTopicsList }
