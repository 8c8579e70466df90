package protocol

// DecodeRequest attempts to decode one Request frame from the front of buf.
// It returns (nil, 0, nil) when buf does not yet hold a complete frame, a
// non-nil error when the frame is malformed (unknown tag, truncated field,
// invalid UTF-8), or the decoded request and the number of bytes consumed.
func DecodeRequest(buf []byte) (Request, int, error) {
	body, consumed, ok := splitFrame(buf)
	if !ok {
		return nil, 0, nil
	}
	req, err := decodeRequestBody(body)
	if err != nil {
		return nil, 0, err
	}
	return req, consumed, nil
}

func decodeRequestBody(body []byte) (Request, error) {
	r := newReader(body)
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagPing:
		return PingRequest{}, nil
	case TagAddTopic:
		topic, err := r.u16String("topic")
		if err != nil {
			return nil, err
		}
		retention, err := r.u64()
		if err != nil {
			return nil, err
		}
		return AddTopicRequest{Topic: topic, Retention: retention}, nil
	case TagListTopics:
		return ListTopicsRequest{}, nil
	case TagDeleteTopic:
		topic, err := r.u16String("topic")
		if err != nil {
			return nil, err
		}
		return DeleteTopicRequest{Topic: topic}, nil
	case TagPublish:
		topic, err := r.u16String("topic")
		if err != nil {
			return nil, err
		}
		payload, err := r.u32Bytes("payload")
		if err != nil {
			return nil, err
		}
		return PublishRequest{Topic: topic, Payload: payload}, nil
	case TagSubscribe:
		topic, err := r.u16String("topic")
		if err != nil {
			return nil, err
		}
		clientID, err := r.uuidVal("client_id")
		if err != nil {
			return nil, err
		}
		fromOffset, err := r.optionU64("from_offset")
		if err != nil {
			return nil, err
		}
		return SubscribeRequest{Topic: topic, ClientID: clientID, FromOffset: fromOffset}, nil
	case TagUnsubscribe:
		topic, err := r.u16String("topic")
		if err != nil {
			return nil, err
		}
		clientID, err := r.uuidVal("client_id")
		if err != nil {
			return nil, err
		}
		return UnsubscribeRequest{Topic: topic, ClientID: clientID}, nil
	default:
		return nil, invalidData("unknown request tag 0x%02x", tag)
	}
}

// EncodeRequest appends the length-prefixed wire frame for req onto dst and
// returns the extended slice.
func EncodeRequest(dst []byte, req Request) []byte {
	w := &writer{}
	switch v := req.(type) {
	case PingRequest:
		w.u8(TagPing)
	case AddTopicRequest:
		w.u8(TagAddTopic)
		w.u16String(v.Topic)
		w.u64(v.Retention)
	case ListTopicsRequest:
		w.u8(TagListTopics)
	case DeleteTopicRequest:
		w.u8(TagDeleteTopic)
		w.u16String(v.Topic)
	case PublishRequest:
		w.u8(TagPublish)
		w.u16String(v.Topic)
		w.u32Bytes(v.Payload)
	case SubscribeRequest:
		w.u8(TagSubscribe)
		w.u16String(v.Topic)
		w.uuidVal(v.ClientID)
		w.optionU64(v.FromOffset)
	case UnsubscribeRequest:
		w.u8(TagUnsubscribe)
		w.u16String(v.Topic)
		w.uuidVal(v.ClientID)
	default:
		panic("protocol: unknown request type")
	}
	return writeFrame(dst, w.buf)
}
