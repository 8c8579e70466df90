package protocol

// DecodeResponse attempts to decode one Response frame from the front of
// buf. Same "need more / error / decoded" contract as DecodeRequest.
func DecodeResponse(buf []byte) (Response, int, error) {
	body, consumed, ok := splitFrame(buf)
	if !ok {
		return nil, 0, nil
	}
	resp, err := decodeResponseBody(body)
	if err != nil {
		return nil, 0, err
	}
	return resp, consumed, nil
}

func decodeResponseBody(body []byte) (Response, error) {
	r := newReader(body)
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagError:
		msg, err := r.u16String("message")
		if err != nil {
			return nil, err
		}
		return ErrorResponse{Message: msg}, nil
	case TagPong:
		return PongResponse{}, nil
	case TagAck:
		return AckResponse{}, nil
	case TagNack:
		return NackResponse{}, nil
	case TagMessage:
		topic, err := r.u16String("topic")
		if err != nil {
			return nil, err
		}
		payload, err := r.u32Bytes("payload")
		if err != nil {
			return nil, err
		}
		offset, err := r.u64()
		if err != nil {
			return nil, err
		}
		return MessageResponse{Topic: topic, Payload: payload, Offset: offset}, nil
	case TagTopicsList:
		topics, err := r.stringVec("topics")
		if err != nil {
			return nil, err
		}
		return TopicsListResponse{Topics: topics}, nil
	default:
		return nil, invalidData("unknown response tag 0x%02x", tag)
	}
}

// EncodeResponse appends the length-prefixed wire frame for resp onto dst.
func EncodeResponse(dst []byte, resp Response) []byte {
	w := &writer{}
	switch v := resp.(type) {
	case ErrorResponse:
		w.u8(TagError)
		w.u16String(v.Message)
	case PongResponse:
		w.u8(TagPong)
	case AckResponse:
		w.u8(TagAck)
	case NackResponse:
		w.u8(TagNack)
	case MessageResponse:
		w.u8(TagMessage)
		w.u16String(v.Topic)
		w.u32Bytes(v.Payload)
		w.u64(v.Offset)
	case TopicsListResponse:
		w.u8(TagTopicsList)
		w.stringVec(v.Topics)
	default:
		panic("protocol: unknown response type")
	}
	return writeFrame(dst, w.buf)
}
