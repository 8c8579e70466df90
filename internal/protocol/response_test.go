package protocol

import (
	"reflect"
	"testing"
)

func TestResponseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		resp Response
	}{
		{"error", ErrorResponse{Message: "Topic orders not found"}},
		{"pong", PongResponse{}},
		{"ack", AckResponse{}},
		{"nack", NackResponse{}},
		{"message", MessageResponse{Topic: "orders", Payload: []byte("payload"), Offset: 7}},
		{"message_empty_payload", MessageResponse{Topic: "orders", Payload: []byte{}, Offset: 0}},
		{"topics_list", TopicsListResponse{Topics: []string{"orders", "shipments"}}},
		{"topics_list_empty", TopicsListResponse{Topics: []string{}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := EncodeResponse(nil, tc.resp)
			got, consumed, err := DecodeResponse(buf)
			if err != nil {
				t.Fatalf("DecodeResponse: %v", err)
			}
			if consumed != len(buf) {
				t.Fatalf("consumed %d, want %d", consumed, len(buf))
			}
			if !reflect.DeepEqual(got, tc.resp) {
				t.Fatalf("decode(encode(%v)) = %v", tc.resp, got)
			}
		})
	}
}

func TestDecodeResponseNeedsMoreBytes(t *testing.T) {
	resp, consumed, err := DecodeResponse(nil)
	if err != nil || resp != nil || consumed != 0 {
		t.Fatalf("expected need-more-bytes on empty buffer, got resp=%v consumed=%d err=%v", resp, consumed, err)
	}
}

func TestDecodeResponseUnknownTag(t *testing.T) {
	frame := writeFrame(nil, []byte{0xEE})
	_, _, err := DecodeResponse(frame)
	if err == nil {
		t.Fatal("expected error for unknown response tag")
	}
}

func TestMultipleFramesInOneBuffer(t *testing.T) {
	buf := EncodeRequest(nil, PingRequest{})
	buf = EncodeRequest(buf, ListTopicsRequest{})

	req1, n1, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if _, ok := req1.(PingRequest); !ok {
		t.Fatalf("expected PingRequest, got %T", req1)
	}

	rest := buf[n1:]
	req2, n2, err := DecodeRequest(rest)
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if _, ok := req2.(ListTopicsRequest); !ok {
		t.Fatalf("expected ListTopicsRequest, got %T", req2)
	}
	if n1+n2 != len(buf) {
		t.Fatalf("consumed %d+%d, want %d", n1, n2, len(buf))
	}
}
