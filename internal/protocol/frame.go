package protocol

import "encoding/binary"

// frameHeaderLen is the size of the u32 big-endian body-length prefix that
// precedes every frame on the wire.
const frameHeaderLen = 4

// splitFrame looks for one complete length-prefixed frame at the front of
// buf. It returns the frame's body and how many bytes were consumed. ok is
// false when buf does not yet hold a full frame ("need more bytes") — this
// is not an error, the caller must wait for more reads. splitFrame never
// fails: malformed content is only detected once a full body is decoded.
func splitFrame(buf []byte) (body []byte, consumed int, ok bool) {
	if len(buf) < frameHeaderLen {
		return nil, 0, false
	}
	bodyLen := binary.BigEndian.Uint32(buf[:frameHeaderLen])
	total := frameHeaderLen + int(bodyLen)
	if len(buf) < total {
		return nil, 0, false
	}
	return buf[frameHeaderLen:total], total, true
}

// writeFrame appends a length-prefixed frame wrapping body onto dst.
func writeFrame(dst []byte, body []byte) []byte {
	var hdr [frameHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, body...)
	return dst
}
