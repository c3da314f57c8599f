package nativemsg

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := ChromeMessage{Type: "content", Payload: &ChromePayload{
		URL: "https://example.com", Title: "Example", Content: "hello", Source: "chrome",
	}}
	if err := WriteFrame(&buf, msg); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	var got ChromeMessage
	if err := ReadFrame(&buf, &got); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.Type != "content" || got.Payload == nil || got.Payload.Content != "hello" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestReadFrameRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], MaxFrameSize+1)
	buf.Write(lenBytes[:])

	var msg ChromeMessage
	err := ReadFrame(&buf, &msg)
	if err != ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestReadFrameRejectsMalformedJSON(t *testing.T) {
	var buf bytes.Buffer
	var lenBytes [4]byte
	payload := []byte("{not valid json")
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(payload)))
	buf.Write(lenBytes[:])
	buf.Write(payload)

	var msg ChromeMessage
	if err := ReadFrame(&buf, &msg); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}
