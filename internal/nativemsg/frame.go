// Package nativemsg implements the Chrome Native Messaging wire framing
// cmd/nmrelay speaks with the browser extension: a 4-byte little-endian
// length prefix followed by a JSON payload.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize is the largest frame this protocol accepts; oversize frames
// are rejected, not truncated.
const MaxFrameSize = 1 << 20 // 1 MiB

// ErrFrameTooLarge is returned by ReadFrame when a length prefix exceeds
// MaxFrameSize.
var ErrFrameTooLarge = fmt.Errorf("nativemsg: frame exceeds %d bytes", MaxFrameSize)

// ReadFrame reads one length-prefixed frame from r and unmarshals it into
// v. Malformed frames (truncated length prefix, oversize length, invalid
// JSON) return an error; the caller should treat this as terminal for the
// connection.
func ReadFrame(r io.Reader, v interface{}) error {
	var lenBytes [4]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return err
	}
	n := binary.LittleEndian.Uint32(lenBytes[:])
	if n > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	return json.Unmarshal(buf, v)
}

// WriteFrame marshals v to JSON and writes it to w as a length-prefixed
// frame.
func WriteFrame(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if len(data) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(data)))
	if _, err := w.Write(lenBytes[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ChromeMessage is a frame received from the extension host.
type ChromeMessage struct {
	Type    string         `json:"type"`
	Payload *ChromePayload `json:"payload,omitempty"`
}

// ChromePayload is the extension's pushed content.
type ChromePayload struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// ChromeResponse acknowledges a received frame.
type ChromeResponse struct {
	Type     string `json:"type"`
	Received bool   `json:"received"`
}
