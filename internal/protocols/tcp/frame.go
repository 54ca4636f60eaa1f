// Package tcp carries domain events to the notification collaborator as
// length-prefixed JSON frames: a 4-byte big-endian length, then the body.
package tcp

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame body
const MaxFrameSize = 4096

var ErrFrameSize = errors.New("tcp frame size out of range")

// Ack is the collaborator's reply to every frame
type Ack struct {
	Status  string `json:"status"` // success or error
	Message string `json:"message,omitempty"`
}

// WriteFrame marshals v and writes it with its length prefix
func WriteFrame(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if len(data) > MaxFrameSize {
		return ErrFrameSize
	}

	// Write length prefix
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("write length: %w", err)
	}

	// Write data
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// ReadFrame reads one frame and unmarshals its body into v
func ReadFrame(r io.Reader, v interface{}) error {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return err
	}
	if length == 0 || length > MaxFrameSize {
		return ErrFrameSize
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse frame: %w", err)
	}
	return nil
}
