// Package protocol defines the JSON wire messages exchanged between client
// and server and validates them at the connection boundary, so malformed
// traffic never reaches session logic.
package protocol

import (
	"encoding/json"
	"fmt"
)

type MessageType string

const (
	// Client to server.
	TypeConfig MessageType = "config"
	TypeStart  MessageType = "start"
	TypeAudio  MessageType = "audio"
	TypeStop   MessageType = "stop"

	// Either direction.
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"

	// Server to client.
	TypeConfigSuccess MessageType = "config_success"
	TypeStartSuccess  MessageType = "start_success"
	TypeStopSuccess   MessageType = "stop_success"
	TypeRecognizing   MessageType = "recognizing"
	TypeRecognized    MessageType = "recognized"
	TypeError         MessageType = "error"
)

const FormatPCM16 = "pcm16"

// Message is the closed wire envelope. Field presence depends on the tag;
// Decode enforces the per-tag requirements.
type Message struct {
	Type MessageType `json:"type"`

	// config
	Language string `json:"language,omitempty"`
	Source   string `json:"source,omitempty"`

	// audio
	Data       string `json:"data,omitempty"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Compressed *bool  `json:"compressed,omitempty"`

	// ping/pong
	Timestamp int64 `json:"timestamp,omitempty"`

	// recognizing/recognized
	Text       string   `json:"text,omitempty"`
	Finish     *bool    `json:"finish,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// error
	Message string `json:"message,omitempty"`
	Fatal   bool   `json:"fatal,omitempty"`
}

// Error reports a message that is malformed or arrived out of state. It is
// non-fatal: the receiver surfaces it as an error frame and carries on.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "protocol: " + e.Reason }

func Errorf(format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Decode parses and validates one wire message. The returned error is always
// a *Error when non-nil.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, Errorf("malformed json: %v", err)
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *Message) validate() error {
	switch m.Type {
	case TypeConfig:
		if m.Language == "" {
			return Errorf("config requires language")
		}
		if m.Source == "" {
			return Errorf("config requires source")
		}
	case TypeAudio:
		if m.Data == "" {
			return Errorf("audio requires data")
		}
		if m.Format != FormatPCM16 {
			return Errorf("unsupported audio format %q", m.Format)
		}
		if m.SampleRate <= 0 {
			return Errorf("audio requires a positive sampleRate")
		}
	case TypeRecognizing, TypeRecognized:
		if m.Text == "" && m.Type == TypeRecognized {
			return Errorf("%s requires text", m.Type)
		}
		if m.Finish == nil {
			return Errorf("%s requires finish", m.Type)
		}
	case TypeError:
		if m.Message == "" {
			return Errorf("error requires message")
		}
	case TypeStart, TypeStop, TypePing, TypePong,
		TypeConfigSuccess, TypeStartSuccess, TypeStopSuccess:
		// no required fields
	case "":
		return Errorf("missing type")
	default:
		return Errorf("unknown type %q", m.Type)
	}
	return nil
}

// IsCompressed reports whether an audio payload was compressed before
// transport encoding. Absent means compressed, matching the sender default.
func (m *Message) IsCompressed() bool {
	return m.Compressed == nil || *m.Compressed
}

func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
