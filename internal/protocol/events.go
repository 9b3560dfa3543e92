package protocol

import "time"

// Constructors for the server-originated frames. Keeping them here means the
// session code never builds envelopes by hand.

func ConfigSuccess() *Message { return &Message{Type: TypeConfigSuccess} }
func StartSuccess() *Message  { return &Message{Type: TypeStartSuccess} }
func StopSuccess() *Message   { return &Message{Type: TypeStopSuccess} }

func Ping() *Message {
	return &Message{Type: TypePing, Timestamp: time.Now().UnixMilli()}
}

// Pong echoes the ping's timestamp so the sender can measure round trips.
func Pong(pingTimestamp int64) *Message {
	return &Message{Type: TypePong, Timestamp: pingTimestamp}
}

func Recognizing(text string) *Message {
	finish := false
	return &Message{Type: TypeRecognizing, Text: text, Finish: &finish}
}

func Recognized(text string, confidence *float64) *Message {
	finish := true
	return &Message{
		Type:       TypeRecognized,
		Text:       text,
		Finish:     &finish,
		Confidence: confidence,
	}
}

func ErrorFrame(message string, fatal bool) *Message {
	return &Message{Type: TypeError, Message: message, Fatal: fatal}
}

// Config builds the client's session configuration frame.
func Config(language, source string) *Message {
	return &Message{Type: TypeConfig, Language: language, Source: source}
}

// Audio wraps a transport-encoded payload. sampleRate is the PCM rate before
// compression.
func Audio(data string, sampleRate int, compressed bool) *Message {
	return &Message{
		Type:       TypeAudio,
		Data:       data,
		Format:     FormatPCM16,
		SampleRate: sampleRate,
		Compressed: &compressed,
	}
}

func Start() *Message { return &Message{Type: TypeStart} }
func Stop() *Message  { return &Message{Type: TypeStop} }
