package codec

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func sinePCM(n int) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(12000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(s >> 8)
	}
	return pcm
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
	}{
		{name: "empty", pcm: nil},
		{name: "all zero", pcm: make([]byte, 8192)},
		{name: "all max", pcm: bytes.Repeat([]byte{0xFF, 0x7F}, 4096)},
		{name: "sine", pcm: sinePCM(4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := Encode(tt.pcm)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := Decode(compressed)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(decoded, tt.pcm) {
				t.Errorf("round trip mismatch: in=%d bytes out=%d bytes",
					len(tt.pcm), len(decoded))
			}
		})
	}
}

func TestEncode_CompressesSilence(t *testing.T) {
	pcm := make([]byte, 16000)
	compressed, err := Encode(pcm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(compressed) >= len(pcm)/10 {
		t.Errorf("silence should compress well: %d -> %d bytes", len(pcm), len(compressed))
	}
}

func TestDecode_Truncated(t *testing.T) {
	compressed, err := Encode(sinePCM(4096))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = Decode(compressed[:len(compressed)/2])
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if cerr.Kind != KindTruncated {
		t.Errorf("expected kind %s, got %s", KindTruncated, cerr.Kind)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "garbage", data: []byte("this was never compressed data")},
		{name: "bad header", data: []byte{0x00, 0x01, 0x02, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if cerr.Kind != KindInvalid {
				t.Errorf("expected kind %s, got %s", KindInvalid, cerr.Kind)
			}
		})
	}
}

func TestDecode_CorruptedChecksum(t *testing.T) {
	compressed, err := Encode(sinePCM(4096))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Flip a bit in the trailing adler32 checksum.
	compressed[len(compressed)-1] ^= 0xFF

	_, err = Decode(compressed)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if cerr.Kind != KindInvalid {
		t.Errorf("expected kind %s, got %s", KindInvalid, cerr.Kind)
	}
}

func TestTransport_RoundTrip(t *testing.T) {
	pcm := sinePCM(2048)
	payload, err := EncodeTransport(pcm)
	if err != nil {
		t.Fatalf("EncodeTransport: %v", err)
	}
	decoded, err := DecodeTransport(payload)
	if err != nil {
		t.Fatalf("DecodeTransport: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Error("transport round trip mismatch")
	}
}

func TestDecodeTransport_BadBase64(t *testing.T) {
	_, err := DecodeTransport("not!!!base64###")
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if cerr.Kind != KindInvalid {
		t.Errorf("expected kind %s, got %s", KindInvalid, cerr.Kind)
	}
}

func TestRaw_RoundTrip(t *testing.T) {
	pcm := sinePCM(512)
	decoded, err := DecodeRaw(EncodeRaw(pcm))
	if err != nil {
		t.Fatalf("DecodeRaw: %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Error("raw round trip mismatch")
	}
}

func TestRatio(t *testing.T) {
	if r := Ratio(0, 100); r != 1 {
		t.Errorf("Ratio(0, 100) = %v, want 1", r)
	}
	if r := Ratio(1000, 100); r != 0.1 {
		t.Errorf("Ratio(1000, 100) = %v, want 0.1", r)
	}
}

func TestEncoderPoolReuse(t *testing.T) {
	// Back-to-back encodes through the pooled writer must not bleed state.
	a := sinePCM(1024)
	b := make([]byte, 2048)

	ca, err := Encode(a)
	if err != nil {
		t.Fatalf("Encode a: %v", err)
	}
	cb, err := Encode(b)
	if err != nil {
		t.Fatalf("Encode b: %v", err)
	}

	da, err := Decode(ca)
	if err != nil {
		t.Fatalf("Decode a: %v", err)
	}
	db, err := Decode(cb)
	if err != nil {
		t.Fatalf("Decode b: %v", err)
	}
	if !bytes.Equal(da, a) || !bytes.Equal(db, b) {
		t.Error("pooled writer leaked state between encodes")
	}
}
