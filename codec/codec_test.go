package codec

import (
	"bytes"
	"testing"
)

func TestStringSerde(t *testing.T) {
	serde := String{}

	data, err := serde.Serialize("hello")
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	value, err := serde.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if value != "hello" {
		t.Errorf("Expected 'hello', got %q", value)
	}
}

func TestBytesSerde(t *testing.T) {
	serde := Bytes{}

	raw := []byte{0x00, 0x01, 0xff}
	data, _ := serde.Serialize(raw)
	value, _ := serde.Deserialize(data)
	if !bytes.Equal(value, raw) {
		t.Errorf("Expected %v, got %v", raw, value)
	}
}

func TestInt64Serde(t *testing.T) {
	serde := Int64{}

	for _, want := range []int64{0, 1, -1, 1<<62 - 1, -(1 << 62)} {
		data, err := serde.Serialize(want)
		if err != nil {
			t.Fatalf("Serialize(%d) failed: %v", want, err)
		}
		if len(data) != 8 {
			t.Fatalf("Expected 8 bytes, got %d", len(data))
		}
		value, err := serde.Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize failed: %v", err)
		}
		if value != want {
			t.Errorf("Expected %d, got %d", want, value)
		}
	}
}

func TestInt64SerdeRejectsBadLength(t *testing.T) {
	serde := Int64{}

	for _, data := range [][]byte{nil, {}, {1, 2, 3}, make([]byte, 9)} {
		if _, err := serde.Deserialize(data); err == nil {
			t.Errorf("Expected error for %d bytes", len(data))
		}
	}
}

func TestJSONSerde(t *testing.T) {
	type session struct {
		User  string `json:"user"`
		Count int    `json:"count"`
	}
	serde := JSON[session]{}

	data, err := serde.Serialize(session{User: "u1", Count: 3})
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	value, err := serde.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if value.User != "u1" || value.Count != 3 {
		t.Errorf("Round trip mismatch: %+v", value)
	}

	if _, err := serde.Deserialize([]byte("{broken")); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}
