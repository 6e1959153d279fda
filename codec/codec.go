// Package codec provides serdes for store keys and values.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Serde serializes and deserializes a single type to and from raw bytes.
// Tombstones never reach a Serde: a nil raw value is resolved to the
// tombstone marker by the store layer before deserialization.
type Serde[T any] interface {
	Serialize(value T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

// String is a Serde for UTF-8 strings.
type String struct{}

func (String) Serialize(value string) ([]byte, error) {
	return []byte(value), nil
}

func (String) Deserialize(data []byte) (string, error) {
	return string(data), nil
}

// Bytes is a pass-through Serde for raw byte slices.
type Bytes struct{}

func (Bytes) Serialize(value []byte) ([]byte, error) {
	return value, nil
}

func (Bytes) Deserialize(data []byte) ([]byte, error) {
	return data, nil
}

// Int64 is a big-endian fixed-width Serde for int64.
type Int64 struct{}

func (Int64) Serialize(value int64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return buf, nil
}

func (Int64) Deserialize(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("int64 serde: expected 8 bytes, got %d", len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

// JSON is a Serde encoding any value as JSON.
type JSON[T any] struct{}

func (JSON[T]) Serialize(value T) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json serde: %w", err)
	}
	return data, nil
}

func (JSON[T]) Deserialize(data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("json serde: %w", err)
	}
	return value, nil
}
