package changelog

import (
	"bytes"
	"testing"
)

// FuzzDecodeSegment tests segment decoding with arbitrary inputs.
// Run with: go test -fuzz=FuzzDecodeSegment -fuzztime=30s ./changelog/
func FuzzDecodeSegment(f *testing.F) {
	// Seed corpus with a valid segment and near-misses
	valid, _ := EncodeSegment([]Record{
		{Key: []byte("k1"), Value: []byte("v1")},
		{Key: []byte("k2"), Value: nil},
	})
	f.Add(valid)
	if len(valid) > 4 {
		f.Add(valid[:len(valid)/2])
		f.Add(valid[4:])
	}
	f.Add([]byte{})
	f.Add([]byte("ARROW1"))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		records, err := DecodeSegment(data)
		if err != nil {
			return
		}
		// If decoding succeeded, the records must re-encode cleanly
		reencoded, err := EncodeSegment(records)
		if err != nil {
			t.Fatalf("re-encode of decoded segment failed: %v", err)
		}
		again, err := DecodeSegment(reencoded)
		if err != nil {
			t.Fatalf("decode of re-encoded segment failed: %v", err)
		}
		if len(again) != len(records) {
			t.Fatalf("record count changed across round trip: %d != %d", len(again), len(records))
		}
		for i := range records {
			if !bytes.Equal(again[i].Key, records[i].Key) {
				t.Fatalf("key %d changed across round trip", i)
			}
		}
	})
}
