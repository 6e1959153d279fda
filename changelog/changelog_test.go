package changelog

import (
	"bytes"
	"fmt"
	"testing"
)

func TestLogAppendReplay(t *testing.T) {
	l := NewLog()

	_ = l.Append("topic-a", []byte("k1"), []byte("v1"))
	_ = l.Append("topic-a", []byte("k2"), nil)
	_ = l.Append("topic-b", []byte("other"), []byte("x"))

	if l.Len("topic-a") != 2 {
		t.Errorf("Expected 2 records on topic-a, got %d", l.Len("topic-a"))
	}

	var keys []string
	var tombstones []bool
	err := l.Replay("topic-a", func(key, value []byte) {
		keys = append(keys, string(key))
		tombstones = append(tombstones, value == nil)
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if len(keys) != 2 || keys[0] != "k1" || keys[1] != "k2" {
		t.Errorf("Expected append order [k1 k2], got %v", keys)
	}
	if tombstones[0] || !tombstones[1] {
		t.Errorf("Expected tombstone flags [false true], got %v", tombstones)
	}
}

func TestLogReplayEmptyTopic(t *testing.T) {
	l := NewLog()

	calls := 0
	if err := l.Replay("never-written", func(key, value []byte) { calls++ }); err != nil {
		t.Fatalf("Replay of a fresh topic should succeed, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no callbacks, got %d", calls)
	}
}

func TestLogRejectsEmptyTopicName(t *testing.T) {
	l := NewLog()

	if err := l.Append("", []byte("k"), nil); err != ErrEmptyTopic {
		t.Errorf("Expected ErrEmptyTopic, got %v", err)
	}
	if err := l.Replay("", func(key, value []byte) {}); err != ErrEmptyTopic {
		t.Errorf("Expected ErrEmptyTopic, got %v", err)
	}
}

func TestLogAppendCopiesBuffers(t *testing.T) {
	l := NewLog()

	key := []byte("k1")
	value := []byte("v1")
	_ = l.Append("topic", key, value)
	key[0] = 'X'
	value[0] = 'X'

	records := l.Records("topic")
	if string(records[0].Key) != "k1" || string(records[0].Value) != "v1" {
		t.Error("Append must copy caller buffers")
	}
}

func TestLogCompact(t *testing.T) {
	l := NewLog()

	_ = l.Append("topic", []byte("k1"), []byte("v1"))
	_ = l.Append("topic", []byte("k2"), []byte("v2"))
	_ = l.Append("topic", []byte("k1"), []byte("v1-new"))
	_ = l.Append("topic", []byte("k3"), []byte("v3"))
	_ = l.Append("topic", []byte("k2"), nil) // tombstone drops k2 entirely

	l.Compact("topic")

	records := l.Records("topic")
	if len(records) != 2 {
		t.Fatalf("Expected 2 records after compaction, got %d", len(records))
	}
	if string(records[0].Key) != "k1" || string(records[0].Value) != "v1-new" {
		t.Errorf("Expected latest k1 record, got %q=%q", records[0].Key, records[0].Value)
	}
	if string(records[1].Key) != "k3" {
		t.Errorf("Expected k3 to survive, got %q", records[1].Key)
	}
}

func TestTopicWriter(t *testing.T) {
	l := NewLog()
	w := l.Writer("topic-a")

	if w.Topic() != "topic-a" {
		t.Errorf("Expected topic-a, got %s", w.Topic())
	}

	_ = w.Append([]byte("k1"), []byte("v1"))
	_ = w.Append([]byte("k2"), nil)

	if l.Len("topic-a") != 2 {
		t.Errorf("Expected 2 records through the writer, got %d", l.Len("topic-a"))
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	records := []Record{
		{Key: []byte("k1"), Value: []byte("v1")},
		{Key: []byte("k2"), Value: nil}, // tombstone
		{Key: []byte("k3"), Value: []byte{}},
	}

	segment, err := EncodeSegment(records)
	if err != nil {
		t.Fatalf("EncodeSegment failed: %v", err)
	}

	decoded, err := DecodeSegment(segment)
	if err != nil {
		t.Fatalf("DecodeSegment failed: %v", err)
	}
	if len(decoded) != len(records) {
		t.Fatalf("Expected %d records, got %d", len(records), len(decoded))
	}

	for i, want := range records {
		if !bytes.Equal(decoded[i].Key, want.Key) {
			t.Errorf("Record %d key mismatch: %q", i, decoded[i].Key)
		}
	}
	if decoded[0].Value == nil || !bytes.Equal(decoded[0].Value, []byte("v1")) {
		t.Errorf("Record 0 value mismatch: %v", decoded[0].Value)
	}
	if decoded[1].Value != nil {
		t.Error("Record 1 should decode as a tombstone")
	}
	// empty value and tombstone must stay distinguishable
	if decoded[2].Value == nil {
		t.Error("Record 2 empty value must not decode as a tombstone")
	}
}

func TestSegmentDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeSegment([]byte("not a segment")); err == nil {
		t.Error("Expected error decoding garbage")
	}
}

func TestSnapshotLoad(t *testing.T) {
	src := NewLog()
	for i := 0; i < 5; i++ {
		_ = src.Append("topic", []byte(fmt.Sprintf("k%d", i)), []byte(fmt.Sprintf("v%d", i)))
	}
	_ = src.Append("topic", []byte("k0"), nil)

	segment, err := src.Snapshot("topic")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	dst := NewLog()
	if err := dst.Load("topic", segment); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if dst.Len("topic") != src.Len("topic") {
		t.Errorf("Expected %d records, got %d", src.Len("topic"), dst.Len("topic"))
	}
	records := dst.Records("topic")
	last := records[len(records)-1]
	if string(last.Key) != "k0" || last.Value != nil {
		t.Errorf("Expected trailing k0 tombstone, got %q=%v", last.Key, last.Value)
	}
}
