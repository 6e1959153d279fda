package engine

import (
	"errors"
	"testing"

	"github.com/HoangNam-dev/FlowState-Engine/changelog"
)

func TestChangelogTopic(t *testing.T) {
	got := ChangelogTopic("my-app", "sessions")
	want := "my-app-sessions-changelog"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestNewContext(t *testing.T) {
	ctx := NewContext("app-1")
	if ctx == nil {
		t.Fatal("NewContext returned nil")
	}
	if ctx.ApplicationID() != "app-1" {
		t.Errorf("Expected application ID 'app-1', got %s", ctx.ApplicationID())
	}
	if ctx.Changelog() == nil {
		t.Error("Context should default to a fresh changelog")
	}
	if ctx.DefaultKeySerde() != nil || ctx.DefaultValueSerde() != nil {
		t.Error("Serdes should be nil unless configured")
	}
}

func TestContextWithChangelog(t *testing.T) {
	log := changelog.NewLog()
	ctx := NewContext("app-1", WithChangelog(log))
	if ctx.Changelog() != log {
		t.Error("Context should use the supplied changelog")
	}
}

func TestRegisterAndRestore(t *testing.T) {
	ctx := NewContext("app-1")
	topic := ChangelogTopic("app-1", "sessions")

	_ = ctx.Changelog().Append(topic, []byte("k1"), []byte("v1"))
	_ = ctx.Changelog().Append(topic, []byte("k2"), nil)

	type replayed struct {
		key       string
		tombstone bool
	}
	var got []replayed
	ctx.Register(topic, true, func(key, value []byte) {
		got = append(got, replayed{key: string(key), tombstone: value == nil})
	})

	if !ctx.Registered(topic) {
		t.Fatal("Topic should be registered")
	}
	if err := ctx.Restore(topic); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 replayed records, got %d", len(got))
	}
	if got[0].key != "k1" || got[0].tombstone {
		t.Errorf("Record 0 mismatch: %+v", got[0])
	}
	if got[1].key != "k2" || !got[1].tombstone {
		t.Errorf("Record 1 mismatch: %+v", got[1])
	}
}

func TestRestoreUnregisteredTopic(t *testing.T) {
	ctx := NewContext("app-1")

	err := ctx.Restore("unknown-topic")
	if !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Expected ErrNotRegistered, got %v", err)
	}
}

func TestRestoreAll(t *testing.T) {
	ctx := NewContext("app-1")

	_ = ctx.Changelog().Append("t1", []byte("a"), []byte("1"))
	_ = ctx.Changelog().Append("t2", []byte("b"), []byte("2"))

	seen := make(map[string]int)
	ctx.Register("t1", true, func(key, value []byte) { seen["t1"]++ })
	ctx.Register("t2", false, func(key, value []byte) { seen["t2"]++ })

	if err := ctx.RestoreAll(); err != nil {
		t.Fatalf("RestoreAll failed: %v", err)
	}
	if seen["t1"] != 1 || seen["t2"] != 1 {
		t.Errorf("Expected each topic replayed once, got %v", seen)
	}
}

func TestAppender(t *testing.T) {
	ctx := NewContext("app-1")

	w := ctx.Appender("topic-a")
	_ = w.Append([]byte("k"), []byte("v"))

	if ctx.Changelog().Len("topic-a") != 1 {
		t.Error("Appender should write into the context changelog")
	}
}

func TestRegisterReplaces(t *testing.T) {
	ctx := NewContext("app-1")
	topic := "t1"
	_ = ctx.Changelog().Append(topic, []byte("k"), []byte("v"))

	first, second := 0, 0
	ctx.Register(topic, true, func(key, value []byte) { first++ })
	ctx.Register(topic, true, func(key, value []byte) { second++ })

	if err := ctx.Restore(topic); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if first != 0 || second != 1 {
		t.Errorf("Second registration should replace the first, got %d/%d", first, second)
	}
}
