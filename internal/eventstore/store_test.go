package eventstore

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

const testBuildID = "build-123"

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()
	payload := []byte(`{"test": "data"}`)

	if err := store.Append(ctx, testBuildID, "TestEvent", payload, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByBuildID(ctx, testBuildID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.BuildID != testBuildID {
		t.Errorf("expected build_id %s, got %s", testBuildID, event.BuildID)
	}
	if event.Type != "TestEvent" {
		t.Errorf("expected event_type TestEvent, got %s", event.Type)
	}
	if !bytes.Equal(event.Payload, payload) {
		t.Errorf("expected payload %s, got %s", payload, event.Payload)
	}
	if event.Metadata["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", event.Metadata)
	}
}

func TestEventStoreGetRange(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	before := time.Now().Add(-time.Second)
	for _, id := range []string{"b1", "b2"} {
		if err := store.Append(ctx, id, TypeBuildStarted, nil, nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := store.GetRange(ctx, before, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	events, err = store.GetRange(ctx, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events in future range, got %d", len(events))
	}
}

func TestRecentSummaries(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	record := func(id, typ string, payload any) {
		t.Helper()
		if err := Record(ctx, store, id, typ, payload); err != nil {
			t.Fatalf("Record(%s, %s): %v", id, typ, err)
		}
	}

	record("b1", TypeBuildStarted, BuildStartedPayload{Mode: "folders", Trigger: "cli"})
	record("b1", TypeBuildCompleted, BuildCompletedPayload{Full: true, Added: 3, Rendered: 3, Documents: 3, DurationMS: 40})
	record("b2", TypeBuildStarted, BuildStartedPayload{Mode: "folders", Trigger: "watch"})
	record("b2", TypeBuildSkipped, BuildSkippedPayload{Documents: 3})
	record("b3", TypeBuildStarted, BuildStartedPayload{Mode: "folders"})
	record("b3", TypeBuildFailed, BuildFailedPayload{Error: "render guide/a.md: boom", DurationMS: 5})

	summaries, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].BuildID != "b3" || summaries[0].Status != StatusFailed {
		t.Errorf("newest summary = %+v", summaries[0])
	}
	if summaries[0].Error == "" || summaries[0].Duration != 5*time.Millisecond {
		t.Errorf("failure details missing: %+v", summaries[0])
	}
	if summaries[1].BuildID != "b2" || summaries[1].Status != StatusSkipped || summaries[1].Trigger != "watch" {
		t.Errorf("second summary = %+v", summaries[1])
	}

	all, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(all))
	}
	first := all[2]
	if first.Status != StatusCompleted || !first.Full || first.Changes != 3 || first.CompletedAt == nil {
		t.Errorf("completed summary = %+v", first)
	}
}

func TestFileBackedStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Record(t.Context(), store, "b1", TypeBuildSkipped, BuildSkippedPayload{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByBuildID(t.Context(), "b1")
	if err != nil || len(events) != 1 {
		t.Fatalf("expected persisted event, got %d (%v)", len(events), err)
	}
}

func TestSummarizeIgnoresBadPayload(t *testing.T) {
	now := time.Now()
	summaries := Summarize([]Event{
		{BuildID: "x", Type: TypeBuildStarted, Timestamp: now, Payload: []byte("{")},
		{BuildID: "x", Type: TypeBuildCompleted, Timestamp: now.Add(time.Second), Payload: []byte("{}")},
		{Type: TypeBuildStarted, Timestamp: now},
	})
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].Status != StatusCompleted || summaries[0].Mode != "" {
		t.Errorf("unexpected summary %+v", summaries[0])
	}
}
