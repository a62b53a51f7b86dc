package jobs

import (
	"testing"
	"time"

	"media-transcoder/internal/domain"
)

// TestEventBusSince verifies incremental event reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3)
	bus.Publish(Event{Type: EventTypeStatus, Message: "1"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "2"})
	bus.Publish(Event{Type: EventTypeStatus, Message: "3"})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
}

// TestEventBusCapsHistory verifies buffer limit trimming behavior.
func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

// TestEventBusUnboundedKeepsEverything verifies the session log is never trimmed.
func TestEventBusUnboundedKeepsEverything(t *testing.T) {
	bus := NewEventBus(0)
	for i := 0; i < 2000; i++ {
		bus.Publish(Event{Type: EventTypeLog, Message: "entry"})
	}
	bus.Publish(Event{Type: EventTypeProgress, Progress: 50})

	if got := len(bus.Since(0)); got != 2001 {
		t.Fatalf("len = %d, want 2001", got)
	}
	logs := bus.Logs()
	if len(logs) != 2000 {
		t.Fatalf("logs = %d, want 2000", len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].Seq <= logs[i-1].Seq || logs[i].Timestamp.Before(logs[i-1].Timestamp) {
			t.Fatalf("log reordered at %d: %+v then %+v", i, logs[i-1], logs[i])
		}
	}
}

// TestFormatLogEntry verifies the UI rendering of a log line.
func TestFormatLogEntry(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 4, 5, 0, time.Local)
	got := FormatLogEntry(domain.LogEntry{Timestamp: ts, Message: "File loaded: 10 bytes"})
	if want := "[09:04:05] File loaded: 10 bytes"; got != want {
		t.Fatalf("FormatLogEntry() = %q, want %q", got, want)
	}
}
