package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWorkerEmitsFiveLinesOnTrigger(t *testing.T) {
	s := New()
	s.IncConnected()
	s.IncConnected()
	s.IncSub()

	var buf bytes.Buffer
	w := NewWorker(s, &buf)

	trigger := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		w.Run(trigger)
		close(done)
	}()

	trigger <- struct{}{}
	time.Sleep(20 * time.Millisecond)
	close(trigger)
	<-done

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "Connected clients:2" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if lines[2] != "pub operations:0" {
		t.Fatalf("unexpected pub line: %q", lines[2])
	}
	if lines[3] != "sub operations:1" {
		t.Fatalf("unexpected sub line: %q", lines[3])
	}
}

func TestWorkerInvokesOnSnapshotCallback(t *testing.T) {
	s := New()
	s.IncPub()

	var buf bytes.Buffer
	w := NewWorker(s, &buf)

	var got Snapshot
	w.OnSnapshot(func(snap Snapshot) { got = snap })

	trigger := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		w.Run(trigger)
		close(done)
	}()

	trigger <- struct{}{}
	time.Sleep(20 * time.Millisecond)
	close(trigger)
	<-done

	if got.PubOperations != 1 {
		t.Fatalf("expected callback snapshot to report 1 pub op, got %+v", got)
	}
}
