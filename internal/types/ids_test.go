package types

import (
	"testing"
	"time"
)

func TestNewDocumentID_TimeOrdered(t *testing.T) {
	first := NewDocumentID()
	time.Sleep(2 * time.Millisecond)
	second := NewDocumentID()
	if !(string(first) < string(second)) {
		t.Errorf("document ids not time ordered: %s >= %s", first, second)
	}
	if _, err := ParseDocumentID(string(first)); err != nil {
		t.Errorf("ParseDocumentID() error = %v", err)
	}
	if ts := DocumentIDTime(first); ts.IsZero() || time.Since(ts) > time.Minute {
		t.Errorf("DocumentIDTime() = %v, want recent", ts)
	}
}

func TestParseDocumentID_Invalid(t *testing.T) {
	if _, err := ParseDocumentID("not-a-uuid"); err == nil {
		t.Error("ParseDocumentID() error = nil, want error")
	}
	if ts := DocumentIDTime("not-a-uuid"); !ts.IsZero() {
		t.Errorf("DocumentIDTime() = %v, want zero", ts)
	}
}

func TestNewNodeID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewNodeID()
		if seen[id] {
			t.Fatalf("duplicate node id %s", id)
		}
		seen[id] = true
	}
}
