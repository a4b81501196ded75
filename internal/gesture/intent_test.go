package gesture

import "testing"

func TestQueue_PushDropsWhenFull(t *testing.T) {
	q := NewQueue(2)

	if !q.Push(Intent{Kind: IntentStart}) {
		t.Fatal("first push rejected")
	}
	if !q.Push(Intent{Kind: IntentStop}) {
		t.Fatal("second push rejected")
	}
	if q.Push(Intent{Kind: IntentStart}) {
		t.Error("push into full queue should be rejected")
	}

	got := <-q.C()
	if got.Kind != IntentStart {
		t.Errorf("first intent = %q, want start", got.Kind)
	}
	got = <-q.C()
	if got.Kind != IntentStop {
		t.Errorf("second intent = %q, want stop", got.Kind)
	}
}

func TestNewQueue_DefaultSize(t *testing.T) {
	q := NewQueue(0)
	if cap(q.ch) != DefaultQueueSize {
		t.Errorf("capacity = %d, want %d", cap(q.ch), DefaultQueueSize)
	}
}
