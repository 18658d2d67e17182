package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("entry.", 10)
	defer unsub()

	b.Emit(EntryAdded, "e1")

	select {
	case evt := <-ch:
		if evt.Kind != EntryAdded {
			t.Errorf("got kind %q, want %s", evt.Kind, EntryAdded)
		}
		if evt.Payload != "e1" {
			t.Errorf("payload = %v, want e1", evt.Payload)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("mirror.", 10)
	defer unsub()

	b.Emit(EntryAdded, nil)
	b.Emit(MirrorFailed, nil)

	select {
	case evt := <-ch:
		if evt.Kind != MirrorFailed {
			t.Errorf("got kind %q, want %s", evt.Kind, MirrorFailed)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("entry.", 10)
	unsub()
	unsub()

	b.Emit(EntryDeleted, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("entry.", 1)
	defer unsub()

	b.Emit(EntryAdded, nil)
	// Buffer is full, so this one is dropped.
	b.Emit(EntryUpdated, nil)

	evt := <-ch
	if evt.Kind != EntryAdded {
		t.Errorf("got %q, want %s", evt.Kind, EntryAdded)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	default:
	}
}

func TestNilBusDiscards(t *testing.T) {
	var b *Bus
	b.Emit(EntryAdded, nil)
}
