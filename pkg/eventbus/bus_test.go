package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestPublishFiltersByPrefix(t *testing.T) {
	t.Parallel()
	b := New()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	starts, unsubStarts := b.Subscribe(4, "queue.start")
	defer unsubStarts()

	b.Publish(Event{Type: "queue.start"})
	b.Publish(Event{Type: "queue.complete"})

	if got := len(all); got != 2 {
		t.Fatalf("all subscriber got %d events, want 2", got)
	}
	if got := len(starts); got != 1 {
		t.Fatalf("prefix subscriber got %d events, want 1", got)
	}
	e := <-starts
	if e.Time.IsZero() {
		t.Fatalf("expected Publish to stamp the event time")
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		b.Publish(Event{Type: "a"})
		b.Publish(Event{Type: "b"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if e := <-ch; e.Type != "a" {
		t.Fatalf("got %q, want the first event", e.Type)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	b.Publish(Event{Type: "after"})
}

func TestUnsubscribeWhilePublishing(t *testing.T) {
	t.Parallel()
	b := New()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					b.Publish(Event{Type: "queue.complete"})
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		ch, unsub := b.Subscribe(1)
		select {
		case <-ch:
		default:
		}
		unsub()
		for range ch {
		}
	}
	close(stop)
	wg.Wait()
}
