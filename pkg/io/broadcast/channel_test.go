package broadcast

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xpanvictor/ava/pkg/io/events"
)

func TestFrameRingDropsOldest(t *testing.T) {
	ring := newFrameRing(3, 1024)

	for i := 0; i < 5; i++ {
		dropped, err := ring.push([]byte(fmt.Sprintf("frame-%d", i)))
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		if i < 3 && dropped != 0 {
			t.Errorf("push %d: expected no drops, got %d", i, dropped)
		}
		if i >= 3 && dropped != 1 {
			t.Errorf("push %d: expected one drop, got %d", i, dropped)
		}
	}

	frames := ring.drain()
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, want := range []string{"frame-2", "frame-3", "frame-4"} {
		if string(frames[i]) != want {
			t.Errorf("frame %d: expected %s, got %s", i, want, frames[i])
		}
	}
	if ring.len() != 0 {
		t.Errorf("expected empty ring after drain, got %d", ring.len())
	}
}

func TestFrameRingEvictsForBytes(t *testing.T) {
	// room for two 8-byte frames (+4 header each) but not three
	ring := newFrameRing(10, 30)

	for _, f := range []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"} {
		if _, err := ring.push([]byte(f)); err != nil {
			t.Fatalf("push %s: %v", f, err)
		}
	}
	first, ok := ring.pop()
	if !ok || string(first) != "bbbbbbbb" {
		t.Errorf("expected oldest surviving frame bbbbbbbb, got %q", first)
	}
}

func TestFrameRingRejectsOversizedFrame(t *testing.T) {
	ring := newFrameRing(4, 16)
	if _, err := ring.push(make([]byte, 32)); err != ErrFrameTooLarge {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	ch := NewChannel("abc", Options{})
	a := ch.Subscribe(nil)
	b := ch.Subscribe(nil)
	defer a.Close()
	defer b.Close()

	res, err := ch.Publish(events.NewSignal(events.UploadReceived))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Delivered != 2 || res.Buffered {
		t.Errorf("expected delivery to 2 cursors, got %+v", res)
	}

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		select {
		case <-sub.Ready():
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s was not notified", name)
		}
		frames := sub.Drain()
		if len(frames) != 1 {
			t.Fatalf("subscriber %s: expected 1 frame, got %d", name, len(frames))
		}
	}
}

func TestPublishWithoutSubscribersIsBufferedForFirstSubscriber(t *testing.T) {
	ch := NewChannel("abc", Options{})

	res, err := ch.Publish(events.NewSignal(events.Done))
	if err != nil {
		t.Fatalf("publish without subscribers should not fail: %v", err)
	}
	if !res.Buffered {
		t.Errorf("expected frame to be parked, got %+v", res)
	}
	if ch.Pending() != 1 {
		t.Errorf("expected 1 pending frame, got %d", ch.Pending())
	}

	sub := ch.Subscribe(nil)
	defer sub.Close()
	select {
	case <-sub.Ready():
	default:
		t.Fatal("expected parked frame to be ready on subscribe")
	}
	frames := sub.Drain()
	if len(frames) != 1 {
		t.Fatalf("expected parked frame, got %d frames", len(frames))
	}
	if ch.Pending() != 0 {
		t.Errorf("backlog should be handed over, still %d pending", ch.Pending())
	}

	// a second subscriber only sees new traffic
	late := ch.Subscribe(nil)
	defer late.Close()
	if got := late.Drain(); len(got) != 0 {
		t.Errorf("late subscriber should start empty, got %d frames", len(got))
	}
}

func TestCloseDetachesOnlyThatSubscriber(t *testing.T) {
	ch := NewChannel("abc", Options{})
	released := 0
	a := ch.Subscribe(func() { released++ })
	b := ch.Subscribe(nil)
	defer b.Close()

	a.Close()
	a.Close()
	if released != 1 {
		t.Errorf("release should run exactly once, ran %d times", released)
	}
	select {
	case <-a.Done():
	default:
		t.Error("closed subscription should report done")
	}

	res, err := ch.Publish(events.NewSignal(events.Deciding))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Delivered != 1 {
		t.Errorf("expected delivery to remaining subscriber only, got %+v", res)
	}
	if ch.Subscribers() != 1 {
		t.Errorf("expected 1 subscriber, got %d", ch.Subscribers())
	}
}

func TestSlowSubscriberDropsOldestWithoutBlockingWriter(t *testing.T) {
	var mu sync.Mutex
	totalDropped := 0
	ch := NewChannel("abc", Options{Capacity: 4, OnDrop: func(n int) {
		mu.Lock()
		totalDropped += n
		mu.Unlock()
	}})
	sub := ch.Subscribe(nil)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_, _ = ch.Publish(events.UserText(fmt.Sprintf("msg-%d", i)))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	frames := sub.Drain()
	if len(frames) != 4 {
		t.Fatalf("expected 4 newest frames, got %d", len(frames))
	}
	ev, err := events.Decode(frames[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg := ev.(events.Message); msg.Content != "msg-6" {
		t.Errorf("expected oldest surviving msg-6, got %s", msg.Content)
	}
	mu.Lock()
	defer mu.Unlock()
	if totalDropped != 6 {
		t.Errorf("expected 6 dropped frames, got %d", totalDropped)
	}
}

func TestOversizedFrameIsDroppedWithOrWithoutSubscribers(t *testing.T) {
	dropped := 0
	ch := NewChannel("abc", Options{RingBytes: 64, OnDrop: func(n int) { dropped += n }})
	big := events.UserText(strings.Repeat("x", 128))

	res, err := ch.Publish(big)
	if err != nil {
		t.Fatalf("publish without subscribers: %v", err)
	}
	if !res.Oversized || res.Buffered || ch.Pending() != 0 {
		t.Errorf("expected oversized frame to be skipped, got %+v pending=%d", res, ch.Pending())
	}

	sub := ch.Subscribe(nil)
	defer sub.Close()
	res, err = ch.Publish(big)
	if err != nil {
		t.Fatalf("publish with a subscriber: %v", err)
	}
	if !res.Oversized || res.Delivered != 0 {
		t.Errorf("expected oversized frame to reach nobody, got %+v", res)
	}
	if dropped != 2 {
		t.Errorf("expected both skips reported, got %d", dropped)
	}

	if res, err := ch.Publish(events.UserText("ok")); err != nil || res.Delivered != 1 {
		t.Errorf("expected small frame delivered after skip, got %+v %v", res, err)
	}
}

func TestPublishOrderIsPreserved(t *testing.T) {
	ch := NewChannel("abc", Options{})
	sub := ch.Subscribe(nil)
	defer sub.Close()

	stages := []events.Stage{events.UploadReceived, events.Transcribing, events.Deciding, events.Synthesizing, events.Done}
	for _, s := range stages {
		if _, err := ch.Publish(events.NewSignal(s)); err != nil {
			t.Fatalf("publish %s: %v", s, err)
		}
	}
	frames := sub.Drain()
	if len(frames) != len(stages) {
		t.Fatalf("expected %d frames, got %d", len(stages), len(frames))
	}
	for i, frame := range frames {
		ev, err := events.Decode(frame)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := ev.(events.Signal).Status; got != stages[i] {
			t.Errorf("frame %d: expected %s, got %s", i, stages[i], got)
		}
	}
}
