package memoryregistry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xpanvictor/ava/pkg/io/broadcast"
	"github.com/xpanvictor/ava/pkg/io/events"
	"github.com/xpanvictor/ava/pkg/io/registry"
)

func TestConcurrentFirstAccessSharesOneChannel(t *testing.T) {
	reg := New(Options{})

	const workers = 64
	got := make([]*broadcast.Channel, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = reg.GetOrCreate("abc")
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d received a different channel", i)
		}
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 channel, got %d", reg.Len())
	}
}

func TestGetUnknownDevice(t *testing.T) {
	reg := New(Options{})
	if _, err := reg.Get("nope"); !errors.Is(err, registry.ErrDeviceChannelNotFound) {
		t.Errorf("expected ErrDeviceChannelNotFound, got %v", err)
	}
}

func TestDevicesAreIsolated(t *testing.T) {
	reg := New(Options{})
	a := reg.Subscribe("device-a")
	b := reg.Subscribe("device-b")
	defer a.Close()
	defer b.Close()

	ch, release := reg.Acquire("device-a")
	defer release()
	if _, err := ch.Publish(events.NewSignal(events.Transcribing)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if frames := a.Drain(); len(frames) != 1 {
		t.Errorf("device-a: expected 1 frame, got %d", len(frames))
	}
	if frames := b.Drain(); len(frames) != 0 {
		t.Errorf("device-b: expected no frames, got %d", len(frames))
	}
}

func TestLastReleaseEvictsEmptyChannel(t *testing.T) {
	evicted := make([]string, 0)
	reg := New(Options{OnEvict: func(id string) { evicted = append(evicted, id) }})

	sub := reg.Subscribe("abc")
	_, release := reg.Acquire("abc")
	if reg.Len() != 1 {
		t.Fatalf("expected 1 channel, got %d", reg.Len())
	}

	sub.Close()
	if reg.Len() != 1 {
		t.Errorf("channel should survive while a producer holds it")
	}
	release()
	release()
	if reg.Len() != 0 {
		t.Errorf("expected channel to be evicted, %d left", reg.Len())
	}
	if len(evicted) != 1 || evicted[0] != "abc" {
		t.Errorf("expected one eviction for abc, got %v", evicted)
	}
}

func TestParkedFramesSurviveUntilSweep(t *testing.T) {
	reg := New(Options{IdleTTL: time.Minute})

	ch, release := reg.Acquire("abc")
	if _, err := ch.Publish(events.NewSignal(events.Done)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	release()
	if reg.Len() != 1 {
		t.Fatalf("channel with parked frames should be kept, got %d", reg.Len())
	}

	if n := reg.Sweep(time.Now()); n != 0 {
		t.Errorf("fresh channel should not be swept, evicted %d", n)
	}

	sub := reg.Subscribe("abc")
	if frames := sub.Drain(); len(frames) != 1 {
		t.Errorf("expected parked frame on subscribe, got %d", len(frames))
	}
	sub.Close()
}

func TestSweepSkipsPinnedChannels(t *testing.T) {
	reg := New(Options{IdleTTL: time.Minute})

	sub := reg.Subscribe("held")
	defer sub.Close()
	reg.GetOrCreate("idle")

	if n := reg.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if _, err := reg.Get("held"); err != nil {
		t.Errorf("subscribed channel was evicted: %v", err)
	}
	if _, err := reg.Get("idle"); !errors.Is(err, registry.ErrDeviceChannelNotFound) {
		t.Errorf("idle channel should be gone, got %v", err)
	}
	if reg.Subscribers() != 1 {
		t.Errorf("expected 1 subscriber, got %d", reg.Subscribers())
	}
}
