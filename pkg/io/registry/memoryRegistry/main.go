package memoryregistry

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/xpanvictor/ava/pkg/io/broadcast"
	"github.com/xpanvictor/ava/pkg/io/registry"
)

type Options struct {
	Channel broadcast.Options
	// IdleTTL bounds how long an unpinned channel with parked frames lives.
	IdleTTL time.Duration
	// OnEvict is called with the device id of every removed channel.
	OnEvict func(deviceID string)
}

type entry struct {
	ch *broadcast.Channel
	// pins = live subscriptions + in-flight producers; only touched
	// inside Compute so it is serialized per key
	pins int64
}

type mmrRegistry struct {
	channels *xsync.MapOf[string, *entry]
	opts     Options
}

// GetOrCreate implements registry.DeviceRegistry.
func (m *mmrRegistry) GetOrCreate(deviceID string) *broadcast.Channel {
	e, _ := m.channels.Compute(deviceID, func(old *entry, loaded bool) (*entry, bool) {
		if loaded {
			return old, false
		}
		return m.newEntry(deviceID), false
	})
	return e.ch
}

// Get implements registry.DeviceRegistry.
func (m *mmrRegistry) Get(deviceID string) (*broadcast.Channel, error) {
	if e, ok := m.channels.Load(deviceID); ok {
		return e.ch, nil
	}
	return nil, registry.ErrDeviceChannelNotFound
}

// Acquire implements registry.DeviceRegistry.
func (m *mmrRegistry) Acquire(deviceID string) (*broadcast.Channel, func()) {
	ch := m.pin(deviceID)
	var once sync.Once
	return ch, func() { once.Do(func() { m.unpin(deviceID, ch) }) }
}

// Subscribe implements registry.DeviceRegistry.
func (m *mmrRegistry) Subscribe(deviceID string) *broadcast.Subscription {
	ch := m.pin(deviceID)
	return ch.Subscribe(func() { m.unpin(deviceID, ch) })
}

func (m *mmrRegistry) pin(deviceID string) *broadcast.Channel {
	e, _ := m.channels.Compute(deviceID, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			old = m.newEntry(deviceID)
		}
		old.pins++
		return old, false
	})
	return e.ch
}

// unpin drops one pin and evicts the channel right away when nothing holds it
// and nothing is waiting in it.
func (m *mmrRegistry) unpin(deviceID string, ch *broadcast.Channel) {
	evicted := false
	m.channels.Compute(deviceID, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			return old, true
		}
		if old.ch != ch {
			return old, false
		}
		old.pins--
		if old.pins <= 0 && ch.Pending() == 0 {
			evicted = true
			return old, true
		}
		return old, false
	})
	if evicted && m.opts.OnEvict != nil {
		m.opts.OnEvict(deviceID)
	}
}

// Sweep implements registry.DeviceRegistry.
func (m *mmrRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-m.opts.IdleTTL)
	candidates := make([]string, 0)
	m.channels.Range(func(deviceID string, e *entry) bool {
		if e.ch.LastActive().Before(cutoff) {
			candidates = append(candidates, deviceID)
		}
		return true
	})

	evicted := 0
	for _, deviceID := range candidates {
		removed := false
		m.channels.Compute(deviceID, func(old *entry, loaded bool) (*entry, bool) {
			if !loaded {
				return old, true
			}
			// re-check under the key lock, it may have been pinned since
			if old.pins <= 0 && old.ch.LastActive().Before(cutoff) {
				removed = true
				return old, true
			}
			return old, false
		})
		if removed {
			evicted++
			if m.opts.OnEvict != nil {
				m.opts.OnEvict(deviceID)
			}
		}
	}
	return evicted
}

// Len implements registry.DeviceRegistry.
func (m *mmrRegistry) Len() int {
	return m.channels.Size()
}

// Subscribers implements registry.DeviceRegistry.
func (m *mmrRegistry) Subscribers() int {
	total := 0
	m.channels.Range(func(_ string, e *entry) bool {
		total += e.ch.Subscribers()
		return true
	})
	return total
}

func (m *mmrRegistry) newEntry(deviceID string) *entry {
	return &entry{ch: broadcast.NewChannel(deviceID, m.opts.Channel)}
}

func New(opts Options) registry.DeviceRegistry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 5 * time.Minute
	}
	return &mmrRegistry{
		channels: xsync.NewMapOf[string, *entry](),
		opts:     opts,
	}
}
