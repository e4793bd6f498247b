// Package broadcast implements the per-device fan-out channel: one producer
// lane, many independent consumer cursors, bounded buffering with
// drop-oldest overflow. Writers never wait on readers.
package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xpanvictor/ava/pkg/io/events"
)

const (
	DefaultCapacity  = 128
	DefaultRingBytes = 256 << 10
)

type Options struct {
	// Capacity is the number of frames each subscriber may lag behind.
	Capacity int
	// RingBytes bounds the bytes buffered per subscriber.
	RingBytes int
	// OnDrop is told how many frames were evicted from a lagging cursor or
	// skipped for not fitting a ring.
	OnDrop func(n int)
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.RingBytes <= 0 {
		o.RingBytes = DefaultRingBytes
	}
	return o
}

// PublishResult describes where a frame went.
type PublishResult struct {
	Delivered int  // subscriber cursors that received the frame
	Buffered  bool // no subscribers; frame parked for the next one
	Dropped   int  // old frames evicted to make room, plus skipped oversized frames
	Oversized bool // frame exceeds RingBytes and reached nobody
}

type Channel struct {
	device string
	opts   Options

	mu      sync.Mutex
	subs    map[uint64]*Subscription
	nextID  uint64
	backlog *frameRing

	lastActive atomic.Int64
}

func NewChannel(device string, opts Options) *Channel {
	opts = opts.withDefaults()
	c := &Channel{
		device:  device,
		opts:    opts,
		subs:    make(map[uint64]*Subscription),
		backlog: newFrameRing(opts.Capacity, opts.RingBytes),
	}
	c.touch()
	return c
}

func (c *Channel) Device() string { return c.device }

// Publish serializes ev once and pushes it to every live cursor. With no
// subscribers the frame is parked (bounded, drop-oldest) and handed to the
// first subscriber that attaches. A frame too large for the ring is skipped
// and reported as a drop. Only an encoding failure is an error.
func (c *Channel) Publish(ev events.Event) (PublishResult, error) {
	frame, err := events.Encode(ev)
	if err != nil {
		return PublishResult{}, err
	}
	return c.PublishFrame(frame)
}

func (c *Channel) PublishFrame(frame []byte) (PublishResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	var res PublishResult
	if len(frame)+headerSize > c.opts.RingBytes {
		res.Oversized = true
		res.Dropped = 1
		c.reportDrop(1)
		return res, nil
	}

	if len(c.subs) == 0 {
		dropped, err := c.backlog.push(frame)
		c.reportDrop(dropped)
		if err != nil {
			return res, err
		}
		res.Buffered = true
		res.Dropped = dropped
		return res, nil
	}

	for _, sub := range c.subs {
		dropped, err := sub.ring.push(frame)
		c.reportDrop(dropped)
		res.Dropped += dropped
		if err != nil {
			res.Dropped++
			c.reportDrop(1)
			continue
		}
		res.Delivered++
		sub.notify()
	}
	return res, nil
}

// Subscribe attaches a new consumer cursor. release, when non-nil, runs once
// after the subscription is closed.
func (c *Channel) Subscribe(release func()) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.nextID++
	sub := &Subscription{
		id:      c.nextID,
		channel: c,
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		release: release,
	}
	if len(c.subs) == 0 && c.backlog.len() > 0 {
		sub.ring = c.backlog
		c.backlog = newFrameRing(c.opts.Capacity, c.opts.RingBytes)
		sub.notify()
	} else {
		sub.ring = newFrameRing(c.opts.Capacity, c.opts.RingBytes)
	}
	c.subs[sub.id] = sub
	return sub
}

func (c *Channel) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
	c.touch()
}

func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Pending is the number of frames parked for a future subscriber.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backlog.len()
}

func (c *Channel) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Channel) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Channel) reportDrop(n int) {
	if n > 0 && c.opts.OnDrop != nil {
		c.opts.OnDrop(n)
	}
}

// Subscription is one consumer cursor on a Channel.
type Subscription struct {
	id      uint64
	channel *Channel
	ring    *frameRing
	ready   chan struct{}
	done    chan struct{}
	once    sync.Once
	release func()
}

// Ready fires when frames are waiting; call Drain afterwards.
func (s *Subscription) Ready() <-chan struct{} { return s.ready }

// Done is closed once the subscription is closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Drain returns the waiting frames in publish order.
func (s *Subscription) Drain() [][]byte {
	return s.ring.drain()
}

func (s *Subscription) Device() string { return s.channel.device }

// Close detaches the cursor. Other subscribers and the channel are unaffected.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.channel.unsubscribe(s.id)
		close(s.done)
		if s.release != nil {
			s.release()
		}
	})
}

func (s *Subscription) notify() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}
