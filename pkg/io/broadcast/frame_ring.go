package broadcast

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/smallnest/ringbuffer"
)

var ErrFrameTooLarge = errors.New("frame too large for ring")

const headerSize = 4

// frameRing is a bounded queue of length-prefixed frames on top of a byte
// ring. It holds at most limit frames; pushing into a full ring evicts the
// oldest frames first and never blocks.
type frameRing struct {
	mu     sync.Mutex
	rb     *ringbuffer.RingBuffer
	limit  int
	frames int
}

func newFrameRing(limit, bytes int) *frameRing {
	return &frameRing{
		rb:    ringbuffer.New(bytes).SetBlocking(false),
		limit: limit,
	}
}

// push appends frame and reports how many old frames were evicted for it.
func (r *frameRing) push(frame []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	need := len(frame) + headerSize
	if need > r.rb.Capacity() {
		return 0, ErrFrameTooLarge
	}

	dropped := 0
	for r.frames >= r.limit || r.rb.Free() < need {
		if !r.dropOldest() {
			// framing is broken, start over
			dropped += r.frames
			r.rb.Reset()
			r.frames = 0
			break
		}
		dropped++
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := r.rb.Write(header[:]); err != nil {
		return dropped, err
	}
	if len(frame) > 0 {
		if _, err := r.rb.Write(frame); err != nil {
			return dropped, err
		}
	}
	r.frames++
	return dropped, nil
}

// pop removes the oldest frame.
func (r *frameRing) pop() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.popLocked()
}

// drain removes every queued frame in order.
func (r *frameRing) drain() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, 0, r.frames)
	for {
		frame, ok := r.popLocked()
		if !ok {
			return out
		}
		out = append(out, frame)
	}
}

func (r *frameRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *frameRing) popLocked() ([]byte, bool) {
	if r.frames == 0 || r.rb.IsEmpty() {
		return nil, false
	}
	size, ok := r.readHeader()
	if !ok {
		r.rb.Reset()
		r.frames = 0
		return nil, false
	}
	frame := make([]byte, size)
	if size > 0 {
		n, err := r.rb.Read(frame)
		if err != nil || n != size {
			r.rb.Reset()
			r.frames = 0
			return nil, false
		}
	}
	r.frames--
	return frame, true
}

func (r *frameRing) dropOldest() bool {
	if r.frames == 0 || r.rb.IsEmpty() {
		return false
	}
	size, ok := r.readHeader()
	if !ok {
		return false
	}
	if size > 0 {
		skip := make([]byte, size)
		n, err := r.rb.Read(skip)
		if err != nil || n != size {
			return false
		}
	}
	r.frames--
	return true
}

func (r *frameRing) readHeader() (int, bool) {
	var header [headerSize]byte
	n, err := r.rb.Read(header[:])
	if err != nil || n != headerSize {
		return 0, false
	}
	return int(binary.LittleEndian.Uint32(header[:])), true
}
