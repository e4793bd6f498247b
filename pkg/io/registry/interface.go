package registry

import (
	"errors"
	"time"

	"github.com/xpanvictor/ava/pkg/io/broadcast"
)

var ErrDeviceChannelNotFound = errors.New("device channel not found")

// DeviceRegistry maps a device id to its single live broadcast channel.
// Implementations must be safe for arbitrary concurrent callers and must not
// serialize unrelated devices behind one lock.
type DeviceRegistry interface {
	// GetOrCreate is atomic: concurrent first accesses share one channel.
	GetOrCreate(deviceID string) *broadcast.Channel
	Get(deviceID string) (*broadcast.Channel, error)

	// Acquire pins the channel for an in-flight producer until release runs.
	Acquire(deviceID string) (ch *broadcast.Channel, release func())
	// Subscribe pins the channel for the lifetime of the subscription.
	Subscribe(deviceID string) *broadcast.Subscription

	// Sweep evicts unpinned channels idle since before now-ttl.
	Sweep(now time.Time) int

	Len() int
	Subscribers() int
}
