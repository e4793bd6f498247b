package device

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/ava/pkg/io/broadcast"
)

type Transport string

const (
	TransportSSE Transport = "sse"
	TransportWS  Transport = "ws"
)

type EndpointID uuid.UUID

func (id EndpointID) String() string { return uuid.UUID(id).String() }

func NewEndpointID() EndpointID { return EndpointID(uuid.New()) }

// Endpoint is one open connection of a device that frames are pushed to.
type Endpoint interface {
	ID() EndpointID
	Transport() Transport
	// WriteFrame sends one serialized event and flushes it.
	WriteFrame(frame []byte) error
	// KeepAlive sends a transport-level liveness marker that carries no event.
	KeepAlive() error
	Close() error
}

// Pump forwards frames from sub to ep in publish order until ctx ends, the
// subscription closes or a write fails. A keep-alive goes out after every
// interval of silence.
func Pump(ctx context.Context, sub *broadcast.Subscription, ep Endpoint, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Done():
			return nil
		case <-sub.Ready():
			for _, frame := range sub.Drain() {
				if err := ep.WriteFrame(frame); err != nil {
					return err
				}
			}
			timer.Reset(interval)
		case <-timer.C:
			if err := ep.KeepAlive(); err != nil {
				return err
			}
			timer.Reset(interval)
		}
	}
}
