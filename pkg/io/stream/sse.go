// Package stream serves a device subscription as a Server-Sent Events
// response.
package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/xpanvictor/ava/pkg/io/broadcast"
	"github.com/xpanvictor/ava/pkg/io/device"
)

const keepAliveComment = ":keep-alive-text\n\n"

var ErrStreamingUnsupported = errors.New("response writer cannot flush")

type sseEndpoint struct {
	id      device.EndpointID
	w       io.Writer
	flusher http.Flusher
}

func NewEndpoint(w http.ResponseWriter) (device.Endpoint, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &sseEndpoint{id: device.NewEndpointID(), w: w, flusher: flusher}, nil
}

// ID implements device.Endpoint.
func (s *sseEndpoint) ID() device.EndpointID { return s.id }

// Transport implements device.Endpoint.
func (s *sseEndpoint) Transport() device.Transport { return device.TransportSSE }

// WriteFrame implements device.Endpoint.
func (s *sseEndpoint) WriteFrame(frame []byte) error {
	if err := sse.Encode(s.w, sse.Event{Data: string(frame)}); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// KeepAlive implements device.Endpoint.
func (s *sseEndpoint) KeepAlive() error {
	if _, err := io.WriteString(s.w, keepAliveComment); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close implements device.Endpoint. The response is owned by the HTTP server.
func (s *sseEndpoint) Close() error { return nil }

// Serve writes the SSE headers and pumps sub into w until the client goes
// away. Closing the subscription is left to the caller.
func Serve(ctx context.Context, w http.ResponseWriter, sub *broadcast.Subscription, keepAlive time.Duration) error {
	ep, err := NewEndpoint(w)
	if err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.(http.Flusher).Flush()

	err = device.Pump(ctx, sub, ep, keepAlive)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
