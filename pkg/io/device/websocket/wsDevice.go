package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xpanvictor/ava/pkg/io/broadcast"
	"github.com/xpanvictor/ava/pkg/io/device"
)

const writeWait = 5 * time.Second

type wsEndpoint struct {
	id     device.EndpointID
	client *websocket.Conn
	// gorilla allows one concurrent writer
	mu sync.Mutex
}

// ID implements device.Endpoint.
func (w *wsEndpoint) ID() device.EndpointID {
	return w.id
}

// Transport implements device.Endpoint.
func (w *wsEndpoint) Transport() device.Transport {
	return device.TransportWS
}

// WriteFrame implements device.Endpoint. Each event is one text message.
func (w *wsEndpoint) WriteFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.client.SetWriteDeadline(time.Now().Add(writeWait))
	return w.client.WriteMessage(websocket.TextMessage, frame)
}

// KeepAlive implements device.Endpoint.
func (w *wsEndpoint) KeepAlive() error {
	return w.client.WriteControl(websocket.PingMessage, []byte("keep-alive"), time.Now().Add(writeWait))
}

// Close implements device.Endpoint.
func (w *wsEndpoint) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.client.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return w.client.Close()
}

func New(client *websocket.Conn) device.Endpoint {
	return &wsEndpoint{
		id:     device.NewEndpointID(),
		client: client,
	}
}

// Serve pumps sub into the connection until the peer disconnects or ctx ends.
// Inbound messages are read and discarded so close frames and pongs are seen.
func Serve(ctx context.Context, conn *websocket.Conn, sub *broadcast.Subscription, keepAlive time.Duration) error {
	ep := New(conn)
	defer ep.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err := device.Pump(ctx, sub, ep, keepAlive)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
