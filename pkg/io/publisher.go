package io

import (
	"context"

	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/io/broadcast"
	"github.com/xpanvictor/ava/pkg/io/events"
	"github.com/xpanvictor/ava/pkg/io/registry"
)

// Publisher routes events to the channel of one device. Publishing never
// fails because nobody is listening.
type Publisher struct {
	reg    registry.DeviceRegistry
	logger *Logger.Logger
}

func New(reg registry.DeviceRegistry, logger *Logger.Logger) Publisher {
	if logger == nil {
		logger = Logger.Nop()
	}
	return Publisher{reg: reg, logger: logger.Named("publisher")}
}

// Open pins the device channel for a series of sends. Close the sink when the
// producer is done.
func (p *Publisher) Open(deviceID string) *Sink {
	ch, release := p.reg.Acquire(deviceID)
	return &Sink{ch: ch, release: release, logger: p.logger}
}

type Sink struct {
	ch      *broadcast.Channel
	release func()
	logger  *Logger.Logger
}

func (s *Sink) Send(ctx context.Context, ev events.Event) error {
	res, err := s.ch.Publish(ev)
	if err != nil {
		s.logger.Errorw("publish failed", "device", s.ch.Device(), "type", ev.Type(), "error", err)
		return err
	}
	if res.Oversized {
		s.logger.Warnw("frame exceeds ring size, skipped", "device", s.ch.Device(), "type", ev.Type())
	} else if res.Dropped > 0 {
		s.logger.Warnw("lagging subscriber, frames dropped", "device", s.ch.Device(), "dropped", res.Dropped)
	}
	s.logger.Debugw("event published",
		"device", s.ch.Device(),
		"type", ev.Type(),
		"delivered", res.Delivered,
		"buffered", res.Buffered,
	)
	return nil
}

func (s *Sink) Close() {
	s.release()
}
