// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/homelab-ops/homestead/internal/config"
	"github.com/homelab-ops/homestead/internal/logging"
	"github.com/homelab-ops/homestead/internal/metrics"
)

const (
	streamName = "HOMESTEAD_EVENTS"

	defaultRetention = 7 * 24 * time.Hour
	duplicateWindow  = 2 * time.Minute

	reconnectWait    = 2 * time.Second
	maxReconnects    = 10
	subscribersCount = 1
	ackWaitTimeout   = 30 * time.Second
	closeTimeout     = 10 * time.Second
)

// Bus is the process-wide event bus. With NATS enabled it publishes to a
// JetStream stream, optionally hosted by an embedded server; otherwise an
// in-process channel pub/sub carries the same topics with no durability.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *EmbeddedServer

	// shared is set when publisher and subscriber are the same gochannel
	// backend, which must only be closed once.
	shared bool

	mu     sync.Mutex
	closed bool
}

// NewBus builds the bus for the given configuration.
func NewBus(cfg *config.NATSConfig) (*Bus, error) {
	logger := newWatermillLogger()

	if !cfg.Enabled {
		ps := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger)
		logging.Info().Msg("Event bus running in-process, no durability")
		return &Bus{publisher: ps, subscriber: ps, shared: true}, nil
	}

	bus := &Bus{}

	url := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		bus.embedded = srv
		url = srv.ClientURL()
	}
	if url == "" {
		url = natsgo.DefaultURL
	}

	if err := ensureStream(url, cfg); err != nil {
		bus.shutdownEmbedded()
		return nil, err
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		bus.shutdownEmbedded()
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	bus.publisher = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: "homestead",
		SubscribersCount: subscribersCount,
		AckWaitTimeout:   ackWaitTimeout,
		CloseTimeout:     closeTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			DurablePrefix: "homestead",
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(streamName),
				natsgo.MaxDeliver(5),
				natsgo.AckWait(ackWaitTimeout),
				natsgo.DeliverNew(),
			},
		},
	}, logger)
	if err != nil {
		closeQuietly(pub)
		bus.shutdownEmbedded()
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	bus.subscriber = sub

	logging.Info().Str("url", url).Bool("embedded", cfg.EmbeddedServer).
		Msg("Event bus connected to NATS JetStream")
	return bus, nil
}

// ensureStream creates or updates the event stream. Subjects cover every
// homestead topic so one stream holds the whole event history.
func ensureStream(url string, cfg *config.NATSConfig) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	maxAge := defaultRetention
	if cfg.StreamRetentionDays > 0 {
		maxAge = time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour
	}

	streamCfg := jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{"homestead.>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     maxAge,
		Duplicates: duplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := js.Stream(ctx, streamName); err == nil {
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", streamName, err)
		}
		return nil
	}
	if _, err := js.CreateStream(ctx, streamCfg); err != nil {
		return fmt.Errorf("create stream %s: %w", streamName, err)
	}
	return nil
}

// Publish puts an event on the bus. The message UUID doubles as the
// Nats-Msg-Id so JetStream deduplicates redeliveries.
func (b *Bus) Publish(_ context.Context, topic string, event *Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.Unlock()

	msg, err := event.Marshal()
	if err != nil {
		return err
	}
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Subscribe returns the message channel for a topic. The channel closes when
// the context is canceled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Close shuts down the subscriber, the publisher, and any embedded server.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var firstErr error
	if !b.shared {
		if err := b.subscriber.Close(); err != nil {
			firstErr = err
		}
	}
	if err := b.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if b.embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.embedded.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Bus) shutdownEmbedded() {
	if b.embedded == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.embedded.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS shutdown failed")
	}
}

func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Close failed")
	}
}
