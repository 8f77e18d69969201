package nats

import (
	"context"
	"fmt"
	"time"

	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber handles listening for events from NATS.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	logger   logger.ILogger
	consumes []jetstream.ConsumeContext
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	// The publisher may live in another process, so the stream is ensured here too
	if err := ensureStream(js); err != nil {
		log.Warn("NatsSubscriber", "failed to ensure stream", map[string]interface{}{"stream": StreamName, "error": err})
	}

	return &Subscriber{nc: nc, js: js, logger: log}, nil
}

// Subscribe registers a handler for a subject pattern on a durable consumer,
// so events published while no instance listens are not lost.
func (s *Subscriber) Subscribe(subject string, durableName string, handler EventHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		fallback := time.Now()
		if md, err := msg.Metadata(); err == nil {
			fallback = md.Timestamp
		}

		event, err := decode(msg.Subject(), msg.Headers(), msg.Data(), fallback)
		if err != nil {
			s.logger.Error("NatsSubscriber", "dropping event", map[string]interface{}{"subject": msg.Subject(), "error": err})
			// Poison message, redelivery will not fix it
			msg.Term()
			return
		}

		if err := handler(context.Background(), event); err != nil {
			s.logger.Warn("NatsSubscriber", "handler failed, will retry", map[string]interface{}{"subject": msg.Subject(), "error": err})
			msg.Nak()
			return
		}

		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.consumes = append(s.consumes, cc)

	s.logger.Info("NatsSubscriber", "subscribed", map[string]interface{}{"subject": subject, "durable": durableName})
	return nil
}

// Close stops all consumers and closes the connection.
func (s *Subscriber) Close() {
	for _, cc := range s.consumes {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
