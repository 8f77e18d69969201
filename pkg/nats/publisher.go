package nats

import (
	"context"
	"fmt"

	"skalgpt-be/internal/pkg/logger"
	"skalgpt-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher puts domain events on the EVENTS stream, one subject per event type.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ events.Publisher = (*Publisher)(nil)

func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	if err := ensureStream(js); err != nil {
		// Not fatal: the stream may already exist with a different config
		log.Warn("NatsPublisher", "failed to ensure stream", map[string]interface{}{"stream": StreamName, "error": err})
	}

	return &Publisher{nc: nc, js: js}, nil
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	if _, err := p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", msg.Subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
