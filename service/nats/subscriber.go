package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscriber delivers newly published transaction events to stream clients.
// Each subscription gets its own ephemeral consumer that only sees messages
// published after it was created.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSubscriber connects to NATS for consuming the transaction stream.
func NewSubscriber(natsURL string, logger *slog.Logger) (*Subscriber, error) {
	nc, js, err := connect(natsURL, "solagg-stream")
	if err != nil {
		return nil, err
	}
	logger.Info("NATS subscriber initialized", "url", natsURL)
	return &Subscriber{nc: nc, js: js, logger: logger}, nil
}

// Subscribe calls fn for every new event on wallet's subject, or on every
// subject when wallet is empty, until ctx is done. fn runs on the consumer's
// goroutine and must not block for long.
func (s *Subscriber) Subscribe(ctx context.Context, wallet string, fn func(*TransactionEvent)) error {
	cons, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: Subject(wallet),
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		var event TransactionEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			s.logger.WarnContext(ctx, "failed to unmarshal event", "subject", msg.Subject(), "error", err)
			msg.Ack()
			return
		}
		fn(&event)
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()
	return nil
}

// Close closes the NATS connection.
func (s *Subscriber) Close() error {
	if s.nc != nil {
		s.nc.Close()
		s.logger.Info("NATS subscriber closed")
	}
	return nil
}
