package rankingnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	rankingevents "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain/events"
	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
)

// Publisher turns ranking events into watermill messages. Delivery is
// fire-and-forget; callers only log returned errors.
type Publisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewPublisher wraps a watermill publisher.
func NewPublisher(publisher message.Publisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{publisher: publisher, logger: logger}
}

// PublishScore announces a ranked score on ScoreUpdatedSubject.
func (p *Publisher) PublishScore(ctx context.Context, event rankingevents.ScoreUpdatedEvent) error {
	return p.publish(ctx, rankingevents.ScoreUpdatedSubject, event)
}

// PublishClanCapture announces a captor change on ClanCaptureChangedSubject.
func (p *Publisher) PublishClanCapture(ctx context.Context, event rankingevents.ClanCaptureChangedEvent) error {
	return p.publish(ctx, rankingevents.ClanCaptureChangedSubject, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rankingnotify: marshal %s: %w", subject, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("subject", subject)
	msg.Metadata.Set("stream", rankingevents.RankingStreamName)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(subject, msg); err != nil {
		return fmt.Errorf("rankingnotify: publish %s: %w", subject, err)
	}

	p.logger.DebugContext(ctx, "Ranking event published",
		slog.String("subject", subject),
		slog.String("message_id", msg.UUID),
	)
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.publisher.Close()
}

// NewNATSPublisher connects a watermill publisher to NATS JetStream.
func NewNATSPublisher(natsURL string, logger *slog.Logger) (message.Publisher, error) {
	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL: natsURL,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
				nc.Timeout(30 * time.Second),
				nc.ReconnectWait(1 * time.Second),
			},
			Marshaler: &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				AutoProvision: true,
			},
			SubjectCalculator: wmnats.DefaultSubjectCalculator,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	return publisher, nil
}
