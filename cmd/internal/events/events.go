// Package events publishes Classy's domain events (logins, logouts, account
// lifecycle) over watermill. In-process delivery uses the gochannel pub/sub;
// production deployments can fan out through Redis Streams.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// DefaultTopic is the topic all Classy auth events are published to.
const DefaultTopic = "classy.auth"

// Type names an event kind.
type Type string

const (
	SessionCreated Type = "session.created"
	SessionRevoked Type = "session.revoked"
	LoginFailed    Type = "session.login_failed"
	AccountCreated Type = "account.created"
	AccountDeleted Type = "account.deleted"
	PasswordChange Type = "account.password_changed"
)

// Event is the JSON payload of every published message. It never carries
// secrets: sessions are referenced by fingerprint only.
type Event struct {
	Type               Type      `json:"type"`
	AccountID          string    `json:"account_id"`
	AccountType        string    `json:"account_type,omitempty"`
	ActorID            string    `json:"actor_id,omitempty"`
	SessionFingerprint string    `json:"session_fp,omitempty"`
	At                 time.Time `json:"at"`
}

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// WatermillPublisher implements Publisher using a watermill message.Publisher.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher. An empty topic
// selects DefaultTopic.
func NewWatermillPublisher(publisher message.Publisher, topic string) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// Publish marshals e and publishes it with its type in the message metadata.
func (p *WatermillPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(e.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the underlying publisher.
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// Topic returns the topic events are published to.
func (p *WatermillPublisher) Topic() string { return p.topic }

// NewGoChannel returns an in-process pub/sub. Messages published without a
// subscriber are dropped.
func NewGoChannel(log *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, newLogger(log))
}

// NewRedisStreamPublisher returns a publisher appending to Redis Streams.
// The client is owned by the caller.
func NewRedisStreamPublisher(client redis.UniversalClient, log *slog.Logger) (message.Publisher, error) {
	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client:     client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		},
		newLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("events: redis stream publisher: %w", err)
	}
	return pub, nil
}

// Decode parses a message payload back into an Event.
func Decode(msg *message.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Event{}, fmt.Errorf("events: decode: %w", err)
	}
	return e, nil
}

func newLogger(log *slog.Logger) watermill.LoggerAdapter {
	if log == nil {
		return watermill.NopLogger{}
	}
	return watermill.NewSlogLogger(log)
}
