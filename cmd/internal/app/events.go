package app

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"classy/cmd/internal/events"
)

// openEvents builds the domain event publisher selected by events.driver.
// Publishers are closed with the backend.
func openEvents(ctx context.Context, cfg Config, b *backend, log Logger) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case EventsNone:
		return events.Nop{}, nil

	case EventsMemory:
		gc := events.NewGoChannel(log)
		msgs, err := gc.Subscribe(ctx, cfg.Events.Topic)
		if err != nil {
			_ = gc.Close()
			return nil, fmt.Errorf("events: subscribe: %w", err)
		}
		go logEvents(msgs, log)

		pub := events.NewWatermillPublisher(gc, cfg.Events.Topic)
		b.onClose(pub.Close)
		log.Info("events.memory", "topic", pub.Topic())
		return pub, nil

	case EventsRedis:
		client, err := b.redisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		p, err := events.NewRedisStreamPublisher(client, log)
		if err != nil {
			return nil, err
		}
		pub := events.NewWatermillPublisher(p, cfg.Events.Topic)
		b.onClose(pub.Close)
		log.Info("events.redis", "topic", pub.Topic())
		return pub, nil

	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}

// logEvents drains an in-process subscription into the debug log until the
// pub/sub is closed.
func logEvents(msgs <-chan *message.Message, log Logger) {
	for msg := range msgs {
		e, err := events.Decode(msg)
		if err != nil {
			log.Warn("events.decode.fail", "err", err)
		} else {
			log.Debug("events.received", "type", string(e.Type), "account_id", e.AccountID, "session_fp", e.SessionFingerprint)
		}
		msg.Ack()
	}
}
