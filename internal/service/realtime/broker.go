// Package realtime fans notifications out to connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/logger"
)

const subscriberBuffer = 16

// Broker publishes per-user notification events. Subscribe returns a
// channel that is closed once ctx ends or the returned cancel is called.
type Broker interface {
	Publish(ctx context.Context, notif *domain.Notification) error
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan domain.Notification, func(), error)
}

func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:%s", userID)
}

type redisBroker struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisBroker(client *redis.Client, log *logger.Logger) Broker {
	if log == nil {
		log = logger.Nop()
	}
	return &redisBroker{client: client, log: log}
}

func (b *redisBroker) Publish(ctx context.Context, notif *domain.Notification) error {
	payload, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, Channel(notif.UserID), payload).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan domain.Notification, func(), error) {
	sub := b.client.Subscribe(ctx, Channel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan domain.Notification, subscriberBuffer)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var notif domain.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &notif); err != nil {
					b.log.Warn(b.log.WithField(ctx, "channel", msg.Channel), "dropping malformed notification event", err)
					continue
				}
				select {
				case out <- notif:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// localBroker delivers events inside one process. Used when Redis is not
// configured and in tests.
type localBroker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan domain.Notification]struct{}
}

func NewLocalBroker() Broker {
	return &localBroker{subs: make(map[uuid.UUID]map[chan domain.Notification]struct{})}
}

func (b *localBroker) Publish(ctx context.Context, notif *domain.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[notif.UserID] {
		select {
		case ch <- *notif:
		default:
			// slow consumer; drop rather than block the publisher
		}
	}
	return nil
}

func (b *localBroker) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan domain.Notification, func(), error) {
	ch := make(chan domain.Notification, subscriberBuffer)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan domain.Notification]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[userID], ch)
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, cancel, nil
}
