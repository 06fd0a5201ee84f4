package storage

import (
	"complaintdesk/backend/internal/models"
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultHealthCheckInterval is how often a Redis subscription pings the server.
const DefaultHealthCheckInterval = 15 * time.Second

// errResubscribed is reported when go-redis silently reconnected: events
// published during the gap are lost.
var errResubscribed = errors.New("connection lost and re-established; changes may have been missed")

type redisSubscription struct {
	channel  string
	client   *redis.Client
	pubsub   *redis.PubSub
	interval time.Duration
	closed   atomic.Bool
	dropped  atomic.Bool
	done     chan struct{}
}

func subscribeRedis(ctx context.Context, rdb *redis.Client, channel string, interval time.Duration, h ChangeHandler) (*redisSubscription, error) {
	pubsub := rdb.Subscribe(ctx, channel)

	// Чекаємо підтвердження підписки, інакше помилка з'єднання буде прихована.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, &SubscriptionError{Channel: channel, Err: err}
	}

	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	sub := &redisSubscription{
		channel:  channel,
		client:   rdb,
		pubsub:   pubsub,
		interval: interval,
		done:     make(chan struct{}),
	}
	go sub.listen(h)
	return sub, nil
}

// listen delivers messages until Close. go-redis reconnects on its own, so a
// drop shows up either as a failed ping or as a second subscribe confirmation.
func (r *redisSubscription) listen(h ChangeHandler) {
	msgs := r.pubsub.ChannelWithSubscriptions()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case raw, ok := <-msgs:
			if !ok {
				if !r.closed.Load() {
					r.drop(h, errors.New("channel closed"))
				}
				return
			}
			switch msg := raw.(type) {
			case *redis.Subscription:
				// Перше підтвердження вже прочитано в subscribeRedis.
				if msg.Kind == "subscribe" {
					r.drop(h, errResubscribed)
				}
			case *redis.Message:
				dispatch(h, r.channel, msg.Payload)
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			err := r.client.Ping(ctx).Err()
			cancel()
			if err != nil && !r.closed.Load() {
				r.drop(h, err)
			}
		}
	}
}

// drop reports the first failure only; the subscriber re-subscribes to recover.
func (r *redisSubscription) drop(h ChangeHandler, err error) {
	if r.dropped.Swap(true) {
		return
	}
	log.Printf("ERROR: Change channel %s dropped: %v", r.channel, err)
	h.HandleDrop(&SubscriptionError{Channel: r.channel, Err: err})
}

// dispatch decodes one payload; malformed payloads are logged and skipped.
func dispatch(h ChangeHandler, channel, payload string) {
	ev, err := models.DecodeChangeEvent(payload)
	if err != nil {
		log.Printf("WARNING: Dropping malformed change event on %s: %v", channel, err)
		return
	}
	h.HandleChange(ev)
}

func (r *redisSubscription) Channel() string { return r.channel }

func (r *redisSubscription) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	close(r.done)
	return r.pubsub.Close()
}
