package storage

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

type pgSubscription struct {
	channel  string
	listener *pq.Listener
	done     chan struct{}
	once     sync.Once
}

func subscribePostgres(dsn, channel string, h ChangeHandler) (*pgSubscription, error) {
	if dsn == "" {
		return nil, &SubscriptionError{Channel: channel, Err: errors.New("listener DSN not configured")}
	}

	sub := &pgSubscription{channel: channel, done: make(chan struct{})}
	sub.listener = pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			// Колбек виконується в горутині pq, тому не блокуємо її.
			go h.HandleDrop(&SubscriptionError{Channel: channel, Err: err})
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("WARNING: Change listener reconnect failed on %s: %v", channel, err)
		case pq.ListenerEventReconnected:
			log.Printf("INFO: Change listener reconnected on %s; changes made while offline need a reload.", channel)
		}
	})

	if err := sub.listener.Listen(channel); err != nil {
		sub.listener.Close()
		return nil, &SubscriptionError{Channel: channel, Err: err}
	}

	go sub.listen(h)
	return sub, nil
}

func (p *pgSubscription) listen(h ChangeHandler) {
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// pq надсилає nil після перепідключення
				continue
			}
			dispatch(h, p.channel, n.Extra)
		case <-ticker.C:
			go p.listener.Ping()
		}
	}
}

func (p *pgSubscription) Channel() string { return p.channel }

func (p *pgSubscription) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.listener.Close()
	})
	return err
}
