// Package notify delivers user-facing alerts such as "new complaint" or a lost
// live connection. Components receive a *Service explicitly; there is no global.
package notify

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrClosed is returned by Notify after Close.
var ErrClosed = errors.New("notification service closed")

// Dispatcher delivers one notification.
type Dispatcher interface {
	Notify(ctx context.Context, title, body string) error
	Close() error
}

// Notification is a queued (title, body) pair.
type Notification struct {
	Title string
	Body  string
}

// Service queues notifications and hands them to a Dispatcher on its own goroutine,
// so callers never wait for the transport.
type Service struct {
	dispatcher Dispatcher
	queue      chan Notification

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
	once    sync.Once
}

// NewService creates a stopped service. Call Start before Notify.
func NewService(d Dispatcher, buffer int) *Service {
	if buffer <= 0 {
		buffer = 1
	}
	return &Service{
		dispatcher: d,
		queue:      make(chan Notification, buffer),
		done:       make(chan struct{}),
	}
}

// Start runs the delivery loop until Close.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	go func() {
		defer close(s.done)
		for n := range s.queue {
			if err := s.dispatcher.Notify(ctx, n.Title, n.Body); err != nil {
				log.Printf("ERROR: Failed to deliver notification %q: %v", n.Title, err)
			}
		}
	}()
}

// Notify queues a notification. When the queue is full the notification is dropped.
func (s *Service) Notify(_ context.Context, title, body string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	select {
	case s.queue <- Notification{Title: title, Body: body}:
		return nil
	default:
		log.Printf("WARNING: Notification queue full, dropping %q", title)
		return nil
	}
}

// Close drains the queue, waits for the delivery loop and closes the dispatcher.
func (s *Service) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		started := s.started
		s.mu.Unlock()

		if started {
			<-s.done
		}
		err = s.dispatcher.Close()
	})
	return err
}

// LogDispatcher writes notifications to the process log.
type LogDispatcher struct{}

func (LogDispatcher) Notify(_ context.Context, title, body string) error {
	log.Printf("INFO: [notify] %s: %s", title, body)
	return nil
}

func (LogDispatcher) Close() error { return nil }

// Multi fans a notification out to several dispatchers. Every dispatcher is tried;
// the errors are joined.
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, d := range m {
		if err := d.Notify(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, d := range m {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
