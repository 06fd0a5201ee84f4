// Package livefeed pushes the filtered complaint view to dashboard clients.
package livefeed

import (
	"complaintdesk/backend/internal/duration"
	"complaintdesk/backend/internal/filter"
	"complaintdesk/backend/internal/models"
	"context"
	"log"
)

// Client is one dashboard connection.
type Client interface {
	GetID() string
	// Criteria and SetCriteria are only called from the hub goroutine.
	Criteria() filter.Criteria
	SetCriteria(filter.Criteria)
	GetSendChannel() chan<- models.FeedMessage
	Run()
	Close()
}

// Source is the cache the hub reads. reconciler.Reconciler satisfies it.
type Source interface {
	Snapshot() []models.Complaint
	Degraded() bool
}

type criteriaUpdate struct {
	client   Client
	criteria filter.Criteria
}

// Hub fans cache changes out to registered clients.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	changedCh  chan struct{}
	newCh      chan models.Complaint
	criteriaCh chan criteriaUpdate

	source     Source
	translator duration.Translator
	lang       string
	done       chan struct{}
}

// NewHub creates a hub reading from source.
func NewHub(source Source, tr duration.Translator, lang string) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		changedCh:    make(chan struct{}, 1),
		newCh:        make(chan models.Complaint, 64),
		criteriaCh:   make(chan criteriaUpdate),
		source:       source,
		translator:   tr,
		lang:         lang,
		done:         make(chan struct{}),
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes it.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Changed signals that the cache changed. Signals are coalesced and never block.
func (h *Hub) Changed() {
	select {
	case h.changedCh <- struct{}{}:
	default:
	}
}

// NewComplaint forwards the new-complaint signal to matching clients.
func (h *Hub) NewComplaint(c models.Complaint) {
	select {
	case h.newCh <- c:
	default:
		log.Printf("WARNING: Live feed busy, dropping new complaint signal for %s", c.ID)
	}
}

// UpdateCriteria changes the filter of a registered client.
func (h *Hub) UpdateCriteria(c Client, criteria filter.Criteria) {
	select {
	case h.criteriaCh <- criteriaUpdate{client: c, criteria: criteria}:
	case <-h.done:
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for id, c := range h.Clients {
			delete(h.Clients, id)
			c.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.RegisterCh:
			h.Clients[client.GetID()] = client
			log.Printf("INFO: Live feed client %s registered", client.GetID())
			h.deliver(client, h.snapshotFor(client, h.source.Snapshot(), h.source.Degraded()))

		case client := <-h.UnregisterCh:
			h.remove(client)

		case u := <-h.criteriaCh:
			if _, ok := h.Clients[u.client.GetID()]; !ok {
				continue
			}
			u.client.SetCriteria(u.criteria)
			h.deliver(u.client, h.snapshotFor(u.client, h.source.Snapshot(), h.source.Degraded()))

		case <-h.changedCh:
			snap := h.source.Snapshot()
			degraded := h.source.Degraded()
			for _, client := range h.Clients {
				h.deliver(client, h.snapshotFor(client, snap, degraded))
			}

		case c := <-h.newCh:
			view := Present(c, h.translator, h.lang)
			for _, client := range h.Clients {
				if len(filter.Filter([]models.Complaint{c}, client.Criteria())) == 0 {
					continue
				}
				h.deliver(client, models.FeedMessage{Type: models.FeedNewComplaint, Complaint: &view})
			}
		}
	}
}

func (h *Hub) snapshotFor(client Client, snap []models.Complaint, degraded bool) models.FeedMessage {
	visible := filter.Filter(snap, client.Criteria())
	return models.FeedMessage{
		Type:       models.FeedSnapshot,
		Complaints: PresentAll(visible, h.translator, h.lang),
		Degraded:   degraded,
	}
}

// deliver drops a client whose send buffer is full.
func (h *Hub) deliver(client Client, msg models.FeedMessage) {
	select {
	case client.GetSendChannel() <- msg:
	default:
		log.Printf("WARNING: Live feed client %s is too slow, disconnecting", client.GetID())
		h.remove(client)
	}
}

func (h *Hub) remove(client Client) {
	if existing, ok := h.Clients[client.GetID()]; !ok || existing != client {
		return
	}
	delete(h.Clients, client.GetID())
	client.Close()
	log.Printf("INFO: Live feed client %s unregistered", client.GetID())
}
