// Package reconciler keeps a local, newest-first cache of complaints in step with
// the store by confirming every change event with a fetch.
package reconciler

import (
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Store is the part of the store client the reconciler depends on.
type Store interface {
	FetchComplaint(ctx context.Context, id string) (*models.Complaint, error)
	FetchAllComplaints(ctx context.Context) ([]models.Complaint, error)
	Subscribe(ctx context.Context, channel string, h storage.ChangeHandler) (storage.Subscription, error)
	Unsubscribe(sub storage.Subscription) error
}

// Notifier receives user-facing alerts. notify.Service satisfies it.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Translator resolves notification texts. localization.Localizer satisfies it.
type Translator interface {
	GetString(lang, key string) string
}

// Reconciler owns the complaint cache. Only change events and Reload mutate it.
//
// Two UPDATE events for the same id start two fetches; whichever returns last
// wins, even if it carries the older record. There is no version token to order them.
type Reconciler struct {
	store    Store
	notifier Notifier
	channel  string
	tr       Translator
	lang     string

	mu         sync.Mutex
	cache      []models.Complaint
	active     bool
	degraded   bool
	generation uint64
	sub        storage.Subscription
	handler    *subscriptionHandler
	ctx        context.Context

	onChange       func()
	onNewComplaint func(models.Complaint)

	inflight sync.WaitGroup
}

// New creates an inactive reconciler. Notification texts come from tr in lang;
// a nil tr keeps the English defaults. An empty channel selects the store default.
func New(store Store, notifier Notifier, tr Translator, lang, channel string) *Reconciler {
	return &Reconciler{
		store:    store,
		notifier: notifier,
		channel:  channel,
		tr:       tr,
		lang:     lang,
		ctx:      context.Background(),
	}
}

// OnChange registers a callback invoked after every cache mutation.
// It runs outside the cache lock and may call Snapshot.
func (r *Reconciler) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// OnNewComplaint registers a callback for complaints first seen through an INSERT event.
func (r *Reconciler) OnNewComplaint(fn func(models.Complaint)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onNewComplaint = fn
}

// Activate subscribes to the change channel and loads the full collection.
// A failed subscription leaves the view degraded and is reported through the
// notifier; only a failed initial load is returned.
func (r *Reconciler) Activate(ctx context.Context) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil
	}
	r.active = true
	r.degraded = false
	r.generation++
	r.ctx = ctx
	r.mu.Unlock()

	r.subscribe(ctx)
	log.Println("INFO: Complaint view activated")
	return r.Reload(ctx)
}

// Deactivate tears the subscription down. Fetches still in flight are discarded.
func (r *Reconciler) Deactivate() error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil
	}
	r.active = false
	r.generation++
	sub := r.sub
	r.sub = nil
	r.handler = nil
	r.mu.Unlock()

	log.Println("INFO: Complaint view deactivated")
	if sub == nil {
		return nil
	}
	return r.store.Unsubscribe(sub)
}

// Wait blocks until every event fetch started so far has finished.
func (r *Reconciler) Wait() {
	r.inflight.Wait()
}

// Active reports whether the view is active.
func (r *Reconciler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Degraded reports that live updates are unavailable and the cache may be stale.
func (r *Reconciler) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Snapshot returns a copy of the cache, newest first.
func (r *Reconciler) Snapshot() []models.Complaint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Complaint, len(r.cache))
	copy(out, r.cache)
	return out
}

// Get returns the cached complaint with id.
func (r *Reconciler) Get(id string) (models.Complaint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		return r.cache[i], true
	}
	return models.Complaint{}, false
}

// Reload replaces the cache with the whole collection. When the view is active but
// degraded, the change channel is re-established first.
func (r *Reconciler) Reload(ctx context.Context) error {
	r.mu.Lock()
	resubscribe := r.active && r.degraded
	r.mu.Unlock()
	if resubscribe {
		r.subscribe(ctx)
	}

	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()

	all, err := r.store.FetchAllComplaints(ctx)
	if err != nil {
		log.Printf("ERROR: Failed to reload complaints: %v", err)
		return err
	}

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		log.Println("INFO: Discarding reload result for a torn down view")
		return nil
	}
	r.cache = dedupe(all)
	size := len(r.cache)
	onChange := r.onChange
	r.mu.Unlock()

	log.Printf("INFO: Complaint cache reloaded with %d records", size)
	if onChange != nil {
		onChange()
	}
	return nil
}

// Apply reconciles one change event synchronously. A failed fetch is logged and
// returned; the cache is left untouched.
func (r *Reconciler) Apply(ctx context.Context, ev models.ChangeEvent) error {
	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()
	return r.apply(ctx, ev, gen)
}

func (r *Reconciler) apply(ctx context.Context, ev models.ChangeEvent, gen uint64) error {
	if ev.Kind == models.EventDelete {
		r.commit(gen, func() bool { return r.remove(ev.ID) }, nil)
		return nil
	}

	c, err := r.store.FetchComplaint(ctx, ev.ID)
	if err != nil {
		var readErr *storage.RemoteReadError
		if !errors.As(err, &readErr) {
			err = &storage.RemoteReadError{ID: ev.ID, Err: err}
		}
		log.Printf("WARNING: Dropping %s event for complaint %s: %v", ev.Kind, ev.ID, err)
		return err
	}
	if c == nil {
		log.Printf("INFO: Dropping %s event for complaint %s: no longer in the store", ev.Kind, ev.ID)
		return nil
	}

	var inserted bool
	r.commit(gen, func() bool {
		if i := r.indexOf(c.ID); i >= 0 {
			r.cache[i] = *c
			return true
		}
		if ev.Kind != models.EventInsert {
			return false
		}
		r.cache = append([]models.Complaint{*c}, r.cache...)
		inserted = true
		return true
	}, func() {
		if inserted {
			r.announce(ctx, *c)
		}
	})
	return nil
}

// commit runs mutate under the lock unless the generation moved on, then fires
// the change callback and after outside the lock.
func (r *Reconciler) commit(gen uint64, mutate func() bool, after func()) {
	r.mu.Lock()
	if gen != r.generation || !r.active {
		r.mu.Unlock()
		return
	}
	changed := mutate()
	onChange := r.onChange
	r.mu.Unlock()

	if !changed {
		return
	}
	if onChange != nil {
		onChange()
	}
	if after != nil {
		after()
	}
}

func (r *Reconciler) announce(ctx context.Context, c models.Complaint) {
	r.mu.Lock()
	onNew := r.onNewComplaint
	r.mu.Unlock()

	if onNew != nil {
		onNew(c)
	}
	if r.notifier == nil {
		return
	}
	body := fmt.Sprintf("%s (%s)", c.CustomerName, c.TypeName())
	if err := r.notifier.Notify(ctx, r.text("notify.new_complaint.title", "New complaint"), body); err != nil {
		log.Printf("WARNING: New complaint notification failed: %v", err)
	}
}

func (r *Reconciler) subscribe(ctx context.Context) {
	h := &subscriptionHandler{r: r}

	// Обробник реєструється до підписки, щоб не втратити перші події.
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.handler = h
	r.mu.Unlock()

	sub, err := r.store.Subscribe(ctx, r.channel, h)
	if err != nil {
		r.mu.Lock()
		if r.handler == h {
			r.handler = nil
		}
		r.mu.Unlock()
		r.markDegraded(ctx, err)
		return
	}

	r.mu.Lock()
	if !r.active || r.handler != h {
		r.mu.Unlock()
		_ = r.store.Unsubscribe(sub)
		return
	}
	old := r.sub
	r.sub = sub
	r.degraded = false
	r.mu.Unlock()

	if old != nil {
		_ = r.store.Unsubscribe(old)
	}
	log.Printf("INFO: Subscribed to complaint changes on %s", sub.Channel())
}

func (r *Reconciler) markDegraded(ctx context.Context, err error) {
	r.mu.Lock()
	r.degraded = true
	r.mu.Unlock()

	log.Printf("ERROR: Complaint change channel unavailable: %v", err)
	if r.notifier == nil {
		return
	}
	if nerr := r.notifier.Notify(ctx,
		r.text("notify.feed_down.title", "Live updates unavailable"),
		r.text("notify.feed_down.body", "Showing the last known complaints. Reload to reconnect."),
	); nerr != nil {
		log.Printf("WARNING: Connectivity notification failed: %v", nerr)
	}
}

func (r *Reconciler) text(key, fallback string) string {
	if r.tr == nil {
		return fallback
	}
	if s := r.tr.GetString(r.lang, key); s != key {
		return s
	}
	return fallback
}

func (r *Reconciler) indexOf(id string) int {
	for i := range r.cache {
		if r.cache[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Reconciler) remove(id string) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.cache = append(r.cache[:i:i], r.cache[i+1:]...)
	return true
}

// dedupe keeps the first occurrence of every id.
func dedupe(in []models.Complaint) []models.Complaint {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Complaint, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// subscriptionHandler binds callbacks to one subscription, so a late callback from
// a replaced subscription is ignored.
type subscriptionHandler struct {
	r *Reconciler
}

func (h *subscriptionHandler) current() (uint64, context.Context, bool) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return h.r.generation, h.r.ctx, h.r.active && h.r.handler == h
}

func (h *subscriptionHandler) HandleChange(ev models.ChangeEvent) {
	gen, ctx, ok := h.current()
	if !ok {
		return
	}
	h.r.inflight.Add(1)
	go func() {
		defer h.r.inflight.Done()
		_ = h.r.apply(ctx, ev, gen)
	}()
}

func (h *subscriptionHandler) HandleDrop(err error) {
	_, ctx, ok := h.current()
	if !ok {
		return
	}

	h.r.mu.Lock()
	sub := h.r.sub
	h.r.sub = nil
	h.r.handler = nil
	h.r.mu.Unlock()

	if sub != nil {
		_ = h.r.store.Unsubscribe(sub)
	}
	h.r.markDegraded(ctx, err)
}
