package tasks

import (
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

// Observer receives the events published for one job.
//
// Implementations must be comparable; [Broadcaster.Unsubscribe] matches observers with ==.
type Observer interface {
	Notify(e models.Event)
}

type funcObserver struct {
	fn func(models.Event)
}

func (o *funcObserver) Notify(e models.Event) {
	o.fn(e)
}

// ObserverFunc adapts fn to an [Observer]. Each call returns a distinct observer.
func ObserverFunc(fn func(models.Event)) Observer {
	return &funcObserver{fn: fn}
}

// channel is the subscriber list of one job.
//
// deliverMu is held for the whole of a replay or publish so that deliveries for a job never interleave.
// mu guards observers and closed and is never held while an observer runs.
type channel struct {
	deliverMu sync.Mutex
	mu        sync.Mutex
	observers []Observer
	closed    bool
}

func (c *channel) snapshot() []Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.observers)
}

func (c *channel) has(o Observer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.observers, o)
}

// Broadcaster maps job IDs to ordered observer lists.
type Broadcaster struct {
	mu       sync.Mutex
	channels map[string]*channel
	logger   *log.Logger
}

// NewBroadcaster creates an empty [Broadcaster].
func NewBroadcaster(logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Broadcaster{
		channels: make(map[string]*channel),
		logger:   shared.WithLogger(logger, "component", "broadcast"),
	}
}

// Open creates the channel for id. Opening an existing channel is a no-op.
func (b *Broadcaster) Open(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.channels[id]; !ok {
		b.channels[id] = &channel{}
	}
}

// Remove forgets the channel for id and every observer on it.
func (b *Broadcaster) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.channels, id)
}

func (b *Broadcaster) channel(id string) (*channel, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.channels[id]
	return c, ok
}

// Subscribe registers o on the channel for id and synchronously delivers the event returned by current.
//
// It returns false, without calling current or o, when no channel exists for id.
// Once the channel has delivered a terminal event, o receives the replay only and is not registered.
// An observer must not subscribe to the job it is being notified for.
func (b *Broadcaster) Subscribe(id string, o Observer, current func() models.Event) bool {
	c, ok := b.channel(id)
	if !ok || o == nil {
		return false
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	replay := current()

	c.mu.Lock()
	if !c.closed && !replay.Terminal() {
		c.observers = append(c.observers, o)
	}
	c.mu.Unlock()

	b.deliver(id, o, replay)
	return true
}

// Unsubscribe removes o from the channel for id. Unknown jobs and observers are ignored.
//
// It is safe to call from inside an observer.
func (b *Broadcaster) Unsubscribe(id string, o Observer) {
	c, ok := b.channel(id)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.observers, o); i >= 0 {
		c.observers = slices.Delete(c.observers, i, i+1)
	}
}

// Publish delivers e to every observer of id in subscription order.
func (b *Broadcaster) Publish(id string, e models.Event) {
	b.Apply(id, func() (models.Event, bool) { return e, true })
}

// Apply runs fn and publishes the event it returns, if any, as one step.
//
// No replay can observe the effects of fn without also being ordered before its event.
// After a terminal event the observer list is dropped.
func (b *Broadcaster) Apply(id string, fn func() (models.Event, bool)) {
	c, ok := b.channel(id)
	if !ok {
		fn()
		return
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	e, publish := fn()
	if !publish {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	for _, o := range c.snapshot() {
		if !c.has(o) {
			continue
		}
		b.deliver(id, o, e)
	}

	if e.Terminal() {
		c.mu.Lock()
		c.closed = true
		c.observers = nil
		c.mu.Unlock()
	}
}

// Subscribers returns the number of observers currently registered for id.
func (b *Broadcaster) Subscribers(id string) int {
	c, ok := b.channel(id)
	if !ok {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

// deliver calls o, containing any panic it raises.
func (b *Broadcaster) deliver(id string, o Observer, e models.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("observer panicked", "job_id", id, "event", e.Type, "err", fmt.Sprint(r))
		}
	}()
	o.Notify(e)
}
