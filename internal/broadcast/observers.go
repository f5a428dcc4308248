package broadcast

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Subscribe sends the current snapshot to o as an initial message and then
// adds it to the observer set. An observer whose initial send fails is not
// added.
func (b *Broadcaster) Subscribe(o Observer) error {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	msg := models.ObserverMessage{Type: models.MessageInitial, Data: b.Snapshot()}
	if err := o.Send(msg); err != nil {
		return fmt.Errorf("sending initial snapshot to %s: %w", o.ID(), err)
	}

	b.mu.Lock()
	if _, ok := b.observers[o.ID()]; !ok {
		b.order = append(b.order, o.ID())
	}
	b.observers[o.ID()] = o
	n := len(b.observers)
	b.mu.Unlock()

	b.opts.Logger.Info("observer connected", "observer", o.ID(), "observers", n)
	b.setObservers(n)
	return nil
}

// Unsubscribe removes the observer with the given id. It does not close it.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	n, removed := b.removeLocked(id)
	b.mu.Unlock()

	if removed {
		b.opts.Logger.Info("observer disconnected", "observer", id, "observers", n)
		b.setObservers(n)
	}
}

// ObserverCount returns the number of connected observers.
func (b *Broadcaster) ObserverCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// BroadcastUpdate pushes a merged update to every observer. With no observer
// connected it only advances the phase section. Observers whose send fails are closed and
// pruned; delivery is never retried.
func (b *Broadcaster) BroadcastUpdate(now time.Time) (sent, failed int) {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()

	observers := b.connected()
	if len(observers) == 0 {
		b.mu.Lock()
		b.refreshPhaseLocked(now)
		b.mu.Unlock()
		return 0, 0
	}

	ts := now
	msg := models.ObserverMessage{Type: models.MessageUpdate, Timestamp: &ts, Data: b.Update(now)}

	var dead []Observer
	for _, o := range observers {
		if err := o.Send(msg); err != nil {
			b.opts.Logger.Warn("observer delivery failed", "observer", o.ID(), "error", err)
			dead = append(dead, o)
			continue
		}
		sent++
	}

	b.mu.Lock()
	n := len(b.observers)
	for _, o := range dead {
		n, _ = b.removeLocked(o.ID())
	}
	b.mu.Unlock()

	for _, o := range dead {
		_ = o.Close()
	}
	if c := b.opts.Collectors; c != nil {
		c.ObserveBroadcast(len(dead))
	}
	b.setObservers(n)
	b.opts.Logger.Debug("status update broadcast", "sent", sent, "failed", len(dead))
	return sent, len(dead)
}

// connected returns the observers in subscription order.
func (b *Broadcaster) connected() []Observer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Observer, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.observers[id])
	}
	return out
}

func (b *Broadcaster) removeLocked(id string) (remaining int, removed bool) {
	if _, ok := b.observers[id]; !ok {
		return len(b.observers), false
	}
	delete(b.observers, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return len(b.observers), true
}

func (b *Broadcaster) setObservers(n int) {
	if c := b.opts.Collectors; c != nil {
		c.SetObservers(n)
	}
}
