// Package collection provides an order-preserving, identity-keyed container
// used by the simulation engine to manage movers, environment series and
// outputters.
//
// Unlike a plain map or slice, a [Collection] supports replacing an element
// in place: the replacement takes over the ordinal position of the element it
// replaces, even when its identity key differs. Iteration always yields
// elements in ascending insertion order among the currently live entries.
package collection

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"sort"
)

// ErrNotFound indicates a lookup, removal or index request for an identity
// that is not in the collection.
var ErrNotFound = errors.New("collection: identity not found")

// Event identifies a collection mutation kind for callback registration.
type Event int

const (
	EventAdd Event = iota
	EventRemove
	EventReplace
)

func (e Event) String() string {
	switch e {
	case EventAdd:
		return "add"
	case EventRemove:
		return "remove"
	case EventReplace:
		return "replace"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Identifiable is implemented by elements that carry their own stable unique
// identifier. Elements without one are keyed by a synthetic identity assigned
// by the collection at insertion time.
type Identifiable interface {
	ID() string
}

type entry[T any] struct {
	elem T
	seq  int
}

// Collection is an ordered, identity-keyed container for elements of type T.
// The zero value is not usable; construct with [New].
type Collection[T any] struct {
	entries map[string]*entry[T]
	nextSeq int
	nextSyn int

	callbacks []callback[T]
}

type callback[T any] struct {
	fn     func(Event, T)
	events []Event
}

// New returns an empty collection.
func New[T any]() *Collection[T] {
	return &Collection[T]{entries: make(map[string]*entry[T])}
}

// keyFor resolves the identity key for an element: its own ID when it
// exposes one, otherwise a fresh synthetic key owned by the collection.
func (c *Collection[T]) keyFor(elem T) string {
	if ident, ok := any(elem).(Identifiable); ok {
		return ident.ID()
	}
	c.nextSyn++
	return fmt.Sprintf("~anon-%d", c.nextSyn)
}

// Add inserts elem and returns its identity key. Inserting an element whose
// identity is already present is a silent no-op and fires no event.
func (c *Collection[T]) Add(elem T) string {
	key := c.keyFor(elem)
	if _, ok := c.entries[key]; ok {
		return key
	}
	c.entries[key] = &entry[T]{elem: elem, seq: c.nextSeq}
	c.nextSeq++
	c.fire(EventAdd, elem)
	return key
}

// AddAll inserts each element in order; each insertion may independently
// fire an add event.
func (c *Collection[T]) AddAll(elems ...T) {
	for _, e := range elems {
		c.Add(e)
	}
}

// Get returns the element stored under key.
func (c *Collection[T]) Get(key string) (T, error) {
	ent, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return ent.elem, nil
}

// Contains reports whether key is present.
func (c *Collection[T]) Contains(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of live elements.
func (c *Collection[T]) Len() int { return len(c.entries) }

// Remove deletes the element stored under key. The remove event fires with
// the element before it is deleted.
func (c *Collection[T]) Remove(key string) error {
	ent, ok := c.entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	c.fire(EventRemove, ent.elem)
	delete(c.entries, key)
	return nil
}

// Replace substitutes the element stored under key with elem, which takes
// over the old element's ordinal position; the replacement is re-keyed by
// elem's own identity. Replacing an absent key degrades to Add, so observers
// see an add event rather than a replace.
func (c *Collection[T]) Replace(key string, elem T) {
	ent, ok := c.entries[key]
	if !ok {
		c.Add(elem)
		return
	}
	delete(c.entries, key)
	c.entries[c.keyFor(elem)] = &entry[T]{elem: elem, seq: ent.seq}
	c.fire(EventReplace, elem)
}

// Index returns the element's position. With renumber true the result is the
// rank among currently live elements (removals ahead of it shift it down);
// otherwise it is the raw insertion sequence number.
func (c *Collection[T]) Index(key string, renumber bool) (int, error) {
	ent, ok := c.entries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if !renumber {
		return ent.seq, nil
	}
	rank := 0
	for _, other := range c.entries {
		if other.seq < ent.seq {
			rank++
		}
	}
	return rank, nil
}

// All returns a restartable iterator over the live elements in ascending
// insertion order.
func (c *Collection[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		ordered := make([]*entry[T], 0, len(c.entries))
		for _, ent := range c.entries {
			ordered = append(ordered, ent)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
		for _, ent := range ordered {
			if !yield(ent.elem) {
				return
			}
		}
	}
}

// Equal reports whether both collections hold pairwise-equal elements in the
// same iteration order. Elements exposing IDs compare by ID; others by deep
// equality.
func (c *Collection[T]) Equal(other *Collection[T]) bool {
	if other == nil || c.Len() != other.Len() {
		return false
	}
	next, stop := iter.Pull(other.All())
	defer stop()
	for a := range c.All() {
		b, ok := next()
		if !ok || !elemsEqual(a, b) {
			return false
		}
	}
	return true
}

func elemsEqual[T any](a, b T) bool {
	ia, aok := any(a).(Identifiable)
	ib, bok := any(b).(Identifiable)
	if aok && bok {
		return ia.ID() == ib.ID()
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// OnEvent registers fn for the given event kinds; with no kinds listed it
// receives every event.
func (c *Collection[T]) OnEvent(fn func(Event, T), events ...Event) {
	if len(events) == 0 {
		events = []Event{EventAdd, EventRemove, EventReplace}
	}
	c.callbacks = append(c.callbacks, callback[T]{fn: fn, events: events})
}

func (c *Collection[T]) fire(event Event, elem T) {
	for _, cb := range c.callbacks {
		for _, e := range cb.events {
			if e == event {
				cb.fn(event, elem)
				break
			}
		}
	}
}
