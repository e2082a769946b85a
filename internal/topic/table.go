package topic

import "sync"

// Table maps topic names to their subscriber sets. A topic exists in
// the table if and only if at least one client is currently subscribed
// to it — creation is driven exclusively by Subscribe, and pruning by
// Unsubscribe and RemoveSubscriber.
//
// The table's mutex — the "topic lock" — is the single synchronization
// point for the whole routing table, including the fan-out publish
// path. Callers that need to combine a table mutation with a stats
// update must take the table lock first and the stats lock second (see
// internal/stats), and release in the reverse order; Table exposes
// Lock/Unlock directly so callers can span both.
type Table struct {
	mu     sync.Mutex
	topics map[string]*Set
}

// New creates an empty topic table.
func New() *Table {
	return &Table{topics: make(map[string]*Set)}
}

// Lock acquires the topic lock. Must be paired with Unlock.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock releases the topic lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// Subscribe adds sub to topic's subscriber set, creating the topic if
// it does not already exist. Idempotent per subscriber. The caller
// must hold the topic lock.
func (t *Table) Subscribe(name string, sub Subscriber) {
	set, ok := t.topics[name]
	if !ok {
		t.topics[name] = newSet(sub)
		return
	}
	set.add(sub)
}

// Unsubscribe removes sub from topic's subscriber set, deleting the
// topic entry if the set becomes empty. Returns true only if sub was
// actually present and removed — a no-op unsubscribe (unknown topic or
// a client never subscribed) returns false. The caller must hold the
// topic lock.
func (t *Table) Unsubscribe(name string, sub Subscriber) bool {
	set, ok := t.topics[name]
	if !ok {
		return false
	}
	removed := set.remove(sub)
	if removed && set.isEmpty() {
		delete(t.topics, name)
	}
	return removed
}

// Publish looks up topic and, if present, calls fn once for every
// current subscriber. Returns false if the topic has no subscribers
// (silent no-op per the protocol). The caller must hold the topic
// lock for the duration of fn, since fn performs the actual delivery
// writes.
func (t *Table) Publish(name string, fn func(Subscriber)) bool {
	set, ok := t.topics[name]
	if !ok {
		return false
	}
	set.iterate(fn)
	return true
}

// RemoveSubscriber removes sub from every topic it belongs to,
// pruning any topic whose set becomes empty as a result. Used during
// session teardown. The caller must hold the topic lock.
func (t *Table) RemoveSubscriber(sub Subscriber) {
	names := make([]string, 0, len(t.topics))
	for name := range t.topics {
		names = append(names, name)
	}
	for _, name := range names {
		set := t.topics[name]
		if set.remove(sub) && set.isEmpty() {
			delete(t.topics, name)
		}
	}
}

// Contains reports whether sub is currently subscribed to topic. The
// caller must hold the topic lock.
func (t *Table) Contains(name string, sub Subscriber) bool {
	set, ok := t.topics[name]
	if !ok {
		return false
	}
	return set.contains(sub)
}

// HasTopic reports whether topic currently has an entry in the table
// (i.e. at least one subscriber). The caller must hold the topic lock.
func (t *Table) HasTopic(name string) bool {
	_, ok := t.topics[name]
	return ok
}

// TopicCount returns the number of topics currently in the table. The
// caller must hold the topic lock.
func (t *Table) TopicCount() int {
	return len(t.topics)
}
