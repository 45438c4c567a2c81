package tilecache

import "time"

// entry is a cached tile and its position in the recency list.
type entry struct {
	key     Key
	data    []byte
	expires time.Time // zero = never
	prev    *entry
	next    *entry
}

// recency is a doubly-linked list of entries, most recently used at head.
// It is not thread-safe; the owning shard locks around it.
type recency struct {
	head *entry
	tail *entry
	len  int
}

func (l *recency) pushFront(e *entry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
	l.len++
}

func (l *recency) moveToFront(e *entry) {
	if e == l.head {
		return
	}
	l.unlink(e)
	l.pushFront(e)
}

// oldest returns the least recently used entry, or nil.
func (l *recency) oldest() *entry {
	return l.tail
}

func (l *recency) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev = nil
	e.next = nil
	l.len--
}
