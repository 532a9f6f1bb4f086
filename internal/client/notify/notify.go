// Package notify queues transient user-facing status messages.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Warning Type = "warning"
	Info    Type = "info"
)

// DefaultDuration is the lifetime used by Success, Error, Warning and Info.
const DefaultDuration = 5 * time.Second

// Notification is one queued message. A Duration of 0 never expires.
type Notification struct {
	ID       string
	Type     Type
	Title    string
	Message  string
	Duration time.Duration
}

// Center holds the active notifications and expires them on their own timers.
type Center struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]*time.Timer
	onChange func([]Notification)
	closed   bool
}

// NewCenter creates an empty queue. onChange, when set, receives a snapshot
// after every change.
func NewCenter(onChange func([]Notification)) *Center {
	return &Center{timers: map[string]*time.Timer{}, onChange: onChange}
}

// Push queues n, assigning an ID when empty, and returns the ID.
func (c *Center) Push(n Notification) string {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n.ID
	}
	c.items = append(c.items, n)
	if n.Duration > 0 {
		id := n.ID
		c.timers[id] = time.AfterFunc(n.Duration, func() { c.Dismiss(id) })
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
	return n.ID
}

// Success queues a success message with the default duration.
func (c *Center) Success(title, message string) string {
	return c.Push(Notification{Type: Success, Title: title, Message: message, Duration: DefaultDuration})
}

// Error queues an error message with the default duration.
func (c *Center) Error(title, message string) string {
	return c.Push(Notification{Type: Error, Title: title, Message: message, Duration: DefaultDuration})
}

// Warning queues a warning with the default duration.
func (c *Center) Warning(title, message string) string {
	return c.Push(Notification{Type: Warning, Title: title, Message: message, Duration: DefaultDuration})
}

// Info queues an informational message with the default duration.
func (c *Center) Info(title, message string) string {
	return c.Push(Notification{Type: Info, Title: title, Message: message, Duration: DefaultDuration})
}

// Dismiss removes the notification and stops its timer. Unknown IDs are ignored.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	idx := -1
	for i, n := range c.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// List returns the active notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops every timer and drops the queue. Later pushes are ignored.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.items = nil
	c.closed = true
}

func (c *Center) snapshotLocked() []Notification {
	return append([]Notification(nil), c.items...)
}

func (c *Center) emit(snap []Notification) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}
