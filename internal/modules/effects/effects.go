// README: UI side effects queued by the booking session and drained by snapshot reads.
package effects

import (
	"sync"
	"time"
)

const (
	BasePath            = "/ride"
	DriverDashboardPath = "/driver/dashboard"
)

// RidePath is the ride-specific route for id.
func RidePath(id string) string {
	return BasePath + "/" + id
}

type Navigation struct {
	Path string `json:"path"`
	// Replace swaps the current history entry instead of pushing one.
	Replace bool `json:"replace,omitempty"`
	// FullReload asks for a document reload rather than client-side routing.
	FullReload bool `json:"fullReload,omitempty"`
	// DelayMs is how long the UI waits before performing the navigation.
	DelayMs int64 `json:"delayMs,omitempty"`
}

type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
	MessageInfo    MessageKind = "info"
)

type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

type Navigator interface {
	Navigate(n Navigation)
	NavigateAfter(n Navigation, d time.Duration)
}

type Notifier interface {
	Notify(m Message)
}

// Queue buffers navigations and messages until the next Drain.
type Queue struct {
	mu          sync.Mutex
	navigations []Navigation
	messages    []Message
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Navigate(n Navigation) {
	q.mu.Lock()
	q.navigations = append(q.navigations, n)
	q.mu.Unlock()
}

func (q *Queue) NavigateAfter(n Navigation, d time.Duration) {
	n.DelayMs = d.Milliseconds()
	q.Navigate(n)
}

func (q *Queue) Notify(m Message) {
	q.mu.Lock()
	q.messages = append(q.messages, m)
	q.mu.Unlock()
}

// Drain returns everything queued since the previous call and empties the queue.
func (q *Queue) Drain() ([]Navigation, []Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	navs, msgs := q.navigations, q.messages
	q.navigations, q.messages = nil, nil
	return navs, msgs
}
