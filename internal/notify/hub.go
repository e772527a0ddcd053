// Package notify delivers assignment notifications to users: a per-user
// feed with read/unread state plus a pub/sub hub feeding the session
// websocket.
package notify

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventNotification        EventType = "notification"
	EventNotificationDeleted EventType = "notification_deleted"
)

type Event struct {
	Type           EventType     `json:"type"`
	UserID         string        `json:"user_id"`
	Notification   *Notification `json:"notification,omitempty"`
	NotificationID string        `json:"notification_id,omitempty"`
	UnreadCount    int           `json:"unread_count"`
	At             time.Time     `json:"at"`
}

type Hub struct {
	mu          sync.RWMutex
	byUser      map[string][]*Notification
	subscribers map[string]map[int]chan Event
	nextSubID   int
}

func NewHub() *Hub {
	return &Hub{
		byUser:      make(map[string][]*Notification),
		subscribers: make(map[string]map[int]chan Event),
	}
}

// NotifyAssigned records an assignment notification and publishes it to the
// user's subscribers.
func (h *Hub) NotifyAssigned(userID, message string) {
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(message) == "" {
		return
	}

	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	h.mu.Lock()
	// Newest first, matching the feed order users see.
	h.byUser[userID] = append([]*Notification{n}, h.byUser[userID]...)
	unread := h.unreadLocked(userID)
	h.mu.Unlock()

	copied := *n
	h.publish(Event{
		Type:         EventNotification,
		UserID:       userID,
		Notification: &copied,
		UnreadCount:  unread,
		At:           n.CreatedAt,
	})
}

func (h *Hub) List(userID string) []Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()
	arr := h.byUser[userID]
	out := make([]Notification, 0, len(arr))
	for _, n := range arr {
		out = append(out, *n)
	}
	return out
}

// UnreadCount recomputes the count from the feed instead of tracking a
// running delta, so it can never go negative.
func (h *Hub) UnreadCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.unreadLocked(userID)
}

func (h *Hub) unreadLocked(userID string) int {
	count := 0
	for _, n := range h.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count
}

func (h *Hub) MarkRead(userID, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.byUser[userID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (h *Hub) Delete(userID, id string) error {
	h.mu.Lock()
	arr := h.byUser[userID]
	idx := -1
	for i, n := range arr {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return ErrNotFound
	}
	h.byUser[userID] = append(arr[:idx], arr[idx+1:]...)
	unread := h.unreadLocked(userID)
	h.mu.Unlock()

	h.publish(Event{
		Type:           EventNotificationDeleted,
		UserID:         userID,
		NotificationID: id,
		UnreadCount:    unread,
		At:             time.Now().UTC(),
	})
	return nil
}

// Subscribe returns a channel of events for one user and a cancel func.
// Slow subscribers drop events rather than blocking the publisher.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan Event, 64)
	h.mu.Lock()
	h.nextSubID++
	id := h.nextSubID
	if _, ok := h.subscribers[userID]; !ok {
		h.subscribers[userID] = make(map[int]chan Event)
	}
	h.subscribers[userID][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		subs, ok := h.subscribers[userID]
		if ok {
			if c, ok := subs[id]; ok {
				delete(subs, id)
				close(c)
			}
			if len(subs) == 0 {
				delete(h.subscribers, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
