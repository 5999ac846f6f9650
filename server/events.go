package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// EventType names a change as "<entity>.<verb>".
type EventType string

const (
	ProjectUpdated EventType = "project.updated"
	MemberAdded    EventType = "member.added"
	MemberRemoved  EventType = "member.removed"
	ColumnCreated  EventType = "column.created"
	ColumnUpdated  EventType = "column.updated"
	ColumnMoved    EventType = "column.moved"
	ColumnDeleted  EventType = "column.deleted"
	TicketCreated  EventType = "ticket.created"
	TicketUpdated  EventType = "ticket.updated"
	TicketMoved    EventType = "ticket.moved"
	TicketDeleted  EventType = "ticket.deleted"
)

// Entity is the part of t before the dot.
func (t EventType) Entity() string {
	entity, _, _ := strings.Cut(string(t), ".")
	return entity
}

// Event is one change inside a project, fanned out to the project's SSE
// subscribers. ColumnID is set for column and ticket events.
type Event struct {
	Type      EventType `json:"type"`
	Entity    string    `json:"entity"`
	ProjectID int64     `json:"projectId"`
	ColumnID  *int64    `json:"columnId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent builds an event for projectID with the entity taken from typ.
func NewEvent(typ EventType, projectID int64, columnID *int64, payload any) Event {
	return Event{Type: typ, Entity: typ.Entity(), ProjectID: projectID, ColumnID: columnID, Payload: payload}
}

type EventBus struct {
	mu   sync.RWMutex
	subs map[int64]map[chan []byte]struct{}
}

func NewEventBus() *EventBus { return &EventBus{subs: make(map[int64]map[chan []byte]struct{})} }

func (b *EventBus) Subscribe(projectID int64) (ch chan []byte, cancel func()) {
	ch = make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[projectID] == nil {
		b.subs[projectID] = make(map[chan []byte]struct{})
	}
	b.subs[projectID][ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		if subs, ok := b.subs[projectID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subs, projectID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}
}

// Publish delivers ev to the project's subscribers, dropping it for slow ones.
func (b *EventBus) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.ProjectID] {
		select {
		case ch <- data:
		default:
		}
	}
}

// ServeSSE streams the project's events until the client goes away.
func (b *EventBus) ServeSSE(w http.ResponseWriter, r *http.Request, projectID int64) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := b.Subscribe(projectID)
	defer cancel()

	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			// heartbeat for proxies
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
