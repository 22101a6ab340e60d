package session

import (
	"sync"
	"time"

	"github.com/pano-hotspots/backend/internal/editor"
	"github.com/pano-hotspots/backend/internal/overlay"
	"github.com/pano-hotspots/backend/internal/viewport"
)

// Event types pushed to the session's viewer connection.
const (
	EventViewerConfig = "viewer:config"
	EventRescale      = "viewer:rescale"
	EventSelected     = "hotspot:selected"
	EventNotify       = "hotspot:notify"
	EventViewed       = "hotspot:viewed"
	EventError        = "error"
)

// OutboxSize is the number of undelivered events a session keeps.
const OutboxSize = 64

// Event is one message for the viewer connection.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is the payload of EventNotify.
type Notification struct {
	Title string `json:"label"`
	Body  string `json:"description,omitempty"`
}

// ViewerConfig is the payload of EventViewerConfig: everything a browser
// needs to construct its viewer.
type ViewerConfig struct {
	PanoramaID        int                      `json:"panoramaId"`
	Config            viewport.Config          `json:"config"`
	Markers           []overlay.RenderedMarker `json:"markers"`
	EditMode          bool                     `json:"editMode"`
	SelectedHotspotID string                   `json:"selectedHotspotId,omitempty"`
}

// Rescale is the payload of EventRescale.
type Rescale struct {
	Scale float64 `json:"scale"`
	HFOV  float64 `json:"hfov"`
}

// Selected is the payload of EventSelected.
type Selected struct {
	Draft editor.Draft `json:"draft"`
}

// ErrorPayload is the payload of EventError.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Outbox buffers events for the viewer connection. When full, the oldest
// event is dropped. It implements the notifier interfaces of the editor and
// the overlay.
type Outbox struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewOutbox returns an outbox holding up to size events.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = OutboxSize
	}
	return &Outbox{ch: make(chan Event, size)}
}

// Push enqueues an event without blocking.
func (o *Outbox) Push(eventType string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	ev := Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
	for {
		select {
		case o.ch <- ev:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}

// Notify implements editor.Notifier and overlay.Notifier.
func (o *Outbox) Notify(title, body string) {
	o.Push(EventNotify, Notification{Title: title, Body: body})
}

// Events returns the delivery channel. It is closed by Close.
func (o *Outbox) Events() <-chan Event {
	return o.ch
}

// Drain returns every queued event without blocking.
func (o *Outbox) Drain() []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-o.ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Close stops delivery.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}
