package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/session"
	"github.com/pano-hotspots/backend/internal/viewport"
)

// WebSocket message types for the viewer protocol
const (
	// Client -> Server messages
	MsgTypeViewerLoad       = "viewer:load"
	MsgTypeViewerError      = "viewer:error"
	MsgTypeViewerMouseUp    = "viewer:mouseup"
	MsgTypeViewerTouchEnd   = "viewer:touchend"
	MsgTypeViewerZoomChange = "viewer:zoomchange"
	MsgTypeHotspotClick     = "hotspot:click"
	MsgTypeHotspotHover     = "hotspot:hover"
	MsgTypePing             = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// DefaultMaxMessageSize bounds a single client frame.
const DefaultMaxMessageSize = 64 * 1024

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ViewEventPayload carries the view state read by the browser viewer
type ViewEventPayload struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	HFOV  float64 `json:"hfov"`
}

// ViewerErrorPayload carries a browser viewer failure
type ViewerErrorPayload struct {
	Message string `json:"message"`
}

// HotspotPayload names the hotspot a pointer event targets
type HotspotPayload struct {
	HotspotID string `json:"hotspotId"`
	Enter     bool   `json:"enter,omitempty"`
}

// WebSocket error response
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ViewerSocketHandlerImpl bridges browser viewers to their sessions
type ViewerSocketHandlerImpl struct {
	sessions       SessionManager
	upgrader       websocket.Upgrader
	maxMessageSize int64
	logger         *log.Logger
}

// NewViewerSocketHandler creates a new viewer WebSocket handler
func NewViewerSocketHandler(sessions SessionManager, maxMessageSize int64, logger *log.Logger) *ViewerSocketHandlerImpl {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	if logger == nil {
		logger = log.New("websocket")
	}
	return &ViewerSocketHandlerImpl{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		maxMessageSize: maxMessageSize,
		logger:         logger,
	}
}

// viewerConn serialises writes to one connection.
type viewerConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (vc *viewerConn) send(msg WSMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.ws.WriteJSON(msg)
}

func (vc *viewerConn) sendEvent(ev session.Event) error {
	return vc.send(WSMessage{
		Type:      ev.Type,
		Payload:   mustJSON(ev.Payload),
		Timestamp: ev.Timestamp.UnixMilli(),
	})
}

func (vc *viewerConn) sendError(message, code string) error {
	return vc.send(WSMessage{
		Type:    MsgTypeError,
		Payload: mustJSON(WSErrorResponse{Message: message, Code: code}),
	})
}

// HandleViewerSocket upgrades the connection and relays viewer events in
// and session events out until either side closes.
func (h *ViewerSocketHandlerImpl) HandleViewerSocket(c echo.Context) error {
	id := c.QueryParam("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(h.maxMessageSize)

	vc := &viewerConn{ws: ws}
	h.logger.Infof("[WebSocket] viewer connected for session %s", shortID(id))

	if err := vc.send(WSMessage{Type: MsgTypeConnected, ID: id}); err != nil {
		return nil
	}
	h.sendSnapshot(vc, s)

	done := make(chan struct{})
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		h.forward(vc, s, done)
	}()

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnf("[WebSocket] session %s connection error: %v", shortID(id), err)
			}
			break
		}
		h.sessions.TouchSession(id)
		h.handleMessage(vc, s, msg)
	}

	close(done)
	<-forwarded
	h.logger.Infof("[WebSocket] viewer disconnected from session %s", shortID(id))
	return nil
}

// sendSnapshot sends the live viewer configuration, superseding any queued
// configuration, followed by the other queued events.
func (h *ViewerSocketHandlerImpl) sendSnapshot(vc *viewerConn, s *session.Session) {
	queued := s.Outbox().Drain()
	if cfg, err := s.ViewerConfig(); err == nil {
		_ = vc.send(WSMessage{Type: session.EventViewerConfig, Payload: mustJSON(cfg)})
	} else if msg := s.LoadError(); msg != "" {
		_ = vc.sendError(msg, "NO_PANORAMAS")
	}
	for _, ev := range queued {
		if ev.Type == session.EventViewerConfig {
			continue
		}
		_ = vc.sendEvent(ev)
	}
}

func (h *ViewerSocketHandlerImpl) forward(vc *viewerConn, s *session.Session, done <-chan struct{}) {
	events := s.Outbox().Events()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				_ = vc.send(WSMessage{Type: MsgTypeError, Payload: mustJSON(WSErrorResponse{Message: "session closed", Code: "SESSION_CLOSED"})})
				_ = vc.ws.Close()
				return
			}
			if err := vc.sendEvent(ev); err != nil {
				return
			}
		}
	}
}

func (h *ViewerSocketHandlerImpl) handleMessage(vc *viewerConn, s *session.Session, msg WSMessage) {
	var err error
	switch msg.Type {
	case MsgTypePing:
		// Respond with pong to keep connection alive
		err = vc.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		if err != nil {
			h.logger.Debugf("[WebSocket] pong failed: %v", err)
		}
		return
	case MsgTypeViewerLoad:
		var p ViewEventPayload
		if err = decodePayload(msg, &p); err == nil {
			err = s.ViewerLoaded(models.ViewState(p))
		}
	case MsgTypeViewerError:
		var p ViewerErrorPayload
		if err = decodePayload(msg, &p); err == nil {
			err = s.ViewerFailed(p.Message)
		}
	case MsgTypeViewerMouseUp, MsgTypeViewerTouchEnd, MsgTypeViewerZoomChange:
		var p ViewEventPayload
		if err = decodePayload(msg, &p); err == nil {
			err = s.ViewChanged(strings.TrimPrefix(msg.Type, "viewer:"), models.ViewState(p))
		}
	case MsgTypeHotspotClick:
		var p HotspotPayload
		if err = decodePayload(msg, &p); err == nil {
			err = s.ClickHotspot(p.HotspotID)
		}
	case MsgTypeHotspotHover:
		var p HotspotPayload
		if err = decodePayload(msg, &p); err == nil {
			err = s.HoverHotspot(p.HotspotID, p.Enter)
		}
	default:
		_ = vc.sendError("Unknown message type: "+msg.Type, "INVALID_TYPE")
		return
	}
	if err != nil {
		_ = vc.sendError(err.Error(), errorCode(err))
	}
}

var errInvalidPayload = errors.New("invalid payload")

func decodePayload(msg WSMessage, out any) error {
	if len(msg.Payload) == 0 {
		return errInvalidPayload
	}
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return errors.Join(errInvalidPayload, err)
	}
	return nil
}

func errorCode(err error) string {
	var unknown *viewport.UnknownHotspotError
	switch {
	case errors.Is(err, errInvalidPayload):
		return "INVALID_PAYLOAD"
	case errors.As(err, &unknown):
		return "HOTSPOT_NOT_FOUND"
	case errors.Is(err, session.ErrNoViewer):
		return "NO_VIEWER"
	}
	return "VIEWER_EVENT_FAILED"
}

// shortID truncates an id for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func mustJSON(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
