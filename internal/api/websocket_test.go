package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pano-hotspots/backend/internal/session"
)

func dialViewer(t *testing.T, ts *testServer, sessionID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.e)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/viewer?sessionId=" + sessionID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMsg(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func sendMsg(t *testing.T, ws *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := WSMessage{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		msg.Payload = mustJSON(payload)
	}
	require.NoError(t, ws.WriteJSON(msg))
}

func TestViewerSocket_UnknownSession(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/ws/viewer?sessionId=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/ws/viewer", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewerSocket_Protocol(t *testing.T) {
	ts := newTestServer(t)
	id := ts.newSession(t)
	ws := dialViewer(t, ts, id)

	msg := readMsg(t, ws)
	assert.Equal(t, MsgTypeConnected, msg.Type)
	assert.Equal(t, id, msg.ID)

	msg = readMsg(t, ws)
	require.Equal(t, session.EventViewerConfig, msg.Type)
	var cfg session.ViewerConfig
	require.NoError(t, json.Unmarshal(msg.Payload, &cfg))
	assert.Equal(t, 1, cfg.PanoramaID)
	assert.Len(t, cfg.Markers, 2)

	sendMsg(t, ws, MsgTypePing, nil)
	assert.Equal(t, MsgTypePong, readMsg(t, ws).Type)

	sendMsg(t, ws, MsgTypeViewerLoad, ViewEventPayload{HFOV: 100})
	msg = readMsg(t, ws)
	require.Equal(t, session.EventRescale, msg.Type)
	var rs session.Rescale
	require.NoError(t, json.Unmarshal(msg.Payload, &rs))
	assert.InDelta(t, 1.0, rs.Scale, 1e-9)

	sendMsg(t, ws, MsgTypeViewerZoomChange, ViewEventPayload{HFOV: 50})
	msg = readMsg(t, ws)
	require.Equal(t, session.EventRescale, msg.Type)
	require.NoError(t, json.Unmarshal(msg.Payload, &rs))
	assert.InDelta(t, 2.0, rs.Scale, 1e-9)

	sendMsg(t, ws, MsgTypeHotspotClick, HotspotPayload{HotspotID: "weapon"})
	msg = readMsg(t, ws)
	require.Equal(t, session.EventNotify, msg.Type)
	var note session.Notification
	require.NoError(t, json.Unmarshal(msg.Payload, &note))
	assert.Equal(t, "📍 Weapon Rack", note.Title)
	assert.Equal(t, session.EventViewed, readMsg(t, ws).Type)

	sendMsg(t, ws, MsgTypeHotspotClick, HotspotPayload{HotspotID: "ghost"})
	msg = readMsg(t, ws)
	require.Equal(t, MsgTypeError, msg.Type)
	var wsErr WSErrorResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &wsErr))
	assert.Equal(t, "HOTSPOT_NOT_FOUND", wsErr.Code)

	sendMsg(t, ws, MsgTypeViewerLoad, nil)
	require.NoError(t, json.Unmarshal(readMsg(t, ws).Payload, &wsErr))
	assert.Equal(t, "INVALID_PAYLOAD", wsErr.Code)

	sendMsg(t, ws, "viewer:teleport", nil)
	require.NoError(t, json.Unmarshal(readMsg(t, ws).Payload, &wsErr))
	assert.Equal(t, "INVALID_TYPE", wsErr.Code)
}

func TestViewerSocket_EditModeSelect(t *testing.T) {
	ts := newTestServer(t)
	id := ts.newSession(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/sessions/"+id+"/edit-mode", `{"editMode":true}`).Code)
	ws := dialViewer(t, ts, id)

	assert.Equal(t, MsgTypeConnected, readMsg(t, ws).Type)
	msg := readMsg(t, ws)
	require.Equal(t, session.EventViewerConfig, msg.Type)

	sendMsg(t, ws, MsgTypeHotspotClick, HotspotPayload{HotspotID: "door"})
	msg = readMsg(t, ws)
	require.Equal(t, session.EventViewerConfig, msg.Type)
	var cfg session.ViewerConfig
	require.NoError(t, json.Unmarshal(msg.Payload, &cfg))
	assert.Equal(t, "door", cfg.SelectedHotspotID)

	msg = readMsg(t, ws)
	require.Equal(t, session.EventSelected, msg.Type)
	var sel struct {
		Draft struct {
			OriginalID string `json:"originalId"`
		} `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &sel))
	assert.Equal(t, "door", sel.Draft.OriginalID)
}

func TestViewerSocket_SessionClosed(t *testing.T) {
	ts := newTestServer(t)
	id := ts.newSession(t)
	ws := dialViewer(t, ts, id)
	readMsg(t, ws)
	readMsg(t, ws)

	require.True(t, ts.mgr.Delete(id))
	msg := readMsg(t, ws)
	require.Equal(t, MsgTypeError, msg.Type)
	var wsErr WSErrorResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &wsErr))
	assert.Equal(t, "SESSION_CLOSED", wsErr.Code)
}
