package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coursegrade/backend/auth"
	"github.com/coursegrade/backend/coordinator"
)

const (
	updatesWSWriteWait = 10 * time.Second
	updatesWSPongWait  = 60 * time.Second
	updatesWSPingEvery = (updatesWSPongWait * 9) / 10
)

var updatesWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type updateWSOutbound struct {
	Type       string              `json:"type"`
	Message    string              `json:"message,omitempty"`
	Details    string              `json:"details,omitempty"`
	Submission *submissionResponse `json:"submission,omitempty"`
}

func mapEvent(ev coordinator.Event) updateWSOutbound {
	out := updateWSOutbound{Type: ev.Type()}
	switch e := ev.(type) {
	case coordinator.Update:
		out.Message = e.Message
	case coordinator.Error:
		out.Message = e.Message
		out.Details = e.Details
	case coordinator.Results:
		if e.Submission != nil {
			mapped := mapSubm(*e.Submission)
			out.Submission = &mapped
		}
	}
	return out
}

// subscribeToUpdates streams the authenticated student's grading events
// over a websocket. The stream ends when the run reaches a terminal
// event or the client goes away.
func (httpserver *HttpServer) subscribeToUpdates(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		handleJsonSrvcError(httpserver.log, w, errNotLoggedIn())
		return
	}

	conn, err := updatesWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events := httpserver.coord.Subscribe(claims.NetID)
	defer httpserver.coord.Unsubscribe(claims.NetID, events)

	if err := conn.SetReadDeadline(time.Now().Add(updatesWSPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(updatesWSPongWait))
	})

	// Reader only services control frames and detects disconnects.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(updatesWSPingEvery)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// terminal event closed the stream
				deadline := time.Now().Add(updatesWSWriteWait)
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(updatesWSWriteWait))
			if err := conn.WriteJSON(mapEvent(ev)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(updatesWSWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
