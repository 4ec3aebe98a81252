package handler

import (
	"encoding/json"
	"net/http"
	"teachablecam/internal/dto"
	"teachablecam/internal/logger"
	"teachablecam/internal/services/websocket"

	gorilla "github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controls is what a viewer can drive: the class buttons.
type Controls interface {
	Press(i int) error
	Release(i int) error
	Snapshot() dto.State
	Flush() bool
}

// ViewWebsocketHandler serves a viewer: it sends the current state, then
// streams broadcasts and applies the viewer's press/release messages.
func ViewWebsocketHandler(hub *websocket.HubService, controls Controls, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		initial, err := json.Marshal(controls.Snapshot())
		if err != nil {
			logger.Error("Failed to encode state: %v", err)
			connection.Close()
			return
		}

		client := websocket.NewClient(connection)
		logger.Info("Viewer %s connected from %s", client.ID, r.RemoteAddr)

		var hold viewerHold
		client.Serve(hub, initial, func(msg []byte) {
			hold.handle(msg, controls, logger)
		})

		// A viewer that leaves mid-press must not keep training armed.
		if hold.pressed {
			logger.Info("Viewer %s left while holding class %d", client.ID, hold.class)
			if err := controls.Release(hold.class); err == nil {
				controls.Flush()
			}
		}
	}
}

// viewerHold tracks the class one viewer is holding down.
type viewerHold struct {
	pressed bool
	class   int
}

func (h *viewerHold) handle(msg []byte, controls Controls, logger *logger.Logger) {
	var control dto.ControlMessage
	if err := json.Unmarshal(msg, &control); err != nil {
		logger.Warning("Ignoring malformed viewer message: %v", err)
		return
	}

	var err error
	switch control.Action {
	case dto.ActionPress:
		err = controls.Press(control.Class)
		if err == nil {
			h.pressed, h.class = true, control.Class
		}
	case dto.ActionRelease:
		err = controls.Release(control.Class)
		if err == nil {
			h.pressed = false
		}
	default:
		logger.Warning("Ignoring unknown viewer action %q", control.Action)
		return
	}
	if err != nil {
		logger.Warning("Viewer %s of class %d rejected: %v", control.Action, control.Class, err)
		return
	}
	controls.Flush()
}
