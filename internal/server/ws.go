package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"zapbot/internal/bus"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// The REST layer already allows any origin; the socket follows suit.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsHandler streams bus events to a dashboard client. On connect the current
// status and QR are pushed so late joiners render immediately.
func wsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.Log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		events, cancel := d.Bus.Subscribe()
		defer cancel()

		if err := writeEvent(conn, bus.Event{Name: bus.EventStatus, Payload: d.Bot.Status()}); err != nil {
			return
		}
		if qr := d.Bot.QRCode(); qr != "" {
			if err := writeEvent(conn, bus.Event{Name: bus.EventQR, Payload: qr}); err != nil {
				return
			}
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(conn, evt); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, evt bus.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(evt)
}
