package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapbot/internal/bus"
	"zapbot/internal/config"
	"zapbot/internal/engine"
)

func TestWebSocketInitialPushAndLiveEvents(t *testing.T) {
	b := bus.New(zerolog.Nop())
	bot := &fakeBot{status: "aguardando-qr", qr: "data:image/png;base64,abc"}

	srv := New(":0", Deps{
		Manager:  config.NewManager(t.TempDir(), zerolog.Nop()),
		Bot:      bot,
		Bus:      b,
		Messages: engine.NewLog[engine.MessageRecord](10),
		Replies:  engine.NewLog[engine.ReplyRecord](10),
		Log:      zerolog.Nop(),
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var evt bus.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, bus.EventStatus, evt.Name)
	assert.Equal(t, "aguardando-qr", evt.Payload)

	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, bus.EventQR, evt.Name)
	assert.Equal(t, "data:image/png;base64,abc", evt.Payload)

	require.Eventually(t, func() bool {
		return b.Subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	b.Publish("nova-mensagem", map[string]any{"body": "oi"})
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "nova-mensagem", evt.Name)
}

func TestWebSocketSkipsEmptyQR(t *testing.T) {
	b := bus.New(zerolog.Nop())
	bot := &fakeBot{status: "desconectado"}

	srv := New(":0", Deps{
		Manager:  config.NewManager(t.TempDir(), zerolog.Nop()),
		Bot:      bot,
		Bus:      b,
		Messages: engine.NewLog[engine.MessageRecord](10),
		Replies:  engine.NewLog[engine.ReplyRecord](10),
		Log:      zerolog.Nop(),
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var evt bus.Event
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, bus.EventStatus, evt.Name)

	require.Eventually(t, func() bool {
		return b.Subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	b.Publish(bus.EventStatus, "conectado")
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, bus.EventStatus, evt.Name)
	assert.Equal(t, "conectado", evt.Payload)
}
