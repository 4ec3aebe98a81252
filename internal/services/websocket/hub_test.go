package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"teachablecam/internal/dto"
	"teachablecam/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func startHub(t *testing.T, onMessage func([]byte)) (*HubService, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHubService(logger.NewNop())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(conn).Serve(hub, []byte(`{"type":"hello"}`), onMessage)
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return msg
}

func TestHub_InitialThenBroadcast(t *testing.T) {
	hub, server := startHub(t, nil)
	conn := dial(t, server)

	assert.JSONEq(t, `{"type":"hello"}`, string(read(t, conn)))
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(dto.State{Type: dto.MessageState, Labels: []dto.LabelView{{Class: 0, Text: "no examples"}}})

	var state dto.State
	require.NoError(t, json.Unmarshal(read(t, conn), &state))
	assert.Equal(t, dto.MessageState, state.Type)
	require.Len(t, state.Labels, 1)
	assert.Equal(t, "no examples", state.Labels[0].Text)
}

func TestHub_PublishFrame(t *testing.T) {
	hub, server := startHub(t, nil)
	conn := dial(t, server)
	read(t, conn)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.PublishFrame([]byte{0xFF, 0xD8})

	var frame dto.FrameMessage
	require.NoError(t, json.Unmarshal(read(t, conn), &frame))
	assert.Equal(t, dto.MessageFrame, frame.Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8}), frame.Image)
}

func TestHub_ForwardsViewerMessages(t *testing.T) {
	received := make(chan string, 1)
	_, server := startHub(t, func(msg []byte) { received <- string(msg) })
	conn := dial(t, server)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"press","class":1}`)))

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"action":"press","class":1}`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("message not forwarded")
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, server := startHub(t, nil)
	conn := dial(t, server)
	read(t, conn)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHubService(logger.NewNop())

	for i := 0; i < broadcastBuffer; i++ {
		assert.True(t, hub.Broadcast([]byte("x")))
	}
	assert.False(t, hub.Broadcast([]byte("x")), "full queue drops")
}
