package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dialHub connects a client to the hub and returns both ends: the client
// conn for reading pushes and the server conn Attach registered.
func dialHub(t *testing.T, hub *Hub, userID string) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := hub.Attach(userID, w, r)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case serverConn := <-serverConns:
		return conn, serverConn
	case <-time.After(time.Second):
		t.Fatal("hub never attached the connection")
		return nil, nil
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) *Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return &event
}

func TestHubPush(t *testing.T) {
	hub := NewHub(nil)
	conn, _ := dialHub(t, hub, "alice")

	hub.Push("alice", &Event{Event: "ping", Data: "hello"})

	event := readEvent(t, conn)
	require.Equal(t, "ping", event.Event)
	require.Equal(t, "hello", event.Data)
}

func TestHubPushUnknownUserIsNoOp(t *testing.T) {
	hub := NewHub(nil)
	hub.Push("nobody", &Event{Event: "ping"})
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	alice, _ := dialHub(t, hub, "alice")
	bob, _ := dialHub(t, hub, "bob")

	hub.Broadcast(&Event{Event: "announcement"})

	require.Equal(t, "announcement", readEvent(t, alice).Event)
	require.Equal(t, "announcement", readEvent(t, bob).Event)
}

func TestHubDetach(t *testing.T) {
	hub := NewHub(nil)
	_, serverConn := dialHub(t, hub, "alice")

	require.Equal(t, []string{"alice"}, hub.ConnectedUsers())

	require.True(t, hub.Detach("alice", serverConn))
	require.Empty(t, hub.ConnectedUsers())

	// Pushing after detach must not panic or resurrect the connection.
	hub.Push("alice", &Event{Event: "ping"})
	require.Empty(t, hub.ConnectedUsers())
}

func TestHubDetachIgnoresReplacedConn(t *testing.T) {
	hub := NewHub(nil)
	_, first := dialHub(t, hub, "alice")
	client, _ := dialHub(t, hub, "alice")

	// Detaching the superseded connection leaves the current one in place.
	require.False(t, hub.Detach("alice", first))
	require.Equal(t, []string{"alice"}, hub.ConnectedUsers())

	hub.Push("alice", &Event{Event: "ping"})
	require.Equal(t, "ping", readEvent(t, client).Event)
}
