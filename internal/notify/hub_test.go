package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func dialHub(t *testing.T, hub *Hub, userID uint) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, userID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Register runs on the server goroutine; wait for the map entry
	for i := 0; i < 200; i++ {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n > 0 {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("connection never registered")
	return nil
}

// Order creation fires OrderCreated and LowStock to the same vendor
// back-to-back, and AsyncSink runs each dispatch on its own goroutine,
// so pushes to one connection must tolerate concurrent callers.
func TestPushSerializesConcurrentWriters(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 1)

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hub.Push(1, map[string]int{"seq": n})
		}(i)
	}
	wg.Wait()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for received := 0; received < writers; received++ {
		_, _, err := conn.ReadMessage()
		require.NoError(t, err, "after %d of %d messages", received, writers)
	}
}

func TestPushTargetsOnlyTheOwner(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 7)

	hub.Push(42, map[string]string{"for": "someone else"})
	hub.Push(7, map[string]string{"for": "me"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), "me")
}
