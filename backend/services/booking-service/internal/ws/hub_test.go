package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartpark/backend/services/booking-service/internal/events"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	return conn
}

func TestHubFansOutEvents(t *testing.T) {
	hub := NewHub(time.Hour, nil)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, time.Second, nil).HandleWS))
	defer srv.Close()

	a := dial(t, srv.URL)
	defer a.Close()
	b := dial(t, srv.URL)
	defer b.Close()
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	hub.Publish(context.Background(), events.Event{Type: events.SlotLocked, SlotID: "S001", At: at})

	for _, c := range []*websocket.Conn{a, b} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got events.Event
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, events.SlotLocked, got.Type)
		assert.Equal(t, "S001", got.SlotID)
		assert.True(t, at.Equal(got.At))
	}
}

func TestHubDropsClosedSubscribers(t *testing.T) {
	hub := NewHub(time.Hour, nil)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, time.Second, nil).HandleWS))
	defer srv.Close()

	c := dial(t, srv.URL)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		hub.Publish(context.Background(), events.Event{Type: events.SessionStopped})
	})
}
