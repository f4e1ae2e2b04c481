package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(origins, slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Start(context.Background())

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", hub.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopWaitsForLoop(t *testing.T) {
	for i := 0; i < 20; i++ {
		hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
		hub.Start(context.Background())
		hub.Stop()

		// the loop has exited, so nothing accepts registrations
		select {
		case hub.register <- &client{send: make(chan []byte, 1)}:
			t.Fatal("hub loop still running after Stop()")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPublishReachesClients(t *testing.T) {
	hub, srv := newTestHub(t, nil)

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}
	waitForClients(t, hub, 2)

	hub.Publish(Event{
		Type:       TypeSettled,
		CampaignID: 7,
		Action:     "fund",
		TxHash:     "0xdead",
	})

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var got Event
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("client %d ReadJSON() error = %v", i, err)
		}
		if got.Type != TypeSettled || got.CampaignID != 7 || got.Action != "fund" || got.TxHash != "0xdead" {
			t.Errorf("client %d got %+v", i, got)
		}
		if got.Timestamp.IsZero() {
			t.Errorf("client %d event has no timestamp", i)
		}
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, srv := newTestHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitForClients(t, hub, 1)

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitForClients(t, hub, 0)
}

func TestOriginCheck(t *testing.T) {
	_, srv := newTestHub(t, []string{"https://fund.example"})

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err == nil {
		t.Fatal("Dial() expected error for foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	header.Set("Origin", "https://fund.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("Dial() error = %v for allowed origin", err)
	}
	conn.Close()
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		// Hub not running: the buffer absorbs then drops
		for i := 0; i < 200; i++ {
			hub.Publish(Event{Type: TypeSettled, CampaignID: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish() blocked")
	}
}
