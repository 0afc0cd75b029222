package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startTestServer runs a hub behind a WebSocket endpoint shaped like
// /ws/tournaments/{id}.
func startTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(testLogger())
	go hub.Run()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		id, err := strconv.Atoi(parts[len(parts)-1])
		require.NoError(t, err)

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		client := NewHubClient(hub, conn, RoomID(id))
		hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, tournamentID int) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tournaments/" + strconv.Itoa(tournamentID)
}

func connectManager(t *testing.T, srv *httptest.Server, tournamentID int) *Manager {
	t.Helper()
	m := NewManager(ManagerConfig{
		URL:                  wsURL(srv, tournamentID),
		ReconnectDelay:       50 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}, testLogger())
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(m.Close)
	return m
}

// waitForRoom blocks until the hub has registered n clients in the room,
// since registration races with the dial handshake.
func waitForRoom(t *testing.T, hub *Hub, tournamentID, n int) {
	t.Helper()
	room := RoomID(tournamentID)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms[room]) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubBroadcastReachesSubscribers(t *testing.T) {
	hub, srv := startTestServer(t)
	m := connectManager(t, srv, 42)
	waitForRoom(t, hub, 42, 1)

	received := make(chan Event, 4)
	m.Subscribe(42, func(ev Event) { received <- ev })

	ev, err := NewEvent(EventScoreUpdate, 42, "R1M1", 2, ScoreUpdatePayload{Team1Score: 10, Team2Score: 8})
	require.NoError(t, err)
	hub.BroadcastEvent(ev)

	got := waitForEvent(t, received)
	assert.Equal(t, EventScoreUpdate, got.Type)
	assert.Equal(t, "R1M1", got.MatchUID)
	assert.Equal(t, 2, got.Version)

	payload, err := got.ScoreUpdate()
	require.NoError(t, err)
	assert.Equal(t, 10, payload.Team1Score)
}

func TestPublishRelaysToOtherClientsNotSelf(t *testing.T) {
	hub, srv := startTestServer(t)
	sender := connectManager(t, srv, 7)
	receiver := connectManager(t, srv, 7)
	waitForRoom(t, hub, 7, 2)

	senderGot := make(chan Event, 4)
	receiverGot := make(chan Event, 4)
	sender.Subscribe(7, func(ev Event) { senderGot <- ev })
	receiver.Subscribe(7, func(ev Event) { receiverGot <- ev })

	ev, err := NewEvent(EventMatchStarted, 7, "R1M1", 1, MatchStartedPayload{Team1ID: 1, Team2ID: 2})
	require.NoError(t, err)
	require.NoError(t, sender.Publish(ev))

	got := waitForEvent(t, receiverGot)
	assert.Equal(t, EventMatchStarted, got.Type)

	select {
	case <-senderGot:
		t.Fatal("sender must not receive its own publish back")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeFiltersByTournamentAndType(t *testing.T) {
	hub, srv := startTestServer(t)
	m := connectManager(t, srv, 1)
	waitForRoom(t, hub, 1, 1)

	scoresOnly := make(chan Event, 4)
	m.Subscribe(1, func(ev Event) { scoresOnly <- ev }, EventScoreUpdate)

	otherTournament := make(chan Event, 4)
	m.Subscribe(99, func(ev Event) { otherTournament <- ev })

	started, err := NewEvent(EventMatchStarted, 1, "R1M1", 1, MatchStartedPayload{Team1ID: 1, Team2ID: 2})
	require.NoError(t, err)
	hub.BroadcastEvent(started)

	score, err := NewEvent(EventScoreUpdate, 1, "R1M1", 2, ScoreUpdatePayload{Team1Score: 4, Team2Score: 2})
	require.NoError(t, err)
	hub.BroadcastEvent(score)

	got := waitForEvent(t, scoresOnly)
	assert.Equal(t, EventScoreUpdate, got.Type, "match_started must be filtered out")

	select {
	case <-otherTournament:
		t.Fatal("subscriber for another tournament must see nothing")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub, srv := startTestServer(t)
	m := connectManager(t, srv, 5)
	waitForRoom(t, hub, 5, 1)

	received := make(chan Event, 4)
	id := m.Subscribe(5, func(ev Event) { received <- ev })

	ev, err := NewEvent(EventScoreUpdate, 5, "R1M1", 1, ScoreUpdatePayload{Team1Score: 1, Team2Score: 0})
	require.NoError(t, err)
	hub.BroadcastEvent(ev)
	waitForEvent(t, received)

	m.Unsubscribe(id)
	hub.BroadcastEvent(ev)

	select {
	case <-received:
		t.Fatal("unsubscribed callback must not fire")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConcurrentPublishersShareOneConnection(t *testing.T) {
	hub, srv := startTestServer(t)
	sender := connectManager(t, srv, 9)
	receiver := connectManager(t, srv, 9)
	waitForRoom(t, hub, 9, 2)

	received := make(chan Event, 64)
	receiver.Subscribe(9, func(ev Event) { received <- ev })

	// several goroutines publish through the shared manager at once; every
	// frame must arrive intact on the other side
	const publishers, perPublisher = 4, 5
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				ev, err := NewEvent(EventScoreUpdate, 9, "R1M1", p*perPublisher+i+1,
					ScoreUpdatePayload{Team1Score: p, Team2Score: i})
				assert.NoError(t, err)
				assert.NoError(t, sender.Publish(ev))
			}
		}(p)
	}
	wg.Wait()

	for n := 0; n < publishers*perPublisher; n++ {
		ev := waitForEvent(t, received)
		assert.Equal(t, EventScoreUpdate, ev.Type)
		_, err := ev.ScoreUpdate()
		assert.NoError(t, err)
	}
}

func TestPublishWhileDisconnectedIsNotFatal(t *testing.T) {
	m := NewManager(ManagerConfig{URL: "ws://127.0.0.1:1/ws"}, testLogger())

	ev, err := NewEvent(EventScoreUpdate, 1, "R1M1", 1, ScoreUpdatePayload{})
	require.NoError(t, err)
	assert.NoError(t, m.Publish(ev), "offline publish drops the event instead of failing")

	m.Close()
	assert.ErrorIs(t, m.Publish(ev), ErrManagerClosed)
}
