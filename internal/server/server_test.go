package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/glucometer/internal/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	s, err := New(Config{}, mem)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().Close()
		ts.Close()
	})
	return s, ts, mem
}

func dialFeed(t *testing.T, s *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestFeedReceivesNewMeasurements(t *testing.T) {
	s, ts, mem := newTestServer(t)
	conn := dialFeed(t, s, ts)

	pub := NewPublishingStore(mem, s.Hub())
	ctx := store.WithSession(context.Background(), "session-1")
	require.NoError(t, pub.InsertMeasurement(ctx, 120, "Wed Jan  5 08:15:00 2011", "abfr"))

	// duplicates are stored once and not published
	err := pub.InsertMeasurement(ctx, 120, "Wed Jan  5 08:15:00 2011", "abfr")
	assert.ErrorIs(t, err, store.ErrDuplicate)
	require.NoError(t, pub.InsertMeasurement(ctx, 87, "Sat Jun 30 23:59:00 2012", "abfr"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got []Event
	for i := 0; i < 2; i++ {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		got = append(got, ev)
	}

	assert.Equal(t, []Event{
		{Glucose: 120, Timestamp: "Wed Jan  5 08:15:00 2011", Device: "abfr", Session: "session-1"},
		{Glucose: 87, Timestamp: "Sat Jun 30 23:59:00 2012", Device: "abfr", Session: "session-1"},
	}, got)
	assert.Equal(t, uint64(2), s.Hub().Published())
	assert.Equal(t, 2, mem.Len())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	s, ts, _ := newTestServer(t)
	conn := dialFeed(t, s, ts)

	s.Hub().Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, s.Hub().Len())
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub()
	c := &client{send: make(chan []byte, 1), remote: "test"}
	require.True(t, h.add(c))

	h.Publish(Event{Glucose: 1, Timestamp: "t", Device: "d"})
	assert.Equal(t, 1, h.Len())

	h.Publish(Event{Glucose: 2, Timestamp: "t", Device: "d"})
	assert.Equal(t, 0, h.Len())

	// send is closed after the buffered message
	_, ok := <-c.send
	assert.True(t, ok)
	_, ok = <-c.send
	assert.False(t, ok)

	// removing an already dropped client is a no-op
	h.remove(c)
}

func TestHubRefusesAfterClose(t *testing.T) {
	h := NewHub()
	h.Close()
	assert.False(t, h.add(&client{send: make(chan []byte, 1)}))
}

func TestMeasurementsEndpoint(t *testing.T) {
	_, ts, mem := newTestServer(t)

	resp, err := http.Get(ts.URL + "/measurements")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var empty []store.Measurement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	assert.Empty(t, empty)

	ctx := context.Background()
	require.NoError(t, mem.InsertMeasurement(ctx, 101, "Tue Mar  1 07:30:00 2011", "abfr"))

	resp2, err := http.Get(ts.URL + "/measurements")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var rows []store.Measurement
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&rows))
	assert.Equal(t, []store.Measurement{{Glucose: 101, Timestamp: "Tue Mar  1 07:30:00 2011", Device: "abfr"}}, rows)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/measurements", nil)
	require.NoError(t, err)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}

func TestHealthz(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStartShutdown(t *testing.T) {
	s, err := New(Config{Listen: "127.0.0.1:0"}, store.NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Port())

	require.NoError(t, s.Start())
	assert.NotZero(t, s.Port())

	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestTLSRequiresValidPair(t *testing.T) {
	_, err := New(Config{CertPath: "/nonexistent.crt", KeyPath: "/nonexistent.key"}, store.NewMemoryStore())
	assert.Error(t, err)
	assert.Equal(t, false, GetTLSInfo(nil)["enabled"])
}

func TestFeedOriginCheck(t *testing.T) {
	mem := store.NewMemoryStore()
	s, err := New(Config{AllowedOrigins: []string{"http://dashboard.local:3000/"}}, mem)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().Close()
		ts.Close()
	})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "no origin", origin: "", want: true},
		{name: "same host", origin: ts.URL, want: true},
		{name: "allowed origin", origin: "http://dashboard.local:3000", want: true},
		{name: "foreign origin", origin: "http://evil.example", want: false},
		{name: "allowed host other port", origin: "http://dashboard.local:4000", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.want {
				require.NoError(t, err)
				_ = conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestFeedAllowsAnyOriginWithWildcard(t *testing.T) {
	s, err := New(Config{AllowedOrigins: []string{"*"}}, store.NewMemoryStore())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8470/feed", nil)
	r.Header.Set("Origin", "http://evil.example")
	assert.True(t, s.checkOrigin(r))
}
