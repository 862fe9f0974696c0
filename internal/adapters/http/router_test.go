package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Mall/internal/app"
	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/bot"
	"github.com/dkeye/Mall/internal/config"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, turns []domain.Turn) (string, error) {
	return "re: " + turns[len(turns)-1].Content, nil
}

type testServer struct {
	*httptest.Server
	orch  *orch.Orchestrator
	store *bot.Store
}

func newTestServer(t *testing.T, limiter *bot.RateLimiter) *testServer {
	t.Helper()
	cfg := &config.Config{
		Mode:       gin.TestMode,
		Secret:     "test-secret",
		StaticPath: t.TempDir(),
		WS: config.WSConfig{
			ReadLimit:  65536,
			SendBuffer: 32,
			PingPeriod: time.Second,
			PongWait:   5 * time.Second,
			WriteWait:  time.Second,
		},
		ICE: config.ICEConfig{Servers: []config.ICEServer{
			{URLs: []string{"stun:stun.example.org:3478"}},
			{URLs: []string{"turn:turn.example.org:3478"}, Username: "u", Credential: "p"},
			{},
		}},
	}
	o := orch.New(app.SimplePolicy{}, true)
	store := bot.NewStore(bot.NewMemoryRepository(), echoCompleter{}, bot.Options{
		Persona:    "persona",
		Fallback:   "sorry",
		HistoryCap: 20,
		MaxPending: 64,
		Timeout:    time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, Deps{Orch: o, Bot: store, Limiter: limiter}))
	t.Cleanup(srv.Close)
	t.Cleanup(store.Close)
	t.Cleanup(cancel)
	return &testServer{Server: srv, orch: o, store: store}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func (s *testServer) getJSON(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := s.Client().Get(s.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

func read(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev map[string]any
	require.NoError(t, ws.ReadJSON(&ev))
	return ev
}

func expect(t *testing.T, ws *websocket.Conn, typ string) map[string]any {
	t.Helper()
	ev := read(t, ws)
	require.Equal(t, typ, ev["type"], "event: %v", ev)
	return ev
}

func join(t *testing.T, ws *websocket.Conn, room, name string) (string, []any) {
	t.Helper()
	send(t, ws, map[string]any{"type": "join-room", "roomId": room, "userId": "u-" + name, "userName": name})
	joined := expect(t, ws, "joined-room")
	assert.Equal(t, room, joined["roomId"])
	assert.Equal(t, name, joined["userName"])
	users := expect(t, ws, "room-users")
	list, _ := users["users"].([]any)
	return joined["socketId"].(string), list
}

func TestSignalScenario(t *testing.T) {
	s := newTestServer(t, nil)
	alice := s.dial(t, "/api/ws/signal")
	bob := s.dial(t, "/api/ws/signal")

	aliceID, users := join(t, alice, "r1", "Alice")
	assert.Empty(t, users)

	bobID, users := join(t, bob, "r1", "Bob")
	require.Len(t, users, 1)
	first := users[0].(map[string]any)
	assert.Equal(t, aliceID, first["socketId"])
	assert.Equal(t, "Alice", first["userName"])
	assert.Equal(t, false, first["isMuted"])

	joined := expect(t, alice, "user-joined")
	assert.Equal(t, bobID, joined["socketId"])
	assert.Equal(t, "Bob", joined["userName"])

	send(t, bob, map[string]any{
		"type":           "offer",
		"offer":          map[string]any{"type": "offer", "sdp": "v=0"},
		"targetSocketId": aliceID,
		"roomId":         "r1",
	})
	offer := expect(t, alice, "offer")
	assert.Equal(t, bobID, offer["from"])
	assert.Equal(t, "r1", offer["roomId"])
	assert.Equal(t, map[string]any{"type": "offer", "sdp": "v=0"}, offer["offer"])

	send(t, alice, map[string]any{
		"type":           "ice-candidate",
		"candidate":      map[string]any{"candidate": "candidate:1 1 udp 1 10.0.0.1 5000 typ host"},
		"targetSocketId": bobID,
		"roomId":         "r1",
	})
	cand := expect(t, bob, "ice-candidate")
	assert.Equal(t, aliceID, cand["from"])

	send(t, bob, map[string]any{"type": "toggle-audio", "isMuted": true, "roomId": "r1"})
	audio := expect(t, alice, "user-audio-changed")
	assert.Equal(t, bobID, audio["socketId"])
	assert.Equal(t, true, audio["isMuted"])

	code, body := s.getJSON(t, "/api/rooms")
	assert.Equal(t, http.StatusOK, code)
	rooms := body["rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.Equal(t, float64(2), rooms[0].(map[string]any)["memberCount"])

	require.NoError(t, bob.Close())
	left := expect(t, alice, "user-left")
	assert.Equal(t, bobID, left["socketId"])

	code, body = s.getJSON(t, "/api/rooms/r1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["memberCount"])

	send(t, alice, map[string]any{"type": "leave-room"})
	leftRoom := expect(t, alice, "left-room")
	assert.Equal(t, "r1", leftRoom["roomId"])

	code, _ = s.getJSON(t, "/api/rooms/r1")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSignalErrors(t *testing.T) {
	s := newTestServer(t, nil)
	ws := s.dial(t, "/api/ws/signal")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	ev := expect(t, ws, "error")
	assert.Equal(t, "bad_payload", ev["error"])

	send(t, ws, map[string]any{"type": "dance"})
	ev = expect(t, ws, "error")
	assert.Equal(t, "unknown_type", ev["error"])

	send(t, ws, map[string]any{"type": "join-room", "roomId": "r1", "userId": "u1"})
	ev = expect(t, ws, "error")
	assert.Equal(t, "missing_field", ev["error"])
	assert.Equal(t, "userName", ev["field"])

	send(t, ws, map[string]any{"type": "join-room", "roomId": "r1", "userId": "u1", "userName": strings.Repeat("x", 65)})
	ev = expect(t, ws, "error")
	assert.Equal(t, "name_too_long", ev["error"])

	send(t, ws, map[string]any{"type": "toggle-video", "isVideoOff": true, "roomId": "r1"})
	ev = expect(t, ws, "error")
	assert.Equal(t, "not_in_room", ev["error"])

	send(t, ws, map[string]any{"type": "offer", "targetSocketId": "x", "roomId": "r1"})
	ev = expect(t, ws, "error")
	assert.Equal(t, "missing_field", ev["error"])
	assert.Equal(t, "offer", ev["field"])

	send(t, ws, map[string]any{"type": "ping"})
	expect(t, ws, "pong")
}

func TestBotEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	ws := s.dial(t, "/api/ws/bot")

	send(t, ws, map[string]any{"type": "ask-ai", "roomId": "r1", "text": "where are shoes?"})
	ev := expect(t, ws, "ai-response")
	assert.Equal(t, "r1", ev["roomId"])
	assert.Equal(t, "re: where are shoes?", ev["text"])

	send(t, ws, map[string]any{"type": "clear-history", "roomId": "r1"})
	ev = expect(t, ws, "history-cleared")
	assert.Equal(t, "r1", ev["roomId"])

	send(t, ws, map[string]any{"type": "ask-ai", "roomId": "r1"})
	ev = expect(t, ws, "error")
	assert.Equal(t, "missing_field", ev["error"])
	assert.Equal(t, "text", ev["field"])

	send(t, ws, map[string]any{"type": "ping"})
	expect(t, ws, "pong")
}

func TestBotRateLimit(t *testing.T) {
	s := newTestServer(t, bot.NewRateLimiter(1, time.Minute))
	ws := s.dial(t, "/api/ws/bot")

	send(t, ws, map[string]any{"type": "ask-ai", "roomId": "r1", "text": "one"})
	send(t, ws, map[string]any{"type": "ask-ai", "roomId": "r1", "text": "two"})

	got := map[string]any{}
	for i := 0; i < 2; i++ {
		ev := read(t, ws)
		got[ev["type"].(string)] = ev
	}
	require.Contains(t, got, "ai-response")
	require.Contains(t, got, "error")
	assert.Equal(t, "rate_limited", got["error"].(map[string]any)["error"])
}

func TestRESTEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := s.Client().Get(s.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var hasSession bool
	for _, c := range resp.Cookies() {
		if c.Name == sessionName {
			hasSession = true
		}
	}
	assert.True(t, hasSession, "session cookie set")

	code, body := s.getJSON(t, "/api/rooms")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["rooms"])

	code, body = s.getJSON(t, "/api/ice-servers")
	assert.Equal(t, http.StatusOK, code)
	servers := body["iceServers"].([]any)
	require.Len(t, servers, 2)
	assert.Equal(t, []any{"stun:stun.example.org:3478"}, servers[0].(map[string]any)["urls"])
	assert.Equal(t, "u", servers[1].(map[string]any)["username"])

	code, _ = s.getJSON(t, "/api/rooms/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBotKeepsSocketOrder(t *testing.T) {
	s := newTestServer(t, nil)
	ws := s.dial(t, "/api/ws/bot")

	var want []string
	for i := 0; i < 10; i++ {
		text := fmt.Sprintf("q%03d", i)
		want = append(want, text, "re: "+text)
		send(t, ws, map[string]any{"type": "ask-ai", "roomId": "ordered", "text": text})
	}
	for i := 0; i < 10; i++ {
		expect(t, ws, "ai-response")
	}

	hist, err := s.store.History(context.Background(), "ordered")
	require.NoError(t, err)
	require.Len(t, hist, 21)
	var got []string
	for _, turn := range hist[1:] {
		got = append(got, turn.Content)
	}
	assert.Equal(t, want, got)
}

func TestBotClearBetweenAsks(t *testing.T) {
	s := newTestServer(t, nil)
	ws := s.dial(t, "/api/ws/bot")

	for i := 0; i < 20; i++ {
		send(t, ws, map[string]any{"type": "ask-ai", "roomId": "r1", "text": fmt.Sprintf("before-%d", i)})
	}
	send(t, ws, map[string]any{"type": "clear-history", "roomId": "r1"})
	send(t, ws, map[string]any{"type": "ask-ai", "roomId": "r1", "text": "after"})

	counts := map[string]int{}
	for i := 0; i < 22; i++ {
		ev := read(t, ws)
		counts[ev["type"].(string)]++
	}
	assert.Equal(t, map[string]int{"ai-response": 21, "history-cleared": 1}, counts)

	hist, err := s.store.History(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Turn{
		{Role: domain.RoleSystem, Content: "persona"},
		{Role: domain.RoleUser, Content: "after"},
		{Role: domain.RoleAssistant, Content: "re: after"},
	}, hist)
}
