package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ecarlucci/taskmate/internal/backend"
	"github.com/ecarlucci/taskmate/internal/config"
	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/notify"
	"github.com/ecarlucci/taskmate/internal/observability"
	"github.com/ecarlucci/taskmate/internal/protocol"
	"github.com/ecarlucci/taskmate/internal/session"
	"github.com/ecarlucci/taskmate/internal/task"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = observability.NewMetrics("taskmate_test")

type testEnv struct {
	srv *httptest.Server
	hub *notify.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		BackendMode:              "local",
		SessionInactivityTimeout: time.Minute,
		AllowAnyOrigin:           true,
	}
	hub := notify.NewHub()
	roster := directory.NewSnapshot([]directory.User{
		{ID: "u1", Name: "Alice", Email: "alice@example.com"},
		{ID: "u2", Name: "Bob", Email: "bob@example.com"},
	})
	b := backend.NewLocal(task.NewMemoryStore(), roster, hub)
	sessions := session.NewManager(cfg.SessionInactivityTimeout)

	api := New(cfg, sessions, b, hub, testMetrics)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, hub: hub}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (e *testEnv) createSession(t *testing.T, token string) session.CreateResponse {
	t.Helper()
	res := e.request(t, http.MethodPost, "/v1/session", token, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", res.StatusCode)
	}
	var out session.CreateResponse
	decodeBody(t, res, &out)
	return out
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		res := env.request(t, http.MethodGet, path, "", nil)
		if res.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, res.StatusCode)
		}
		res.Body.Close()
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "u1")
	if sess.Status != session.StatusActive || sess.UserID != "u1" {
		t.Fatalf("session = %+v", sess)
	}

	// Transcript starts with the greeting.
	var transcript struct {
		Entries []struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"entries"`
	}
	res := env.request(t, http.MethodGet, "/v1/session/"+sess.SessionID+"/transcript", "", nil)
	decodeBody(t, res, &transcript)
	if len(transcript.Entries) != 1 || transcript.Entries[0].Speaker != "assistant" {
		t.Fatalf("transcript = %+v, want greeting only", transcript.Entries)
	}

	// One turn over plain HTTP.
	var turn struct {
		Entries []struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"entries"`
	}
	res = env.request(t, http.MethodPost, "/v1/session/"+sess.SessionID+"/turn", "", map[string]string{"text": "view tasks"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d, want 200", res.StatusCode)
	}
	decodeBody(t, res, &turn)
	if len(turn.Entries) != 2 {
		t.Fatalf("turn entries = %+v, want echo plus reply", turn.Entries)
	}
	if turn.Entries[1].Text != "📭 You have no assigned tasks." {
		t.Fatalf("reply = %q", turn.Entries[1].Text)
	}

	// Ending the session makes further turns conflict.
	res = env.request(t, http.MethodPost, "/v1/session/"+sess.SessionID+"/end", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200", res.StatusCode)
	}
	res.Body.Close()
	res = env.request(t, http.MethodPost, "/v1/session/"+sess.SessionID+"/turn", "", map[string]string{"text": "hello"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("turn after end = %d, want 409", res.StatusCode)
	}
	res.Body.Close()
}

func TestTurnOnUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	res := env.request(t, http.MethodPost, "/v1/session/nope/turn", "", map[string]string{"text": "hello"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
	res.Body.Close()
}

func TestTaskRoutesRequireBearer(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct{ method, path string }{
		{http.MethodGet, "/v1/users"},
		{http.MethodGet, "/v1/tasks"},
		{http.MethodPost, "/v1/tasks"},
		{http.MethodGet, "/v1/tasks/t1"},
		{http.MethodDelete, "/v1/tasks/t1"},
	}
	for _, tc := range cases {
		res := env.request(t, tc.method, tc.path, "", nil)
		if res.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", tc.method, tc.path, res.StatusCode)
		}
		res.Body.Close()
	}
}

func TestTaskCRUDOverREST(t *testing.T) {
	env := newTestEnv(t)

	draft := task.Draft{
		Title:       "Ship release",
		Description: "Cut the v2 tag",
		Priority:    task.PriorityHigh,
		Status:      task.StatusPending,
		DueDate:     "2025-05-15",
		AssignedTo:  "u2",
	}
	res := env.request(t, http.MethodPost, "/v1/tasks", "u1", draft)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", res.StatusCode)
	}
	var created task.Task
	decodeBody(t, res, &created)
	if created.ID == "" || created.AssignedTo == nil || created.AssignedTo.ID != "u2" {
		t.Fatalf("created = %+v", created)
	}

	// The assignee sees it in their list; a stranger token does not exist in
	// the roster and is rejected.
	res = env.request(t, http.MethodGet, "/v1/tasks?relation=assigned", "u2", nil)
	var list []task.Task
	decodeBody(t, res, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("assigned list = %+v", list)
	}
	res = env.request(t, http.MethodGet, "/v1/tasks", "stranger", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("stranger list = %d, want 401", res.StatusCode)
	}
	res.Body.Close()

	// Assignment produced a notification for u2.
	if got := env.hub.UnreadCount("u2"); got != 1 {
		t.Fatalf("u2 unread = %d, want 1", got)
	}

	// Deleting as the non-creator is forbidden; as the creator it works.
	res = env.request(t, http.MethodDelete, "/v1/tasks/"+created.ID, "u2", nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("delete as assignee = %d, want 403", res.StatusCode)
	}
	res.Body.Close()
	res = env.request(t, http.MethodDelete, "/v1/tasks/"+created.ID, "u1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete as creator = %d, want 200", res.StatusCode)
	}
	res.Body.Close()
	res = env.request(t, http.MethodGet, "/v1/tasks/"+created.ID, "u1", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", res.StatusCode)
	}
	res.Body.Close()
}

func TestNotificationRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.hub.NotifyAssigned("u1", "You have been assigned a new task: X")

	res := env.request(t, http.MethodGet, "/v1/notifications", "u1", nil)
	var out struct {
		Notifications []notify.Notification `json:"notifications"`
		UnreadCount   int                   `json:"unread_count"`
	}
	decodeBody(t, res, &out)
	if len(out.Notifications) != 1 || out.UnreadCount != 1 {
		t.Fatalf("notifications = %+v", out)
	}

	id := out.Notifications[0].ID
	res = env.request(t, http.MethodPut, "/v1/notifications/"+id+"/read", "u1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("mark read = %d, want 200", res.StatusCode)
	}
	res.Body.Close()
	res = env.request(t, http.MethodDelete, "/v1/notifications/"+id, "u1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete = %d, want 200", res.StatusCode)
	}
	res.Body.Close()
	res = env.request(t, http.MethodDelete, "/v1/notifications/"+id, "u1", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("double delete = %d, want 404", res.StatusCode)
	}
	res.Body.Close()
}

func dialWS(t *testing.T, env *testEnv, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/session/ws?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame %s: %v", data, err)
	}
	return frame
}

func frameType(t *testing.T, frame map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	if err := json.Unmarshal(frame["type"], &typ); err != nil {
		t.Fatalf("frame type: %v", err)
	}
	return typ
}

func TestWebSocketTurnRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "u1")
	conn := dialWS(t, env, sess.SessionID)

	msg := protocol.UserMessage{
		Type:      protocol.TypeUserMessage,
		SessionID: sess.SessionID,
		Text:      "view tasks",
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The turn streams back the user echo then the assistant reply.
	first := readFrame(t, conn)
	if got := frameType(t, first); got != string(protocol.TypeAssistantMessage) {
		t.Fatalf("first frame type = %q", got)
	}
	var echo protocol.AssistantMessage
	raw, _ := json.Marshal(first)
	if err := json.Unmarshal(raw, &echo); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	if echo.Speaker != "user" || echo.Text != "view tasks" {
		t.Fatalf("echo = %+v", echo)
	}

	second := readFrame(t, conn)
	var reply protocol.AssistantMessage
	raw, _ = json.Marshal(second)
	if err := json.Unmarshal(raw, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Speaker != "assistant" || reply.Text != "📭 You have no assigned tasks." {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestWebSocketDeliversNotifications(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "u1")
	conn := dialWS(t, env, sess.SessionID)

	// A first round trip guarantees the server's read loop (and therefore the
	// notification subscription) is up before we publish.
	if err := conn.WriteJSON(protocol.UserMessage{
		Type: protocol.TypeUserMessage, SessionID: sess.SessionID, Text: "hello",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readFrame(t, conn)
	readFrame(t, conn)

	env.hub.NotifyAssigned("u1", "You have been assigned a new task: Ship release")

	frame := readFrame(t, conn)
	if got := frameType(t, frame); got != string(protocol.TypeNotificationEvent) {
		t.Fatalf("frame type = %q, want notification_event", got)
	}
	var ev protocol.NotificationEvent
	raw, _ := json.Marshal(frame)
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Event.Type != notify.EventNotification || ev.Event.UnreadCount != 1 {
		t.Fatalf("event = %+v", ev.Event)
	}
	if ev.Event.Notification == nil || !strings.Contains(ev.Event.Notification.Message, "Ship release") {
		t.Fatalf("notification = %+v", ev.Event.Notification)
	}
}

func TestWebSocketCloseDuringNotificationBurst(t *testing.T) {
	env := newTestEnv(t)

	// Publish continuously while connections churn, so disconnects land
	// while the server is still forwarding hub events into the session
	// stream.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				env.hub.NotifyAssigned("u1", "You have been assigned a new task: churn")
				time.Sleep(50 * time.Microsecond)
			}
		}
	}()

	for i := 0; i < 40; i++ {
		sess := env.createSession(t, "u1")
		wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/session/ws?session_id=" + sess.SessionID
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
		conn.Close()
	}
	close(stop)
	wg.Wait()

	// The server must still answer; a send on a closed session stream during
	// teardown would have crashed the whole process.
	res := env.request(t, http.MethodGet, "/healthz", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health after churn = %d, want 200", res.StatusCode)
	}
	res.Body.Close()
}

func TestWebSocketRejectsBadFrames(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "u1")
	conn := dialWS(t, env, sess.SessionID)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame := readFrame(t, conn)
	if got := frameType(t, frame); got != string(protocol.TypeErrorEvent) {
		t.Fatalf("frame type = %q, want error_event", got)
	}
}

func TestWebSocketRequiresKnownSession(t *testing.T) {
	env := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/session/ws?session_id=nope"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial succeeded for unknown session")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		code := 0
		if res != nil {
			code = res.StatusCode
		}
		t.Fatalf("handshake status = %d, want 404", code)
	}
}

func TestPerfLatencyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "u1")
	res := env.request(t, http.MethodPost, "/v1/session/"+sess.SessionID+"/turn", "", map[string]string{"text": "hello"})
	res.Body.Close()

	res = env.request(t, http.MethodGet, "/v1/perf/latency", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("perf status = %d, want 200", res.StatusCode)
	}
	var snap observability.TurnSnapshot
	decodeBody(t, res, &snap)
	if len(snap.Modes) == 0 {
		t.Fatalf("snapshot = %+v, want at least one mode", snap)
	}
	found := false
	for _, m := range snap.Modes {
		if m.Mode == "http" && m.Samples >= 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("snapshot modes = %+v, want http mode with samples", snap.Modes)
	}
}
