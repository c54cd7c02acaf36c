package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portrait-studio-server/modules/portrait"
)

func newTestManager(idle time.Duration) *Manager {
	return NewManager(func() *portrait.Controller {
		return portrait.NewController(nil, 4*1024*1024, "uma jaqueta", "uma rua")
	}, idle)
}

func attachClient(t *testing.T, m *Manager, sessionID, clientID string) *Client {
	t.Helper()
	s, ok := m.Get(sessionID)
	require.True(t, ok)
	c := &Client{id: clientID, session: s, send: make(chan []byte, 4)}
	s.addClient(c)
	return c
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(time.Hour)

	id, ctrl := m.Create()
	require.NotEmpty(t, id)
	require.NotNil(t, ctrl)

	found, ok := m.Controller(id)
	require.True(t, ok)
	assert.Same(t, ctrl, found)

	_, ok = m.Controller("missing")
	assert.False(t, ok)

	metrics, infos := m.Snapshot()
	assert.Equal(t, 1, metrics.TotalSessions)
	assert.Equal(t, 1, metrics.ActiveSessions)
	require.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].SessionID)
	assert.Equal(t, string(portrait.PhaseIdle), infos[0].Phase)
}

func TestBroadcastOnTransition(t *testing.T) {
	m := newTestManager(time.Hour)
	id, ctrl := m.Create()
	c := attachClient(t, m, id, "client-1")

	clothing := "red dress"
	ctrl.UpdateFields(&clothing, nil)

	select {
	case raw := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, MessageState, msg.Type)
		assert.Equal(t, id, msg.SessionID)
		require.NotNil(t, msg.State)
		assert.Equal(t, "red dress", msg.State.ClothingStyle)
	default:
		t.Fatal("no state message broadcast")
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	m := newTestManager(time.Hour)
	id, ctrl := m.Create()
	s, _ := m.Get(id)
	slow := &Client{id: "slow", session: s, send: make(chan []byte)}
	s.addClient(slow)

	v := "x"
	ctrl.UpdateFields(&v, nil)

	info, ok := m.Info(id)
	require.True(t, ok)
	assert.Zero(t, info.ClientCount)
	_, open := <-slow.send
	assert.False(t, open)
}

func TestCleanupIdle(t *testing.T) {
	m := newTestManager(time.Hour)
	now := time.Now()
	m.now = func() time.Time { return now }

	idleID, _ := m.Create()
	watchedID, _ := m.Create()
	attachClient(t, m, watchedID, "client-1")

	freshID, _ := m.Create()

	now = now.Add(2 * time.Hour)
	_, ok := m.Get(freshID) // activity
	require.True(t, ok)

	assert.Equal(t, 1, m.CleanupIdle())

	_, ok = m.Controller(idleID)
	assert.False(t, ok)
	_, ok = m.Controller(watchedID)
	assert.True(t, ok)
	_, ok = m.Controller(freshID)
	assert.True(t, ok)

	metrics, _ := m.Snapshot()
	assert.Equal(t, 3, metrics.TotalSessions)
	assert.Equal(t, 2, metrics.ActiveSessions)
}

func TestRemove(t *testing.T) {
	m := newTestManager(time.Hour)
	id, _ := m.Create()
	c := attachClient(t, m, id, "client-1")

	assert.True(t, m.Remove(id))
	assert.False(t, m.Remove(id))

	_, open := <-c.send
	assert.False(t, open)
	_, ok := m.Controller(id)
	assert.False(t, ok)

	// a late disconnect does not close the channel twice
	c.session.removeClient(c.id)
}

func TestHandlerRoutes(t *testing.T) {
	m := newTestManager(time.Hour)
	id, _ := m.Create()

	r := mux.NewRouter()
	NewHandler(m).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, id, info.SessionID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeSessions":1`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?session=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/cleanup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cleaned":0`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/session/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok := m.Controller(id)
	assert.False(t, ok)
}
