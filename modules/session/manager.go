package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"portrait-studio-server/modules/portrait"
)

// Session - one browser tab: its controller and the websocket clients watching it
type Session struct {
	id           string
	controller   *portrait.Controller
	clients      map[string]*Client
	mutex        sync.Mutex
	createdAt    time.Time
	lastActivity time.Time
}

// Metrics - server counters
type Metrics struct {
	TotalSessions    int       `json:"totalSessions"`
	ActiveSessions   int       `json:"activeSessions"`
	TotalConnections int       `json:"totalConnections"`
	StartTime        time.Time `json:"startTime"`
}

// Info - what /session/{sessionId} reports
type Info struct {
	SessionID    string    `json:"sessionId"`
	ClientCount  int       `json:"clientCount"`
	Phase        string    `json:"phase"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Age          string    `json:"age"`
	Inactive     string    `json:"inactive"`
}

// Message - websocket frame in both directions
type Message struct {
	Type          string              `json:"type"`
	SessionID     string              `json:"sessionId,omitempty"`
	State         *portrait.StateView `json:"state,omitempty"`
	ClothingStyle *string             `json:"clothingStyle,omitempty"`
	Scenery       *string             `json:"scenery,omitempty"`
}

const (
	MessageState        = "state"
	MessageFieldsUpdate = "fields_update"
)

// Manager - all live sessions
type Manager struct {
	sessions      map[string]*Session
	mutex         sync.RWMutex
	metrics       Metrics
	idleTimeout   time.Duration
	newController func() *portrait.Controller
	now           func() time.Time
}

// NewManager - sessions get a fresh controller from newController
func NewManager(newController func() *portrait.Controller, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:      make(map[string]*Session),
		metrics:       Metrics{StartTime: time.Now()},
		idleTimeout:   idleTimeout,
		newController: newController,
		now:           time.Now,
	}
}

// Create - new session with a random id
func (m *Manager) Create() (string, *portrait.Controller) {
	now := m.now()
	s := &Session{
		id:           uuid.New().String(),
		controller:   m.newController(),
		clients:      make(map[string]*Client),
		createdAt:    now,
		lastActivity: now,
	}
	s.controller.OnChange(s.broadcastState)

	m.mutex.Lock()
	m.sessions[s.id] = s
	m.metrics.TotalSessions++
	m.metrics.ActiveSessions++
	total, active := m.metrics.TotalSessions, m.metrics.ActiveSessions
	m.mutex.Unlock()

	log.Info().Msgf("✅ Created new session: %s (Total: %d, Active: %d)", s.id, total, active)
	return s.id, s.controller
}

// Controller - controller of sessionID; counts as activity
func (m *Manager) Controller(sessionID string) (*portrait.Controller, bool) {
	s, ok := m.Get(sessionID)
	if !ok {
		return nil, false
	}
	return s.controller, true
}

// Get - session by id; counts as activity
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	s, ok := m.sessions[sessionID]
	m.mutex.RUnlock()
	if !ok {
		return nil, false
	}

	s.mutex.Lock()
	s.lastActivity = m.now()
	s.mutex.Unlock()
	return s, true
}

// Info - snapshot of one session
func (m *Manager) Info(sessionID string) (Info, bool) {
	m.mutex.RLock()
	s, ok := m.sessions[sessionID]
	m.mutex.RUnlock()
	if !ok {
		return Info{}, false
	}
	return s.info(m.now()), true
}

// Snapshot - counters plus every session
func (m *Manager) Snapshot() (Metrics, []Info) {
	now := m.now()

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.info(now))
	}
	return m.metrics, infos
}

// Remove - discard a session and disconnect its clients
func (m *Manager) Remove(sessionID string) bool {
	m.mutex.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		m.metrics.ActiveSessions--
	}
	m.mutex.Unlock()
	if !ok {
		return false
	}

	s.mutex.Lock()
	for id, c := range s.clients {
		close(c.send)
		delete(s.clients, id)
	}
	s.mutex.Unlock()

	log.Info().Msgf("🗑️  Removed session: %s", sessionID)
	return true
}

// CleanupIdle - drop sessions without clients idle longer than the timeout; returns how many
func (m *Manager) CleanupIdle() int {
	now := m.now()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	cleaned := 0
	for id, s := range m.sessions {
		s.mutex.Lock()
		idle := len(s.clients) == 0 && now.Sub(s.lastActivity) > m.idleTimeout
		s.mutex.Unlock()

		if idle {
			delete(m.sessions, id)
			m.metrics.ActiveSessions--
			cleaned++
			log.Info().Msgf("🧹 Cleaned up idle session: %s (Age: %v)", id, now.Sub(s.createdAt))
		}
	}

	if cleaned > 0 {
		log.Info().Msgf("🗑️  Cleaned up %d idle sessions (Active: %d)", cleaned, m.metrics.ActiveSessions)
	}
	return cleaned
}

// StartCleanupRoutine - run CleanupIdle every interval until ctx is done
func (m *Manager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupIdle()
			}
		}
	}()
	log.Info().Msgf("🔄 Started session cleanup routine (every %s, idle timeout %s)", interval, m.idleTimeout)
}

func (m *Manager) countConnection() {
	m.mutex.Lock()
	m.metrics.TotalConnections++
	m.mutex.Unlock()
}

func (s *Session) info(now time.Time) Info {
	s.mutex.Lock()
	clientCount := len(s.clients)
	lastActivity := s.lastActivity
	s.mutex.Unlock()

	return Info{
		SessionID:    s.id,
		ClientCount:  clientCount,
		Phase:        string(s.controller.State().Phase()),
		CreatedAt:    s.createdAt,
		LastActivity: lastActivity,
		Age:          now.Sub(s.createdAt).String(),
		Inactive:     now.Sub(lastActivity).String(),
	}
}

func (s *Session) addClient(c *Client) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.clients[c.id] = c
	s.lastActivity = time.Now()
	return len(s.clients)
}

func (s *Session) removeClient(clientID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if c, ok := s.clients[clientID]; ok {
		close(c.send)
		delete(s.clients, clientID)
		s.lastActivity = time.Now()
		log.Info().Msgf("👋 Client %s left session %s (Remaining: %d)", clientID, s.id, len(s.clients))
	}
}

// sendSnapshot - queue the current state for one registered client.
// Runs under the controller lock, so it cannot interleave with broadcastState.
func (s *Session) sendSnapshot(c *Client) {
	s.controller.View(func(state portrait.State) {
		payload, err := stateMessage(s.id, state)
		if err != nil {
			log.Error().Err(err).Msg("Error marshaling state message")
			return
		}

		s.mutex.Lock()
		defer s.mutex.Unlock()
		if _, ok := s.clients[c.id]; !ok {
			return
		}
		select {
		case c.send <- payload:
		default:
			log.Warn().Msgf("⚠️ Snapshot dropped for client %s, send buffer full", c.id)
		}
	})
}

// broadcastState - controller listener; slow clients are dropped
func (s *Session) broadcastState(state portrait.State) {
	payload, err := stateMessage(s.id, state)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling state message")
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for id, c := range s.clients {
		select {
		case c.send <- payload:
		default:
			close(c.send)
			delete(s.clients, id)
			log.Warn().Msgf("⚠️ Dropped slow client %s from session %s", id, s.id)
		}
	}
}
