package conversation

import (
	"context"
	"sync"
	"time"
)

// Step is where a user stands in a multi-message wizard.
type Step string

const (
	StepIdle          Step = ""
	StepProjectName   Step = "awaiting_project_name"
	StepTaskTitle     Step = "awaiting_task_title"
	StepTaskDeadline  Step = "awaiting_task_deadline"
	StepProjectRename Step = "awaiting_edit_project_name"
	StepDeadlineEdit  Step = "awaiting_edit_deadline"
)

// Session holds the answers collected so far. Only fields relevant to Step are set.
type Session struct {
	Step        Step      `json:"step"`
	ProjectID   uint      `json:"project_id,omitempty"`
	ProjectName string    `json:"project_name,omitempty"`
	TaskID      uint      `json:"task_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Active reports whether a wizard is in progress.
func (s Session) Active() bool {
	return s.Step != StepIdle
}

// SessionStore keeps at most one session per user.
// Load returns an idle session when none is stored or it has expired.
type SessionStore interface {
	Load(ctx context.Context, userID int64) (Session, error)
	Save(ctx context.Context, userID int64, s Session) error
	Clear(ctx context.Context, userID int64) error
}

// MemoryStore is a process-local SessionStore with idle expiry.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]Session
}

func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{ttl: ttl, now: now, sessions: make(map[int64]Session)}
}

func (m *MemoryStore) Load(_ context.Context, userID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, nil
	}
	if m.expired(s) {
		delete(m.sessions, userID)
		return Session{}, nil
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, userID int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !s.Active() {
		delete(m.sessions, userID)
		return nil
	}
	s.UpdatedAt = m.now()
	m.sessions[userID] = s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Prune drops expired sessions and returns how many were removed.
func (m *MemoryStore) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) expired(s Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}
