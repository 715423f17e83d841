package workbench

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// Session is the server-held state of one browser session. Callers must hold
// the session lock (Lock/Unlock) while running a stage so that one action
// completes before the next starts.
type Session struct {
	ID string

	// Data is the current dataset; nil until the first upload.
	Data *dataframe.Frame

	// Filename is the name of the last uploaded file.
	Filename string

	// Target is the column chosen by Preprocessing or Training.
	Target string

	// Run is the last successful training run.
	Run *TrainingRun

	mu       sync.Mutex
	lastSeen time.Time
}

// Lock serialises actions on the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// DefaultTarget returns the session target if it still exists in the dataset,
// otherwise the last column.
func (s *Session) DefaultTarget() string {
	if s.Data == nil {
		return ""
	}
	if s.Target != "" && s.Data.Has(s.Target) {
		return s.Target
	}
	cols := s.Data.Columns()
	if len(cols) == 0 {
		return ""
	}
	return cols[len(cols)-1]
}

// Store maps session ids to sessions and expires idle ones.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   log.Logger

	// OnChange, when set, receives the live session count after a session is
	// created or expired. Set it before the store is shared.
	OnChange func(active int)
}

// NewStore creates a store whose sessions expire after ttl without access.
// A ttl of zero disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   log.GetLoggerWithName("session"),
	}
}

// Get returns the session for id and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.lastSeen = st.now()
	}
	return s, ok
}

// Create starts a new session with a time-ordered id.
func (st *Store) Create() *Session {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	s := &Session{ID: id.String()}

	st.mu.Lock()
	s.lastSeen = st.now()
	st.sessions[s.ID] = s
	active := len(st.sessions)
	st.mu.Unlock()
	st.changed(active)

	st.logger.Debug("Session created", log.SessionKey, s.ID)
	return s
}

// GetOrCreate returns the session for id, creating a new one when id is
// unknown or expired. created reports whether a new session was made.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}
	return st.Create(), true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many
// were removed.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	active := len(st.sessions)
	st.mu.Unlock()

	if removed > 0 {
		st.logger.Info("Expired idle sessions", "sessions.removed", removed, "sessions.active", active)
		st.changed(active)
	}
	return removed
}

func (st *Store) changed(active int) {
	if st.OnChange != nil {
		st.OnChange(active)
	}
}

// Janitor sweeps expired sessions every interval until ctx is done.
func (st *Store) Janitor(ctx context.Context, interval time.Duration) {
	if st.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
