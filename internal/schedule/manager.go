package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agendohealth/agenda-api/internal/doctor"
	"github.com/agendohealth/agenda-api/internal/override"
	"github.com/agendohealth/agenda-api/pkg/logging"
)

// StoreFetcher reads authoritative override state straight from the store,
// bypassing the view cache: refetches exist to replace possibly stale state,
// so they must not be served from it.
type StoreFetcher struct {
	store *override.Store
}

// NewStoreFetcher wraps an override store as a Fetcher.
func NewStoreFetcher(store *override.Store) *StoreFetcher {
	return &StoreFetcher{store: store}
}

// FetchDaySets loads the full-day block and ad-hoc grant date sets.
func (f *StoreFetcher) FetchDaySets(ctx context.Context, clinicID, doctorID uuid.UUID) ([]time.Time, []time.Time, error) {
	blocked, err := f.store.ListDates(ctx, override.KindDayBlock, clinicID, doctorID)
	if err != nil {
		return nil, nil, err
	}
	adhoc, err := f.store.ListDates(ctx, override.KindAdHocGrant, clinicID, doctorID)
	if err != nil {
		return nil, nil, err
	}
	return blocked, adhoc, nil
}

// FetchBlockedTimes loads the slot blocks for one date.
func (f *StoreFetcher) FetchBlockedTimes(ctx context.Context, clinicID, doctorID uuid.UUID, date time.Time) ([]string, error) {
	return f.store.ListTimes(ctx, clinicID, doctorID, date)
}

// SessionManager hands out one Session per (clinic, doctor) pair.
type SessionManager struct {
	engine  *Engine
	fetcher Fetcher
	delay   time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager sharing one engine and fetcher.
func NewSessionManager(engine *Engine, fetcher Fetcher, refreshDelay time.Duration, logger *logging.Logger) *SessionManager {
	return &SessionManager{
		engine:   engine,
		fetcher:  fetcher,
		delay:    refreshDelay,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// For returns the session for a doctor, creating it on first use.
func (m *SessionManager) For(doc *doctor.Doctor) *Session {
	key := fmt.Sprintf("%s:%s", doc.ClinicID, doc.ID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		// The caller just fetched the doctor; the cached session must not
		// keep serving the window it was created with.
		s.UpdateDoctor(doc)
		return s
	}
	s := NewSession(SessionConfig{
		Engine:       m.engine,
		Fetcher:      m.fetcher,
		Doctor:       doc,
		RefreshDelay: m.delay,
		Logger:       m.logger,
	})
	m.sessions[key] = s
	return s
}

// Close stops every session's pending timer.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Close()
	}
	m.sessions = make(map[string]*Session)
}
