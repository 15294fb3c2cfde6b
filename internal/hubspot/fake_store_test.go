package hubspot

import (
	"context"
	"sync"
	"time"

	"github.com/yanizio/gtmskills/internal/apperr"
)

// memStore is an in-memory Store that counts every mutating call.
type memStore struct {
	mu     sync.Mutex
	rows   map[int64]Connection
	writes int
	err    error
}

func newMemStore(rows ...Connection) *memStore {
	s := &memStore{rows: map[int64]Connection{}}
	for _, r := range rows {
		s.rows[r.PortalID] = r
	}
	return s
}

func (s *memStore) Upsert(_ context.Context, c *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes++
	cp := *c
	cp.IsActive = true
	if prev, ok := s.rows[c.PortalID]; ok {
		cp.CreatedAt = prev.CreatedAt
	}
	s.rows[c.PortalID] = cp
	return nil
}

func (s *memStore) GetActive(_ context.Context, portalID int64) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Connection{}, s.err
	}
	c, ok := s.rows[portalID]
	if !ok || !c.IsActive {
		return Connection{}, apperr.ErrNotFound
	}
	return c, nil
}

func (s *memStore) UpdateTokens(_ context.Context, portalID int64, access, refresh string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[portalID]
	if !ok || !c.IsActive {
		return apperr.ErrNotFound
	}
	s.writes++
	c.AccessToken, c.RefreshToken, c.ExpiresAt = access, refresh, expiresAt
	s.rows[portalID] = c
	return nil
}

func (s *memStore) Deactivate(_ context.Context, portalID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[portalID]
	if !ok || !c.IsActive {
		return false, nil
	}
	s.writes++
	c.IsActive = false
	s.rows[portalID] = c
	return true, nil
}

func (s *memStore) ListActive(context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Summary{}
	for _, c := range s.rows {
		if c.IsActive {
			out = append(out, Summary{PortalID: c.PortalID, IsActive: true, ConnectedAt: c.CreatedAt})
		}
	}
	return out, nil
}

func (s *memStore) get(portalID int64) (Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[portalID]
	return c, ok
}

func (s *memStore) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.rows {
		if c.IsActive {
			n++
		}
	}
	return n
}
