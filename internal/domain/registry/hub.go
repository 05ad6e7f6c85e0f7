package registry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/hose-relay/internal/domain/model"
)

// Hubber defines the registry of live relay sessions.
type Hubber interface {
	Register(s *Session)
	Unregister(id uuid.UUID)
	Stats() model.HubStats
	Shutdown()
}

// Interface guard
var _ Hubber = (*Hub)(nil)

// Hub implements a [SESSION_REGISTRY] for relay sessions.
type Hub struct {
	// sessions stores Map[uuid.UUID]*Session. Optimized for [READ_HEAVY] workloads.
	sessions sync.Map

	active    atomic.Int64
	total     atomic.Int64
	closed    atomic.Bool
	startedAt time.Time
}

func NewHub() *Hub {
	return &Hub{startedAt: time.Now()}
}

// Register tracks s. After Shutdown the session is stopped right away.
func (h *Hub) Register(s *Session) {
	if _, loaded := h.sessions.LoadOrStore(s.ID(), s); loaded {
		return
	}
	h.active.Add(1)
	h.total.Add(1)

	// [LATE_ARRIVAL] Shutdown may have ranged over the map already.
	if h.closed.Load() {
		s.Stop()
	}
}

// Unregister forgets a session once it has finished.
func (h *Hub) Unregister(id uuid.UUID) {
	if _, ok := h.sessions.LoadAndDelete(id); ok {
		h.active.Add(-1)
	}
}

// Stats returns counters and one entry per live session, ordered by ID.
func (h *Hub) Stats() model.HubStats {
	stats := model.HubStats{
		ActiveSessions: int(h.active.Load()),
		TotalSessions:  h.total.Load(),
		Uptime:         time.Since(h.startedAt),
	}

	h.sessions.Range(func(_, val any) bool {
		if s, ok := val.(*Session); ok {
			stats.Sessions = append(stats.Sessions, s.Stats())
		}
		return true
	})
	sort.Slice(stats.Sessions, func(i, j int) bool {
		return stats.Sessions[i].ID < stats.Sessions[j].ID
	})
	return stats
}

// Shutdown stops every live session and any registered afterwards.
func (h *Hub) Shutdown() {
	h.closed.Store(true)
	h.sessions.Range(func(_, val any) bool {
		if s, ok := val.(*Session); ok {
			s.Stop()
		}
		return true
	})
}
