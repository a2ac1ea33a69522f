package repository

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

type MemorySessionRepository struct {
	sessions *xsync.MapOf[string, memoryEntry]
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	session   entity.Session
	expiresAt time.Time
}

// NewMemorySessionRepository keeps sessions in process. Used when no Redis is configured.
// Expired sessions are dropped on read and by Run.
func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: xsync.NewMapOf[string, memoryEntry](),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (that *MemorySessionRepository) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	entry := memoryEntry{session: *session}
	if that.ttl > 0 {
		entry.expiresAt = that.now().Add(that.ttl)
	}

	that.sessions.Store(session.ID, entry)

	return nil
}

func (that *MemorySessionRepository) GetByID(_ context.Context, id string) (*entity.Session, error) {
	entry, ok := that.sessions.Load(id)
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	if entry.expired(that.now()) {
		that.sessions.Delete(id)
		return nil, apperror.ErrSessionNotFound
	}

	session := entry.session

	return &session, nil
}

func (that *MemorySessionRepository) DeleteByID(_ context.Context, id string) error {
	if _, ok := that.sessions.LoadAndDelete(id); !ok {
		return apperror.ErrSessionNotFound
	}

	return nil
}

// Run sweeps expired sessions every interval until ctx is canceled.
func (that *MemorySessionRepository) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			that.Sweep()
		}
	}
}

// Sweep removes every expired session and returns how many were removed.
func (that *MemorySessionRepository) Sweep() int {
	now := that.now()
	removed := 0

	that.sessions.Range(func(id string, _ memoryEntry) bool {
		that.sessions.Compute(id, func(entry memoryEntry, loaded bool) (memoryEntry, bool) {
			if loaded && entry.expired(now) {
				removed++
				return entry, true
			}

			return entry, !loaded
		})

		return true
	})

	return removed
}

func (that memoryEntry) expired(now time.Time) bool {
	return !that.expiresAt.IsZero() && now.After(that.expiresAt)
}
