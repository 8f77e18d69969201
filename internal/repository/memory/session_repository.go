package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionRepository remembers which user owns which chat session so repeated
// sends to the same conversation skip the ownership query.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	// Entries live for an hour, expired ones are purged every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) SaveOwner(sessionID, userID uuid.UUID) {
	r.cache.Set(sessionID.String(), userID, cache.DefaultExpiration)
}

// IsOwner reports (owned, known). known is false on a cache miss.
func (r *SessionRepository) IsOwner(sessionID, userID uuid.UUID) (bool, bool) {
	if x, found := r.cache.Get(sessionID.String()); found {
		return x.(uuid.UUID) == userID, true
	}
	return false, false
}

func (r *SessionRepository) Delete(sessionID uuid.UUID) {
	r.cache.Delete(sessionID.String())
}
