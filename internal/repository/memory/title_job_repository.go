package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// TitleJobRepository tracks sessions whose async title is still being
// generated. Entries expire on their own so a lost job never pins the flag.
type TitleJobRepository struct {
	cache *cache.Cache
}

func NewTitleJobRepository(ttl time.Duration) *TitleJobRepository {
	return &TitleJobRepository{cache: cache.New(ttl, 2*ttl)}
}

func (r *TitleJobRepository) MarkPending(sessionID uuid.UUID) {
	r.cache.Set(sessionID.String(), struct{}{}, cache.DefaultExpiration)
}

func (r *TitleJobRepository) IsPending(sessionID uuid.UUID) bool {
	_, found := r.cache.Get(sessionID.String())
	return found
}

func (r *TitleJobRepository) Done(sessionID uuid.UUID) {
	r.cache.Delete(sessionID.String())
}
