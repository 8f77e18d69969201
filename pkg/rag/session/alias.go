package session

import (
	"fmt"
	"time"

	"skalgpt-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// AliasResolver maps the id a client invented for a new conversation to the
// id the server assigned, so requests that race the client side swap still land.
type AliasResolver struct {
	cache *cache.Cache
}

func NewAliasResolver(ttl time.Duration) *AliasResolver {
	return &AliasResolver{cache: cache.New(ttl, 2*ttl)}
}

func aliasKey(userId uuid.UUID, clientId string) string {
	return userId.String() + ":" + clientId
}

func (r *AliasResolver) Remember(userId uuid.UUID, clientId string, serverId uuid.UUID) {
	if clientId == "" {
		return
	}
	r.cache.Set(aliasKey(userId, clientId), serverId, cache.DefaultExpiration)
}

// ResolveSessionID turns a session id from a request into a server id.
// Aliases are scoped to the user that created them.
func (r *AliasResolver) ResolveSessionID(userId uuid.UUID, raw string) (uuid.UUID, error) {
	if x, found := r.cache.Get(aliasKey(userId, raw)); found {
		return x.(uuid.UUID), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Wrap(apperror.ErrValidation, fmt.Errorf("invalid session id %q", raw))
	}
	return id, nil
}
