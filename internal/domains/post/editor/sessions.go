package editor

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/post/repository"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/inline"
)

const DefaultSessionTTL = 15 * time.Minute

// Sessions keeps one controller per (principal, post) so an edit survives
// across requests. Idle sessions expire after the TTL.
type Sessions struct {
	repo    repository.Repository
	encoder *inline.Encoder
	cache   *ttlcache.Cache[string, *Controller]
}

func NewSessions(repo repository.Repository, encoder *inline.Encoder, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	cache := ttlcache.New[string, *Controller](
		ttlcache.WithTTL[string, *Controller](ttl),
	)
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Controller]) {
		if reason == ttlcache.EvictionReasonExpired {
			log.Debug().Str("session", item.Key()).Msg("Edit session expired")
		}
	})
	go cache.Start()

	return &Sessions{repo: repo, encoder: encoder, cache: cache}
}

// Open returns the caller's controller for postID, refreshed with the latest
// committed post. A fresh controller is created when none is cached.
func (s *Sessions) Open(ctx context.Context, postID, callerID string) (*Controller, error) {
	if callerID == "" {
		return nil, apperror.Unauthenticated()
	}

	post, err := s.repo.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	key := sessionKey(callerID, postID)
	if item := s.cache.Get(key); item != nil {
		ctrl := item.Value()
		ctrl.Sync(*post)
		return ctrl, nil
	}

	// Concurrent first opens must agree on one controller, or a draft started
	// on the losing one would vanish.
	item, loaded := s.cache.GetOrSet(key, NewController(s.repo, s.encoder, *post, callerID))
	ctrl := item.Value()
	if loaded {
		ctrl.Sync(*post)
	}
	return ctrl, nil
}

// Close forgets the session. Closing an unknown session is a no-op.
func (s *Sessions) Close(postID, callerID string) {
	s.cache.Delete(sessionKey(callerID, postID))
}

func (s *Sessions) Len() int {
	return s.cache.Len()
}

// Stop ends the expiry loop.
func (s *Sessions) Stop() {
	s.cache.Stop()
}

func sessionKey(callerID, postID string) string {
	return callerID + ":" + postID
}
