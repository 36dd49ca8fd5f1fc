package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/profile"
	"nwitter-backend/internal/infrastructure/directory"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/pkg/cache"
)

const avatarCacheTTL = 10 * time.Minute

type avatarRepository struct {
	dir   directory.Directory
	cache cache.Cache
}

// NewAvatarRepository stores avatars in the "avatars" collection. c may be
// nil, in which case every read goes to the directory.
func NewAvatarRepository(dir directory.Directory, c cache.Cache) profile.AvatarRepository {
	return &avatarRepository{dir: dir, cache: c}
}

func (r *avatarRepository) Get(ctx context.Context, principalID string) (*string, error) {
	key := cacheKey(principalID)

	// STEP 1: CHECK CACHE
	if r.cache != nil {
		var uri string
		found, err := r.cache.Get(ctx, key, &uri)
		if err == nil && found {
			return &uri, nil
		}
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Avatar cache read failed")
		}
	}

	// STEP 2: CACHE MISS, READ DIRECTORY
	doc, err := r.dir.Get(ctx, profile.CollectionAvatars, principalID)
	if err != nil {
		if errors.Is(err, directory.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, apperror.Remote("get avatar", err)
	}

	uri, ok := doc.Fields[profile.FieldPhotoURI].(string)
	if !ok || uri == "" {
		return nil, nil
	}

	// STEP 3: POPULATE CACHE
	// Only when still absent: a Save that finished while this read was in
	// flight has already cached the newer URI.
	if r.cache != nil {
		if _, err := r.cache.SetIfAbsent(ctx, key, uri, avatarCacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Avatar cache write failed")
		}
	}
	return &uri, nil
}

// Save overwrites the record and writes the new URI through to the cache.
func (r *avatarRepository) Save(ctx context.Context, principalID, photoURI string) error {
	key := cacheKey(principalID)

	if r.cache != nil {
		if err := r.cache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Avatar cache invalidation failed")
		}
	}

	err := r.dir.Set(ctx, profile.CollectionAvatars, principalID, directory.Fields{
		profile.FieldPhotoURI: photoURI,
	})
	if err != nil {
		return apperror.Remote("save avatar", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, photoURI, avatarCacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Avatar cache write failed")
			_ = r.cache.Delete(ctx, key)
		}
	}
	return nil
}

func cacheKey(principalID string) string {
	return "avatar:" + principalID
}
