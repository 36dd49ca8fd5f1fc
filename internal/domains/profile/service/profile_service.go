package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	postModel "nwitter-backend/internal/domains/post/model"
	postRepository "nwitter-backend/internal/domains/post/repository"
	"nwitter-backend/internal/domains/profile"
	"nwitter-backend/internal/domains/user"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/inline"
)

// DefaultCascadeConcurrency bounds in-flight authorName patches.
const DefaultCascadeConcurrency = 8

type profileService struct {
	identity user.IdentityProvider
	avatars  profile.AvatarRepository
	posts    postRepository.Repository
	encoder  *inline.Encoder

	cascadeConcurrency int
}

func NewProfileService(
	identity user.IdentityProvider,
	avatars profile.AvatarRepository,
	posts postRepository.Repository,
	encoder *inline.Encoder,
) profile.Service {
	return &profileService{
		identity:           identity,
		avatars:            avatars,
		posts:              posts,
		encoder:            encoder,
		cascadeConcurrency: DefaultCascadeConcurrency,
	}
}

// ========================================
// VIEW
// ========================================

func (s *profileService) View(ctx context.Context) (*profile.View, error) {
	principal, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	display, err := s.display(ctx, principal)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.List(ctx, postModel.ByAuthor(principal.ID))
	if err != nil {
		return nil, err
	}

	return &profile.View{
		Display: *display,
		Posts:   postModel.ToResponse(posts, principal.ID),
	}, nil
}

// display prefers the saved avatar over the identity provider's photo.
func (s *profileService) display(ctx context.Context, principal *user.Principal) (*profile.Display, error) {
	photo, err := s.avatars.Get(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		photo = principal.PhotoURI
	}
	return &profile.Display{
		PrincipalID: principal.ID,
		DisplayName: principal.DisplayName,
		PhotoURI:    photo,
	}, nil
}

// ========================================
// AVATAR
// ========================================

func (s *profileService) SaveAvatar(ctx context.Context, r io.Reader, size int64) (*profile.Display, error) {
	// 1. RESOLVE CALLER
	principal, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	// 2. ENCODE (size cap enforced by the encoder)
	uri, err := s.encoder.Encode(ctx, r, size)
	if err != nil {
		return nil, err
	}

	// 3. OVERWRITE RECORD
	if err := s.avatars.Save(ctx, principal.ID, uri); err != nil {
		return nil, err
	}

	log.Info().
		Str("principal_id", principal.ID).
		Int64("size", size).
		Msg("Avatar saved")

	return &profile.Display{
		PrincipalID: principal.ID,
		DisplayName: principal.DisplayName,
		PhotoURI:    &uri,
	}, nil
}

// ========================================
// RENAME CASCADE
// ========================================

func (s *profileService) Rename(ctx context.Context, newName string, confirm profile.ConfirmFunc) (*profile.RenameResult, error) {
	// 1. RESOLVE CALLER
	principal, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	// 2. VALIDATE NAME
	name := strings.TrimSpace(newName)
	if name == "" {
		return nil, apperror.Validation("display name is required")
	}
	if name == principal.DisplayName {
		return nil, apperror.Validation("new display name must differ from the current one")
	}

	// 3. CONFIRM
	if confirm == nil || !confirm() {
		return &profile.RenameResult{Renamed: false, DisplayName: principal.DisplayName}, nil
	}

	// 4. IDENTITY UPDATE
	if err := s.identity.UpdateProfile(ctx, name); err != nil {
		return nil, s.stepFailed(principal.ID, profile.StepIdentityUpdate, nil, err)
	}

	// 5. POST QUERY
	posts, err := s.posts.ListByAuthor(ctx, principal.ID)
	if err != nil {
		return nil, s.stepFailed(principal.ID, profile.StepPostQuery, nil, err)
	}

	// 6. POST CASCADE
	failed, firstErr := s.cascade(ctx, posts, name)
	if len(failed) > 0 {
		return nil, s.stepFailed(principal.ID, profile.StepPostCascade, failed, firstErr)
	}

	log.Info().
		Str("principal_id", principal.ID).
		Int("posts", len(posts)).
		Msg("Display name changed")

	return &profile.RenameResult{
		Renamed:      true,
		DisplayName:  name,
		PostsUpdated: len(posts),
	}, nil
}

// cascade patches authorName on every post and returns the ids that failed,
// in feed order, with the first error seen.
func (s *profileService) cascade(ctx context.Context, posts []postModel.Post, name string) ([]string, error) {
	var (
		mu       sync.Mutex
		failedAt = make([]bool, len(posts))
		firstErr error
	)

	var g errgroup.Group
	g.SetLimit(s.cascadeConcurrency)

	for i, p := range posts {
		i, p := i, p
		g.Go(func() error {
			if err := s.posts.RenameAuthor(ctx, p.ID, name); err != nil {
				mu.Lock()
				failedAt[i] = true
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			// Never cancel the siblings: every post is attempted.
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for i, f := range failedAt {
		if f {
			failed = append(failed, posts[i].ID)
		}
	}
	return failed, firstErr
}

func (s *profileService) stepFailed(principalID, step string, failed []string, err error) error {
	log.Error().
		Err(err).
		Str("principal_id", principalID).
		Str("step", step).
		Strs("failed_posts", failed).
		Msg("Rename cascade failed")

	if !errors.Is(err, apperror.ErrRemoteFault) && !errors.Is(err, apperror.ErrNotFound) &&
		!errors.Is(err, apperror.ErrUnauthenticated) && !errors.Is(err, apperror.ErrValidation) {
		err = apperror.Remote(step, err)
	}
	return &apperror.StepError{Step: step, Failed: failed, Err: err}
}
