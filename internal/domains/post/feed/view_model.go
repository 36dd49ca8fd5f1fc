package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/post/model"
	"nwitter-backend/internal/domains/post/repository"
)

// State of a feed view model.
type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateLive
	StateError
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	case StateDetached:
		return "detached"
	}
	return "unknown"
}

var ErrAlreadyActivated = errors.New("feed already activated")

// PublishFunc receives the full, ordered post list of every snapshot.
// It must not call Deactivate.
type PublishFunc func(posts []model.Post)

// ViewModel keeps the ordered post list of one feed scope in sync with the
// repository for as long as it is active.
type ViewModel struct {
	repo    repository.Repository
	scope   model.Scope
	publish PublishFunc

	// deliverMu serializes publishing against Deactivate.
	deliverMu sync.Mutex

	mu    sync.Mutex
	state State
	posts []model.Post
	err   error
	sub   repository.Subscription
}

func NewViewModel(repo repository.Repository, scope model.Scope, publish PublishFunc) *ViewModel {
	return &ViewModel{
		repo:    repo,
		scope:   scope,
		publish: publish,
		posts:   []model.Post{},
	}
}

// Activate opens the live subscription. A subscribe failure moves the view
// model to StateError and is returned once; it is not retried.
func (vm *ViewModel) Activate(ctx context.Context) error {
	vm.mu.Lock()
	if vm.state != StateIdle {
		vm.mu.Unlock()
		return ErrAlreadyActivated
	}
	vm.state = StateSubscribing
	vm.mu.Unlock()

	sub, err := vm.repo.Subscribe(ctx, vm.scope, vm.onSnapshot)

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if err != nil {
		if vm.state == StateSubscribing {
			vm.state = StateError
		}
		vm.err = err
		log.Error().
			Err(err).
			Str("scope", vm.scope.String()).
			Msg("Feed subscription failed")
		return err
	}

	// Deactivated while Subscribe was in flight.
	if vm.state == StateDetached {
		sub.Cancel()
		return nil
	}

	vm.sub = sub
	return nil
}

func (vm *ViewModel) onSnapshot(posts []model.Post) {
	vm.deliverMu.Lock()
	defer vm.deliverMu.Unlock()

	vm.mu.Lock()
	if vm.state == StateDetached || vm.state == StateError {
		vm.mu.Unlock()
		log.Debug().
			Str("scope", vm.scope.String()).
			Int("posts", len(posts)).
			Msg("Dropped snapshot for inactive feed")
		return
	}
	vm.state = StateLive
	vm.posts = posts
	vm.mu.Unlock()

	if vm.publish != nil {
		vm.publish(posts)
	}
}

// Deactivate cancels the subscription. Once it returns no further snapshot
// is published. Calling it again is a no-op.
func (vm *ViewModel) Deactivate() {
	vm.deliverMu.Lock()
	vm.mu.Lock()
	if vm.state == StateDetached {
		vm.mu.Unlock()
		vm.deliverMu.Unlock()
		return
	}
	vm.state = StateDetached
	sub := vm.sub
	vm.sub = nil
	vm.mu.Unlock()
	vm.deliverMu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// Posts returns a copy of the last published list.
func (vm *ViewModel) Posts() []model.Post {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	out := make([]model.Post, len(vm.posts))
	copy(out, vm.posts)
	return out
}

func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Err returns the subscribe failure, if any.
func (vm *ViewModel) Err() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.err
}
