package identity

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Provider publishes identity snapshots.
type Provider interface {
	// Current returns the latest snapshot.
	Current() Context

	// Subscribe returns a channel that receives the current snapshot
	// immediately and every change after it, and a function that ends the
	// subscription. Slow subscribers only see the latest snapshot.
	Subscribe() (<-chan Context, func())
}

// Static is a Provider whose identity is set explicitly, either directly with
// Set or through SignIn/SignOut. It is not ready until Start is called.
type Static struct {
	resolver *ProfileResolver

	mu      sync.Mutex
	current Context
	subs    map[int]chan Context
	nextID  int
	stopped bool
}

var _ Provider = (*Static)(nil)

// NewStatic creates a Static provider. resolver is required for SignIn.
func NewStatic(resolver *ProfileResolver) *Static {
	return &Static{
		resolver: resolver,
		subs:     make(map[int]chan Context),
	}
}

// Start marks the provider ready and publishes the current identity.
func (s *Static) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.current.Ready {
		return
	}
	s.current.Ready = true
	s.publish()
}

// Stop closes every subscription. Later calls to Set are ignored.
func (s *Static) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Static) Current() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Static) Subscribe() (<-chan Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Context, 1)
	if s.stopped {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.current

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				close(ch)
				delete(s.subs, id)
			}
		})
	}
}

// Set replaces the identity. Ready is preserved from the provider's state.
func (s *Static) Set(id Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	id.Ready = s.current.Ready
	s.current = id
	s.publish()
}

// SignIn resolves (creating if needed) the profile for user and publishes
// the signed-in identity.
func (s *Static) SignIn(ctx context.Context, user User, session Session) error {
	profile, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return err
	}

	s.Set(Context{User: &user, Profile: profile, Session: &session})

	log.Debug().
		Str("user_id", user.ID).
		Str("profile_id", profile.ProfileID.String()).
		Msg("Signed in")

	return nil
}

// SignOut clears the identity.
func (s *Static) SignOut() {
	s.Set(Context{})
	log.Debug().Msg("Signed out")
}

// publish must be called with mu held. Each subscriber channel holds at most
// the latest snapshot.
func (s *Static) publish() {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.current:
		default:
		}
	}
}
