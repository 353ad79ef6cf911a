// Package orgstate keeps the organization list of the signed-in profile in
// sync with the identity provider and exposes it as snapshots.
package orgstate

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/organizations"
)

// ErrClosed is returned by Refetch after Close.
var ErrClosed = errors.New("organization state closed")

const (
	msgSignInRequired = "you need to be signed in to create an organization"
	msgCreated        = "organization created"
)

// Phase is where the state is in its load cycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// Service is the part of organizations.Service the state depends on.
type Service interface {
	FetchForUser(ctx context.Context, profileID uuid.UUID) ([]*models.OrganizationWithRole, error)
	Create(ctx context.Context, name string, profileID uuid.UUID) (uuid.UUID, error)
}

// Snapshot is a copy of the state at one point in time.
type Snapshot struct {
	Organizations []*models.OrganizationWithRole
	Loading       bool
	Creating      bool
	Error         string
	Phase         Phase
}

// State follows an identity.Provider: when the identity is complete it loads
// that profile's organizations, when it isn't it stays idle and empty.
//
// Each fetch takes a generation number and only the latest started fetch may
// write its result. Results arriving after Close are dropped.
type State struct {
	svc      Service
	provider identity.Provider
	notifier Notifier

	mu         sync.Mutex
	snap       Snapshot
	identity   identity.Context
	generation uint64
	creating   int
	closed     bool
	changed    chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a State. A nil notifier logs notices.
func New(svc Service, provider identity.Provider, notifier Notifier) *State {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &State{
		svc:      svc,
		provider: provider,
		notifier: notifier,
		snap: Snapshot{
			Organizations: []*models.OrganizationWithRole{},
			Phase:         PhaseIdle,
		},
		changed: make(chan struct{}),
	}
}

// Start follows the provider until ctx is done or Close is called.
func (s *State) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	ch, unsubscribe := s.provider.Subscribe()

	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case id, ok := <-ch:
				if !ok {
					return
				}
				s.onIdentity(ctx, id)
			}
		}
	}()
}

// Close stops following the provider and drops any fetch still in flight.
func (s *State) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.broadcastLocked()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until cond holds for a snapshot or ctx is done.
func (s *State) Wait(ctx context.Context, cond func(Snapshot) bool) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap := s.snapshotLocked()
		changed := s.changed
		s.mu.Unlock()

		if cond(snap) {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Loaded is a Wait condition that holds once a fetch has finished.
func Loaded(snap Snapshot) bool {
	return snap.Phase == PhaseReady || snap.Phase == PhaseError
}

func (s *State) snapshotLocked() Snapshot {
	snap := s.snap
	snap.Organizations = slices.Clone(s.snap.Organizations)
	snap.Creating = s.creating > 0
	return snap
}

// broadcastLocked wakes every Wait.
func (s *State) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *State) onIdentity(ctx context.Context, id identity.Context) {
	s.mu.Lock()
	previous := s.identity
	phase := s.snap.Phase
	s.identity = id

	if !id.Ready || !id.Complete() {
		s.resetLocked()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// the same session republished while loaded or loading needs no reload;
	// a new session always does, and so does recovering from an error
	if sameSession(previous, id) && (phase == PhaseReady || phase == PhaseLoading) {
		return
	}

	if err := s.Refetch(ctx); err != nil && !errors.Is(err, ErrClosed) {
		log.Debug().Err(err).Msg("Organization fetch after identity change failed")
	}
}

func sameSession(a, b identity.Context) bool {
	if a.ProfileID() != b.ProfileID() || a.Session == nil || b.Session == nil {
		return false
	}
	return a.Session == b.Session || a.Session.AccessToken == b.Session.AccessToken
}

// resetLocked returns to idle and invalidates fetches in flight.
func (s *State) resetLocked() {
	s.generation++
	s.snap.Organizations = []*models.OrganizationWithRole{}
	s.snap.Loading = false
	s.snap.Error = ""
	s.snap.Phase = PhaseIdle
	s.broadcastLocked()
}

// Refetch reloads the organizations of the current identity. With an
// incomplete identity it resets to idle and returns nil.
func (s *State) Refetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	id := s.identity
	if !id.Complete() {
		s.resetLocked()
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	s.snap.Loading = true
	s.snap.Phase = PhaseLoading
	s.broadcastLocked()
	s.mu.Unlock()

	orgs, err := s.svc.FetchForUser(ctx, id.ProfileID())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		log.Debug().Uint64("generation", gen).Msg("Dropped stale organization fetch")
		return err
	}

	s.snap.Loading = false
	defer s.broadcastLocked()
	if err != nil {
		// never keep showing organizations the profile may have lost access to
		s.snap.Organizations = []*models.OrganizationWithRole{}
		s.snap.Error = organizations.MessageOf(err, organizations.FetchFailedMessage)
		s.snap.Phase = PhaseError
		return err
	}

	s.snap.Organizations = orgs
	s.snap.Error = ""
	s.snap.Phase = PhaseReady
	return nil
}

// CreateOrganization provisions an organization for the current identity and
// reloads the list. It reports success; failures are delivered as notices
// carrying the service's message.
func (s *State) CreateOrganization(ctx context.Context, name string) bool {
	s.mu.Lock()
	id := s.identity
	closed := s.closed
	s.mu.Unlock()

	if closed || !id.Complete() {
		s.notifier.Notify(Notice{Level: NoticeError, Message: msgSignInRequired})
		return false
	}

	if _, err := organizations.NormalizeName(name); err != nil {
		s.notifier.Notify(Notice{Level: NoticeError, Message: organizations.MessageOf(err, organizations.CreateFailedMessage)})
		return false
	}

	s.mu.Lock()
	s.creating++
	s.broadcastLocked()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.creating--
		s.broadcastLocked()
		s.mu.Unlock()
	}()

	orgID, err := s.svc.Create(ctx, name, id.ProfileID())
	if err != nil {
		s.notifier.Notify(Notice{Level: NoticeError, Message: organizations.MessageOf(err, organizations.CreateFailedMessage)})
		return false
	}

	if err := s.Refetch(ctx); err != nil {
		log.Warn().Err(err).Str("org_id", orgID.String()).Msg("Refetch after create failed")
	}

	s.notifier.Notify(Notice{Level: NoticeSuccess, Message: msgCreated})
	return true
}
