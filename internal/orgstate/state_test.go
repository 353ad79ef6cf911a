package orgstate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/models"
	"github.com/wolfeidau/taskboard/internal/organizations"
	"github.com/wolfeidau/taskboard/internal/store"
	"github.com/wolfeidau/taskboard/internal/store/memory"
)

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

// countingService counts calls and can fail fetches.
type countingService struct {
	Service
	fetchErr error
	fetches  atomic.Int32
	creates  atomic.Int32
}

func (s *countingService) FetchForUser(ctx context.Context, profileID uuid.UUID) ([]*models.OrganizationWithRole, error) {
	s.fetches.Add(1)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.Service.FetchForUser(ctx, profileID)
}

func (s *countingService) Create(ctx context.Context, name string, profileID uuid.UUID) (uuid.UUID, error) {
	s.creates.Add(1)
	return s.Service.Create(ctx, name, profileID)
}

type harness struct {
	provider *identity.Static
	svc      *countingService
	notices  *noticeRecorder
	state    *State
	profiles *memory.ProfileStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	profiles := memory.NewProfileStore()
	h := &harness{
		provider: identity.NewStatic(identity.NewProfileResolver(profiles, identity.RetryPolicy{})),
		svc: &countingService{Service: organizations.NewService(
			memory.NewOrganizationStore(), memory.NewMembershipStore(), organizations.Config{},
		)},
		notices:  &noticeRecorder{},
		profiles: profiles,
	}
	h.state = New(h.svc, h.provider, h.notices)
	t.Cleanup(h.state.Close)
	return h
}

func (h *harness) signIn(t *testing.T, uid string) {
	t.Helper()
	h.signInWith(t, uid, "t")
}

func (h *harness) signInWith(t *testing.T, uid, token string) {
	t.Helper()
	require.NoError(t, h.provider.SignIn(context.Background(), identity.User{ID: uid, Email: uid + "@example.com"}, identity.Session{AccessToken: token}))
}

func waitPhase(t *testing.T, s *State, phase Phase) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = s.Snapshot()
		return snap.Phase == phase
	}, time.Second, 5*time.Millisecond)
	return snap
}

func TestState_FollowsIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("idle until identity is complete", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)

		snap := h.state.Snapshot()
		require.Equal(t, PhaseIdle, snap.Phase)
		require.False(t, snap.Loading)
		require.Empty(t, snap.Organizations)
		require.Zero(t, h.svc.fetches.Load())
	})

	t.Run("loads after sign in and clears after sign out", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)

		h.signIn(t, "u1")
		snap := waitPhase(t, h.state, PhaseReady)
		require.Empty(t, snap.Organizations)
		require.Empty(t, snap.Error)

		require.True(t, h.state.CreateOrganization(ctx, "Acme"))
		require.Len(t, h.state.Snapshot().Organizations, 1)

		h.provider.SignOut()
		snap = waitPhase(t, h.state, PhaseIdle)
		require.Empty(t, snap.Organizations)
	})

	t.Run("fetch failure clears organizations", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)
		h.signIn(t, "u1")
		waitPhase(t, h.state, PhaseReady)
		require.True(t, h.state.CreateOrganization(ctx, "Acme"))

		h.svc.fetchErr = &organizations.Error{Kind: organizations.KindTransport, Message: "could not reach the server", Err: store.ErrUnavailable}
		require.Error(t, h.state.Refetch(ctx))

		snap := h.state.Snapshot()
		require.Equal(t, PhaseError, snap.Phase)
		require.Equal(t, "could not reach the server", snap.Error)
		require.Empty(t, snap.Organizations)
		require.False(t, snap.Loading)
	})
}

func TestState_SessionChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("signing in again after a failed fetch reloads", func(t *testing.T) {
		h := newHarness(t)
		h.svc.fetchErr = store.ErrAccessDenied
		h.provider.Start()
		h.state.Start(ctx)

		h.signInWith(t, "u1", "t1")
		snap := waitPhase(t, h.state, PhaseError)
		require.Equal(t, organizations.FetchFailedMessage, snap.Error)
		before := h.svc.fetches.Load()

		h.svc.fetchErr = nil
		h.signInWith(t, "u1", "t2")
		snap = waitPhase(t, h.state, PhaseReady)
		require.Greater(t, h.svc.fetches.Load(), before)
		require.Empty(t, snap.Error)
	})

	t.Run("same session after a failed fetch reloads", func(t *testing.T) {
		h := newHarness(t)
		h.svc.fetchErr = store.ErrUnavailable
		h.provider.Start()
		h.state.Start(ctx)

		h.signIn(t, "u1")
		waitPhase(t, h.state, PhaseError)

		h.svc.fetchErr = nil
		h.signIn(t, "u1")
		waitPhase(t, h.state, PhaseReady)
	})

	t.Run("new session while ready reloads", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)

		h.signInWith(t, "u1", "t1")
		waitPhase(t, h.state, PhaseReady)
		before := h.svc.fetches.Load()

		h.signInWith(t, "u1", "t2")
		require.Eventually(t, func() bool { return h.svc.fetches.Load() > before }, time.Second, 5*time.Millisecond)
	})

	t.Run("republished session while ready does not reload", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)

		h.signInWith(t, "u1", "t1")
		waitPhase(t, h.state, PhaseReady)
		before := h.svc.fetches.Load()

		h.provider.Set(h.provider.Current())
		require.Never(t, func() bool { return h.svc.fetches.Load() > before }, 50*time.Millisecond, 5*time.Millisecond)
	})
}

func TestState_CreateOrganization(t *testing.T) {
	ctx := context.Background()

	t.Run("requires complete identity", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)

		require.False(t, h.state.CreateOrganization(ctx, "Acme"))
		require.Equal(t, NoticeError, h.notices.last().Level)
		require.Equal(t, msgSignInRequired, h.notices.last().Message)
		require.Zero(t, h.svc.creates.Load())
	})

	t.Run("blank name never reaches the service", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)
		h.signIn(t, "u1")
		waitPhase(t, h.state, PhaseReady)

		require.False(t, h.state.CreateOrganization(ctx, ""))
		require.False(t, h.state.CreateOrganization(ctx, "   "))
		require.Zero(t, h.svc.creates.Load())
		require.Equal(t, NoticeError, h.notices.last().Level)
		require.False(t, h.state.Snapshot().Creating)
	})

	t.Run("success refetches and notifies", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)
		h.signIn(t, "u1")
		waitPhase(t, h.state, PhaseReady)
		before := h.svc.fetches.Load()

		require.True(t, h.state.CreateOrganization(ctx, "Acme"))
		require.Equal(t, before+1, h.svc.fetches.Load())

		snap := h.state.Snapshot()
		require.Equal(t, PhaseReady, snap.Phase)
		require.False(t, snap.Creating)
		require.Len(t, snap.Organizations, 1)
		require.Equal(t, "Acme", snap.Organizations[0].Name)
		require.Equal(t, models.RoleOwner, snap.Organizations[0].Role)
		require.Equal(t, Notice{Level: NoticeSuccess, Message: msgCreated}, h.notices.last())
	})

	t.Run("failure surfaces service message", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)
		h.signIn(t, "u1")
		waitPhase(t, h.state, PhaseReady)

		require.True(t, h.state.CreateOrganization(ctx, "Acme"))
		require.False(t, h.state.CreateOrganization(ctx, "ACME"))

		last := h.notices.last()
		require.Equal(t, NoticeError, last.Level)
		require.Equal(t, "an organization with this name already exists, choose another name", last.Message)
		require.False(t, h.state.Snapshot().Creating)
	})

	t.Run("refetch is idempotent", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Start()
		h.state.Start(ctx)
		h.signIn(t, "u1")
		waitPhase(t, h.state, PhaseReady)
		require.True(t, h.state.CreateOrganization(ctx, "Acme"))
		require.True(t, h.state.CreateOrganization(ctx, "Globex"))

		require.NoError(t, h.state.Refetch(ctx))
		a := h.state.Snapshot().Organizations
		require.NoError(t, h.state.Refetch(ctx))
		b := h.state.Snapshot().Organizations
		require.Equal(t, a, b)
	})
}

// gatedService blocks each fetch until the test releases it with a result.
type gatedService struct {
	Service
	calls chan chan []*models.OrganizationWithRole
}

func (s *gatedService) FetchForUser(ctx context.Context, _ uuid.UUID) ([]*models.OrganizationWithRole, error) {
	reply := make(chan []*models.OrganizationWithRole)
	s.calls <- reply
	return <-reply, nil
}

func org(name string) *models.OrganizationWithRole {
	return &models.OrganizationWithRole{
		Organization: models.Organization{OrgID: uuid.New(), Name: name},
		Role:         models.RoleOwner,
	}
}

func signedInState(t *testing.T, svc Service) *State {
	t.Helper()
	provider := identity.NewStatic(nil)
	provider.Start()
	profile := &models.Profile{ProfileID: uuid.New(), ExternalUID: "u1"}
	provider.Set(identity.Context{User: &identity.User{ID: "u1"}, Profile: profile, Session: &identity.Session{}})

	s := New(svc, provider, &noticeRecorder{})
	s.mu.Lock()
	s.identity = provider.Current()
	s.mu.Unlock()
	return s
}

func TestState_StaleFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("older fetch resolving last is dropped", func(t *testing.T) {
		svc := &gatedService{calls: make(chan chan []*models.OrganizationWithRole)}
		s := signedInState(t, svc)
		defer s.Close()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Refetch(ctx)
		}()
		first := <-svc.calls

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Refetch(ctx)
		}()
		second := <-svc.calls

		second <- []*models.OrganizationWithRole{org("fresh")}
		require.Eventually(t, func() bool { return s.Snapshot().Phase == PhaseReady }, time.Second, 5*time.Millisecond)

		first <- []*models.OrganizationWithRole{org("stale")}
		wg.Wait()

		snap := s.Snapshot()
		require.Len(t, snap.Organizations, 1)
		require.Equal(t, "fresh", snap.Organizations[0].Name)
		require.False(t, snap.Loading)
	})

	t.Run("results after close are dropped", func(t *testing.T) {
		svc := &gatedService{calls: make(chan chan []*models.OrganizationWithRole)}
		s := signedInState(t, svc)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = s.Refetch(ctx)
		}()
		reply := <-svc.calls

		s.Close()
		reply <- []*models.OrganizationWithRole{org("late")}
		<-done

		snap := s.Snapshot()
		require.Empty(t, snap.Organizations)
		require.ErrorIs(t, s.Refetch(ctx), ErrClosed)
	})
}

func TestState_Wait(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.provider.Start()
	h.state.Start(ctx)

	h.signIn(t, "u1")

	wctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	snap, err := h.state.Wait(wctx, Loaded)
	require.NoError(t, err)
	require.Equal(t, PhaseReady, snap.Phase)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = h.state.Wait(short, func(s Snapshot) bool { return s.Creating })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
