package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/logger"
	"github.com/wolfeidau/taskboard/internal/organizations"
	"github.com/wolfeidau/taskboard/internal/orgstate"
	"github.com/wolfeidau/taskboard/internal/reporting"
)

// OrgsCmd acts on organizations directly against the store, as a given user.
type OrgsCmd struct {
	List   OrgsListCmd   `cmd:"" help:"List the organizations of a user"`
	Create OrgsCreateCmd `cmd:"" help:"Create an organization owned by a user"`
	Check  OrgsCheckCmd  `cmd:"" help:"Check whether a user can access an organization"`
}

// UserFlags identifies the acting identity provider user.
type UserFlags struct {
	User    string        `help:"identity provider user id" required:"" env:"TASKBOARD_USER"`
	Email   string        `help:"user email, used when the profile is created" default:"" env:"TASKBOARD_USER_EMAIL"`
	Timeout time.Duration `help:"overall command timeout" default:"30s"`

	Store        StoreFlags        `embed:""`
	Retry        RetryFlags        `embed:"" prefix:"profile-"`
	Provisioning ProvisioningFlags `embed:""`
}

// session is a signed-in user with a loaded organization state.
type session struct {
	provider *identity.Static
	state    *orgstate.State
	svc      *organizations.Service
	close    func()
}

func (u *UserFlags) open(ctx context.Context, debug bool) (*session, error) {
	log.Logger = logger.Setup(debug)

	st, err := openStores(ctx, u.Store)
	if err != nil {
		return nil, err
	}

	svc := st.service(u.Provisioning, reporting.Nop{})
	provider := identity.NewStatic(identity.NewProfileResolver(st.profiles, u.Retry.policy()))
	state := orgstate.New(svc, provider, orgstate.NotifierFunc(func(n orgstate.Notice) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", n.Level, n.Message)
	}))

	provider.Start()
	state.Start(ctx)

	s := &session{
		provider: provider,
		state:    state,
		svc:      svc,
		close: func() {
			state.Close()
			provider.Stop()
			st.close()
		},
	}

	if err := provider.SignIn(ctx, identity.User{ID: u.User, Email: u.Email}, identity.Session{}); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to sign in as %q: %w", u.User, err)
	}

	snap, err := state.Wait(ctx, orgstate.Loaded)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load organizations: %w", err)
	}
	if snap.Phase == orgstate.PhaseError {
		s.close()
		return nil, errors.New(snap.Error)
	}

	return s, nil
}

type OrgsListCmd struct {
	UserFlags `embed:""`
}

func (c *OrgsListCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	s, err := c.open(ctx, globals.Debug)
	if err != nil {
		return err
	}
	defer s.close()

	printOrganizations(s.state.Snapshot())
	return nil
}

type OrgsCreateCmd struct {
	UserFlags `embed:""`
	Name      string `arg:"" help:"organization name"`
}

func (c *OrgsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	s, err := c.open(ctx, globals.Debug)
	if err != nil {
		return err
	}
	defer s.close()

	if !s.state.CreateOrganization(ctx, c.Name) {
		return errors.New("organization was not created")
	}

	printOrganizations(s.state.Snapshot())
	return nil
}

type OrgsCheckCmd struct {
	UserFlags `embed:""`
	OrgID     string `arg:"" help:"organization id"`
}

func (c *OrgsCheckCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := uuid.Parse(c.OrgID)
	if err != nil {
		return fmt.Errorf("invalid organization id: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	s, err := c.open(ctx, globals.Debug)
	if err != nil {
		return err
	}
	defer s.close()

	if !s.svc.ValidateAccess(ctx, s.provider.Current().ProfileID(), orgID) {
		fmt.Printf("%s cannot access %s\n", c.User, orgID)
		return errors.New("access denied")
	}

	fmt.Printf("%s can access %s\n", c.User, orgID)
	return nil
}

func printOrganizations(snap orgstate.Snapshot) {
	if len(snap.Organizations) == 0 {
		fmt.Println("No organizations")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tCREATED")
	for _, o := range snap.Organizations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.OrgID, o.Name, o.Role, o.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}
