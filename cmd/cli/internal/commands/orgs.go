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
	"github.com/wolfeidau/taskboard/internal/client"
)

type OrgsCmd struct {
	List    OrgsListCmd    `cmd:"" help:"List your organizations"`
	Create  OrgsCreateCmd  `cmd:"" help:"Create an organization"`
	Check   OrgsCheckCmd   `cmd:"" help:"Check access to an organization"`
	Members OrgsMembersCmd `cmd:"" help:"List the members of an organization"`
}

type OrgsListCmd struct {
	ClientFlags `embed:""`
	Watch       bool          `help:"refresh the list until interrupted" short:"w"`
	Interval    time.Duration `help:"refresh interval when watching" default:"5s"`
}

func (l *OrgsListCmd) Run(ctx context.Context, globals *Globals) error {
	c := l.client(globals)

	if !l.Watch {
		return l.listOnce(ctx, c)
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		// clear screen between refreshes
		fmt.Print("\033[H\033[2J")
		if err := l.listOnce(ctx, c); err != nil {
			log.Error().Err(err).Msg("Failed to refresh organizations")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (l *OrgsListCmd) listOnce(ctx context.Context, c *client.Client) error {
	orgs, err := c.ListOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	if len(orgs) == 0 {
		fmt.Println("No organizations")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tCREATED")
	for _, o := range orgs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.ID, o.Name, o.Role, o.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

type OrgsCreateCmd struct {
	ClientFlags `embed:""`
	Name        string `arg:"" help:"organization name"`
}

func (c *OrgsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := c.client(globals).CreateOrganization(ctx, c.Name)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return errors.New(apiErr.Message)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	fmt.Printf("Created organization %s\n", id)
	return nil
}

type OrgsCheckCmd struct {
	ClientFlags `embed:""`
	OrgID       string `arg:"" help:"organization id"`
}

func (c *OrgsCheckCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := uuid.Parse(c.OrgID)
	if err != nil {
		return fmt.Errorf("invalid organization id: %w", err)
	}

	allowed, err := c.client(globals).CheckAccess(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}
	if !allowed {
		return errors.New("access denied")
	}

	fmt.Printf("Access granted to %s\n", orgID)
	return nil
}

type OrgsMembersCmd struct {
	ClientFlags `embed:""`
	OrgID       string `arg:"" help:"organization id"`
}

func (c *OrgsMembersCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := uuid.Parse(c.OrgID)
	if err != nil {
		return fmt.Errorf("invalid organization id: %w", err)
	}

	members, err := c.client(globals).Members(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tROLE\tJOINED")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.UserID, m.Role, m.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
