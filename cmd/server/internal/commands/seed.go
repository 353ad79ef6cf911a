package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskboard/internal/identity"
	"github.com/wolfeidau/taskboard/internal/logger"
	"github.com/wolfeidau/taskboard/internal/reporting"
	"github.com/wolfeidau/taskboard/internal/seed"
)

type SeedCmd struct {
	File string `arg:"" help:"YAML or JSON fixture" type:"existingfile"`

	Store        StoreFlags        `embed:""`
	Retry        RetryFlags        `embed:"" prefix:"profile-"`
	Provisioning ProvisioningFlags `embed:""`
}

func (c *SeedCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	fixture, err := seed.Load(c.File)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, c.Store)
	if err != nil {
		return err
	}
	defer st.close()

	seeder := &seed.Seeder{
		Resolver:      identity.NewProfileResolver(st.profiles, c.Retry.policy()),
		Service:       st.service(c.Provisioning, reporting.Nop{}),
		Organizations: st.organizations,
		Memberships:   st.memberships,
	}

	res, err := seeder.Apply(ctx, fixture)
	if err != nil {
		return fmt.Errorf("failed to apply seed: %w", err)
	}

	fmt.Printf("Seeded %d profiles, %d organizations, %d memberships\n", res.Profiles, res.Organizations, res.Memberships)
	return nil
}
