package commands

import (
	"context"
	"fmt"
)

type MeCmd struct {
	ClientFlags `embed:""`
}

func (m *MeCmd) Run(ctx context.Context, globals *Globals) error {
	p, err := m.client(globals).Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	fmt.Printf("Profile: %s\n", p.ID)
	fmt.Printf("User:    %s\n", p.ExternalUID)
	fmt.Printf("Email:   %s\n", p.Email)
	fmt.Printf("Name:    %s\n", p.Name)
	return nil
}
