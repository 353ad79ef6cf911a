package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/taskboard/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode." env:"TASKBOARD_DEBUG"`
		Version kong.VersionFlag
		Server  commands.ServerCmd `cmd:"" help:"Start the API server"`
		Orgs    commands.OrgsCmd   `cmd:"" help:"Manage organizations as a user"`
		Seed    commands.SeedCmd   `cmd:"" help:"Load a development fixture"`
		Token   commands.TokenCmd  `cmd:"" help:"Issue a development access token"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("taskboard"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
