package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/taskboard/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode." env:"TASKBOARD_DEBUG"`
		Version kong.VersionFlag
		Me      commands.MeCmd   `cmd:"" help:"Show the signed-in profile"`
		Orgs    commands.OrgsCmd `cmd:"" help:"Manage organizations through the API"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("taskboard-cli"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
