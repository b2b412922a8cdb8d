package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docblog/cmd/docblog/commands"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("docblog"),
		kong.Description("Build Markdown documentation with blog posts and post listings."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err := ctx.Run(&commands.Global{Logger: slog.Default()}, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
