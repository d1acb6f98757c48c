package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/glabrego/conch/internal/config"
)

var version = "dev"

type CLI struct {
	Config  config.Config    `embed:""`
	Version kong.VersionFlag `help:"Print version and exit"`

	View  ViewCmd  `cmd:"" default:"withargs" help:"Watch the feed (default)"`
	Post  PostCmd  `cmd:"" help:"Post a blast"`
	Serve ServeCmd `cmd:"" help:"Serve the feed over HTTP"`
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, config.DefaultConfigPath())
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	parser.FatalIfErrorf(cli.Config.Validate())
	parser.FatalIfErrorf(ctx.Run(&cli.Config))
}

func newParser(cli *CLI, configPath string) (*kong.Kong, error) {
	options := append(config.Options(configPath),
		kong.Name("conch"),
		kong.Description("A live, scrollable blast feed."),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
			"user":    os.Getenv("USER"),
		},
	)
	return kong.New(cli, options...)
}
