// voidcheck is a standalone bot verification service. A game proxy
// plugin streams connection events over a websocket bridge and
// voidcheck decides who is allowed to reach real servers.
package main

import (
	"runtime/debug"

	"github.com/alecthomas/kong"
	"github.com/voidcheck/voidcheck/internal/cli"
)

var version = "dev" // has to be set by ldflags

func getVersion() string {
	if version != "dev" {
		return version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return version
	}

	return info.Main.Version
}

func main() {
	cli := &cli.CLI{}
	ctx := kong.Parse(cli, kong.Vars{
		"version": getVersion(),
	})

	ctx.FatalIfErrorf(ctx.Run(cli, getVersion()))
}
