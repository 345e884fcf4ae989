package main

import (
	"github.com/mcdonaldj/epubtidy/internal/cli"
	"github.com/mcdonaldj/epubtidy/internal/tui"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	c := cli.New(version)
	// No command or "ui" launches the TUI
	c.UI = tui.Run
	c.Run()
}
