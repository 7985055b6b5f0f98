package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/cli"
)

// Version is provided at compile time
var Version = "dev"

func main() {
	app := kingpin.New("hrflow", "Two-stage HOD and HR approval for leave and gate pass requests")
	app.Version(Version)

	h := cli.ConfigureGlobals(app)
	cli.ConfigureShowCommand(app, h)
	cli.ConfigureApproveCommand(app, h)
	cli.ConfigureRejectCommand(app, h)
	cli.ConfigurePendingCommand(app, h)
	cli.ConfigureJoiningCommand(app, h)

	// Directory commands
	cli.ConfigureResolveCommand(app, h)

	// Config commands
	cli.ConfigureConfigCommand(app, h)

	// Table provisioning commands
	cli.ConfigureTablesCommand(app, h)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}
