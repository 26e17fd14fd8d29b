// mantapay is the command line tool for a shielded pool: it generates
// circuit keys, initialises a ledger and applies encoded operations to it.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:  "mantapay",
	Usage: "shielded payment pool tool",
	Flags: []cli.Flag{
		configFlag,
		dataDirFlag,
		logLevelFlag,
	},
	Commands: []*cli.Command{
		commandSetup,
		commandInit,
		commandStatus,
		commandInspectRoot,
		commandApply,
	},
}

// Commonly used command line flags.
var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "ledger database directory, overrides the config file",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "loglevel",
		Usage: "log level (trace, debug, info, warn, error)",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
