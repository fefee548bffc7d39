// classflow inspects compiled class files: it dumps their structure,
// disassembles method bodies and renders control flow graphs.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"

	"github.com/classflow/go-classflow/common/gopool"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML configuration file",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "enable debug logging",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "dump raw decoded structures",
	}
)

func main() {
	app := &cli.App{
		Name:  "classflow",
		Usage: "class file decoder and control flow graph builder",
		Flags: []cli.Flag{
			configFlag,
			verboseFlag,
			debugFlag,
		},
		Commands: []*cli.Command{
			dumpCommand,
			cfgCommand,
			scanCommand,
		},
	}
	err := app.Run(os.Args)
	gopool.Release()
	if err != nil {
		fmt.Fprintf(os.Stderr, "classflow: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the command logger honoring --verbose.
func newLogger(ctx *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if ctx.Bool(verboseFlag.Name) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
