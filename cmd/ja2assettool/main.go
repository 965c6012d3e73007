// Command ja2assettool inspects and converts Jagged Alliance 2 data files.
//
// Usage:
//
//	ja2assettool [global flags] <statistics|print|serve|slf> [flags]
//
// Global configuration is read from ja2-asset-tool.toml in $JA2_HOME (or
// ~/.ja2) and can be overridden by flags on every subcommand.
package main

import (
	"flag"
	"fmt"
	"os"

	"badc0de.net/pkg/flagutil/v1"

	"github.com/golang/glog"

	"badc0de.net/pkg/go-ja2/paths"
)

type subcommand struct {
	name  string
	usage string
	run   func(cfg *paths.Config, args []string) error
}

var subcommands = []subcommand{
	{"statistics", "walk a directory, count file types and classify every image", statisticsMain},
	{"print", "print an image from the game data to the terminal", printMain},
	{"serve", "serve game assets over http", serveMain},
	{"slf", "unpack or pack an SLF archive", slfMain},
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <subcommand> [flags]\n\nSubcommands:\n", os.Args[0])
	for _, c := range subcommands {
		fmt.Fprintf(flag.CommandLine.Output(), "  %-12s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
	flag.PrintDefaults()
}

// newFlagSet returns a flag set for a subcommand with the configuration
// flags registered on it.
func newFlagSet(name string, cfg *paths.Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	paths.SetupConfigFlags(fs, cfg)
	return fs
}

func main() {
	flag.Usage = usage
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	home, err := paths.Home()
	if err != nil {
		glog.Exitf("locating home: %v", err)
	}
	cfg, err := paths.LoadConfig(home)
	if err != nil {
		glog.Exitf("loading config: %v", err)
	}

	for _, c := range subcommands {
		if c.name != flag.Arg(0) {
			continue
		}
		if err := c.run(cfg, flag.Args()[1:]); err != nil {
			glog.Errorf("%s: %v", c.name, err)
			glog.Flush()
			os.Exit(1)
		}
		glog.Flush()
		return
	}
	glog.Errorf("unknown subcommand %q", flag.Arg(0))
	usage()
	os.Exit(2)
}
