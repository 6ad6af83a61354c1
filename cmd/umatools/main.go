package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"umatools/pkg/config"
	"umatools/pkg/log"
)

//go:embed VERSION
var Version string

type command struct {
	name    string
	aliases []string
	summary string
	run     func(ctx context.Context, opts *options, args []string) error
}

var commands = []command{
	{"download", []string{"dlmiss"}, "Download every asset missing from the game directory", runDownload},
	{"update-master", []string{"update"}, "Download and decompress the latest master database", runUpdateMaster},
	{"extract", []string{"ab"}, "Extract assets matching a name pattern", runExtract},
	{"extract-cri", []string{"cri"}, "Transcode CRI audio matching a name pattern to FLAC", runExtractCRI},
	{"dump", []string{"dumpdb"}, "Export the asset catalog and master tables", runDump},
	{"serve", []string{"handbook"}, "Serve the output directory and the generated handbook", runServe},
	{"resolve", nil, "Locate the game directory and save it to the config", runResolve},
	{"version", nil, "Print the version", runVersion},
}

// options are the flags every command accepts.
type options struct {
	configPath string
	logLevel   string
	noProgress bool
	threads    int
	outputDir  string
	force      bool
	addr       string
}

func main() {
	// Initialize logger first
	_ = log.Logger

	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		printUsage()
		os.Exit(0)
	}

	cmd, ok := findCommand(os.Args[1])
	if !ok {
		printUsage()
		log.Fatal().Str("command", os.Args[1]).Msg("Unknown command")
	}

	opts := &options{}
	flagSet := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Config file path")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config)")
	flagSet.BoolVar(&opts.noProgress, "no-progress", false, "Log per-item progress at debug level only")
	flagSet.IntVarP(&opts.threads, "threads", "t", 0, "Override the worker count for this command")
	flagSet.StringVarP(&opts.outputDir, "output-dir", "o", "", "Override the output root directory")
	flagSet.BoolVarP(&opts.force, "force", "f", false, "Download even when the asset is already present")
	flagSet.StringVar(&opts.addr, "addr", "", "Listen address for serve")

	if err := flagSet.Parse(os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal().Err(err).Msg("Failed to parse flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if cmd.name == "serve" {
		// the server handles its own signals
		stop()
		ctx = context.Background()
	}
	err := cmd.run(ctx, opts, flagSet.Args())
	stop()

	if err != nil {
		log.Fatal().Err(err).Str("command", cmd.name).Msg("Command failed")
	}
	os.Exit(0)
}

func findCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return command{}, false
}

func printUsage() {
	var b strings.Builder
	fmt.Fprintf(&b, "umatools %s\n\nUsage: umatools <command> [flags] [pattern]\n\nCommands:\n", strings.TrimSpace(Version))
	for _, cmd := range commands {
		name := cmd.name
		if len(cmd.aliases) > 0 {
			name += " (" + strings.Join(cmd.aliases, ", ") + ")"
		}
		fmt.Fprintf(&b, "  %-28s %s\n", name, cmd.summary)
	}
	b.WriteString("\nRun umatools <command> --help for flags.\n")
	fmt.Fprint(os.Stderr, b.String())
}
