package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m333rl1n/cdnx/internal/commands"
	"github.com/m333rl1n/cdnx/internal/log"
	"github.com/m333rl1n/cdnx/internal/utils"
)

var (
	version = "dev"
	commit  = "n/a"
	date    = "n/a"
)

func main() {
	ctx := &commands.AppContext{}

	defaultConfig := filepath.Join(utils.DefaultConfigDir(), "config.toml")

	// Define flags
	flag.StringVar(&ctx.ConfigPath, "config", defaultConfig, "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable debug logging")

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cdnx - filter CDN/WAF-fronted hosts out of a domain stream\n")
		fmt.Fprintf(os.Stderr, "Version: %s (Commit: %s, Date: %s)\n\n", version, commit, date)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [command] [command options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  filter                  Read hostnames from stdin, print non-CDN hosts (default command)\n")
		fmt.Fprintf(os.Stderr, "  update                  Force a refresh of the CDN range cache\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	globalArgs, name, cmdArgs := splitArgs(os.Args[1:])
	_ = flag.CommandLine.Parse(globalArgs)

	if ctx.Verbose {
		log.SetVerbose(true)
	}

	cmds := []commands.Runner{
		commands.CreateFilterCommand(),
		commands.CreateUpdateCommand(),
	}

	cmd := pickCommand(cmds, name)

	if err := cmd.Init(cmdArgs, ctx); err != nil {
		log.Fatalf("Failed to initialize command: %v", err)
	}

	if err := cmd.Run(); err != nil {
		log.Fatalf("Failed to run command: %v", err)
	}
}

// splitArgs separates global flags from the subcommand and its arguments.
// The first token that is neither a global flag nor a global flag value marks
// the command: a bare word is a subcommand name, while an unrecognized flag
// starts the default command's arguments, so `stream | cdnx -a` dispatches to
// filter without naming it.
func splitArgs(args []string) (globalArgs []string, name string, cmdArgs []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return args[:i], arg, args[i+1:]
		}

		flagName := strings.TrimLeft(arg, "-")
		if eq := strings.Index(flagName, "="); eq >= 0 {
			flagName = flagName[:eq]
		}

		switch flagName {
		case "config":
			if !strings.Contains(arg, "=") {
				// The flag value follows as a separate argument.
				i++
			}
		case "verbose", "h", "help":
		default:
			return args[:i], "", args[i:]
		}
	}
	return args, "", nil
}

// pickCommand resolves the subcommand by name; an empty name selects filter.
func pickCommand(cmds []commands.Runner, name string) commands.Runner {
	if name == "" {
		return cmds[0]
	}
	for _, cmd := range cmds {
		if cmd.Name() == name {
			return cmd
		}
	}
	log.Fatalf("Unknown subcommand: %s", name)
	return nil
}
