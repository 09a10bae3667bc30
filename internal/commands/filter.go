package commands

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/m333rl1n/cdnx/internal/cache"
	"github.com/m333rl1n/cdnx/internal/config"
	"github.com/m333rl1n/cdnx/internal/errors"
	"github.com/m333rl1n/cdnx/internal/log"
	"github.com/m333rl1n/cdnx/internal/output"
	"github.com/m333rl1n/cdnx/internal/resolver"
)

func CreateFilterCommand() *FilterCommand {
	fc := &FilterCommand{
		fs:  flag.NewFlagSet("filter", flag.ExitOnError),
		in:  os.Stdin,
		out: os.Stdout,
	}
	fc.fs.BoolVar(&fc.appendPorts, "a", false, "Keep CDN hosts instead of dropping them")
	fc.fs.StringVar(&fc.portList, "p", "", "Comma-separated ports to expand CDN hosts over (requires -a)")
	fc.fs.IntVar(&fc.threads, "t", 0, "Resolver worker count (default: from config)")
	fc.fs.BoolVar(&fc.quiet, "q", false, "Suppress all diagnostics except errors")
	return fc
}

type FilterCommand struct {
	fs  *flag.FlagSet
	cfg *config.Config

	in  io.Reader
	out io.Writer

	// lookup is swappable for tests; nil means build a real resolver.
	lookup resolver.Lookuper

	appendPorts bool
	portList    string
	threads     int
	quiet       bool

	ports []string
}

func (f *FilterCommand) Name() string {
	return f.fs.Name()
}

func (f *FilterCommand) Init(args []string, ctx *AppContext) error {
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	if f.quiet {
		log.DisableLogs()
	}

	cfg, err := loadConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	f.cfg = cfg

	if f.threads > 0 {
		f.cfg.General.Threads = f.threads
	}

	if f.portList != "" && !f.appendPorts {
		log.Warnf("-p has no effect without -a, ignoring port list %q", f.portList)
		f.portList = ""
	}

	if f.portList != "" {
		ports, err := parsePorts(f.portList)
		if err != nil {
			return err
		}
		f.ports = ports
	}

	return nil
}

func (f *FilterCommand) Run() error {
	set, err := cache.New(f.cfg).LoadOrRefresh()
	if err != nil {
		return err
	}

	lookup := f.lookup
	if lookup == nil {
		res, err := resolver.NewResolver(f.cfg)
		if err != nil {
			return err
		}
		lookup = res
	}

	sink, err := output.NewSink(f.out, f.cfg, f.appendPorts, f.ports)
	if err != nil {
		return err
	}

	hosts := readHosts(f.in)
	pool := resolver.NewPool(lookup, set, f.cfg.General.Threads, f.cfg.LookupTimeout())

	for result := range pool.Run(context.Background(), hosts) {
		if result.Err != nil {
			log.Warnf("Skipping %s: %v", result.Host, result.Err)
			continue
		}
		if err := sink.Emit(result); err != nil {
			return err
		}
	}

	return sink.Close()
}

// readHosts streams trimmed, non-blank input lines into a channel.
func readHosts(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			host := strings.TrimSpace(scanner.Text())
			if host == "" {
				continue
			}
			out <- host
		}
		if err := scanner.Err(); err != nil {
			log.Errorf("Failed to read input: %v", err)
		}
	}()
	return out
}

// parsePorts validates a comma-separated port list.
func parsePorts(list string) ([]string, error) {
	var ports []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		port, err := strconv.Atoi(part)
		if err != nil || port < 1 || port > 65535 {
			return nil, errors.NewConfigError("invalid port "+strconv.Quote(part), nil)
		}
		ports = append(ports, part)
	}
	if len(ports) == 0 {
		return nil, errors.NewConfigError("empty port list", nil)
	}
	return ports, nil
}
