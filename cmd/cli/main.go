package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yourorg/kharkivmetro/internal/bootstrap"
	"github.com/yourorg/kharkivmetro/internal/config"
	"github.com/yourorg/kharkivmetro/internal/snapshot"
)

const usage = `Usage: metro <command> [flags] [args]

Commands:
  route FROM TO        plan the earliest arrival
  schedule STATION     departure board of a station
  stations             list stations
  resolve QUERY        show how a name maps to a station
  scrape               fetch timetables from the operator's site
  init                 seed the database and scrape
  config               show or change preferences
  hash-password [PW]   print a bcrypt hash for admin.password_hash
  health               query a running server

Without a command an interactive menu starts.`

type cli struct {
	cfgPath string
	cfg     config.AppConfig
	out     io.Writer
	in      *bufio.Reader
	now     func() time.Time

	rt   *bootstrap.Runtime
	snap func(ctx context.Context) (*snapshot.Snapshot, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("METRO_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	c := newCLI(cfgPath, cfg, os.Stdout, os.Stdin)
	defer c.close()

	if len(os.Args) < 2 {
		c.menu(ctx)
		return
	}
	if err := c.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		c.close()
		os.Exit(1)
	}
}

func newCLI(cfgPath string, cfg config.AppConfig, out io.Writer, in io.Reader) *cli {
	c := &cli{cfgPath: cfgPath, cfg: cfg, out: out, in: bufio.NewReader(in), now: time.Now}
	c.snap = c.loadSnapshot
	return c
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "route":
		return c.route(ctx, args)
	case "schedule":
		return c.schedule(ctx, args)
	case "stations":
		return c.stations(ctx, args)
	case "resolve":
		return c.resolve(ctx, args)
	case "scrape":
		return c.scrape(ctx, args)
	case "init":
		return c.initData(ctx, args)
	case "config":
		return c.config(args)
	case "hash-password":
		return c.hashPassword(args)
	case "health":
		return c.health(args)
	case "help", "-h", "--help":
		fmt.Fprintln(c.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

// runtime opens storage once per process.
func (c *cli) runtime(ctx context.Context) (*bootstrap.Runtime, error) {
	if c.rt != nil {
		return c.rt, nil
	}
	rt, err := bootstrap.Open(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.rt = rt
	return rt, nil
}

func (c *cli) loadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	rt, err := c.runtime(ctx)
	if err != nil {
		return nil, err
	}
	if snap := rt.Manager.Store().Current(); snap != nil {
		return snap, nil
	}
	return rt.Boot(ctx)
}

func (c *cli) close() {
	if c.rt != nil {
		c.rt.Close()
		c.rt = nil
	}
}

// ============================================================================
// INTERACTIVE MENU
// ============================================================================

func (c *cli) menu(ctx context.Context) {
	for {
		fmt.Fprintln(c.out, "==== Kharkiv Metro CLI ====")
		fmt.Fprintln(c.out, "1) Plan a route")
		fmt.Fprintln(c.out, "2) Station schedule")
		fmt.Fprintln(c.out, "3) List stations")
		fmt.Fprintln(c.out, "4) Resolve a station name")
		fmt.Fprintln(c.out, "5) Scrape timetables")
		fmt.Fprintln(c.out, "6) Health check API")
		fmt.Fprintln(c.out, "7) Exit")
		choice, ok := c.prompt("Select option: ")
		if !ok {
			return
		}

		var err error
		switch choice {
		case "1":
			from, _ := c.prompt("From: ")
			to, _ := c.prompt("To: ")
			at, _ := c.prompt("Time (HH:MM, empty for now): ")
			args := []string{from, to}
			if at != "" {
				args = append([]string{"-time", at}, args...)
			}
			err = c.route(ctx, args)
		case "2":
			st, _ := c.prompt("Station: ")
			err = c.schedule(ctx, []string{st})
		case "3":
			err = c.stations(ctx, nil)
		case "4":
			q, _ := c.prompt("Query: ")
			err = c.resolve(ctx, []string{q})
		case "5":
			err = c.scrape(ctx, nil)
		case "6":
			err = c.health(nil)
		case "7":
			fmt.Fprintln(c.out, "Bye")
			return
		default:
			fmt.Fprintln(c.out, "Invalid option")
		}
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
		fmt.Fprintln(c.out)
	}
}

// prompt reads one trimmed line. ok is false at end of input.
func (c *cli) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}
