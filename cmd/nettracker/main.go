package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"nettracker/internal/adapter"
	"nettracker/internal/config"
	"nettracker/internal/domain"
	"nettracker/internal/logger"
	"nettracker/internal/repository"
	"nettracker/internal/repository/postgres"
	"nettracker/internal/repository/sqlite"
	"nettracker/internal/service"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options holds the parsed command line
type options struct {
	configPath   string
	dbPath       string
	runUpdate    bool
	createTables bool
	dropTables   bool
	watch        bool
	show         bool
	history      string
	label        string
	jsonOutput   bool
	debug        bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("nettracker", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "config file (default: search $NETTRACKER_CONFIG, ./nettracker.yaml, XDG, /etc)")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database path, overrides database.path")
	fs.BoolVar(&opts.runUpdate, "run-update", false, "scan the network and record one pass")
	fs.BoolVar(&opts.createTables, "create-tables", false, "create the history tables, trigger and view")
	fs.BoolVar(&opts.dropTables, "drop-tables", false, "drop the history tables")
	fs.BoolVar(&opts.watch, "watch", false, "record a pass every interval until interrupted")
	fs.BoolVar(&opts.show, "show", false, "print the latest known state of every device")
	fs.StringVar(&opts.history, "history", "", "print the interval history of one MAC address")
	fs.StringVar(&opts.label, "label", "", "set an operator label, as MAC=NAME")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print -show and -history output as JSON")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	modes := 0
	for _, set := range []bool{opts.runUpdate, opts.createTables, opts.dropTables, opts.watch, opts.show, opts.history != "", opts.label != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fs.Usage()
		return nil, errors.New("exactly one of -run-update, -create-tables, -drop-tables, -watch, -show, -history, -label is required")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitError
	}
	log.Debug().Msg(cfg.Summary())

	if err := execute(ctx, opts, cfg, log, stdout); err != nil {
		log.Error().Err(err).Msg("command failed")
		return exitError
	}
	return exitOK
}

func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if opts.configPath != "" {
		cfg, path, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if opts.debug {
		cfg.Logging.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func execute(ctx context.Context, opts *options, cfg *config.Config, log zerolog.Logger, stdout io.Writer) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case opts.createTables:
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
		log.Info().Str("driver", cfg.Database.Driver).Msg("tables created")
		return nil

	case opts.dropTables:
		if err := store.DropSchema(ctx); err != nil {
			return err
		}
		log.Info().Str("driver", cfg.Database.Driver).Msg("tables dropped")
		return nil

	case opts.show:
		svc := service.NewPresenceService(store, nil, service.WithLogger(log))
		rows, err := svc.CurrentState(ctx)
		if err != nil {
			return err
		}
		return printState(stdout, rows, opts.jsonOutput)

	case opts.history != "":
		svc := service.NewPresenceService(store, nil, service.WithLogger(log))
		entries, err := svc.DeviceHistory(ctx, opts.history)
		if err != nil {
			return err
		}
		return printHistory(stdout, entries, opts.jsonOutput)

	case opts.label != "":
		mac, name, ok := strings.Cut(opts.label, "=")
		if !ok {
			return fmt.Errorf("-label wants MAC=NAME, got %q", opts.label)
		}
		svc := service.NewPresenceService(store, nil, service.WithLogger(log))
		return svc.LabelDevice(ctx, mac, name)
	}

	scanner, err := adapter.NewRegistry().New(cfg.Scanner, log)
	if err != nil {
		return err
	}

	if opts.watch {
		bus := service.NewEventBus()
		events := make(chan service.Event, 100)
		bus.Subscribe(events)
		go logTransitions(log, events)

		svc := service.NewPresenceService(store, scanner, service.WithLogger(log), service.WithEventBus(bus))
		return svc.Watch(ctx, cfg.Interval.Duration())
	}

	svc := service.NewPresenceService(store, scanner, service.WithLogger(log))
	_, err = svc.RunPass(ctx)
	return err
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		repo, err := postgres.New(ctx, cfg.Database.URL, cfg.Database.Schema, log)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.DriverSQLite:
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", cfg.Database.Path).Msg("database opened")
		return repo, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", config.ErrInvalidConfig, cfg.Database.Driver)
	}
}

// logTransitions reports device transitions published during watch mode
func logTransitions(log zerolog.Logger, events <-chan service.Event) {
	for event := range events {
		tr, ok := event.Payload.(service.Transition)
		if !ok {
			continue
		}
		log.Info().
			Str("event", string(event.Type)).
			Str("mac", tr.MAC).
			Str("ip", tr.IP).
			Str("name", tr.Name).
			Msg("device transition")
	}
}

func printState(w io.Writer, rows []domain.PresenceRow, asJSON bool) error {
	if asJSON {
		return writeJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IP\tMAC\tSTATUS\tNAME\tSINCE\tLAST SEEN")
	for _, row := range rows {
		name := row.AdvertisedName
		if row.Label != "" {
			name = row.Label
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.IP, row.MAC, row.Status, name,
			row.TimeFrom.Local().Format(time.DateTime), row.TimeTo.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func printHistory(w io.Writer, entries []domain.Entry, asJSON bool) error {
	if asJSON {
		return writeJSON(w, entries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tSTATUS\tIP\tNAME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.TimeFrom.Local().Format(time.DateTime), e.TimeTo.Local().Format(time.DateTime),
			e.Status.Status, e.IP.Value, e.Device.DisplayName())
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
