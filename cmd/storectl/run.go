package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/flowmesh/localstore/internal/config"
	"github.com/flowmesh/localstore/internal/logger"
	"github.com/flowmesh/localstore/internal/metrics"
	"github.com/flowmesh/localstore/internal/storage"
	"github.com/flowmesh/localstore/internal/storage/store"
	"github.com/flowmesh/localstore/internal/todos"
	"github.com/flowmesh/localstore/internal/tracing"
	"github.com/flowmesh/localstore/internal/version"
	"github.com/rs/zerolog"
)

const usage = `usage: storectl [flags] <command> [args]

commands:
  put <key> <json> [-ttl-minutes n]   store a JSON value
  get <key>                           print a value
  rm <key>                            remove a key
  clear                               remove every key in the namespace
  info                                print namespace usage
  purge                               remove expired entries
  sweep                               purge on an interval until interrupted
  demo                                store and read back a sample payload
  todo [list|add <text>|toggle <id>|rm <id>]
  version                             print version information`

// errUsage reports a malformed command line
var errUsage = errors.New(usage)

// app carries the opened resources shared by the commands
type app struct {
	cfg       *config.Config
	storage   *storage.Storage
	collector *metrics.Collector
	out       io.Writer
	log       zerolog.Logger
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, rest, err := config.Parse("storectl", args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errUsage
	}

	command, cmdArgs := rest[0], rest[1:]
	if command == "version" {
		fmt.Fprintln(out, version.String())
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser, err := logger.Init(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logCloser.Close()

	provider, err := tracing.NewProvider(cfg.TracingConfig(version.Get().Version))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer provider.Shutdown(context.Background())

	collector := metrics.NewCollector()
	collector.RegisterRuntimeCollectors()
	storeMetrics := metrics.NewStoreMetrics(collector, cfg.Storage.Prefix)

	s, err := storage.NewBuilder().
		WithConfig(cfg.Storage).
		WithObserver(storeMetrics).
		Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build storage: %w", err)
	}
	defer s.Close(context.Background())

	a := &app{
		cfg:       cfg,
		storage:   s,
		collector: collector,
		out:       out,
		log:       logger.WithComponent("storectl"),
	}
	return a.dispatch(ctx, command, cmdArgs)
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "put":
		return a.put(ctx, args)
	case "get":
		return a.get(ctx, args)
	case "rm":
		return a.remove(ctx, args)
	case "clear":
		return a.clear(ctx, args)
	case "info":
		return a.info(ctx, args)
	case "purge":
		return a.purge(ctx, args)
	case "sweep":
		return a.sweep(ctx, args)
	case "demo":
		return a.demo(ctx, args)
	case "todo":
		return a.todo(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n%w", command, errUsage)
	}
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func exactArgs(args []string, n int) error {
	if len(args) != n {
		return errUsage
	}
	return nil
}

func (a *app) put(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	ttlMinutes := fs.Int("ttl-minutes", 0, "Lifetime in minutes (0 never expires)")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs(positional, 2); err != nil {
		return err
	}

	key, raw := positional[0], json.RawMessage(positional[1])
	if !json.Valid(raw) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	opts := store.PutOptions{TTL: store.TTLMinutes(*ttlMinutes)}
	if err := a.storage.Store().Put(ctx, key, raw, opts); err != nil {
		return err
	}
	a.log.Debug().Str("key", key).Dur("ttl", opts.TTL).Msg("Stored value")
	return nil
}

func (a *app) get(ctx context.Context, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}

	value, found, err := a.storage.Store().Get(ctx, args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("key not found: %s", args[0])
	}
	fmt.Fprintln(a.out, string(value))
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	return a.storage.Store().Remove(ctx, args[0])
}

func (a *app) clear(ctx context.Context, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	return a.storage.Store().Clear(ctx)
}

func (a *app) info(ctx context.Context, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}

	info, err := a.storage.Store().Info(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(info)
}

func (a *app) purge(ctx context.Context, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}

	removed, err := a.storage.Store().PurgeExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %d expired entries\n", removed)
	return nil
}

func (a *app) sweep(ctx context.Context, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}

	var server *metrics.Server
	if a.cfg.Metrics.Enabled {
		server = metrics.NewServer(a.cfg.Metrics.Addr, a.cfg.Metrics.Path, a.collector.GetRegistry())
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		a.log.Info().Str("addr", server.Addr()).Msg("Serving metrics")
	}

	sweeper := a.storage.Sweeper()
	if _, err := sweeper.SweepOnce(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Initial sweep failed")
	}
	sweeper.Start(ctx)

	<-ctx.Done()
	sweeper.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop metrics server: %w", err)
		}
	}
	return nil
}

// demoPayload is the sample document written by the demo command
type demoPayload struct {
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Features  []string `json:"features"`
}

func (a *app) demo(ctx context.Context, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}

	engine := a.storage.Store()
	payload := demoPayload{
		Message:   "Hello from localstore!",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Features:  []string{"namespacing", "expiration", "usage reporting"},
	}
	if err := engine.Put(ctx, "demo_data", payload, store.DefaultPutOptions()); err != nil {
		return err
	}

	stored, found, err := store.GetAs[demoPayload](ctx, engine, "demo_data")
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("demo payload was not read back")
	}

	info, err := engine.Info(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(map[string]any{"stored": stored, "info": info})
}

func (a *app) todo(ctx context.Context, args []string) error {
	list, err := todos.New(a.storage.Store())
	if err != nil {
		return err
	}

	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		if err := exactArgs(args, 0); err != nil {
			return err
		}
		items, err := list.List(ctx)
		if err != nil {
			return err
		}
		return a.printJSON(items)
	case "add":
		if err := exactArgs(args, 1); err != nil {
			return err
		}
		item, err := list.Add(ctx, args[0])
		if err != nil {
			return err
		}
		return a.printJSON(item)
	case "toggle":
		if err := exactArgs(args, 1); err != nil {
			return err
		}
		item, err := list.Toggle(ctx, args[0])
		if err != nil {
			return err
		}
		return a.printJSON(item)
	case "rm":
		if err := exactArgs(args, 1); err != nil {
			return err
		}
		return list.Delete(ctx, args[0])
	default:
		return fmt.Errorf("unknown todo command %q\n%w", sub, errUsage)
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
