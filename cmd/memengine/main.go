// Command memengine is a thin demo CLI for the session memory engine,
// grounded in the teacher's cmd/hector: a kong.CLI struct with one subcommand
// per mode, global log flags parsed before any subcommand runs. Concrete
// transport (the HTTP surface itself) lives outside pkg/engine, matching
// spec.md §6.2's "concrete transport is outside the core".
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/jidoka-ai/memengine/internal/engineconfig"
	"github.com/jidoka-ai/memengine/internal/httpapi"
	"github.com/jidoka-ai/memengine/internal/metrics"
	"github.com/jidoka-ai/memengine/internal/obslog"
	"github.com/jidoka-ai/memengine/pkg/engine"
	"github.com/jidoka-ai/memengine/pkg/idgen"
	"github.com/jidoka-ai/memengine/pkg/ltm"
	"github.com/jidoka-ai/memengine/pkg/ltmpg"
	"github.com/jidoka-ai/memengine/pkg/promotion"
)

// CLI is the top-level command set.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the demo HTTP server."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogPretty bool   `help:"Use zerolog's human-readable console writer instead of JSON."`
}

// VersionCmd prints build version information.
type VersionCmd struct{}

// Run implements the version command.
func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Println("memengine dev")
	return nil
}

// ServeCmd starts the demo HTTP server.
type ServeCmd struct {
	Config   string        `short:"c" help:"Path to engine config YAML. Empty means built-in defaults." type:"path"`
	Addr     string        `help:"Address to listen on." default:":8080"`
	Postgres string        `help:"Postgres DSN for the remote LTM adapter. Empty means the in-memory store." placeholder:"DSN"`
	Metrics  bool          `help:"Enable Prometheus metrics at /metrics."`
	Interval time.Duration `name:"promote-interval" help:"Periodic promotion sweep interval. Zero disables the ticker." default:"30s"`
	Mode     string        `help:"Promotion mode the periodic ticker runs (implicit, explicit)." default:"implicit"`
}

// Run wires config, logging, metrics, the LTM adapter, the engine, and the
// HTTP server together, then blocks until a shutdown signal arrives.
func (c *ServeCmd) Run(cli *CLI) error {
	log := obslog.New(obslog.Options{Level: cli.LogLevel, Pretty: cli.LogPretty})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	opts := engineconfig.Defaults()
	if c.Config != "" {
		var err error
		opts, err = engineconfig.Load(engineconfig.LoaderOptions{Type: engineconfig.SourceFile, Path: c.Config})
		if err != nil {
			return fmt.Errorf("memengine: load config: %w", err)
		}
	}

	m, err := metrics.New(&metrics.Config{Enabled: c.Metrics})
	if err != nil {
		return fmt.Errorf("memengine: init metrics: %w", err)
	}

	adapter, closeAdapter, err := c.buildAdapter(ctx, log, m)
	if err != nil {
		return err
	}
	if closeAdapter != nil {
		defer closeAdapter()
	}

	eng := engine.New(adapter, idgen.UUID{}, engine.Config{
		STM:       opts.STMConfig(),
		Promotion: opts.Criteria(),
		Graph:     ltm.GraphLongTermContext,
	}, log)
	eng.SetMetrics(m)

	if err := eng.EnsureGraphs(ctx, opts.Graphs()); err != nil {
		return fmt.Errorf("memengine: ensure graphs: %w", err)
	}

	mode := promotion.ModeImplicit
	if c.Mode == "explicit" {
		mode = promotion.ModeExplicit
	}
	if c.Interval > 0 {
		ticker := promotion.NewTicker(c.Interval, eng.Registry(), eng.PromoteFunc(mode), log)
		go ticker.Start(ctx)
		defer ticker.Stop()
	}

	srv := httpapi.New(eng, m, log)
	httpSrv := &http.Server{Addr: c.Addr, Handler: srv}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", c.Addr).Bool("metrics", c.Metrics).Msg("memengine demo server ready")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("memengine: serve: %w", err)
	}
	return nil
}

// buildAdapter returns the configured LTM adapter: Postgres-backed when
// --postgres is set, the in-memory store otherwise. m is wired into the
// adapter so Persist calls are recorded; m may be nil.
func (c *ServeCmd) buildAdapter(ctx context.Context, log zerolog.Logger, m *metrics.Metrics) (ltm.Adapter, func(), error) {
	if c.Postgres == "" {
		store := ltm.NewStore(log)
		store.SetMetrics(m)
		return store, nil, nil
	}
	pgAdapter, err := ltmpg.Connect(ctx, c.Postgres, log)
	if err != nil {
		return nil, nil, fmt.Errorf("memengine: connect postgres: %w", err)
	}
	pgAdapter.SetMetrics(m)
	return pgAdapter, pgAdapter.Close, nil
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("memengine"),
		kong.Description("Session memory engine demo CLI"),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}
