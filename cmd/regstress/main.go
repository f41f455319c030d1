// Command regstress drives a hub of interception registries under concurrent load, and checks that every dispatch saw the handlers it should have.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saylorsolutions/intercept/bus"
	"github.com/saylorsolutions/intercept/events"
	"github.com/saylorsolutions/intercept/internal/logx"
	"github.com/saylorsolutions/intercept/metrics"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const usage = `regstress subscribes counting handlers to a set of buses, then dispatches events from concurrent workers.

USAGE:
regstress [FLAGS]

Settings are taken from defaults, then the --config file, then REGSTRESS_* environment variables, then flags.

FLAGS
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}
	handler, err := logx.NewHandler(stderr, cfg.LogFormat, cfg.Level())
	if err != nil {
		return err
	}
	if len(cfg.LogFile) > 0 {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		fileHandler, err := logx.NewHandler(f, logx.FormatJSON, cfg.Level())
		if err != nil {
			return err
		}
		handler = logx.Fanout(handler, fileHandler)
	}
	log := slog.New(handler)

	var (
		collector = metrics.NewCollector("regstress")
		promReg   = prometheus.NewRegistry()
	)
	promReg.MustRegister(collector)
	hub := bus.NewHub(log,
		events.WithDispatchPolicy(cfg.DispatchPolicy()),
		events.WithObserver(collector),
	)
	defer func() {
		_ = hub.Close()
	}()

	group, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()
	if len(cfg.MetricsAddr) > 0 {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listening for metrics: %w", err)
		}
		log.Info("Serving metrics", "addr", ln.Addr().String())
		group.Go(func() error {
			return serveMetrics(serveCtx, ln, promReg)
		})
	}

	var report Report
	group.Go(func() error {
		defer stopServing()
		var runErr error
		report, runErr = Run(gctx, cfg, hub, log)
		if runErr != nil {
			return runErr
		}
		if len(cfg.MetricsAddr) > 0 && cfg.Linger > 0 {
			log.Info("Run complete, lingering for metrics scrapes", "linger", cfg.Linger)
			select {
			case <-gctx.Done():
			case <-time.After(cfg.Linger):
			}
		}
		return nil
	})
	err = group.Wait()
	report.Print(stdout)
	return err
}

// loadConfig resolves settings in order of precedence: defaults, config file, environment, flags.
// Flags are parsed twice so that --config is known before the file is read, and explicit flags still win over the file and environment.
func loadConfig(args []string, stderr io.Writer) (Config, error) {
	cfg := DefaultConfig()
	flags, configFile := newFlagSet(&cfg, stderr)
	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	if help, _ := flags.GetBool("help"); help {
		flags.Usage()
		return cfg, flag.ErrHelp
	}

	cfg = DefaultConfig()
	if len(*configFile) > 0 {
		if err := cfg.LoadFile(*configFile); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	flags, _ = newFlagSet(&cfg, stderr)
	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config, stderr io.Writer) (*flag.FlagSet, *string) {
	flags := flag.NewFlagSet("regstress", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.BoolP("help", "h", false, "Prints this usage information")
	configFile := flags.StringP("config", "c", "", "YAML file with settings")
	cfg.BindFlags(flags)
	flags.Usage = func() {
		_, _ = fmt.Fprint(stderr, usage+flags.FlagUsages())
	}
	return flags, configFile
}
