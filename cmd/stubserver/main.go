// Command stubserver serves GET /data and POST /button-press for the
// dashboard, either from a simulated thermostat or by relaying a real
// controller's firmware API (--upstream).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"thermopanel/internal/config"
	"thermopanel/internal/httpapi"
	"thermopanel/internal/logging"
	"thermopanel/internal/stub"
	"thermopanel/internal/types"
)

const appName = "stubserver"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	addr     string
	logLevel slog.Level
	scenario stub.Scenario
	initial  types.ServerState

	upstream         string
	upstreamInterval time.Duration
	upstreamTimeout  time.Duration

	showVersion bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if opts.showVersion {
		fmt.Printf("%s %s\n", appName, version)
		return
	}

	logger := logging.New(config.Config{AppEnv: "dev", LogLevel: opts.logLevel}, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger, nil); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// parseFlags reads the command line. The scenario file, if any, is loaded
// first; flags given explicitly win over it.
func parseFlags(args []string, output io.Writer) (options, error) {
	def := stub.DefaultState()
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.SetOutput(output)
	var (
		addr        = fs.StringP("addr", "a", ":5000", "Listen address")
		logLevel    = fs.StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
		scenario    = fs.StringP("scenario", "s", "", "YAML scenario file (initial state, step, latency)")
		temperature = fs.Float64("temperature", def.Temperature, "Initial temperature in °C")
		humidity    = fs.Float64("humidity", def.Humidity, "Initial humidity in %")
		target      = fs.Float64("target", def.TargetTemperature, "Initial target temperature in °C")
		running     = fs.Float64("running-time", def.RunningTime, "Initial running time in minutes (200 = indefinitely)")
		step        = fs.Duration("step", time.Second, "Simulation step")
		latency     = fs.Duration("latency", 0, "Fixed delay added to every GET /data")
		jitter      = fs.Duration("jitter", 0, "Random delay up to this added to every GET /data")
		upstream    = fs.StringP("upstream", "u", "", "Relay a controller firmware at this URL instead of simulating")
		upInterval  = fs.Duration("upstream-interval", 250*time.Millisecond, "Refresh period of the upstream reading")
		upTimeout   = fs.Duration("upstream-timeout", 2*time.Second, "Timeout of every upstream request")
		showVersion = fs.BoolP("version", "v", false, "Print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	level, err := config.ParseLogLevel(*logLevel)
	if err != nil {
		return options{}, err
	}

	sc := stub.DefaultScenario()
	if *scenario != "" {
		sc, err = stub.LoadScenario(*scenario)
		if err != nil {
			return options{}, err
		}
	}
	initial := sc.Initial()
	overrideFloat := func(name string, v float64, dst *float64) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	overrideFloat("temperature", *temperature, &initial.Temperature)
	overrideFloat("humidity", *humidity, &initial.Humidity)
	overrideFloat("target", *target, &initial.TargetTemperature)
	overrideFloat("running-time", *running, &initial.RunningTime)
	if fs.Changed("step") {
		sc.Step = *step
	}
	if fs.Changed("latency") {
		sc.Latency = *latency
	}
	if fs.Changed("jitter") {
		sc.Jitter = *jitter
	}
	if err := sc.Validate(); err != nil {
		return options{}, err
	}
	if *upInterval <= 0 || *upTimeout <= 0 {
		return options{}, fmt.Errorf("--upstream-interval and --upstream-timeout must be positive")
	}

	return options{
		addr:             *addr,
		logLevel:         level,
		scenario:         sc,
		initial:          initial,
		upstream:         *upstream,
		upstreamInterval: *upInterval,
		upstreamTimeout:  *upTimeout,
		showVersion:      *showVersion,
	}, nil
}

// run serves until ctx is done. listening, if set, receives the bound
// address once the listener is open.
func run(ctx context.Context, opts options, logger *slog.Logger, listening func(addr string)) error {
	var device stub.Device
	if opts.upstream != "" {
		up, err := stub.NewUpstream(opts.upstream, stub.UpstreamOptions{
			Interval: opts.upstreamInterval,
			Timeout:  opts.upstreamTimeout,
			Logger:   logger.With("component", "upstream"),
		})
		if err != nil {
			return err
		}
		if err := up.Check(ctx); err != nil {
			return err
		}
		go up.Run(ctx)
		device = up
		logger.Info("relaying upstream controller", "upstream", opts.upstream)
	} else {
		thermostat := stub.NewThermostat(opts.initial)
		go thermostat.Run(ctx, opts.scenario.Step)
		device = thermostat
	}

	mux := http.NewServeMux()
	stub.NewHandler(device, logger).
		WithLatency(opts.scenario.Latency, opts.scenario.Jitter).
		RegisterRoutes(mux)
	srv := httpapi.NewServer(opts.addr, mux, logger)

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", opts.addr, err)
	}
	if listening != nil {
		listening(ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
