// Command psbroker runs the line-oriented pub/sub broker: it accepts
// TCP connections, routes sub/unsub/pub commands against a topic
// table, and reports statistics on SIGHUP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	_ "go.uber.org/automaxprocs"

	"psbroker/internal/config"
	"psbroker/internal/gate"
	"psbroker/internal/logging"
	"psbroker/internal/metrics"
	"psbroker/internal/resource"
	"psbroker/internal/stats"
	"psbroker/internal/topic"
	"psbroker/internal/transport"
)

const (
	exitOK            = 0
	exitInvalidFormat = 1
	exitConnectionErr = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	launch, err := config.ParseLaunch(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, config.Usage)
		return exitInvalidFormat
	}
	ambient := config.LoadAmbient()

	logger, err := logging.New(ambient.LogLevel)
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync() //nolint:errcheck

	table := topic.New()
	st := stats.New()
	g := gate.New(launch.Connections)

	registry := metrics.NewRegistry()

	listener := transport.New(table, st, g, logger)
	port, err := listener.Bind(launch.Port, launch.Connections)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psbroker: unable to open socket for listening")
		return exitConnectionErr
	}

	fmt.Fprintf(os.Stderr, "%d\n", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampler := resource.New(registry, ambient.SampleInterval, logger)
	go sampler.Run(ctx)

	go serveMetrics(ctx, ambient, registry, logger)

	worker := stats.NewWorker(st, os.Stderr)
	worker.OnSnapshot(registry.MirrorSnapshot)
	trigger := make(chan struct{}, 1)
	go forwardSignal(ctx, trigger)
	go worker.Run(trigger)

	listener.Serve()
	return exitOK
}

// forwardSignal translates the process-level SIGHUP trigger into the
// stats worker's struct{} channel, masking it everywhere else: only
// this goroutine and the stats worker ever observe it.
func forwardSignal(ctx context.Context, trigger chan<- struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			select {
			case trigger <- struct{}{}:
			default:
				// A report is already pending; signals received
				// while one is in flight are coalesced.
			}
		}
	}
}

func serveMetrics(ctx context.Context, ambient config.Ambient, registry *metrics.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle(ambient.MetricsPath, registry.Handler())

	srv := &http.Server{Addr: ambient.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}
