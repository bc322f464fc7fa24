// Command rudp-send transfers a single file to a rudp-recv listener over
// UDP, using the Go-Back-N sender state machine in internal/sender.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentora-labs/rudp/internal/config"
	"github.com/sentora-labs/rudp/internal/logging"
	"github.com/sentora-labs/rudp/internal/sender"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.DefaultSenderConfig()

	var configPath string
	flag.StringVar(&configPath, "config", "", "optional YAML config overlay")
	flag.StringVar(&cfg.Host, "host", cfg.Host, "receiver host")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "receiver port")
	flag.StringVar(&cfg.File, "file", "", "path to the file to send (required)")
	flag.StringVar(&cfg.Chunk, "chunk", cfg.Chunk, "chunk size, e.g. 1024 or 4kb")
	windowFlag := flag.Uint("window", uint(cfg.Window), "send window size, in chunks")
	flag.IntVar(&cfg.TimeoutMS, "timeout-ms", cfg.TimeoutMS, "retransmission timeout in milliseconds")
	flag.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "max retries before giving up")
	flag.StringVar(&cfg.Schedule, "schedule", "", "optional cron expression to repeat the transfer")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "debug|info|warn|error")
	flag.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "json|text")
	flag.StringVar(&cfg.Logging.File, "log-file", "", "optional log file path")
	flag.Parse()
	cfg.Window = uint16(*windowFlag)

	if configPath != "" {
		loaded, err := config.LoadSenderConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rudp-send: %v\n", err)
			return sender.ExitIOError
		}
		cfg = *loaded
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "rudp-send: %v\n", err)
		return sender.ExitIOError
	}

	logger, closer := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	runOnce := func(ctx context.Context) (int, error) {
		conn, err := net.Dial("udp4", addr)
		if err != nil {
			return sender.ExitIOError, fmt.Errorf("dialing %s: %w", addr, err)
		}
		defer conn.Close()

		s := sender.New(conn, cfg, logger)
		return s.Send(cfg.File)
	}

	monitor := sender.NewSystemMonitor(logger)
	monitor.Start()
	defer monitor.Stop()

	if cfg.Schedule == "" {
		code, err := runOnce(ctx)
		if err != nil {
			logger.Error("transfer failed", "error", err)
		}
		return code
	}

	sched, err := sender.NewScheduler(cfg.Schedule, logger, func(ctx context.Context) error {
		_, err := runOnce(ctx)
		return err
	})
	if err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return sender.ExitIOError
	}
	sched.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	return sender.ExitSuccess
}
