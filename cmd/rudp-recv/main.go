// Command rudp-recv listens for inbound Go-Back-N transfers over UDP and
// reconstructs them on disk, using the receiver state machine in
// internal/receiver.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sentora-labs/rudp/internal/config"
	"github.com/sentora-labs/rudp/internal/logging"
	"github.com/sentora-labs/rudp/internal/receiver"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.DefaultReceiverConfig()

	var configPath string
	flag.StringVar(&configPath, "config", "", "optional YAML config overlay")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flag.StringVar(&cfg.OutDir, "outdir", cfg.OutDir, "directory to write received files into")
	windowFlag := flag.Uint("window", uint(cfg.Window), "advertised window size, in chunks")
	flag.StringVar(&cfg.Compress, "compress", cfg.Compress, "none|gzip|zstd")
	flag.StringVar(&cfg.S3.Bucket, "s3-bucket", "", "optional S3 bucket to mirror completed transfers into")
	flag.StringVar(&cfg.S3.Region, "s3-region", "", "S3 region, required when -s3-bucket is set")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "debug|info|warn|error")
	flag.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "json|text")
	flag.StringVar(&cfg.Logging.File, "log-file", "", "optional log file path")
	flag.Parse()
	cfg.Window = uint16(*windowFlag)

	if configPath != "" {
		loaded, err := config.LoadReceiverConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rudp-recv: %v\n", err)
			return 1
		}
		cfg = *loaded
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "rudp-recv: %v\n", err)
		return 1
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "rudp-recv: creating outdir: %v\n", err)
		return 1
	}

	logger, closer := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var s3 *receiver.S3Mirror
	if cfg.S3.Enabled() {
		m, err := receiver.NewS3Mirror(ctx, cfg.S3)
		if err != nil {
			logger.Error("failed to configure s3 mirror, continuing without it", "error", err)
		} else {
			s3 = m
		}
	}

	pc, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		logger.Error("failed to bind listener", "error", err)
		return 1
	}
	defer pc.Close()

	stats := receiver.NewStatsReporter(logger, cfg.OutDir)
	stats.Start()
	defer stats.Stop()

	logger.Info("receiver listening", "port", cfg.Port, "outdir", cfg.OutDir, "compress", cfg.Compress)

	srv := receiver.NewServer(pc, cfg, logger, s3)
	if err := srv.Run(ctx); err != nil {
		logger.Error("receiver exited with error", "error", err)
		return 1
	}
	return 0
}
