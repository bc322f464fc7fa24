package receiver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
)

// StatsReporter periodically logs disk and load figures for the receiver
// process, replacing the teacher's raw syscall.Statfs PING payload with
// gopsutil's portable equivalents; this is push-only logging since the
// protocol defines no control frame to carry it back to a peer (§4.D.1).
type StatsReporter struct {
	logger  *slog.Logger
	outDir  string
	close   chan struct{}
	wg      sync.WaitGroup
	interval time.Duration
}

// NewStatsReporter builds a reporter that samples disk usage for outDir
// every 15 seconds.
func NewStatsReporter(logger *slog.Logger, outDir string) *StatsReporter {
	return &StatsReporter{
		logger:   logger.With("component", "stats_reporter"),
		outDir:   outDir,
		close:    make(chan struct{}),
		interval: 15 * time.Second,
	}
}

// Start begins periodic sampling in a background goroutine.
func (r *StatsReporter) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop stops the reporter and waits for the background goroutine to exit.
func (r *StatsReporter) Stop() {
	close(r.close)
	r.wg.Wait()
}

func (r *StatsReporter) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sample()
	for {
		select {
		case <-r.close:
			return
		case <-ticker.C:
			r.sample()
		}
	}
}

func (r *StatsReporter) sample() {
	var diskFree uint64
	if d, err := disk.Usage(r.outDir); err == nil {
		diskFree = d.Free
	} else {
		r.logger.Debug("failed to collect disk stats", "error", err)
	}

	var load1 float64
	if l, err := load.Avg(); err == nil {
		load1 = l.Load1
	} else {
		r.logger.Debug("failed to collect load stats", "error", err)
	}

	r.logger.Info("stats", "disk_free_bytes", diskFree, "load1", load1)
}
