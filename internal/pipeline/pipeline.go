package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"datalint/internal/database"
	"datalint/internal/logging"
	"datalint/internal/metrics"
	"datalint/internal/workers"
)

var errNoRecord = errors.New("processor returned no record")

// Processor turns one file path into a record. An error drops the file.
type Processor interface {
	Process(path string) (*database.ImageRecord, error)
}

// ProcessFunc adapts a function to Processor.
type ProcessFunc func(path string) (*database.ImageRecord, error)

// Process calls f.
func (f ProcessFunc) Process(path string) (*database.ImageRecord, error) { return f(path) }

// Gate holds workers back before each file, e.g. under memory pressure.
// WaitIfPaused returns false when ctx ends while waiting.
type Gate interface {
	WaitIfPaused(ctx context.Context) bool
}

// Config configures the worker pool
type Config struct {
	// Workers is the number of parallel workers (0 = auto based on CPU)
	Workers int
	// ChannelBuffer is the size of the jobs and results channel buffers
	ChannelBuffer int
	// Progress, when set, is called from the collecting goroutine after
	// every result with the number of paths handled so far.
	Progress func(done, total int)
	// Gate, when set, is consulted before every file is processed.
	Gate Gate
}

// DefaultConfig returns a pool sized to the machine.
func DefaultConfig() Config {
	return Config{
		Workers:       workers.Resolve(0),
		ChannelBuffer: 1000,
	}
}

// Stats summarises a run.
type Stats struct {
	Processed int64
	Corrupted int64
	Skipped   int64
}

type fileResult struct {
	record *database.ImageRecord
	path   string
	err    error
}

// Pipeline fans paths out to a fixed pool of workers and collects the
// resulting records. Output order is unspecified.
type Pipeline struct {
	config Config
	proc   Processor

	// Statistics
	processed atomic.Int64
	corrupted atomic.Int64
	skipped   atomic.Int64
}

// New creates a pipeline around proc.
func New(proc Processor, config Config) *Pipeline {
	config.Workers = workers.Resolve(config.Workers)
	if config.ChannelBuffer < 0 {
		config.ChannelBuffer = 0
	}
	return &Pipeline{config: config, proc: proc}
}

// Workers returns the configured pool size.
func (p *Pipeline) Workers() int { return p.config.Workers }

// Run processes every path and returns the records of the files that could
// be read. Files whose processing fails are logged, counted as skipped and
// left out. Cancelling ctx stops the run and returns ctx's error together
// with whatever was collected.
func (p *Pipeline) Run(ctx context.Context, paths []string) ([]database.ImageRecord, error) {
	p.processed.Store(0)
	p.corrupted.Store(0)
	p.skipped.Store(0)

	if len(paths) == 0 {
		return nil, ctx.Err()
	}

	numWorkers := min(p.config.Workers, len(paths))
	logging.Info("Processing %d files with %d workers", len(paths), numWorkers)
	startTime := time.Now()

	metrics.PipelineWorkers.Set(float64(numWorkers))
	defer metrics.PipelineWorkers.Set(0)

	jobs := make(chan string, p.config.ChannelBuffer)
	results := make(chan fileResult, p.config.ChannelBuffer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return p.worker(gctx, i, jobs, results)
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	records := make([]database.ImageRecord, 0, len(paths))
	done := 0
	for result := range results {
		done++
		if result.err != nil {
			logging.Warn("Skipping %s: %v", result.path, result.err)
		} else {
			records = append(records, *result.record)
		}
		if p.config.Progress != nil {
			p.config.Progress(done, len(paths))
		}
	}

	err := g.Wait()

	logging.Info("Processing complete: %d records in %v (corrupted: %d, skipped: %d)",
		len(records), time.Since(startTime), p.corrupted.Load(), p.skipped.Load())

	return records, err
}

// worker processes paths from the jobs channel
func (p *Pipeline) worker(ctx context.Context, id int, jobs <-chan string, results chan<- fileResult) error {
	logging.Debug("Worker %d started", id)

	for path := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.config.Gate != nil && !p.config.Gate.WaitIfPaused(ctx) {
			return ctx.Err()
		}

		result := p.processFile(path)

		select {
		case results <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	logging.Debug("Worker %d finished", id)
	return nil
}

func (p *Pipeline) processFile(path string) fileResult {
	rec, err := p.proc.Process(path)
	switch {
	case err != nil:
		p.skipped.Add(1)
		metrics.ProcessFilesTotal.WithLabelValues("skipped").Inc()
		return fileResult{path: path, err: err}
	case rec == nil:
		p.skipped.Add(1)
		metrics.ProcessFilesTotal.WithLabelValues("skipped").Inc()
		return fileResult{path: path, err: errNoRecord}
	}

	p.processed.Add(1)
	if rec.IsCorrupted {
		p.corrupted.Add(1)
		metrics.ProcessFilesTotal.WithLabelValues("corrupted").Inc()
	} else {
		metrics.ProcessFilesTotal.WithLabelValues("ok").Inc()
	}
	return fileResult{record: rec, path: path}
}

// Stats returns the counters of the current or last run.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Corrupted: p.corrupted.Load(),
		Skipped:   p.skipped.Load(),
	}
}
