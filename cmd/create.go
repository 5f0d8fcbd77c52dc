package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"datalint/internal/cache"
	"datalint/internal/logging"
	"datalint/internal/memory"
	"datalint/internal/processor"
	"datalint/internal/scanner"
	"datalint/internal/startup"
	"datalint/internal/workers"
)

type createFlags struct {
	datasetType string
	datasetTask string
	overwrite   bool
	noProgress  bool
	quiet       bool
}

func (a *app) createCommand() *cobra.Command {
	var f createFlags

	cmd := &cobra.Command{
		Use:   "create <dataset> <cache>",
		Short: "Scan a dataset and write its image metadata cache",
		Long: `Scan every image under <dataset>, record its split, dimensions, channel
count and content hash, and write the records to the cache at <cache>.

The split is inferred from the directory holding each image: exactly one of
"train", "val" or "test" must appear in it, ignoring case and anywhere in the
name ("validation" counts as val). No match or several matches give
"unknown". Files that fail to decode are kept and flagged as corrupted.`,
		Example: `  datalint create ./coco128 ./coco128.db --type yolo --task detect
  datalint create ./data cache.db --overwrite --workers 8 --hash sha256`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usagef("create needs <dataset> and <cache>, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCreate(cmd, args[0], args[1], f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.datasetType, "type", cache.Unknown, "dataset type recorded in the cache (yolo, coco, voc, imagefolder)")
	fl.StringVar(&f.datasetTask, "task", cache.Unknown, "dataset task recorded in the cache (detect, segment, pose, classify)")
	fl.BoolVar(&f.overwrite, "overwrite", false, "drop and rebuild an existing cache")
	fl.BoolVar(&f.noProgress, "no-progress", false, "disable the progress bar")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "skip the banner and configuration summary")

	fl.Int("workers", 0, "decode workers (0 sizes the pool from GOMAXPROCS)")
	fl.Int("batch-size", 0, "records per insert transaction (default 10000)")
	fl.String("dedup", "", "duplicate content hashes: allow or unique")
	fl.String("hash", "", "content hash: xxh64, sha256 or blake2b")
	fl.Bool("use-vips", false, "fall back to libvips for images Go cannot decode")
	fl.Bool("skip-hidden", false, "skip dot files and dot directories")
	fl.StringSlice("extensions", nil, "image extensions to scan (default jpg,jpeg,png,...)")

	a.bind(fl.Lookup("workers"), "scan.workers")
	a.bind(fl.Lookup("batch-size"), "store.batch_size")
	a.bind(fl.Lookup("dedup"), "store.dedup")
	a.bind(fl.Lookup("hash"), "hash.algorithm")
	a.bind(fl.Lookup("use-vips"), "decode.use_vips")
	a.bind(fl.Lookup("skip-hidden"), "scan.skip_hidden")
	a.bind(fl.Lookup("extensions"), "scan.extensions")

	return cmd
}

func (a *app) runCreate(cmd *cobra.Command, datasetPath, cachePath string, f createFlags) error {
	ctx := cmd.Context()
	s := a.settings

	if !f.quiet {
		startup.LogStartup()
		startup.LogSettings(s.Summary())
	}

	memory.ConfigureFromEnv()
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	if s.Decode.UseVips {
		if err := processor.InitVips(workers.Resolve(s.Scan.Workers)); err != nil {
			logging.Warn("libvips unavailable: %v", err)
		}
		defer processor.ShutdownVips()
	}
	startup.LogVipsInit(s.Decode.UseVips, processor.IsVipsAvailable())

	progress := newProgress(a.stderr, !f.noProgress)
	logging.Info("Scanning %s", datasetPath)

	res, err := cache.CreateCache(ctx, cache.Options{
		CachePath:   cachePath,
		DatasetPath: datasetPath,
		DatasetType: f.datasetType,
		DatasetTask: f.datasetTask,
		Store:       s.StoreConfig(),
		Scan: scanner.Options{
			Extensions: s.ExtensionSet(),
			SkipHidden: s.Scan.SkipHidden,
		},
		Hash:      s.HashAlgorithm(),
		UseVips:   s.Decode.UseVips,
		Workers:   s.Scan.Workers,
		BatchSize: s.Store.BatchSize,
		Overwrite: f.overwrite,
		Progress:  progress.update,
		Gate:      monitor,
	})
	progress.finish()
	if err != nil {
		return err
	}

	startup.LogScanComplete(startup.ScanSummary{
		DatasetPath: datasetPath,
		CachePath:   cachePath,
		Discovered:  res.ImageCount,
		Ignored:     res.Ignored,
		Skipped:     res.SkippedFiles,
		Corrupted:   res.Corrupted,
		Persisted:   res.Persisted,
		RowErrors:   len(res.RowErrors),
		Batches:     res.Batches,
		Duration:    res.Duration,
	})

	fmt.Fprintf(a.stdout, "cached %d images (%d persisted, %d corrupted) in %s\n",
		res.ImageCount, res.Persisted, res.Corrupted, cachePath)
	return nil
}
