package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"datalint/internal/cache"
	"datalint/internal/database"
	"datalint/internal/logging"
)

func (a *app) statsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats [cache]",
		Short: "Show cache metadata and image counts per split",
		Long: `Show the metadata of a cache and how many images it holds per split.
The cache argument may be omitted when --dsn names the store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cachePath string
			if len(args) == 1 {
				cachePath = args[0]
			}
			return a.runStats(cmd, cachePath, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func (a *app) openCache(cmd *cobra.Command, cachePath string) (database.Store, error) {
	cfg := a.settings.StoreConfig()
	if cachePath == "" && cfg.DSN == "" {
		return nil, usagef("%s needs a cache path or --dsn", cmd.Name())
	}
	return cache.OpenExisting(cmd.Context(), cachePath, cfg)
}

func closeStore(store database.Store) {
	if err := store.Close(); err != nil {
		logging.Warn("Error closing cache store: %v", err)
	}
}

func (a *app) runStats(cmd *cobra.Command, cachePath string, asJSON bool) error {
	store, err := a.openCache(cmd, cachePath)
	if err != nil {
		return err
	}
	defer closeStore(store)

	info, err := cache.Inspect(cmd.Context(), store)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	m := info.Metadata
	fmt.Fprintf(a.stdout, "Dataset:   %s\n", m.DatasetPath)
	fmt.Fprintf(a.stdout, "Type:      %s\n", m.DatasetType)
	fmt.Fprintf(a.stdout, "Task:      %s\n", m.DatasetTask)
	fmt.Fprintf(a.stdout, "Version:   %s\n", m.Version)
	fmt.Fprintf(a.stdout, "Hash:      %s\n", m.HashAlgorithm)
	fmt.Fprintf(a.stdout, "Created:   %s\n", m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(a.stdout, "Images:    %d\n", info.Total)

	counts := make(map[database.Split]int64, len(info.Splits))
	for _, sc := range info.Splits {
		counts[sc.Split] = sc.Count
	}
	for _, split := range database.Splits {
		if n, ok := counts[split]; ok {
			fmt.Fprintf(a.stdout, "  %-8s %d\n", split, n)
		}
	}
	return nil
}
