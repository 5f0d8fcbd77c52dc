package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"datalint/internal/apperr"
	"datalint/internal/cache"
	"datalint/internal/database"
)

func (a *app) lookupCommand() *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "lookup <cache> [hash]",
		Short: "Find a cached image by content hash",
		Long: `Find a cached image by its content hash. With --file the hash is
computed from the given file using the algorithm the cache was built with.`,
		Example: `  datalint lookup cache.db 9f86d081884c7d65
  datalint lookup cache.db --file ./train/cat.jpg`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case file != "" && len(args) != 1:
				return usagef("lookup with --file takes only <cache>")
			case file == "" && len(args) != 2:
				return usagef("lookup needs <cache> and a hash, or --file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openCache(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeStore(store)

			ctx := cmd.Context()
			var (
				rec  *database.ImageRecord
				hash string
			)
			if file != "" {
				rec, hash, err = cache.LookupFile(ctx, store, file)
			} else {
				hash = args[1]
				rec, err = store.FindByHash(ctx, hash)
			}
			if err != nil {
				return err
			}
			if rec == nil {
				return apperr.NotFound("lookup", hash, fmt.Errorf("no image with hash %s", hash))
			}
			return a.printRecord(rec, asJSON)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "hash this file and look it up")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func (a *app) printRecord(rec *database.ImageRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	w, h, c := rec.Dimensions()
	fmt.Fprintf(a.stdout, "Path:       %s\n", rec.Location())
	fmt.Fprintf(a.stdout, "Split:      %s\n", rec.Split)
	fmt.Fprintf(a.stdout, "Hash:       %s\n", rec.FileHash)
	fmt.Fprintf(a.stdout, "Size:       %d bytes\n", rec.FileSize)
	if rec.IsCorrupted {
		fmt.Fprintln(a.stdout, "Corrupted:  yes")
		return nil
	}
	fmt.Fprintf(a.stdout, "Dimensions: %dx%d, %d channel(s)\n", w, h, c)
	return nil
}
