// Package cmd implements the datalint command line.
//
// Commands:
//
//	datalint create <dataset> <cache>   scan a dataset into a new cache
//	datalint stats [cache]              show metadata and counts per split
//	datalint lookup <cache> [hash]      find an image by content hash
//	datalint config init|show           write or print the configuration
//	datalint version                    print build information
//
// Settings come from flags, DATALINT_* environment variables and an
// optional datalint.yaml; see package config. Execute returns 130 after an
// interrupt, 2 for usage and configuration errors and 1 for anything else.
package cmd
