package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"datalint/internal/apperr"
	"datalint/internal/config"
	"datalint/internal/logging"
	"datalint/internal/metrics"
	"datalint/internal/startup"
)

// Exit codes returned by Execute.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// app carries state shared by every command of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	settings   *config.Settings

	stdout io.Writer
	stderr io.Writer
}

// skipsSettings lists commands that run without loading the configuration.
var skipsSettings = map[string]bool{
	"version": true,
	"init":    true,
	"help":    true,
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "datalint",
		Short: "Scan image datasets into a metadata cache",
		Long: `datalint walks an image dataset, decodes every image to record its
dimensions and channel count, hashes its content and stores the result in a
SQLite (or MySQL) cache for later lint passes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "config file (default ./datalint.yaml or $HOME/.config/datalint/datalint.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("backend", "", "store backend: sql or gorm")
	pf.String("driver", "", "store driver: sqlite3, sqlite or mysql")
	pf.String("dsn", "", "store DSN; overrides the cache path, required for mysql")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file after the command")

	a.bind(pf.Lookup("log-level"), "log.level")
	a.bind(pf.Lookup("backend"), "store.backend")
	a.bind(pf.Lookup("driver"), "store.driver")
	a.bind(pf.Lookup("dsn"), "store.dsn")
	a.bind(pf.Lookup("metrics-textfile"), "metrics.textfile")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if skipsSettings[cmd.Name()] {
			return nil
		}
		return a.loadSettings()
	}

	root.AddCommand(
		a.createCommand(),
		a.statsCommand(),
		a.lookupCommand(),
		a.versionCommand(),
		a.configCommand(),
	)
	return root
}

// bind maps a flag onto a config key. A flag only wins over the file and
// environment when it was set on the command line.
func (a *app) bind(flag *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func (a *app) loadSettings() error {
	s, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return apperr.New(apperr.KindConfig, "parse log level", "", err)
	}
	logging.SetLevel(level)
	if used := a.v.ConfigFileUsed(); used != "" {
		logging.Debug("Using config file %s", used)
	}
	a.settings = s

	metrics.InitializeMetrics()
	info := startup.GetBuildInfo()
	metrics.SetAppInfo(info.Version, info.Commit, info.GoVersion)
	return nil
}

// writeMetrics dumps the registry when a textfile is configured.
func (a *app) writeMetrics() {
	if a.settings == nil || a.settings.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.settings.Metrics.Textfile); err != nil {
		logging.Warn("Failed to write metrics textfile: %v", err)
		return
	}
	logging.Debug("Metrics written to %s", a.settings.Metrics.Textfile)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{v: config.New(), stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	a.writeMetrics()
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "Interrupted")
		return ExitInterrupted
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var usage usageError
	if errors.As(err, &usage) || apperr.KindOf(err) == apperr.KindConfig {
		return ExitUsage
	}
	return ExitError
}

// usageError marks a bad invocation.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}
