package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"datalint/internal/apperr"
	"datalint/internal/database"
	"datalint/internal/hashing"
	"datalint/internal/imagetypes"
	"datalint/internal/startup"
)

// EnvPrefix prefixes every environment override, e.g. DATALINT_STORE_DSN.
const EnvPrefix = "DATALINT"

// FileName is the configuration file searched for when none is given.
const FileName = "datalint.yaml"

// Settings is the complete tool configuration.
type Settings struct {
	Scan    ScanSettings    `mapstructure:"scan" yaml:"scan"`
	Hash    HashSettings    `mapstructure:"hash" yaml:"hash"`
	Decode  DecodeSettings  `mapstructure:"decode" yaml:"decode"`
	Store   StoreSettings   `mapstructure:"store" yaml:"store"`
	Metrics MetricsSettings `mapstructure:"metrics" yaml:"metrics"`
	Log     LogSettings     `mapstructure:"log" yaml:"log"`
}

// ScanSettings controls file discovery and the worker pool.
type ScanSettings struct {
	Extensions []string `mapstructure:"extensions" yaml:"extensions" validate:"required,min=1,dive,required,max=16"`
	SkipHidden bool     `mapstructure:"skip_hidden" yaml:"skip_hidden"`
	// Workers is the pool size; 0 sizes it from GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=1024"`
}

// HashSettings selects the content hash.
type HashSettings struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm" validate:"oneof=xxh64 sha256 blake2b"`
}

// DecodeSettings controls the decoder chain.
type DecodeSettings struct {
	UseVips bool `mapstructure:"use_vips" yaml:"use_vips"`
}

// StoreSettings selects and parameterises the cache store.
type StoreSettings struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=sql gorm"`
	Driver  string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite3 sqlite mysql"`
	// DSN overrides the cache path argument; required for mysql.
	DSN       string `mapstructure:"dsn" yaml:"dsn"`
	Dedup     string `mapstructure:"dedup" yaml:"dedup" validate:"oneof=allow unique"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=1,lte=1000000"`
}

// MetricsSettings controls the Prometheus textfile dump.
type MetricsSettings struct {
	// Textfile, when set, receives the metrics after every command.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// LogSettings controls console logging.
type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	return Settings{
		Scan: ScanSettings{
			Extensions: append([]string(nil), imagetypes.DefaultExtensions...),
			SkipHidden: false,
			Workers:    0,
		},
		Hash:   HashSettings{Algorithm: string(hashing.Default)},
		Decode: DecodeSettings{UseVips: false},
		Store: StoreSettings{
			Backend:   string(database.BackendSQL),
			Driver:    string(database.DriverSQLite3),
			Dedup:     string(database.DedupAllow),
			BatchSize: 10000,
		},
		Log: LogSettings{Level: "info"},
	}
}

// setDefaults registers every key with v so that environment overrides
// apply to keys absent from the config file.
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.skip_hidden", d.Scan.SkipHidden)
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("hash.algorithm", d.Hash.Algorithm)
	v.SetDefault("decode.use_vips", d.Decode.UseVips)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.dedup", d.Store.Dedup)
	v.SetDefault("store.batch_size", d.Store.BatchSize)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("log.level", d.Log.Level)
}

// New returns a viper instance with defaults and environment binding in
// place. Command-line flags are bound to it by the caller.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and returns the validated
// settings. With configFile empty, ./datalint.yaml and
// $HOME/.config/datalint/datalint.yaml are tried and may be absent; an
// explicit configFile must exist.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "datalint"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, apperr.New(apperr.KindConfig, "read config", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, apperr.New(apperr.KindConfig, "decode config", v.ConfigFileUsed(), err)
	}

	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// normalize folds case and trims tokens before validation.
func (s *Settings) normalize() {
	exts := make([]string, 0, len(s.Scan.Extensions))
	for _, e := range s.Scan.Extensions {
		// A single env value may carry a comma separated list.
		for _, part := range strings.Split(e, ",") {
			if n := imagetypes.Normalize(part); n != "" {
				exts = append(exts, n)
			}
		}
	}
	s.Scan.Extensions = exts

	s.Hash.Algorithm = strings.ToLower(strings.TrimSpace(s.Hash.Algorithm))
	s.Store.Backend = strings.ToLower(strings.TrimSpace(s.Store.Backend))
	s.Store.Driver = strings.ToLower(strings.TrimSpace(s.Store.Driver))
	s.Store.Dedup = strings.ToLower(strings.TrimSpace(s.Store.Dedup))
	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
}

// ExtensionSet returns the configured extension allow-list.
func (s *Settings) ExtensionSet() imagetypes.ExtensionSet {
	return imagetypes.New(s.Scan.Extensions...)
}

// HashAlgorithm returns the configured hash. Settings are validated, so an
// unknown name cannot occur.
func (s *Settings) HashAlgorithm() hashing.Algorithm {
	return hashing.Algorithm(s.Hash.Algorithm)
}

// StoreConfig returns the store configuration. An empty DSN is filled from
// the cache path later.
func (s *Settings) StoreConfig() database.Config {
	return database.Config{
		Backend: database.Backend(s.Store.Backend),
		Driver:  database.Driver(s.Store.Driver),
		DSN:     s.Store.DSN,
		Dedup:   database.DedupPolicy(s.Store.Dedup),
	}
}

// Summary lists the settings for the startup log. The DSN is masked.
func (s *Settings) Summary() []startup.Setting {
	return []startup.Setting{
		{Key: "scan.extensions", Value: strings.Join(s.Scan.Extensions, ",")},
		{Key: "scan.skip_hidden", Value: s.Scan.SkipHidden},
		{Key: "scan.workers", Value: workersLabel(s.Scan.Workers)},
		{Key: "hash.algorithm", Value: s.Hash.Algorithm},
		{Key: "decode.use_vips", Value: s.Decode.UseVips},
		{Key: "store.backend", Value: s.Store.Backend},
		{Key: "store.driver", Value: s.Store.Driver},
		{Key: "store.dsn", Value: MaskDSN(s.Store.DSN)},
		{Key: "store.dedup", Value: s.Store.Dedup},
		{Key: "store.batch_size", Value: s.Store.BatchSize},
		{Key: "metrics.textfile", Value: s.Metrics.Textfile},
	}
}

func workersLabel(n int) string {
	if n == 0 {
		return "auto"
	}
	return fmt.Sprint(n)
}

// MaskDSN hides the password of a user:password@... DSN.
func MaskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	creds := dsn[:at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return dsn
	}
	return creds[:colon] + ":****" + dsn[at:]
}
