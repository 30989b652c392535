// Package config loads the immutable application configuration from
// defaults, an optional config file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// ARTISTCOMPARE_SERVER_ADDR for server.addr.
const EnvPrefix = "ARTISTCOMPARE"

// Config is the full application configuration.
type Config struct {
	Spotify  Spotify
	Resolver Resolver
	Server   Server
	Storage  Storage
	Worker   Worker
	Log      Log
}

// Spotify configures the catalog adapter.
type Spotify struct {
	ClientID          string
	ClientSecret      string
	BaseURL           string
	TokenURL          string
	Market            string
	TopTracksLimit    int
	Timeout           time.Duration
	MaxAttempts       int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
}

// Resolver selects how a typed name becomes a catalog artist.
type Resolver struct {
	Strategy      string
	Candidates    int
	MinSimilarity float64
}

// Server configures the HTTP shell.
type Server struct {
	Addr string
}

// Storage configures the comparison history store.
type Storage struct {
	Driver string
	Path   string
}

// Worker sizes the history worker pool.
type Worker struct {
	Count     int
	QueueSize int
}

// Log configures the logger.
type Log struct {
	Level  string
	Format string
}

// HistoryEnabled reports whether comparisons are persisted.
func (c Config) HistoryEnabled() bool {
	return c.Storage.Driver != "none"
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the unprefixed credential names are what the Spotify docs use
	_ = v.BindEnv("spotify.client_id", EnvPrefix+"_SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID")
	_ = v.BindEnv("spotify.client_secret", EnvPrefix+"_SPOTIFY_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("spotify.base_url", "https://api.spotify.com/v1/")
	v.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify.market", "US")
	v.SetDefault("spotify.top_tracks_limit", 10)
	v.SetDefault("spotify.timeout", 30*time.Second)
	v.SetDefault("spotify.max_attempts", 1)
	v.SetDefault("spotify.retry_backoff", 500*time.Millisecond)
	v.SetDefault("spotify.requests_per_second", 10.0)
	v.SetDefault("resolver.strategy", "first")
	v.SetDefault("resolver.candidates", 5)
	v.SetDefault("resolver.min_similarity", 0.8)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "artistcompare.db")
	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"addr":       "server.addr",
	"db":         "storage.path",
	"storage":    "storage.driver",
	"market":     "spotify.market",
	"resolver":   "resolver.strategy",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// BindFlags binds every flag in fs that has an entry in FlagKeys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	for name, key := range FlagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("config: bind flag %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads configuration into an immutable Config. An empty path searches
// the working directory and the home directory for .artistcompare.{yaml,toml,json}.
// A .env file in the working directory is loaded first without overriding
// variables that are already set.
func Load(v *viper.Viper, path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".artistcompare")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", describe(path), err)
		}
	}

	cfg := Config{
		Spotify: Spotify{
			ClientID:          strings.TrimSpace(v.GetString("spotify.client_id")),
			ClientSecret:      strings.TrimSpace(v.GetString("spotify.client_secret")),
			BaseURL:           v.GetString("spotify.base_url"),
			TokenURL:          v.GetString("spotify.token_url"),
			Market:            strings.ToUpper(v.GetString("spotify.market")),
			TopTracksLimit:    v.GetInt("spotify.top_tracks_limit"),
			Timeout:           v.GetDuration("spotify.timeout"),
			MaxAttempts:       v.GetInt("spotify.max_attempts"),
			RetryBackoff:      v.GetDuration("spotify.retry_backoff"),
			RequestsPerSecond: v.GetFloat64("spotify.requests_per_second"),
		},
		Resolver: Resolver{
			Strategy:      strings.ToLower(v.GetString("resolver.strategy")),
			Candidates:    v.GetInt("resolver.candidates"),
			MinSimilarity: v.GetFloat64("resolver.min_similarity"),
		},
		Server: Server{
			Addr: v.GetString("server.addr"),
		},
		Storage: Storage{
			Driver: strings.ToLower(v.GetString("storage.driver")),
			Path:   v.GetString("storage.path"),
		},
		Worker: Worker{
			Count:     v.GetInt("worker.count"),
			QueueSize: v.GetInt("worker.queue_size"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	return cfg, nil
}

func describe(path string) string {
	if path == "" {
		return "config file"
	}
	return path
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		errs = append(errs, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required"))
	}
	if c.Spotify.TopTracksLimit < 1 || c.Spotify.TopTracksLimit > 10 {
		errs = append(errs, fmt.Errorf("spotify.top_tracks_limit must be between 1 and 10, got %d", c.Spotify.TopTracksLimit))
	}
	if c.Spotify.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("spotify.max_attempts must be at least 1, got %d", c.Spotify.MaxAttempts))
	}
	if c.Spotify.Timeout < 0 {
		errs = append(errs, fmt.Errorf("spotify.timeout must not be negative"))
	}
	if c.Spotify.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("spotify.requests_per_second must not be negative"))
	}
	switch c.Resolver.Strategy {
	case "first", "similarity":
	default:
		errs = append(errs, fmt.Errorf("resolver.strategy must be first or similarity, got %q", c.Resolver.Strategy))
	}
	if c.Resolver.MinSimilarity < 0 || c.Resolver.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("resolver.min_similarity must be within [0, 1], got %v", c.Resolver.MinSimilarity))
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be sqlite or none, got %q", c.Storage.Driver))
	}
	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not supported", c.Log.Level))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
