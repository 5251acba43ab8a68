// Package config collects the settings shared by gcserver and gctool.
package config

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lemmi/glubblog"
	"github.com/lemmi/glubblog/backend"
	"github.com/lemmi/glubblog/backend/fsbackend"
	"github.com/lemmi/glubblog/backend/pgstore"
	"github.com/lemmi/glubblog/backend/sanity"
	"github.com/lemmi/glubblog/cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	BackendSanity   = "sanity"
	BackendFS       = "fs"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend string

	Sanity sanity.Config

	// fs backend
	Prefix string
	Git    bool
	Branch string

	DatabaseURL string
	Migrate     bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Retention bounds how long the page store keeps a page, in memory as
	// well as in redis.
	Retention time.Duration

	Site             string
	Revalidate       time.Duration
	RevalidateSecret string
	Unsafe           bool

	Bind    string
	Network string

	Debug   bool
	LogFile string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v", key, v, err)
	}
	return b
}

func getenvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v", key, v, err)
	}
	return i
}

// FromEnv returns the defaults, overridden by the environment.
func FromEnv() Config {
	return Config{
		Backend: getenv("GLUBBLOG_BACKEND", BackendSanity),
		Sanity: sanity.Config{
			ProjectID:  os.Getenv("SANITY_PROJECT_ID"),
			Dataset:    getenv("SANITY_DATASET", "production"),
			APIVersion: getenv("SANITY_API_VERSION", sanity.DefaultAPIVersion),
			Token:      os.Getenv("SANITY_API_TOKEN"),
			UseCDN:     getenvBool("SANITY_USE_CDN"),
		},
		Prefix:           "../example_page",
		Branch:           "master",
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getenvInt("REDIS_DB"),
		Retention:        24 * time.Hour,
		Revalidate:       glubblog.DefaultRevalidate,
		RevalidateSecret: os.Getenv("REVALIDATE_SECRET"),
		Bind:             "localhost:8080",
		Network:          "tcp",
	}
}

// Flags registers the content and rendering settings.
func (c *Config) Flags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Backend, "backend", c.Backend, `content backend: "sanity", "fs" or "postgres"`)
	fs.StringVar(&c.Sanity.ProjectID, "project", c.Sanity.ProjectID, "sanity project id")
	fs.StringVar(&c.Sanity.Dataset, "dataset", c.Sanity.Dataset, "sanity dataset")
	fs.StringVar(&c.Sanity.APIVersion, "api-version", c.Sanity.APIVersion, "sanity api version")
	fs.BoolVar(&c.Sanity.UseCDN, "cdn", c.Sanity.UseCDN, "query the sanity api cdn")
	fs.StringVar(&c.Prefix, "prefix", c.Prefix, "path to the content root dir (fs backend)")
	fs.BoolVar(&c.Git, "git", c.Git, "prefix is a git repo")
	fs.StringVar(&c.Branch, "branch", c.Branch, "git branch to serve")
	fs.StringVar(&c.DatabaseURL, "database", c.DatabaseURL, "postgres url (postgres backend)")
	fs.BoolVar(&c.Migrate, "migrate", c.Migrate, "apply database migrations on start")
	fs.StringVar(&c.Site, "site", c.Site, "directory with templates/ and static/, defaults to the built-in site")
	fs.DurationVar(&c.Revalidate, "revalidate", c.Revalidate, "time after which pages are rendered again")
	fs.BoolVar(&c.Unsafe, "unsafe", c.Unsafe, "do not sanitize rich-text html")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "set debug output")
	fs.StringVar(&c.LogFile, "logfile", c.LogFile, "write logs to a rotated file instead of stderr")
}

// ServerFlags registers the listener and cache settings.
func (c *Config) ServerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Bind, "bind", c.Bind, "address or path to bind to")
	fs.StringVar(&c.Network, "net", c.Network, `"tcp", "tcp4", "tcp6", "unix" or "unixpacket"`)
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "redis address for a shared page cache")
	fs.DurationVar(&c.Retention, "retention", c.Retention, "how long the page cache keeps rendered pages")
}

// SetupLog applies the debug and log file settings.
func (c Config) SetupLog() io.Closer {
	glubblog.DEBUG = c.Debug
	log.SetFlags(log.Flags() | log.Lshortfile)
	if c.LogFile == "" {
		return nopCloser{}
	}
	l := &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	log.SetOutput(l)
	return l
}

// SiteFS holds the templates and static files.
func (c Config) SiteFS() http.FileSystem {
	if c.Site == "" {
		return glubblog.DefaultSite()
	}
	return http.Dir(c.Site)
}

// Images returns the builder matching the backend's image references.
func (c Config) Images() glubblog.ImageBuilder {
	return glubblog.ImageBuilder{
		ProjectID: c.Sanity.ProjectID,
		Dataset:   c.Sanity.Dataset,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenBackend connects to the configured content backend.
func (c Config) OpenBackend() (backend.Backend, io.Closer, error) {
	switch c.Backend {
	case BackendSanity:
		client, err := sanity.New(c.Sanity)
		if err != nil {
			return nil, nil, err
		}
		return client, nopCloser{}, nil
	case BackendFS:
		if c.Git {
			g, err := fsbackend.NewGit(c.Prefix, c.Branch)
			if err != nil {
				return nil, nil, err
			}
			return g, nopCloser{}, nil
		}
		return fsbackend.New(http.Dir(c.Prefix)), nopCloser{}, nil
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL or --database must be set")
		}
		if c.Migrate {
			if err := pgstore.Migrate(c.DatabaseURL); err != nil {
				return nil, nil, err
			}
		}
		s, err := pgstore.Open(c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, errors.Errorf("unknown backend %q", c.Backend)
}

const pingTimeout = 5 * time.Second

// OpenStore returns the page store, Redis when an address is configured. An
// unreachable Redis is an error.
func (c Config) OpenStore() (cache.Store, io.Closer, error) {
	if c.RedisAddr == "" {
		return cache.NewMemory(c.Retention), nopCloser{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	store := cache.NewRedis(client, c.Retention)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, errors.Wrapf(err, "Cannot reach redis at %q", c.RedisAddr)
	}
	return store, client, nil
}
