// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/panel.yaml`.
  3. Environment variables prefixed `PANEL_`, where `__` maps to “.”
     (e.g., `PANEL_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, string values of the form `vault:<mount>/<path>#<key>` are
replaced by the secret they name.  The tree is then unmarshalled into
strongly-typed structs, defaulted, validated, enriched with the runtime
root path, and cached in an `atomic.Pointer` for lock-free reads.
`Reload()` simply calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, vault references.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/panel.yaml`; this
    lets `go run ./cmd/web` work from any sub-directory.
  • The Vault client is only created when a reference is present.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/vault"
)

const (
	envPrefix = "PANEL_"
	yamlName  = "panel.yaml"
)

var current atomic.Pointer[Config]

// Resolver turns a `vault:` reference into its secret value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, ref string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, ref string) (string, error) { return f(ctx, ref) }

// lazyVault creates the Vault client on first use.
type lazyVault struct {
	once sync.Once
	cli  *vault.Client
	err  error
}

func (l *lazyVault) Resolve(ctx context.Context, ref string) (string, error) {
	l.once.Do(func() { l.cli, l.err = vault.New(context.Background()) })
	if l.err != nil {
		return "", l.err
	}
	return l.cli.Resolve(ctx, ref)
}

var secrets Resolver = &lazyVault{}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves PANEL_ROOT or climbs directories until conf/panel.yaml
// is found.  Falls back to an executable heuristic for the installed layout.
func rootDir() string {
	if r := os.Getenv("PANEL_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", yamlName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves Vault references through
// the default client, validates, and caches Config.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, secrets)
}

// LoadWith is Load with an explicit resolver.
func LoadWith(ctx context.Context, r Resolver) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", yamlName)
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: PANEL_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveRefs(ctx, k, r); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"daemon", cfg.Daemon.Type,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveRefs swaps every `vault:` string in k for its secret.
func resolveRefs(ctx context.Context, k *koanf.Koanf, r Resolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok || !vault.IsRef(s) {
			continue
		}
		if r == nil {
			return fmt.Errorf("config: %s is a vault reference but no resolver is configured", key)
		}
		zap.S().Debugw("config vault reference", "key", key)
		secret, err := r.Resolve(ctx, s)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return err
		}
	}
	return nil
}

// applyDefaults fills optional fields that have a sensible value.
func applyDefaults(c *Config) {
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.SessionTTL == 0 {
		c.HTTP.SessionTTL = 12 * time.Hour
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Daemon.Type == "" {
		c.Daemon.Type = "imscp"
	}
	if c.Daemon.Type == "imscp" && c.Daemon.Addr == "" {
		c.Daemon.Addr = "127.0.0.1:9876"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if !filepath.IsAbs(c.Log.Dir) {
		c.Log.Dir = filepath.Join(c.Paths.Root, c.Log.Dir)
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// DSNWithPassword renders the database DSN with the password filled in.
func (d Database) DSNWithPassword() string { return fmt.Sprintf(d.DSN, d.Password) }

func Get() *Config { return current.Load() }

func Reload(ctx context.Context) error { _, err := Load(ctx); return err }
