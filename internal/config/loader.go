// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last), on top of the compiled-in `Defaults()`:

  1. Optional `.env` file at `<root>/conf/.env`.
  2. Optional `conf/forma.yaml`.
  3. Environment variables prefixed `FORMA_`, where `__` maps to “.”
     (e.g., `FORMA_AUTH__LOGIN_LATENCY → auth.login_latency`).

After merging, every string value of the form `vault:<mount/path>#<key>`
is swapped for the secret it names.  The tree is then unmarshalled over
the defaults, validated, enriched with the runtime root path, and cached
in an `atomic.Pointer` for lock-free reads.  `Reload()` simply calls
`Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay, vault lookups.
  • ERROR spans: YAML parse, env overlay, vault, unmarshal, validation.
  • INFO  span:  final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/forma.yaml`; this
    lets `go run ./cmd/forma` work from any sub-directory.
  • The Vault client is only dialled when at least one `vault:` value is
    present.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/forma/internal/vault"
)

const (
	envPrefix = "FORMA_"
	yamlName  = "forma.yaml"

	// secretTTL caches each secret for the lifetime of one Load plus reloads
	// within the window.
	secretTTL = 5 * time.Minute
)

var current atomic.Pointer[Config]

// SecretResolver looks up one key of a KV secret.  *vault.Client satisfies
// it.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// Options tune Load.  The zero value discovers the root and dials Vault
// lazily from VAULT_ADDR / VAULT_TOKEN.
type Options struct {
	Root     string         // overrides FORMA_ROOT and discovery
	Resolver SecretResolver // used for `vault:` values when non-nil
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves FORMA_ROOT or climbs directories until conf/forma.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("FORMA_ROOT"); r != "" {
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

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load(ctx context.Context, o Options) (*Config, error) {
	root := o.Root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", yamlName)
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	} else {
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	}

	// Env overrides: FORMA_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, o.Resolver); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if !filepath.IsAbs(cfg.Log.Dir) {
		cfg.Log.Dir = filepath.Join(root, cfg.Log.Dir)
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"storage", cfg.Storage.Driver,
		"max_flows", cfg.Flows.MaxActive,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps FORMA_AUTH__DEV_EMAIL to auth.dev_email.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// resolveSecrets swaps every `vault:` string in k for its secret value.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, r SecretResolver) error {
	for key, val := range k.All() {
		s, ok := val.(string)
		if !ok {
			continue
		}
		path, field, isRef := vault.ParseRef(s)
		if !isRef {
			continue
		}
		if path == "" || field == "" {
			return fmt.Errorf("config %s: malformed vault reference %q", key, s)
		}

		if r == nil {
			cli, err := vault.New(ctx, zap.S().Debugf)
			if err != nil {
				return fmt.Errorf("config %s: %w", key, err)
			}
			r = cli
		}

		secret, err := r.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return err
		}
		zap.S().Debugw("config vault value resolved", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// ErrNotLoaded is returned by Reload before the first successful Load.
var ErrNotLoaded = errors.New("config: not loaded")

func Get() *Config { return current.Load() }

// Reload re-reads every layer from the root of the cached Config.
func Reload(ctx context.Context) error {
	c := current.Load()
	if c == nil {
		return ErrNotLoaded
	}
	_, err := Load(ctx, Options{Root: c.Paths.Root})
	return err
}
