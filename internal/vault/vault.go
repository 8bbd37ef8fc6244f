// internal/vault/vault.go
//
// Vault client wrapper for Forma.
//
// Context
// -------
//   - Resolves `vault:<mount/path>#<key>` configuration values, chiefly the
//     MySQL storage DSN, so secrets never live in YAML or git history.
//   - Wraps the HashiCorp Vault Go SDK with background token renewal, a
//     KV-v2 helper, and per-key caching.
//   - Header block, section underlines, Oxford commas, two spaces after
//     periods, no m-dash.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, zap.S().Debugf)    // during config load.
//  2. pw,  err := cli.GetKV(ctx, path, key, ttl)     // per vault: value.
//
// Build tags: none.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// RefPrefix marks a configuration string as a Vault reference.
const RefPrefix = "vault:"

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Create once at startup.  Zero value is
// invalid.
type Client struct {
	api   kvReader
	logFn func(string, ...any)
	now   func() time.Time

	cacheMu sync.RWMutex
	cache   map[string]cached // canonical path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// kvReader is the one SDK call GetKV needs.  Tests substitute a map.
type kvReader interface {
	readKV(ctx context.Context, mount, rel string) (map[string]any, error)
}

type sdkReader struct{ api *vault.Client }

func (s sdkReader) readKV(ctx context.Context, mount, rel string) (map[string]any, error) {
	sec, err := s.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// New constructs a Vault client and starts a background token-renewal loop
// bound to ctx.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault-token).
func New(ctx context.Context, logFn func(string, ...any)) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(sdkReader{apiCli}, logFn)
	go c.renewLoop(ctx, apiCli)
	return c, nil
}

func newClient(r kvReader, logFn func(string, ...any)) *Client {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	return &Client{
		api:   r,
		logFn: logFn,
		now:   time.Now,
		cache: make(map[string]cached),
	}
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && c.now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	data, err := c.api.readKV(ctx, mount, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}

	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: c.now().Add(ttl)}
		c.cacheMu.Unlock()
	}

	return sval, nil
}

// ParseRef splits `vault:secret/forma/db#password` into its path and key.
// ok is false when s is not a Vault reference at all; a reference missing
// either half returns ok with an empty part so callers can reject it.
func ParseRef(s string) (path, key string, ok bool) {
	rest, found := strings.CutPrefix(s, RefPrefix)
	if !found {
		return "", "", false
	}
	path, key, _ = strings.Cut(rest, "#")
	return strings.TrimSpace(path), strings.TrimSpace(key), true
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context, api *vault.Client) {
	for ctx.Err() == nil {
		sec, err := api.Auth().Token().RenewSelf(0)
		if err != nil {
			c.logFn("vault: token renew self failed: %v", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.logFn("vault: token is not renewable, sleeping 1h")
			backoff(ctx, time.Hour)
			continue
		}

		watcher, err := api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.logFn("vault: watcher init error: %v", err)
			backoff(ctx, 30*time.Second)
			continue
		}

		c.watch(ctx, watcher)
		backoff(ctx, 15*time.Second)
	}
}

// watch blocks until the watcher stops or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.logFn("vault: token renewal stopped: %v", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.logFn("vault: token renewed, ttl=%ds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	mount, rel, _ = strings.Cut(p, "/")
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
