package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeResolver map[string]string

func (f fakeResolver) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", yamlName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoad_DefaultsWithoutYAML(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if cfg.Auth.LoginLatency != def.Auth.LoginLatency || cfg.Auth.DebounceDelay != 300*time.Millisecond {
		t.Fatalf("defaults not applied: %+v", cfg.Auth)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Log.Dir != filepath.Join(root, "logs") {
		t.Fatalf("log dir = %q", cfg.Log.Dir)
	}
	if Get() != cfg {
		t.Fatalf("Get did not return cached config")
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	root := writeYAML(t, `
http:
  listen_addr: "0.0.0.0:9000"
auth:
  login_latency: 750ms
  min_password_length: 6
flows:
  max_active: 10
`)
	t.Setenv("FORMA_AUTH__MIN_PASSWORD_LENGTH", "8")
	t.Setenv("FORMA_AUTH__DEV_EMAIL", "qa@example.com")

	cfg, err := Load(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listen_addr = %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Auth.LoginLatency != 750*time.Millisecond {
		t.Fatalf("login_latency = %v", cfg.Auth.LoginLatency)
	}
	if cfg.Auth.MinPasswordLength != 8 {
		t.Fatalf("env should override yaml, got %d", cfg.Auth.MinPasswordLength)
	}
	if cfg.Auth.DevEmail != "qa@example.com" {
		t.Fatalf("dev_email = %q", cfg.Auth.DevEmail)
	}
	if cfg.Auth.RegisterLatency != 500*time.Millisecond {
		t.Fatalf("unset key lost its default: %v", cfg.Auth.RegisterLatency)
	}
}

func TestLoad_ResolvesVaultValues(t *testing.T) {
	root := writeYAML(t, `
storage:
  driver: mysql
  dsn: "vault:secret/forma/db#dsn"
`)
	r := fakeResolver{"secret/forma/db#dsn": "forma:pw@tcp(db:3306)/forma"}

	cfg, err := Load(context.Background(), Options{Root: root, Resolver: r})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DSN != "forma:pw@tcp(db:3306)/forma" {
		t.Fatalf("dsn = %q", cfg.Storage.DSN)
	}
}

func TestLoad_VaultErrors(t *testing.T) {
	cases := map[string]string{
		"missing secret": "vault:secret/forma/none#dsn",
		"malformed":      "vault:secret/forma/db",
	}
	for name, ref := range cases {
		t.Run(name, func(t *testing.T) {
			root := writeYAML(t, "storage:\n  driver: mysql\n  dsn: \""+ref+"\"\n")
			_, err := Load(context.Background(), Options{Root: root, Resolver: fakeResolver{}})
			if err == nil {
				t.Fatalf("expected error for %q", ref)
			}
		})
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"unknown driver":   "storage:\n  driver: redis\n",
		"sqlite needs dsn": "storage:\n  driver: sqlite\n",
		"bad table":        "storage:\n  table: \"kv; drop\"\n",
		"bad email":        "auth:\n  dev_email: nope\n",
		"zero flows":       "flows:\n  max_active: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			root := writeYAML(t, body)
			_, err := Load(context.Background(), Options{Root: root})
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.HasPrefix(err.Error(), "config:") {
				t.Fatalf("unexpected error shape: %v", err)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("FORMA_HTTP__LISTEN_ADDR"); got != "http.listen_addr" {
		t.Fatalf("envKey = %q", got)
	}
}

func TestReload(t *testing.T) {
	root := writeYAML(t, "flows:\n  max_active: 3\n")
	if _, err := Load(context.Background(), Options{Root: root}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", yamlName), []byte("flows:\n  max_active: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if Get().Flows.MaxActive != 4 {
		t.Fatalf("max_active = %d after reload", Get().Flows.MaxActive)
	}
}
