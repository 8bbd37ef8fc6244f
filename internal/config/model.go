// internal/config/model.go
//
// Typed configuration model for Forma.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/forma.yaml`                       – primary static file,
//   • `FORMA_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Durations accept Go syntax ("500ms", "1s").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Storage section
//

// Storage selects the key-value backend.  The memory driver needs no DSN;
// sqlite and mysql do.  For mysql the DSN usually carries a `vault:` URI so
// the password stays out of flat files.
type Storage struct {
	Driver string `koanf:"driver" validate:"required,oneof=memory sqlite mysql"`
	DSN    string `koanf:"dsn"    validate:"required_unless=Driver memory"`
	Table  string `koanf:"table"  validate:"omitempty,max=64,sqlident"`
}

//
// Auth section
//

// Auth holds the development account and the timing knobs of the flow.
type Auth struct {
	DevEmail          string        `koanf:"dev_email"          validate:"required,email"`
	DevPassword       string        `koanf:"dev_password"       validate:"required"`
	LoginLatency      time.Duration `koanf:"login_latency"      validate:"gte=0"`
	RegisterLatency   time.Duration `koanf:"register_latency"   validate:"gte=0"`
	DebounceDelay     time.Duration `koanf:"debounce_delay"     validate:"gt=0"`
	ChoreographyDelay time.Duration `koanf:"choreography_delay" validate:"gte=0"`
	MinPasswordLength int           `koanf:"min_password_length" validate:"gte=1"`
	PasswordHashCost  int           `koanf:"password_hash_cost" validate:"omitempty,gte=4,lte=31"`
}

//
// Flows section
//

// Flows bounds the number of concurrent client flows kept in memory.
type Flows struct {
	MaxActive int `koanf:"max_active" validate:"gte=1"`
}

//
// Log section
//

// Log configures the file logger.  Relative paths are resolved against
// Paths.Root.
type Log struct {
	Dir string `koanf:"dir" validate:"required"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (FORMA_ROOT override or the first parent holding
// conf/forma.yaml) so later code can build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP    HTTP    `koanf:"http"`
	Storage Storage `koanf:"storage"`
	Auth    Auth    `koanf:"auth"`
	Flows   Flows   `koanf:"flows"`
	Log     Log     `koanf:"log"`
	Paths   Paths   `koanf:"-"` // not loaded from config files
}

// Defaults returns the configuration used when a key is absent from every
// layer.
func Defaults() Config {
	return Config{
		HTTP: HTTP{ListenAddr: "127.0.0.1:8080"},
		Storage: Storage{
			Driver: "memory",
			Table:  "kv",
		},
		Auth: Auth{
			DevEmail:          "dev@example.com",
			DevPassword:       "devpass",
			LoginLatency:      500 * time.Millisecond,
			RegisterLatency:   500 * time.Millisecond,
			DebounceDelay:     300 * time.Millisecond,
			ChoreographyDelay: 100 * time.Millisecond,
			MinPasswordLength: 5,
		},
		Flows: Flows{MaxActive: 1024},
		Log:   Log{Dir: "logs"},
	}
}
