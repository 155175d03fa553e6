// internal/config/model.go
//
// Typed configuration model for the panel service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/panel.yaml`                       – primary static file,
//   • `PANEL_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Durations are strings in YAML ("5s", "10m") and decoded by koanf.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	TrustProxy   bool          `koanf:"trust_proxy"`
	SessionKey   string        `koanf:"session_key"   validate:"required,min=32"`
	SessionTTL   time.Duration `koanf:"session_ttl"   validate:"gte=0"`
	CSRFKey      string        `koanf:"csrf_key"      validate:"required,min=32"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The template is kept in YAML so operators can tweak host, port, or flags
// without touching Vault.  It carries one `%s` verb where the password goes;
// the password itself normally comes from Vault.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required,dsn_template"`
	Password string `koanf:"password" validate:"required"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

//
// Daemon section
//

// Daemon describes how the provisioning daemon is signalled.
type Daemon struct {
	Type        string        `koanf:"type"         validate:"oneof=imscp none"`
	Addr        string        `koanf:"addr"         validate:"required_if=Type imscp"`
	Version     string        `koanf:"version"`
	DialTimeout time.Duration `koanf:"dial_timeout" validate:"gte=0"`
	IOTimeout   time.Duration `koanf:"io_timeout"   validate:"gte=0"`
}

//
// Queue section
//

// Queue tunes the daemon task dispatcher.  Zero values take the
// dispatcher's defaults.
type Queue struct {
	PollInterval  time.Duration `koanf:"poll_interval"  validate:"gte=0"`
	Lease         time.Duration `koanf:"lease"          validate:"gte=0"`
	MaxAttempts   int           `koanf:"max_attempts"   validate:"gte=0"`
	BaseBackoff   time.Duration `koanf:"base_backoff"   validate:"gte=0"`
	MaxBackoff    time.Duration `koanf:"max_backoff"    validate:"gte=0"`
	SettleTimeout time.Duration `koanf:"settle_timeout" validate:"gte=0"`
	BatchSize     int           `koanf:"batch_size"     validate:"gte=0,lte=1000"`
	Retention     time.Duration `koanf:"retention"      validate:"gte=0"`
}

//
// Panel section
//

// Panel carries behaviour switches shared by every account.
type Panel struct {
	HardMailSuspension bool `koanf:"hard_mail_suspension"`

	// ProtectDefaultMail refuses deletion of the forwards created with
	// every domain (abuse@, hostmaster@, postmaster@, webmaster@).
	ProtectDefaultMail bool `koanf:"protect_default_mail"`

	// CountDefaultMail includes those forwards in reseller mail totals.
	CountDefaultMail bool `koanf:"count_default_mail"`
}

//
// Log and GeoIP sections
//

// Log selects the log directory and level.  A relative Dir is resolved
// against Paths.Root.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// GeoIP points at an optional GeoLite2 database for audit lines.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // PANEL_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Daemon   Daemon   `koanf:"daemon"`
	Queue    Queue    `koanf:"queue"`
	Panel    Panel    `koanf:"panel"`
	Log      Log      `koanf:"log"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"-"`
}
