package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	auth "github.com/furfightclub/ffc-auth-service"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces environment overrides. Nested keys are separated
// by a double underscore, e.g. FFC_AUTH_AUTH__ISSUER.
const EnvPrefix = "FFC_AUTH_"

type BaseConfig struct {
	App           App           `koanf:"app" json:"app"`
	Auth          Auth          `koanf:"auth" json:"auth"`
	Persistence   Persistence   `koanf:"persistence" json:"persistence"`
	Notifications Notifications `koanf:"notifications" json:"notifications"`
	Jobs          Jobs          `koanf:"jobs" json:"jobs"`
}

type App struct {
	Name            string        `koanf:"name" json:"name"`
	Address         string        `koanf:"address" json:"address"`
	Debug           bool          `koanf:"debug" json:"debug"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

type Auth struct {
	Issuer               string        `koanf:"issuer" json:"issuer"`
	ServiceName          string        `koanf:"service_name" json:"service_name"`
	PrivateKeyPath       string        `koanf:"private_key_path" json:"private_key_path"`
	PublicKeyPath        string        `koanf:"public_key_path" json:"public_key_path"`
	ServicePublicKeyPath string        `koanf:"service_public_key_path" json:"service_public_key_path"`
	ServiceTokenTTL      time.Duration `koanf:"service_token_ttl" json:"service_token_ttl"`
	UserTokenTTL         time.Duration `koanf:"user_token_ttl" json:"user_token_ttl"`
	EmailTokenTTL        time.Duration `koanf:"email_token_ttl" json:"email_token_ttl"`
	ServiceTokenHeader   string        `koanf:"service_token_header" json:"service_token_header"`
	UserTokenHeader      string        `koanf:"user_token_header" json:"user_token_header"`
	AuthScheme           string        `koanf:"auth_scheme" json:"auth_scheme"`
	// AllowedServices restricts which peers may call service guarded
	// routes. Empty allows every known service.
	AllowedServices []string `koanf:"allowed_services" json:"allowed_services"`
}

type Persistence struct {
	Driver       string `koanf:"driver" json:"driver"`
	DSN          string `koanf:"dsn" json:"-"`
	Debug        bool   `koanf:"debug" json:"debug"`
	MaxOpenConns int    `koanf:"max_open_conns" json:"max_open_conns"`
}

type Notifications struct {
	RedisAddr     string `koanf:"redis_addr" json:"redis_addr"`
	RedisPassword string `koanf:"redis_password" json:"-"`
	RedisDB       int    `koanf:"redis_db" json:"redis_db"`
	Queue         string `koanf:"queue" json:"queue"`
}

type Jobs struct {
	TokenPurgeSchedule string `koanf:"token_purge_schedule" json:"token_purge_schedule"`
}

// Defaults returns the built in configuration values
func Defaults() map[string]any {
	return map[string]any{
		"app.name":                     "ffc-auth-service",
		"app.address":                  ":3000",
		"app.debug":                    false,
		"app.shutdown_timeout":         "10s",
		"auth.issuer":                  "ffc-auth",
		"auth.service_name":            auth.ServiceAuth.String(),
		"auth.private_key_path":        "ssl/service-auth-private.pem",
		"auth.public_key_path":         "",
		"auth.service_public_key_path": "",
		"auth.service_token_ttl":       "60s",
		"auth.user_token_ttl":          "168h",
		"auth.email_token_ttl":         "24h",
		"auth.service_token_header":    auth.DefaultServiceTokenHeader,
		"auth.user_token_header":       auth.DefaultUserTokenHeader,
		"auth.auth_scheme":             auth.DefaultAuthScheme,
		"persistence.driver":           "sqlite",
		"persistence.dsn":              "file:ffc-auth.db?cache=shared&_pragma=foreign_keys(1)",
		"persistence.debug":            false,
		"persistence.max_open_conns":   0,
		"notifications.redis_addr":     "",
		"notifications.redis_password": "",
		"notifications.redis_db":       0,
		"notifications.queue":          "ffc:notifications:account",
		"jobs.token_purge_schedule":    "@every 1h",
	}
}

// NewFlagSet declares the command line overrides understood by Load
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("config", "", "path to a JSON, YAML or TOML config file")
	flags.String("env-file", ".env", "path to a dotenv file")
	flags.String("app.address", "", "listen address")
	flags.Bool("app.debug", false, "enable debug output")
	flags.String("persistence.driver", "", "database driver: sqlite or postgres")
	flags.String("persistence.dsn", "", "database connection string")
	flags.String("auth.private_key_path", "", "PEM file with the RSA signing key")
	return flags
}

// Load builds the configuration from defaults, an optional file, a
// dotenv file, environment variables and flags, in increasing priority.
func Load(args []string) (*BaseConfig, error) {
	flags := NewFlagSet("ffc-auth-service")
	if err := flags.Parse(args); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid command line arguments")
	}
	return LoadFromFlags(flags)
}

// LoadFromFlags is Load for an already parsed flag set.
func LoadFromFlags(flags *pflag.FlagSet) (*BaseConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config defaults")
	}

	if path, _ := flags.GetString("config"); path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if path, _ := flags.GetString("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load env file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load environment")
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load flags")
	}

	cfg := &BaseConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration")
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// listKeys are decoded from comma separated environment values
var listKeys = map[string]bool{
	"auth.allowed_services": true,
}

func envValue(s, v string) (string, any) {
	key := envKey(s)
	if !listKeys[key] {
		return key, v
	}

	items := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, goerrors.New("unsupported config file extension", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"path": path})
	}
}

func (c BaseConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.App),
		validation.Field(&c.Auth),
		validation.Field(&c.Persistence),
	)
}

func (a App) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Address, validation.Required),
		validation.Field(&a.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Issuer, validation.Required),
		validation.Field(&a.ServiceName, validation.Required, validation.By(knownService)),
		validation.Field(&a.PrivateKeyPath, validation.Required),
		validation.Field(&a.ServiceTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.UserTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.EmailTokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&a.AllowedServices, validation.Each(validation.By(knownService))),
	)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&p.DSN, validation.Required),
	)
}

func knownService(value any) error {
	name, _ := value.(string)
	if !auth.ServiceName(name).IsKnown() {
		return validation.NewError("validation_unknown_service", "must be a known service name")
	}
	return nil
}
