package config

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("dburl", isDatabaseURL); err != nil {
		panic(err)
	}
	return v
}

// isDatabaseURL accepts the URL forms db.Open understands:
// sqlite://relative.db, sqlite:///absolute.db and postgres(ql)://...
func isDatabaseURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "sqlite":
		return u.Host+u.Path != ""
	case "postgres", "postgresql":
		return u.Host != ""
	default:
		return false
	}
}

// ErrSecretInConfig rejects HMAC secrets placed in a config file.
var ErrSecretInConfig = errors.New("HMAC secrets not allowed in config files (use PK_HMAC_SECRET environment variable)")

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller on the returned value.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("api.host", d.API.Host)
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.metrics_port", d.API.MetricsPort)
	v.SetDefault("api.max_connections", d.API.MaxConnections)
	v.SetDefault("api.request_timeout", d.API.RequestTimeout.String())
	v.SetDefault("api.data_dir", d.API.DataDir)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)

	// PK_API_PORT overrides api.port
	v.SetEnvPrefix("PK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		API: APIConfig{
			Host:           v.GetString("api.host"),
			Port:           v.GetInt("api.port"),
			MetricsPort:    v.GetInt("api.metrics_port"),
			MaxConnections: v.GetInt("api.max_connections"),
			RequestTimeout: v.GetDuration("api.request_timeout"),
			DataDir:        v.GetString("api.data_dir"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Catalog:  CatalogConfig{Path: v.GetString("catalog.path")},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			ServiceName: v.GetString("tracing.service_name"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges. Callers re-run it after applying flags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Errorf("invalid config: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets. InConfig
// looks at the file only, so PK_HMAC_SECRET in the environment is fine.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("api.hmac_secret") {
		return ErrSecretInConfig
	}
	return nil
}
