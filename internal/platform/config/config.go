package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every setting the service consumes. Values come from
// environment variables (APP_ prefix) layered over an optional
// config.defaults.yaml, with sane defaults for everything except the
// provider credentials. Credentials are deliberately not required at
// startup; provider calls simply fail until they are supplied.
type Config struct {
	ServerPort int    `mapstructure:"SERVER_PORT" validate:"gte=1,lte=65535"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	TelstraClientID     string `mapstructure:"TELSTRA_CLIENT_ID"`
	TelstraClientSecret string `mapstructure:"TELSTRA_CLIENT_SECRET"`
	TelstraAPIBaseURL   string `mapstructure:"TELSTRA_API_BASE_URL" validate:"required,url"`
	TelstraAuthURL      string `mapstructure:"TELSTRA_AUTH_URL" validate:"required,url"`

	MaxLeasedNumberCount int      `mapstructure:"MAX_LEASED_NUMBER_COUNT" validate:"gte=1"`
	AllowedOrigins       []string `mapstructure:"ALLOWED_ORIGINS" validate:"min=1"`

	// WebRoot points at the built SPA; static serving is disabled when empty.
	WebRoot string `mapstructure:"WEB_ROOT"`
}

// Load reads configuration from config.defaults.yaml (if present) and
// the environment, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config.defaults")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("APP")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TELSTRA_CLIENT_ID", "")
	v.SetDefault("TELSTRA_CLIENT_SECRET", "")
	v.SetDefault("TELSTRA_API_BASE_URL", "https://products.api.telstra.com/messaging/v3")
	v.SetDefault("TELSTRA_AUTH_URL", "https://products.api.telstra.com/v2/oauth/token")
	v.SetDefault("MAX_LEASED_NUMBER_COUNT", 1)
	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("WEB_ROOT", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Env values carry the origin list comma-separated; viper splits it
	// but leaves surrounding whitespace behind.
	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.AllowedOrigins = origins

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
