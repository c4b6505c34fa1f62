package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration, loaded from an optional
// app.env file and the process environment.
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`

	LoginURL    string `mapstructure:"LOGIN_URL"`
	DataURL     string `mapstructure:"DATA_URL"`
	APIUsername string `mapstructure:"API_USERNAME"`
	APIPassword string `mapstructure:"API_PASSWORD"`

	GeocodeKey       string `mapstructure:"GEOCODE_KEY"`
	GoogleGeocodeURL string `mapstructure:"GOOGLE_GEOCODE_URL"`
	NominatimURL     string `mapstructure:"NOMINATIM_URL"`

	TokenTTL     time.Duration `mapstructure:"TOKEN_TTL"`
	HTTPTimeout  time.Duration `mapstructure:"HTTP_TIMEOUT"`
	RelaxedRetry bool          `mapstructure:"TRAFFILOG_RELAXED_RETRY"`
}

// LoadConfig reads configuration from app.env in path (if present) and from
// environment variables, which take precedence.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8000")
	v.SetDefault("GOOGLE_GEOCODE_URL", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org/reverse")
	v.SetDefault("TOKEN_TTL", "6h")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("TRAFFILOG_RELAXED_RETRY", false)

	// Required settings get empty defaults so AutomaticEnv can see the keys.
	v.SetDefault("LOGIN_URL", "")
	v.SetDefault("DATA_URL", "")
	v.SetDefault("API_USERNAME", "")
	v.SetDefault("API_PASSWORD", "")
	v.SetDefault("GEOCODE_KEY", "")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	for key, value := range map[string]string{
		"LOGIN_URL":    c.LoginURL,
		"DATA_URL":     c.DataURL,
		"API_USERNAME": c.APIUsername,
		"API_PASSWORD": c.APIPassword,
		"GEOCODE_KEY":  c.GeocodeKey,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}
