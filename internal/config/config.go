package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration for the alphasms CLI.
type Config struct {
	App     AppConfig
	Gateway GatewayConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// GatewayConfig holds credentials and endpoint settings for the gateway.
// Exactly one of APIKey or the Login/Password pair must be set; the library
// enforces this at client construction.
type GatewayConfig struct {
	APIKey         string
	Login          string
	Password       string
	BaseURL        string
	TimeoutSeconds int
	DefaultRegion  string
}

// Load reads environment variables, applies defaults, validates the values
// that can be validated here and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Gateway.APIKey = ldr.getString("ALPHASMS_API_KEY", "", false)
	cfg.Gateway.Login = ldr.getString("ALPHASMS_LOGIN", "", false)
	cfg.Gateway.Password = ldr.getString("ALPHASMS_PASSWORD", "", false)
	cfg.Gateway.BaseURL = ldr.getString("ALPHASMS_BASE_URL", "", false)
	cfg.Gateway.TimeoutSeconds = ldr.getInt("ALPHASMS_TIMEOUT_SECONDS", 30, false)
	cfg.Gateway.DefaultRegion = ldr.getString("ALPHASMS_DEFAULT_REGION", "UA", false)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) addError(msg string) {
	l.errs = append(l.errs, msg)
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}
