package remote

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "MOODMIRROR"
	defaultHTTPAddress  = "127.0.0.1:8080"
	defaultDatabasePath = "moodmirror.db"
	defaultLogLevel     = "info"
)

// AppConfig captures runtime configuration for the mirror service.
type AppConfig struct {
	HTTPAddress  string
	DatabasePath string
	LogLevel     string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on v.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.address", defaultHTTPAddress)
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("log.level", defaultLogLevel)
}

// LoadConfig parses runtime configuration from v.
func LoadConfig(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:  v.GetString("http.address"),
		DatabasePath: v.GetString("database.path"),
		LogLevel:     v.GetString("log.level"),
	}
	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
