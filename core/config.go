package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigPath is where the CLI looks for the INI file when --config is not given.
const DefaultConfigPath = "config/config.ini"

// EnvPrefix prefixes environment overrides, e.g. CORROSIVE_APIS_SHODAN_API_KEY.
const EnvPrefix = "CORROSIVE"

const apiSection = "apis"

// Config wraps a private viper instance holding the INI settings.
type Config struct {
	Path string
	v    *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// EmptyConfig returns a configuration with no file behind it. Environment
// overrides still apply.
func EmptyConfig() *Config {
	return &Config{v: newViper()}
}

// LoadConfig reads an INI file. The returned Config is always usable: when the
// file is missing or unreadable an empty Config is returned together with the
// error so the caller can warn and carry on.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	cfg := &Config{Path: path, v: newViper()}
	cfg.v.SetConfigFile(path)
	if err := cfg.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return EmptyConfig(), fmt.Errorf("config file %s not found: %w", path, err)
		}
		return EmptyConfig(), fmt.Errorf("reading config %s: %w", path, err)
	}
	return cfg, nil
}

// KeyName is the configuration key holding the API key of service.
func KeyName(service string) string {
	return strings.ToLower(service) + "_api_key"
}

// APIKey returns [APIs] <service>_api_key, or "" when missing or a placeholder.
func (c *Config) APIKey(service string) string {
	key := strings.TrimSpace(c.v.GetString(apiSection + "." + KeyName(service)))
	if key == "" || IsPlaceholder(service, key) {
		return ""
	}
	return key
}

// IsPlaceholder reports whether value is one of the template strings shipped
// in the sample configuration.
func IsPlaceholder(service, value string) bool {
	upper := strings.ToUpper(service)
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TU_CLAVE_DE_API_DE_" + upper + "_AQUI",
		"YOUR_" + upper + "_API_KEY_HERE",
		"YOUR_API_KEY_HERE",
		"CHANGEME":
		return true
	}
	return false
}

// Get returns a plain setting such as Get("search", "google_cx").
func (c *Config) Get(section, key string) string {
	return strings.TrimSpace(c.v.GetString(strings.ToLower(section) + "." + strings.ToLower(key)))
}

// Set overrides a setting in memory.
func (c *Config) Set(section, key string, value any) {
	c.v.Set(strings.ToLower(section)+"."+strings.ToLower(key), value)
}

// SetAPIKey overrides [APIs] <service>_api_key in memory.
func (c *Config) SetAPIKey(service, value string) {
	c.Set(apiSection, KeyName(service), value)
}
