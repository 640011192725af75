// Package config loads service configuration from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config gives read access to loaded settings.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringSlice(key string) []string
	GetAll() map[string]interface{}
	Unmarshal(out interface{}) error
	ConfigFileUsed() string
}

type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *viperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *viperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *viperConfig) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

func (c *viperConfig) GetAll() map[string]interface{} {
	return c.v.AllSettings()
}

// Unmarshal decodes all settings into out using mapstructure tags.
func (c *viperConfig) Unmarshal(out interface{}) error {
	return c.v.Unmarshal(out)
}

// ConfigFileUsed returns the file that was read, or "" when only defaults and env apply.
func (c *viperConfig) ConfigFileUsed() string {
	return c.v.ConfigFileUsed()
}

const configDir = "configs"

// Load reads <serviceName>.yaml from CONFIG_PATH (a file or a directory) or
// from ./configs. A missing file is not an error: defaults and environment
// variables prefixed with envPrefix still apply. Keys use "." which maps to
// "_" in the environment, e.g. service.stripe_secret_key ->
// BILLING_SERVICE_STRIPE_SECRET_KEY.
func Load(serviceName, envPrefix string, defaults map[string]interface{}) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(strings.ToUpper(envPrefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := os.Getenv("CONFIG_PATH")
	switch {
	case configPath != "" && filepath.Ext(configPath) != "":
		v.SetConfigFile(configPath)
	case configPath != "":
		v.SetConfigName(serviceName)
		v.AddConfigPath(configPath)
	default:
		v.SetConfigName(serviceName)
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &viperConfig{v: v}, nil
}
