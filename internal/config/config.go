// Package config loads the application settings with viper from
// config.yaml and EHH_* environment variables.
package config

import (
	"Extensible-Homework-Helper/internal/client"
	"Extensible-Homework-Helper/internal/model"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "EHH"

type Upstream struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AIClient struct {
	Kind   string   `mapstructure:"kind"`
	APIURL string   `mapstructure:"api_url"`
	APIKey string   `mapstructure:"api_key"`
	Models []string `mapstructure:"models"`
	// Model is the index into Models used by default.
	Model int `mapstructure:"model"`
}

type Selection struct {
	Selected int `mapstructure:"selected"`
}

type Transcription struct {
	Command  string   `mapstructure:"command"`
	Args     []string `mapstructure:"args"`
	Model    string   `mapstructure:"model"`
	Language string   `mapstructure:"language"`
}

type Server struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type Config struct {
	Upstream      Upstream            `mapstructure:"upstream"`
	AIClients     []AIClient          `mapstructure:"ai_clients"`
	AIClient      Selection           `mapstructure:"ai_client"`
	Credentials   []model.Credentials `mapstructure:"credentials"`
	Credential    Selection           `mapstructure:"credential"`
	CacheDir      string              `mapstructure:"cache_dir"`
	Transcription Transcription       `mapstructure:"transcription"`
	Server        Server              `mapstructure:"server"`
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ehh")
	}
	return ".ehh-cache"
}

// NewViper returns a viper instance reading configFile, or config.yaml from
// ./config, . and $HOME/.config/ehh when configFile is empty.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	v.SetDefault("upstream.base_url", client.DefaultBaseURL)
	v.SetDefault("upstream.timeout_seconds", 30)
	v.SetDefault("ai_client.selected", 0)
	v.SetDefault("credential.selected", 0)
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("transcription.command", "whisper")
	v.SetDefault("transcription.model", "base")
	v.SetDefault("transcription.language", "en")
	v.SetDefault("server.port", ":8080")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ehh")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and decodes the settings. A missing
// config file is not an error; settings then come from defaults and the
// environment.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// SelectedAIClient returns the default AI client, or false when none is
// configured at the selected index.
func (c *Config) SelectedAIClient() (*AIClient, bool) {
	if c.AIClient.Selected < 0 || c.AIClient.Selected >= len(c.AIClients) {
		return nil, false
	}
	return &c.AIClients[c.AIClient.Selected], true
}

func (c *Config) SelectedCredentials() (*model.Credentials, bool) {
	if c.Credential.Selected < 0 || c.Credential.Selected >= len(c.Credentials) {
		return nil, false
	}
	return &c.Credentials[c.Credential.Selected], true
}
