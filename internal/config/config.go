package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port        int    `koanf:"port"`
		UploadDir   string `koanf:"upload_dir"`
		StaticDir   string `koanf:"static_dir"`
		MaxUploadMB int    `koanf:"max_upload_mb"`
	} `koanf:"server"`

	OpenAI struct {
		APIKey            string `koanf:"api_key"`
		AssistantID       string `koanf:"assistant_id"`
		BaseURL           string `koanf:"base_url"`
		PollIntervalMS    int    `koanf:"poll_interval_ms"`
		RequestsPerSecond int    `koanf:"requests_per_second"`
	} `koanf:"openai"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                3000,
		"server.upload_dir":          "uploads",
		"server.static_dir":          "public",
		"server.max_upload_mb":       50,
		"openai.base_url":            "https://api.openai.com/v1",
		"openai.poll_interval_ms":    1000,
		"openai.requests_per_second": 5,
		"log.level":                  "info",
		"log.format":                 "console",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./docuchat.toml", "$HOME/.docuchat.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix DOCUCHAT_.
	// Double underscore separates sections so underscored keys survive,
	// e.g. DOCUCHAT_OPENAI__API_KEY -> openai.api_key.
	k.Load(env.Provider("DOCUCHAT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DOCUCHAT_")), "__", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Docuchat Configuration

[server]
port = 3000
upload_dir = "uploads"
static_dir = "public"
max_upload_mb = 50

[openai]
api_key = "your-openai-api-key"
assistant_id = "asst_..."
poll_interval_ms = 1000

[log]
level = "info"
format = "console"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration. The API credential and the
// assistant identity are both required before the server may take traffic.
func Validate(config *Config) error {
	if config.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api_key is required")
	}

	if config.OpenAI.AssistantID == "" {
		return fmt.Errorf("openai assistant_id is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.OpenAI.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive")
	}

	return nil
}
