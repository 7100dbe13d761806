package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"bizbook"`
		Port     int    `envconfig:"PORT" default:"8080"`
		CacheDir string `envconfig:"CACHE_DIR" default:".bizbook"`
	}

	Remote struct {
		APIBase string        `envconfig:"REMOTE_API_BASE" default:"https://api.github.com"`
		Owner   string        `envconfig:"REMOTE_OWNER"`
		Repo    string        `envconfig:"REMOTE_REPO"`
		Branch  string        `envconfig:"REMOTE_BRANCH" default:"main"`
		Timeout time.Duration `envconfig:"REMOTE_TIMEOUT" default:"30s"`
	}

	Sync struct {
		Path     string        `envconfig:"SYNC_PATH" default:"data/store.json"`
		Debounce time.Duration `envconfig:"SYNC_DEBOUNCE" default:"3s"`
	}

	// The vault lives on its own branch and path so vault writes never
	// collide with data flushes.
	Vault struct {
		Branch string `envconfig:"VAULT_BRANCH" default:"bizbook-vault"`
		Path   string `envconfig:"VAULT_PATH" default:"vault/record.json"`
	}

	// Secret signs session tokens; an empty secret would sign every token
	// with a guessable key, so startup refuses to run without one.
	Session struct {
		Secret string        `envconfig:"SESSION_SECRET" required:"true"`
		TTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
