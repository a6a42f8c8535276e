package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	envPrefix  = "CARDBOARD"
)

// Config is the global user configuration (config.yaml in ConfigDir).
// Environment variables CARDBOARD_<KEY> override file values.
type Config struct {
	Dir          string        `json:"dir,omitempty" yaml:"dir,omitempty"`
	Page         string        `json:"page,omitempty" yaml:"page,omitempty"`
	Remote       string        `json:"remote,omitempty" yaml:"remote,omitempty"`
	Listen       string        `json:"listen,omitempty" yaml:"listen,omitempty"`
	Debounce     time.Duration `json:"debounce" yaml:"debounce"`
	HistoryLimit int           `json:"historyLimit" yaml:"historyLimit"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.cardboard).
	if v := strings.TrimSpace(os.Getenv("CARDBOARD_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cardboard"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName+".yaml"), nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetDefault("dir", "")
	v.SetDefault("page", "")
	v.SetDefault("remote", "")
	v.SetDefault("listen", "127.0.0.1:7788")
	v.SetDefault("debounce", "500ms")
	v.SetDefault("historyLimit", 100)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

func LoadConfig() (Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, err
		}
	}
	dirVal := strings.TrimSpace(v.GetString("dir"))
	if dirVal != "" {
		if expanded, err := homedir.Expand(dirVal); err == nil {
			dirVal = expanded
		}
	}
	return Config{
		Dir:          dirVal,
		Page:         strings.TrimSpace(v.GetString("page")),
		Remote:       strings.TrimSpace(v.GetString("remote")),
		Listen:       strings.TrimSpace(v.GetString("listen")),
		Debounce:     v.GetDuration("debounce"),
		HistoryLimit: v.GetInt("historyLimit"),
	}, nil
}

func SaveConfig(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("dir", cfg.Dir)
	v.Set("page", cfg.Page)
	v.Set("remote", cfg.Remote)
	v.Set("listen", cfg.Listen)
	v.Set("debounce", cfg.Debounce.String())
	v.Set("historyLimit", cfg.HistoryLimit)
	return v.WriteConfigAs(path)
}
