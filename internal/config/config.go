// Package config resolves clarity-board settings from defaults, an optional
// YAML file, CLARITY_BOARD_* environment variables, and command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clarity-board/internal/logging"

	"github.com/go-playground/validator/v10"
	"github.com/natefinch/atomic"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "CLARITY_BOARD"
	FileName  = "clarity-board.yaml"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store" json:"store"`
	Remote    RemoteConfig    `mapstructure:"remote" yaml:"remote" json:"remote"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Actor     string          `mapstructure:"actor" yaml:"actor" json:"actor"`
}

type ServerConfig struct {
	// Addr is the listen address for `serve`.
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr" validate:"required"`
	// URL points the CLI at a running server. Empty means in-process.
	URL string `mapstructure:"url" yaml:"url" json:"url" validate:"omitempty,url"`
}

type StoreConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

type RemoteConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`
}

type TelemetryConfig struct {
	Metrics string `mapstructure:"metrics" yaml:"metrics" json:"metrics" validate:"oneof=prometheus none"`
	// Trace prints finished spans to stderr.
	Trace bool `mapstructure:"trace" yaml:"trace" json:"trace"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=json edn text"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" json:"pretty"`
}

func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: "127.0.0.1:8787"},
		Store:     StoreConfig{Dir: DefaultStoreDir()},
		Remote:    RemoteConfig{Timeout: 10 * time.Second},
		Log:       LogConfig{Level: logging.LevelWarn, Format: "text"},
		Telemetry: TelemetryConfig{Metrics: "prometheus"},
		Output:    OutputConfig{Format: "json"},
	}
}

// SetDefaults registers every key so that environment overrides apply to
// Unmarshal even when no file sets the key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("telemetry.metrics", d.Telemetry.Metrics)
	v.SetDefault("telemetry.trace", d.Telemetry.Trace)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.pretty", d.Output.Pretty)
	v.SetDefault("actor", d.Actor)
}

// Dir is where the config file lives by default.
func Dir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, "clarity-board")
	}
	return filepath.Join(".", ".clarity-board")
}

func DefaultPath() string { return filepath.Join(Dir(), FileName) }

// DefaultStoreDir holds the local SQLite board when no server is configured.
func DefaultStoreDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".clarity-board")
	}
	return filepath.Join(".", ".clarity-board")
}

// NewViper builds a viper instance with defaults, env binding and, when found,
// the config file. An explicit configFile must exist; the default location is
// optional.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := strings.TrimSpace(configFile); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", f, err)
		}
		return v, nil
	}

	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load decodes and validates the resolved settings.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	c.Store.Dir = strings.TrimSpace(c.Store.Dir)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Telemetry.Metrics = strings.ToLower(strings.TrimSpace(c.Telemetry.Metrics))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Actor = strings.TrimSpace(c.Actor)
}

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", configKey(fe.Namespace()), fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// configKey turns "Config.Log.Level" into "log.level".
func configKey(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	return strings.ToLower(ns)
}

// Write saves cfg as YAML. An existing file is kept unless force is set.
func Write(path string, cfg Config, force bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("config path is empty")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(b))
}
