package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "HUDDLE"

// DefaultSecret signs session cookies when no secret is configured.
const DefaultSecret = "huddle-dev-secret"

type Config struct {
	Mode       string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port       int           `mapstructure:"port" validate:"min=1,max=65535"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit" validate:"gt=0"`
	PingPeriod time.Duration `mapstructure:"ping_period" validate:"gt=0"`
	SendBuffer int           `mapstructure:"send_buffer" validate:"gt=0"`
	Secret     string        `mapstructure:"secret" validate:"required"`
	LogLevel   string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error disabled"`

	Rooms      RoomsConfig  `mapstructure:"rooms"`
	Calls      CallsConfig  `mapstructure:"calls"`
	Chat       ChatConfig   `mapstructure:"chat"`
	Upload     UploadConfig `mapstructure:"upload"`
	ICEServers []ICEServer  `mapstructure:"ice_servers" validate:"dive"`

	v *viper.Viper
}

type RoomsConfig struct {
	RejoinPolicy string `mapstructure:"rejoin_policy" validate:"oneof=overwrite leave_first"`
}

type CallsConfig struct {
	// RingTimeout of zero keeps a call ringing until answered or abandoned.
	RingTimeout time.Duration `mapstructure:"ring_timeout" validate:"gte=0"`
	Exclusive   bool          `mapstructure:"exclusive"`
}

type ChatConfig struct {
	MaxTextLen   int           `mapstructure:"max_text_len" validate:"gte=0"`
	RateLimit    int           `mapstructure:"rate_limit" validate:"gte=0"`
	RateInterval time.Duration `mapstructure:"rate_interval" validate:"gte=0"`
}

type UploadConfig struct {
	Dir          string   `mapstructure:"dir" validate:"required"`
	MaxBytes     int64    `mapstructure:"max_bytes" validate:"gt=0"`
	AllowedTypes []string `mapstructure:"allowed_types" validate:"min=1"`
	PublicPrefix string   `mapstructure:"public_prefix" validate:"required"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls" validate:"min=1,dive,required"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", DefaultSecret)
	v.SetDefault("log_level", "info")

	v.SetDefault("rooms.rejoin_policy", "overwrite")

	v.SetDefault("calls.ring_timeout", "45s")
	v.SetDefault("calls.exclusive", false)

	v.SetDefault("chat.max_text_len", 2000)
	v.SetDefault("chat.rate_limit", 20)
	v.SetDefault("chat.rate_interval", "10s")

	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.max_bytes", 5<<20)
	v.SetDefault("upload.allowed_types", []string{"image/png", "image/jpeg"})
	v.SetDefault("upload.public_prefix", "/uploads/")

	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// Load reads config/config.<CONFIG_ENV>.yaml (or CONFIG_FILE), then .env and
// HUDDLE_* environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("could not read .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	fileName := os.Getenv("CONFIG_FILE")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if cfg.InsecureSecret() {
		log.Warn().Str("module", "config").Msg("release mode with the built-in secret, set secret or HUDDLE_SECRET")
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("static", cfg.StaticPath).Msg("config ready")
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.v = v
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// InsecureSecret reports a release build still signing cookies with
// DefaultSecret.
func (c *Config) InsecureSecret() bool {
	return c.Mode == "release" && c.Secret == DefaultSecret
}

// OnChange calls fn with the re-read config whenever the config file changes.
// Reloads that fail to parse or validate are logged and skipped. Without a
// config file on disk nothing is watched.
func (c *Config) OnChange(fn func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	if _, err := os.Stat(c.v.ConfigFileUsed()); err != nil {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(c.v)
		if err != nil {
			log.Error().Err(err).Str("module", "config").Str("file", e.Name).Msg("reload rejected")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Str("op", e.Op.String()).Msg("config reloaded")
		fn(next)
	})
	c.v.WatchConfig()
}
