// Package config loads service settings from defaults, an optional YAML file,
// a .env file and ORDERWIZARD_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-orderwizard/pkg/mail"
)

// EnvPrefix prefixes every environment override: ORDERWIZARD_SMTP_HOST sets
// smtp.host.
const EnvPrefix = "ORDERWIZARD"

type Config struct {
	Log      LogConfig       `mapstructure:"log"`
	Database DatabaseConfig  `mapstructure:"database"`
	Session  SessionConfig   `mapstructure:"session"`
	SMTP     mail.SMTPConfig `mapstructure:"smtp"`
	Mail     MailConfig      `mapstructure:"mail"`
	Admin    AdminConfig     `mapstructure:"admin"`
	Discord  DiscordConfig   `mapstructure:"discord"`
	Orders   OrdersConfig    `mapstructure:"orders"`
	Replies  RepliesConfig   `mapstructure:"replies"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" keeps everything in process.
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// MailConfig selects the transport when no SMTP relay is configured.
type MailConfig struct {
	OutboxDir string `mapstructure:"outbox_dir"`
}

type AdminConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	GuildID string `mapstructure:"guild_id"`
}

type OrdersConfig struct {
	NodeID int64 `mapstructure:"node_id"`
}

type RepliesConfig struct {
	// Dir holds .tpl files overriding the embedded reply templates.
	Dir string `mapstructure:"dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{Path: "~/.orderwizard/orderwizard.db"},
		Session:  SessionConfig{TTL: 15 * time.Minute, SweepInterval: time.Minute},
		SMTP: mail.SMTPConfig{
			Port:    587,
			From:    "orders@example.com",
			Auth:    "plain",
			TLS:     "mandatory",
			Timeout: 15 * time.Second,
		},
		Mail:    MailConfig{OutboxDir: "outbox"},
		Admin:   AdminConfig{Addr: ":8080", TokenTTL: 24 * time.Hour},
		Discord: DiscordConfig{},
		Orders:  OrdersConfig{NodeID: 1},
	}
}

// LoadOptions locate the optional sources.
type LoadOptions struct {
	// File is a YAML config file. Empty means none.
	File string
	// EnvFile is a dotenv file loaded into the environment; missing files are
	// ignored. Empty means ".env".
	EnvFile string
}

// Load merges the sources over Default and validates the result.
func Load(opts LoadOptions) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.File, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Orders.NodeID < 0 || c.Orders.NodeID > 1023 {
		errs = append(errs, fmt.Errorf("orders.node_id must be within 0..1023, got %d", c.Orders.NodeID))
	}
	if c.Admin.TokenTTL <= 0 {
		errs = append(errs, errors.New("admin.token_ttl must be positive"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// setDefaults registers every key so environment overrides resolve even when
// no config file mentions them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.sweep_interval", d.Session.SweepInterval)
	v.SetDefault("smtp.host", d.SMTP.Host)
	v.SetDefault("smtp.port", d.SMTP.Port)
	v.SetDefault("smtp.username", d.SMTP.Username)
	v.SetDefault("smtp.password", d.SMTP.Password)
	v.SetDefault("smtp.from", d.SMTP.From)
	v.SetDefault("smtp.auth", d.SMTP.Auth)
	v.SetDefault("smtp.tls", d.SMTP.TLS)
	v.SetDefault("smtp.timeout", d.SMTP.Timeout)
	v.SetDefault("mail.outbox_dir", d.Mail.OutboxDir)
	v.SetDefault("admin.addr", d.Admin.Addr)
	v.SetDefault("admin.password", d.Admin.Password)
	v.SetDefault("admin.token_ttl", d.Admin.TokenTTL)
	v.SetDefault("discord.token", d.Discord.Token)
	v.SetDefault("discord.guild_id", d.Discord.GuildID)
	v.SetDefault("orders.node_id", d.Orders.NodeID)
	v.SetDefault("replies.dir", d.Replies.Dir)
}
