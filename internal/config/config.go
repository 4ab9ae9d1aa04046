package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Protection ProtectionConfig `mapstructure:"protection"`
	Database   DatabaseConfig   `mapstructure:"database"`
	KeepAlive  KeepAliveConfig  `mapstructure:"keepalive"`
}

// Telegram bot configuration
type BotConfig struct {
	Token   string        `mapstructure:"token"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// webhook server configuration; an empty endpoint switches the bot to
// long polling with a plain health server on listen_port
type WebhookConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	ListenPort string `mapstructure:"listen_port"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

// auto-delete feature settings
type ProtectionConfig struct {
	DefaultDeleteDelay int `mapstructure:"default_delete_delay"`
}

// keep-alive pinger settings
type KeepAliveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	URL             string `mapstructure:"url"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	// Token can come from the environment instead of the config file
	v.BindEnv("bot.token", "BOT_TOKEN")

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	// Unmarshal configuration
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.webhook.endpoint", "")
	v.SetDefault("bot.webhook.listen_port", "8080")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "tg-autodelete.db")
	v.SetDefault("database.charset", "utf8mb4")

	v.SetDefault("protection.default_delete_delay", 300)

	v.SetDefault("keepalive.enabled", false)
	v.SetDefault("keepalive.interval_seconds", 300)
}
