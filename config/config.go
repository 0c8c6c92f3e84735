package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the single source of truth for process configuration, loaded
// once at startup and passed down explicitly.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Index     IndexConfig     `mapstructure:"index"`
	Search    SearchConfig    `mapstructure:"search"`
	Relations RelationsConfig `mapstructure:"relations"`
}

type GeneralConfig struct {
	Debug     bool   `mapstructure:"debug"`
	Listen    string `mapstructure:"listen"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the connection string, preferring an explicit URL.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (databases.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

type IndexConfig struct {
	Dir string `mapstructure:"dir"`
}

type SearchConfig struct {
	// PerKindLimit caps hits per kind on unscoped searches; ScopeLimit on
	// single-scope ones.
	PerKindLimit int `mapstructure:"per_kind_limit"`
	ScopeLimit   int `mapstructure:"scope_limit"`
}

type RelationsConfig struct {
	TopN           int    `mapstructure:"top_n"`
	RebuildOnWrite bool   `mapstructure:"rebuild_on_write"`
	RebuildCron    string `mapstructure:"rebuild_cron"`
}

// AppConfig is populated by LoadConfig at process start.
var AppConfig Config

// LoadConfig reads config.json (plus PAPERDESK_* env overrides) into
// AppConfig. A missing file is fine; defaults and env cover everything a
// local deployment needs.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.listen", ":8080")
	viper.SetDefault("index.dir", "index")
	viper.SetDefault("search.per_kind_limit", 50)
	viper.SetDefault("search.scope_limit", 100)
	viper.SetDefault("relations.top_n", 20)
	viper.SetDefault("relations.rebuild_on_write", true)
	viper.SetDefault("relations.rebuild_cron", "")
	viper.SetDefault("databases.postgres.sslmode", "disable")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PAPERDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	AppConfig = cfg
	return &AppConfig
}
