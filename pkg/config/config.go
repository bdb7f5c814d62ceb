package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvProduction = "production"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Search     SearchConfig     `mapstructure:"search"`
	Composer   ComposerConfig   `mapstructure:"composer"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
}

type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Environment, EnvProduction)
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	CorsOrigins string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// DSN returns the connection string for lib/pq. It is empty when neither a
// URL nor a host is configured.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	return u.String()
}

type SearchConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

type ComposerConfig struct {
	Strategy string `mapstructure:"strategy"`
}

type ClassifierConfig struct {
	UnknownPolicy string `mapstructure:"unknown_policy"`
	Inappropriate bool   `mapstructure:"inappropriate"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// LoadConfig reads path when it exists, then applies environment variables
// (including a .env file in the working directory). Missing credentials are
// not an error here; they surface per request.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Set default values
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("log.file", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-ada-002")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("search.threshold", 0.8)
	v.SetDefault("composer.strategy", "extraction")
	v.SetDefault("classifier.unknown_policy", "open")
	v.SetDefault("classifier.inappropriate", true)
	v.SetDefault("telegram.token", "")

	// Enable environment variable support: openai.api_key <- OPENAI_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Hosted Postgres providers export POSTGRES_URL
	if dbURL := v.GetString("POSTGRES_URL"); dbURL != "" {
		config.Database.URL = dbURL
	} else if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}

	if env := v.GetString("APP_ENV"); env != "" {
		config.App.Environment = env
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Search.Threshold <= 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold must be in (0, 1], got %v", c.Search.Threshold)
	}
	switch strings.ToLower(c.Composer.Strategy) {
	case "extraction", "focused":
	default:
		return fmt.Errorf("composer.strategy must be extraction or focused, got %q", c.Composer.Strategy)
	}
	switch c.Classifier.UnknownPolicy {
	case "open", "closed":
	default:
		return fmt.Errorf("classifier.unknown_policy must be open or closed, got %q", c.Classifier.UnknownPolicy)
	}
	if c.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	return nil
}
