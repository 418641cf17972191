package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Port                int           `yaml:"port" env:"PORT"`
	LogLevel            string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogJSON             bool          `yaml:"log_json" env:"LOG_JSON"`
	JwtTTL              time.Duration `yaml:"jwt_ttl"`
	ConfirmationCodeLen int           `yaml:"confirmation_code_len"`
	ConfirmationTTL     time.Duration `yaml:"confirmation_ttl"`
	SecureCookies       bool          `yaml:"secure_cookies" env:"SECURE_COOKIES"`
	AllowedOrigins      []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	QueryTimeout        time.Duration `yaml:"query_timeout"`      // upper bound for a single storage operation
	DirectoryCacheTTL   time.Duration `yaml:"directory_cache_ttl"` // 0 disables caching of participant names
	Assistant           Assistant     `yaml:"assistant"`
}

type Assistant struct {
	Subject       string `yaml:"subject"`
	GenerateModel string `yaml:"generate_model" env:"GEMINI_GENERATE_MODEL"`
	EmbedModel    string `yaml:"embed_model" env:"GEMINI_EMBED_MODEL"`
	DefaultTopK   int    `yaml:"default_top_k"`
	MaxTopK       int    `yaml:"max_top_k"`
}

type Private struct {
	JwtKey       string `yaml:"jwt_key" env:"JWT_SECRET"`
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Pg           Pg     `yaml:"pg"`
	Redis        Redis  `yaml:"redis"`
	Email        Email  `yaml:"email"`
}

type Pg struct {
	Host     string `yaml:"host" env:"PG_HOST"`
	Port     int    `yaml:"port" env:"PG_PORT"`
	User     string `yaml:"user" env:"PG_USER"`
	Password string `yaml:"password" env:"PG_PASSWORD"`
	Dbname   string `yaml:"dbname" env:"PG_DBNAME"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"` // empty disables redis
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server" env:"SMTP_SERVER"` // empty means emails are only logged
	SMTPPort   int    `yaml:"smtp_port" env:"SMTP_PORT"`
	Username   string `yaml:"username" env:"SMTP_USERNAME"`
	Password   string `yaml:"password" env:"SMTP_PASSWORD"`
	SenderName string `yaml:"sender_name" env:"SMTP_SENDER_NAME"`
	Timeout    int    `yaml:"timeout"` // seconds
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file: " + configPath)
	}

	if err := yaml.UnmarshalStrict(configFile, output); err != nil {
		panic(fmt.Sprintf("can't unmarshal config file %s: %v", configPath, err))
	}
}

// MustLoad reads public.yaml (required) and private.yaml (optional, secrets can
// come from the environment instead), overlays environment variables and fills
// defaults. It panics on any inconsistency.
func MustLoad(configFolder string) *Config {
	var cfg Config
	mustLoadPath(path.Join(configFolder, "public.yaml"), &cfg.Public)

	privatePath := path.Join(configFolder, "private.yaml")
	if _, err := os.Stat(privatePath); err == nil {
		mustLoadPath(privatePath, &cfg.Private)
	}

	if err := env.Parse(&cfg); err != nil {
		panic("can't parse environment: " + err.Error())
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		panic(err.Error())
	}
	return &cfg
}

func (c *Config) applyDefaults() {
	p := &c.Public
	if p.Port == 0 {
		p.Port = 8080
	}
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
	if p.JwtTTL == 0 {
		p.JwtTTL = time.Hour
	}
	if p.ConfirmationCodeLen == 0 {
		p.ConfirmationCodeLen = 6
	}
	if p.ConfirmationTTL == 0 {
		p.ConfirmationTTL = 10 * time.Minute
	}
	if p.QueryTimeout == 0 {
		p.QueryTimeout = 5 * time.Second
	}
	if p.Assistant.Subject == "" {
		p.Assistant.Subject = "Sawatantra"
	}
	if p.Assistant.GenerateModel == "" {
		p.Assistant.GenerateModel = "gemini-1.5-flash"
	}
	if p.Assistant.EmbedModel == "" {
		p.Assistant.EmbedModel = "text-embedding-004"
	}
	if p.Assistant.DefaultTopK == 0 {
		p.Assistant.DefaultTopK = 5
	}
	if p.Assistant.MaxTopK == 0 {
		p.Assistant.MaxTopK = 20
	}
	if c.Private.Pg.Port == 0 {
		c.Private.Pg.Port = 5432
	}
	if c.Private.Email.SMTPPort == 0 {
		c.Private.Email.SMTPPort = 587
	}
}

func (c *Config) validate() error {
	if c.Private.JwtKey == "" {
		return fmt.Errorf("jwt_key is not configured (set it in private.yaml or JWT_SECRET)")
	}
	if c.Public.ConfirmationCodeLen < 4 || c.Public.ConfirmationCodeLen > 32 {
		return fmt.Errorf("confirmation_code_len must be between 4 and 32, got %d", c.Public.ConfirmationCodeLen)
	}
	if c.Public.DirectoryCacheTTL < 0 {
		return fmt.Errorf("directory_cache_ttl must not be negative")
	}
	if c.Public.Assistant.DefaultTopK > c.Public.Assistant.MaxTopK {
		return fmt.Errorf("assistant.default_top_k (%d) exceeds assistant.max_top_k (%d)", c.Public.Assistant.DefaultTopK, c.Public.Assistant.MaxTopK)
	}
	return nil
}
