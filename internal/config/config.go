package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	Port            string        `yaml:"port"`
	APIBaseURL      string        `yaml:"api_base_url"`
	APITimeout      time.Duration `yaml:"api_timeout"`
	DatabasePath    string        `yaml:"database_path"`
	SessionSecret   string        `yaml:"session_secret"`
	GinMode         string        `yaml:"gin_mode"`
	LogLevel        string        `yaml:"log_level"`
	SiteName        string        `yaml:"site_name"`
	SiteBaseURL     string        `yaml:"site_base_url"`
	TemplateDir     string        `yaml:"template_dir"`
	StaticDir       string        `yaml:"static_dir"`
	PublicCacheTTL  time.Duration `yaml:"public_cache_ttl"`
	PreviewDebounce time.Duration `yaml:"preview_debounce"`
	DraftRetention  time.Duration `yaml:"draft_retention"`
	FormRateLimit   float64       `yaml:"form_rate_limit"`
	FormRateBurst   int           `yaml:"form_rate_burst"`
}

// Defaults 返回本地开发可直接使用的配置。
func Defaults() AppConfig {
	return AppConfig{
		Port:            "8080",
		APIBaseURL:      "http://localhost:8000",
		APITimeout:      15 * time.Second,
		DatabasePath:    "edunet.db",
		SessionSecret:   "edunet-dev-secret",
		GinMode:         "release",
		LogLevel:        "info",
		SiteName:        "EduNet School",
		SiteBaseURL:     "http://localhost:8080",
		TemplateDir:     "web/template",
		StaticDir:       "web/static",
		PublicCacheTTL:  5 * time.Minute,
		PreviewDebounce: 300 * time.Millisecond,
		DraftRetention:  72 * time.Hour,
		FormRateLimit:   0.05,
		FormRateBurst:   3,
	}
}

// Load 先读取 .env，再叠加 CONFIG_FILE 指向的 YAML，最后由环境变量覆盖，缺失项使用默认值。
func Load() (AppConfig, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return AppConfig{}, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return AppConfig{}, err
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return AppConfig{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) overrideFromEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.APIBaseURL, "API_BASE_URL")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.GinMode, "GIN_MODE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.SiteName, "SITE_NAME")
	setString(&c.SiteBaseURL, "SITE_BASE_URL")
	setString(&c.TemplateDir, "TEMPLATE_DIR")
	setString(&c.StaticDir, "STATIC_DIR")

	for key, target := range map[string]*time.Duration{
		"API_TIMEOUT":      &c.APITimeout,
		"PUBLIC_CACHE_TTL": &c.PublicCacheTTL,
		"PREVIEW_DEBOUNCE": &c.PreviewDebounce,
		"DRAFT_RETENTION":  &c.DraftRetention,
	} {
		if err := setDuration(target, key); err != nil {
			return err
		}
	}

	if raw := strings.TrimSpace(os.Getenv("FORM_RATE_LIMIT")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("FORM_RATE_LIMIT: %w", err)
		}
		c.FormRateLimit = value
	}
	if raw := strings.TrimSpace(os.Getenv("FORM_RATE_BURST")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("FORM_RATE_BURST: %w", err)
		}
		c.FormRateBurst = value
	}
	return nil
}

func (c *AppConfig) normalize() {
	defaults := Defaults()
	if strings.TrimSpace(c.Port) == "" {
		c.Port = defaults.Port
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaults.APIBaseURL
	}
	c.SiteBaseURL = strings.TrimRight(strings.TrimSpace(c.SiteBaseURL), "/")
	if c.APITimeout <= 0 {
		c.APITimeout = defaults.APITimeout
	}
	if c.PublicCacheTTL < 0 {
		c.PublicCacheTTL = 0
	}
	if c.PreviewDebounce <= 0 {
		c.PreviewDebounce = defaults.PreviewDebounce
	}
	if c.DraftRetention <= 0 {
		c.DraftRetention = defaults.DraftRetention
	}
	if c.FormRateLimit <= 0 {
		c.FormRateLimit = defaults.FormRateLimit
	}
	if c.FormRateBurst <= 0 {
		c.FormRateBurst = defaults.FormRateBurst
	}
}

func setString(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}

func setDuration(target *time.Duration, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = value
	return nil
}
