// Package config 加载服务配置
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"medcost/logging"
)

// Config 服务配置
type Config struct {
	HTTP  HTTPConfig     `yaml:"http"`
	Log   logging.Config `yaml:"log"`
	Model ModelConfig    `yaml:"model"`
	UI    UIConfig       `yaml:"ui"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst      int           `yaml:"rate_burst"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// ModelConfig 模型文件配置
type ModelConfig struct {
	Path      string `yaml:"path"`
	Watch     bool   `yaml:"watch"`
	CacheSize int    `yaml:"cache_size"`
}

// UIConfig 页面配置
type UIConfig struct {
	Language string `yaml:"language"`
}

// Default 默认配置
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:           8080,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit:      20,
			RateBurst:      40,
			MaxBodyBytes:   1 << 16,
		},
		Log: logging.Config{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Model: ModelConfig{
			Path:      "models/rfr_model.json",
			Watch:     true,
			CacheSize: 1024,
		},
		UI: UIConfig{
			Language: "zh",
		},
	}
}

// Load 读取YAML配置，未设置的字段保留默认值
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &config, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit must not be negative"))
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model.path is required"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.UI.Language {
	case "zh", "en":
	default:
		errs = append(errs, fmt.Errorf("ui.language %q not supported", c.UI.Language))
	}
	return errors.Join(errs...)
}

// Find 在当前目录或上级目录查找配置文件（从cmd/下运行时也能找到）
func Find(name string) string {
	if _, err := os.Stat(name); err == nil {
		return name
	}
	parent := filepath.Join("..", name)
	if _, err := os.Stat(parent); err == nil {
		return parent
	}
	return ""
}

// Resolve 将相对路径解释为相对于配置文件所在目录
func (c *Config) Resolve(configPath string) {
	if configPath == "" {
		return
	}
	dir := filepath.Dir(configPath)
	if !filepath.IsAbs(c.Model.Path) {
		c.Model.Path = filepath.Join(dir, c.Model.Path)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(dir, c.Log.File)
	}
}
