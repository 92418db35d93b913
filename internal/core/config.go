package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/config"
	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/records"
	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
	"github.com/RecoveryAshes/SitemapRefresh/internal/sitemap"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "SITEMAP"

// Config 应用程序配置
type Config struct {
	App      AppConfig                 `mapstructure:"app"`
	Crawl    CrawlSection              `mapstructure:"crawl"`
	Pipeline PipelineConfig            `mapstructure:"pipeline"`
	Sitemap  SitemapConfig             `mapstructure:"sitemap"`
	Routes   []routing.RouteDefinition `mapstructure:"routes"`
	Records  []records.RecordType      `mapstructure:"records"`
	Bindings []sitemap.Binding         `mapstructure:"bindings"`
	Database DatabaseConfig            `mapstructure:"database"`
	Schedule ScheduleConfig            `mapstructure:"schedule"`
	Logging  LoggingConfig             `mapstructure:"logging"`

	// 实际读取的配置文件,未找到时为空
	File string `mapstructure:"-"`
}

// AppConfig 站点配置
type AppConfig struct {
	URL   string `mapstructure:"url"`
	Debug bool   `mapstructure:"debug"`
}

// CrawlSection 爬取配置
type CrawlSection struct {
	Depth             int               `mapstructure:"depth"`
	MaxWorkers        int               `mapstructure:"max_workers"`
	WaitTime          time.Duration     `mapstructure:"wait_time"`
	MaxResponseSize   int               `mapstructure:"max_response_size"`
	ExecuteJavascript bool              `mapstructure:"execute_javascript"`
	ChromeBinaryPath  string            `mapstructure:"chrome_binary_path"`
	Headless          bool              `mapstructure:"headless"`
	AllowCrossDomain  bool              `mapstructure:"allow_cross_domain"`
	Headers           map[string]string `mapstructure:"headers"`
}

// PipelineConfig 丰富流程配置
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// SitemapConfig 站点地图配置
type SitemapConfig struct {
	Output                 string         `mapstructure:"output"`
	DefaultChangeFrequency string         `mapstructure:"default_change_frequency"`
	DefaultPriority        string         `mapstructure:"default_priority"`
	FrequencyRules         []sitemap.Rule `mapstructure:"frequency_rules"`
	PriorityRules          []sitemap.Rule `mapstructure:"priority_rules"`
	IgnoreRoutes           []string       `mapstructure:"ignore_routes"`
	CompleteWith           string         `mapstructure:"complete_with"`
	CompleteURLsFile       string         `mapstructure:"complete_urls_file"`
}

// DatabaseConfig 记录存储配置
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ScheduleConfig 定时任务配置
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// LoadConfig 加载配置文件
// 未指定路径时依次搜索 ./configs、.、~/.sitemaprefresh,找不到配置文件时使用默认值。
// 当前目录存在 .env 时先加载到环境变量,SITEMAP_ 前缀的环境变量覆盖配置文件。
func LoadConfig(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	if configPath != "" {
		if err := config.ValidateFileSize(configPath); err != nil {
			return nil, err
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sitemaprefresh"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			file := configPath
			if file == "" {
				file = v.ConfigFileUsed()
			}
			return nil, &models.ConfigError{FilePath: file, Cause: err}
		}
		utils.Debug("未找到配置文件,使用默认配置")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{
			FilePath: v.ConfigFileUsed(),
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

// loadDotEnv 加载 .env 文件,已存在的环境变量不会被覆盖
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &models.ConfigError{FilePath: path, Cause: err}
	}
	utils.Debugf("已加载环境变量文件: %s", path)
	return nil
}

// setDefaults 设置默认配置值
// 所有标量键都需要默认值,AutomaticEnv 才能在 Unmarshal 时生效
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.url", "")
	v.SetDefault("app.debug", false)

	v.SetDefault("crawl.depth", 3)
	v.SetDefault("crawl.max_workers", 0)
	v.SetDefault("crawl.wait_time", "2s")
	v.SetDefault("crawl.max_response_size", models.DefaultMaxResponseSize)
	v.SetDefault("crawl.execute_javascript", false)
	v.SetDefault("crawl.chrome_binary_path", "")
	v.SetDefault("crawl.headless", true)
	v.SetDefault("crawl.allow_cross_domain", false)

	v.SetDefault("pipeline.workers", 0)

	v.SetDefault("sitemap.output", "public/sitemap.xml")
	v.SetDefault("sitemap.default_change_frequency", string(models.FrequencyDaily))
	v.SetDefault("sitemap.default_priority", models.DefaultPriority.String())
	v.SetDefault("sitemap.complete_with", "")
	v.SetDefault("sitemap.complete_urls_file", "")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "")

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.cron", DefaultCron)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}

// LogConfig 转换为日志配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// GetCrawlConfig 从配置中提取爬取配置
// 调试模式下跳过TLS证书验证
func (c *Config) GetCrawlConfig() models.CrawlConfig {
	return models.CrawlConfig{
		Depth:              c.Crawl.Depth,
		WaitTime:           c.Crawl.WaitTime,
		MaxWorkers:         c.Crawl.MaxWorkers,
		MaxResponseSize:    c.Crawl.MaxResponseSize,
		ExecuteJavascript:  c.Crawl.ExecuteJavascript,
		ChromeBinaryPath:   c.Crawl.ChromeBinaryPath,
		Headless:           c.Crawl.Headless,
		AllowCrossDomain:   c.Crawl.AllowCrossDomain,
		InsecureSkipVerify: c.App.Debug,
	}
}

// MergeCLIFlags 合并命令行参数到配置,命令行优先
func (c *Config) MergeCLIFlags(targetURL string, depth int, executeJavascript bool, output string) {
	if targetURL != "" {
		c.App.URL = targetURL
	}
	if depth > 0 {
		c.Crawl.Depth = depth
	}
	if executeJavascript {
		c.Crawl.ExecuteJavascript = true
	}
	if output != "" {
		c.Sitemap.Output = output
	}
}
