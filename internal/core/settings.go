package core

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/records"
	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
	"github.com/RecoveryAshes/SitemapRefresh/internal/sitemap"
)

// Settings 一次运行使用的配置快照
// 启动时由 Config 构建并校验,之后只读
type Settings struct {
	TargetURL string
	Debug     bool

	Crawl   models.CrawlConfig
	Headers http.Header
	Workers int

	Rules            sitemap.RulesConfig
	IgnoreRoutes     []string
	CompleteWith     string
	CompleteURLsFile string
	OutputPath       string

	Routes   []routing.RouteDefinition
	Records  []records.RecordType
	Bindings []sitemap.Binding
	Database DatabaseConfig
	Schedule ScheduleConfig
}

// NewSettings 从配置构建运行设置
// 入口URL、爬取参数、规则取值和忽略模式都在这里校验,错误在爬取开始前返回
func NewSettings(cfg *Config) (*Settings, error) {
	targetURL := strings.TrimSpace(cfg.App.URL)
	if err := models.ValidateURL(targetURL); err != nil {
		return nil, &models.InvalidValueError{
			Setting:  "app.url",
			Value:    targetURL,
			Accepted: "http(s) URL",
		}
	}

	crawl := cfg.GetCrawlConfig()
	if err := crawl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: crawl: %v", models.ErrInvalidConfiguration, err)
	}

	if cfg.Pipeline.Workers < 0 {
		return nil, &models.InvalidValueError{
			Setting:  "pipeline.workers",
			Value:    fmt.Sprint(cfg.Pipeline.Workers),
			Accepted: ">= 0",
		}
	}

	rules := sitemap.RulesConfig{
		DefaultFrequency: cfg.Sitemap.DefaultChangeFrequency,
		DefaultPriority:  cfg.Sitemap.DefaultPriority,
		Frequencies:      append([]sitemap.Rule(nil), cfg.Sitemap.FrequencyRules...),
		Priorities:       append([]sitemap.Rule(nil), cfg.Sitemap.PriorityRules...),
	}
	if _, err := sitemap.NewRuleSet(rules); err != nil {
		return nil, err
	}

	if _, err := sitemap.NewEntryFilter(cfg.Sitemap.IgnoreRoutes); err != nil {
		return nil, &models.InvalidValueError{
			Setting:  "sitemap.ignore_routes",
			Value:    strings.Join(cfg.Sitemap.IgnoreRoutes, ","),
			Accepted: "route name patterns",
		}
	}

	completeWith := strings.TrimSpace(cfg.Sitemap.CompleteWith)
	if completeWith == URLsFileHook && cfg.Sitemap.CompleteURLsFile == "" {
		return nil, &models.InvalidValueError{Setting: "sitemap.complete_urls_file", Value: "", Accepted: "file path"}
	}

	if len(cfg.Records) > 0 && strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, &models.InvalidValueError{Setting: "database.dsn", Value: "", Accepted: "database connection string"}
	}

	if cfg.Sitemap.Output == "" {
		return nil, &models.InvalidValueError{Setting: "sitemap.output", Value: "", Accepted: "file path"}
	}

	headers := make(http.Header, len(cfg.Crawl.Headers))
	for name, value := range cfg.Crawl.Headers {
		headers.Set(name, value)
	}

	return &Settings{
		TargetURL:        targetURL,
		Debug:            cfg.App.Debug,
		Crawl:            crawl,
		Headers:          headers,
		Workers:          cfg.Pipeline.Workers,
		Rules:            rules,
		IgnoreRoutes:     append([]string(nil), cfg.Sitemap.IgnoreRoutes...),
		CompleteWith:     completeWith,
		CompleteURLsFile: cfg.Sitemap.CompleteURLsFile,
		OutputPath:       cfg.Sitemap.Output,
		Routes:           append([]routing.RouteDefinition(nil), cfg.Routes...),
		Records:          append([]records.RecordType(nil), cfg.Records...),
		Bindings:         append([]sitemap.Binding(nil), cfg.Bindings...),
		Database:         cfg.Database,
		Schedule:         cfg.Schedule,
	}, nil
}
