package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/SitemapRefresh/internal/core"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers []string

	// PersistentPreRunE 加载的配置
	appConfig *core.Config
)

var rootCmd = &cobra.Command{
	Use:   "sitemaprefresh",
	Short: "站点地图生成工具",
	Long: `SitemapRefresh - 爬取站点并生成带优先级的站点地图

爬虫发现的每个URL都会:
  • 解析为声明的路由,未知页面会被上报
  • 绑定到数据库记录,得到最后修改时间
  • 过滤忽略的路由和带查询参数的URL
  • 按路由名称规则分配更新频率和优先级

示例:
  # 生成配置文件
  sitemaprefresh init

  # 预览站点地图,不写入文件
  sitemaprefresh refresh --dry-run

  # 生成站点地图
  sitemaprefresh refresh -u https://example.com -H "Authorization: Bearer token"

  # 按配置的cron表达式定时生成
  sitemaprefresh schedule

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.LogConfig()

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if config.File != "" {
			utils.Debugf("使用配置文件: %s", config.File)
		}
		if verbose {
			utils.Info("详细模式已启用")
		}

		appConfig = config
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SitemapRefresh %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// signalContext 收到 Ctrl+C 或 SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("收到中断信号: %v, 正在优雅关闭...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认搜索 ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	// 头部值可能包含逗号,不能按逗号拆分
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", nil, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newRoutesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
