package main

import (
	"fmt"
	"os"

	"github.com/RecoveryAshes/SitemapRefresh/internal/core"
	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/spf13/cobra"
)

// refresh 命令参数
type refreshOptions struct {
	targetURL         string
	depth             int
	executeJavascript bool
	output            string
	dryRun            bool
	report            bool
}

func newRefreshCmd() *cobra.Command {
	opts := &refreshOptions{}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "爬取站点并生成站点地图",
		Long: `爬取站点并生成站点地图

--dry-run 只在终端输出条目表格,不写入文件。
--report 在日志目录下保存JSON运行报告。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.targetURL, "url", "u", "", "站点入口URL (覆盖 app.url)")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "爬取深度 (1-20,覆盖 crawl.depth)")
	cmd.Flags().BoolVar(&opts.executeJavascript, "js", false, "使用无头浏览器执行JavaScript")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "站点地图输出路径 (覆盖 sitemap.output)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "只输出条目表格,不写入文件")
	cmd.Flags().BoolVar(&opts.report, "report", false, "保存JSON运行报告")

	return cmd
}

func runRefresh(opts *refreshOptions) error {
	targetURL, err := NormalizeURL(opts.targetURL)
	if err != nil {
		return fmt.Errorf("无效的目标URL: %w", err)
	}
	if err := ValidateFlags(targetURL, opts.depth, opts.output); err != nil {
		return err
	}

	appConfig.MergeCLIFlags(targetURL, opts.depth, opts.executeJavascript, opts.output)

	generator, err := buildGenerator(appConfig, core.WithProgress(true))
	if err != nil {
		return err
	}
	settings := generator.Settings()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := generator.Generate(ctx)
	if err != nil {
		return reportFailure(err)
	}

	if opts.report {
		if _, err := utils.NewReporter(appConfig.Logging.LogDir).SaveRunReport(result.Report); err != nil {
			utils.Warnf("保存运行报告失败: %v", err)
		}
	}

	if opts.dryRun {
		NewEntryTableRenderer(os.Stdout).Render(result.Sitemap.List())
		return nil
	}

	if _, err := os.Stat(settings.OutputPath); err == nil {
		utils.Infof("站点地图 %s 已存在,将被覆盖", settings.OutputPath)
	}
	if err := result.Export(settings.OutputPath); err != nil {
		return reportFailure(err)
	}

	utils.Infof("✨ 站点地图已生成: %s (%d 个条目)", settings.OutputPath, result.Sitemap.Len())
	return nil
}

// buildGenerator 校验配置并创建生成器
// 配置错误和补全钩子错误都在爬取开始前返回
func buildGenerator(cfg *core.Config, opts ...core.Option) (*core.Generator, error) {
	settings, err := core.NewSettings(cfg)
	if err != nil {
		return nil, reportFailure(err)
	}

	headerManager, err := core.NewHeaderManager(settings.Headers, headers)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}

	generator, err := core.NewGenerator(settings, headerManager, opts...)
	if err != nil {
		return nil, reportFailure(err)
	}
	return generator, nil
}

// reportFailure 以结构化字段记录致命错误并原样返回
func reportFailure(err error) error {
	utils.Logger.Error().
		Str("kind", string(models.KindOf(err))).
		Err(err).
		Msg("❌ 站点地图生成失败")
	return err
}
