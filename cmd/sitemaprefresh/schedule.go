package main

import (
	"github.com/RecoveryAshes/SitemapRefresh/internal/core"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/spf13/cobra"
)

func newScheduleCmd() *cobra.Command {
	var once bool
	var report bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "按cron表达式定时生成站点地图",
		Long: `按 schedule.cron 定时生成站点地图 (默认 "45 15 * * *")

定时任务只输出日志,失败以error级别记录。上一次生成未结束时跳过本次触发。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !appConfig.Schedule.Enabled && !once {
				utils.Warn("schedule.enabled 为 false,仍按命令行启动定时任务")
			}

			generator, err := buildGenerator(appConfig)
			if err != nil {
				return err
			}

			reportDir := ""
			if report {
				reportDir = appConfig.Logging.LogDir
			}

			scheduler, err := core.NewScheduler(generator, appConfig.Schedule.Cron, reportDir)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if once {
				return scheduler.RunOnce(ctx)
			}
			return scheduler.Start(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "立即执行一次后退出")
	cmd.Flags().BoolVar(&report, "report", false, "每次生成后保存JSON运行报告")

	return cmd
}
