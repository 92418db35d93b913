package core

import (
	"context"
	"os"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/robfig/cron/v3"
)

// DefaultCron 默认每天 15:45 重新生成
const DefaultCron = "45 15 * * *"

// Scheduler 定时生成站点地图
// 同一时间只有一次生成在执行,上一次未结束时跳过本次触发
type Scheduler struct {
	generator *Generator
	spec      string
	cron      *cron.Cron
	reporter  *utils.Reporter
}

// NewScheduler 创建定时任务
// reportDir 非空时每次生成后保存运行报告
func NewScheduler(generator *Generator, spec string, reportDir string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultCron
	}

	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, &models.InvalidValueError{
			Setting:  "schedule.cron",
			Value:    spec,
			Accepted: "5-field cron expression",
		}
	}

	logger := utils.NewCronLogger()
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		cron.WithLogger(logger),
	)

	s := &Scheduler{
		generator: generator,
		spec:      spec,
		cron:      c,
	}
	if reportDir != "" {
		s.reporter = utils.NewReporter(reportDir)
	}

	return s, nil
}

// Start 启动定时任务并阻塞到 ctx 结束
// 返回前等待正在执行的生成完成
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		_ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	utils.Infof("⏰ 定时任务已启动: %s (输出: %s)", s.spec, s.generator.Settings().OutputPath)

	<-ctx.Done()

	utils.Infof("⏹️  正在停止定时任务...")
	<-s.cron.Stop().Done()
	utils.Infof("✅ 定时任务已停止")
	return nil
}

// RunOnce 执行一次生成并导出
// 失败以error级别记录并上报,不会输出终端表格
func (s *Scheduler) RunOnce(ctx context.Context) error {
	output := s.generator.Settings().OutputPath

	if _, err := os.Stat(output); err == nil {
		utils.Infof("站点地图 %s 已存在,将被覆盖", output)
	}

	result, err := s.generator.Generate(ctx)
	if err != nil {
		s.fail(err)
		return err
	}

	if err := result.Export(output); err != nil {
		result.Report.Status = models.RunStatusFailed
		s.saveReport(result.Report)
		s.fail(err)
		return err
	}

	utils.Infof("✅ 站点地图已生成: %s (%d 个条目)", output, result.Sitemap.Len())
	s.saveReport(result.Report)
	return nil
}

// fail 上报一次失败的定时生成
func (s *Scheduler) fail(err error) {
	utils.NewErrorReporter().Report(s.generator.Settings().TargetURL, err, "")
}

// saveReport 保存运行报告
func (s *Scheduler) saveReport(report *models.RunReport) {
	if s.reporter == nil {
		return
	}
	if _, err := s.reporter.SaveRunReport(report); err != nil {
		utils.Error(err, "保存运行报告失败")
	}
}
