package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 把运行报告写入 <dir>/reports
type Reporter struct {
	dir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{dir: filepath.Join(outputDir, "reports")}
}

// SaveRunReport 写入 run_<run_id>.json 并返回路径
// 先写临时文件再重命名,中断时不会留下半个报告
func (r *Reporter) SaveRunReport(report *models.RunReport) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化运行报告失败: %w", err)
	}

	path := filepath.Join(r.dir, "run_"+report.RunID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Infof("✅ 报告已生成: %s", path)
	return path, nil
}

// NewProgressBar 终端进度条,输出到 stderr
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerPadding: "-",
			BarStart:      "|",
			BarEnd:        "|",
		}),
	)
}
