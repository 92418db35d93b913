package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs 把全局日志重定向到缓冲区
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := utils.Logger
	utils.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { utils.Logger = previous })
	return &buf
}

func TestNewScheduler(t *testing.T) {
	crawler := &fakeCrawler{}
	g := newTestGenerator(t, testSettings(t), crawler)

	t.Run("空表达式使用默认值", func(t *testing.T) {
		s, err := NewScheduler(g, "", "")
		require.NoError(t, err)
		assert.Equal(t, DefaultCron, s.spec)
	})

	t.Run("表达式无效", func(t *testing.T) {
		_, err := NewScheduler(g, "every day", "")
		var invalid *models.InvalidValueError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "schedule.cron", invalid.Setting)
	})
}

func TestScheduler_RunOnce(t *testing.T) {
	logs := captureLogs(t)

	settings := testSettings(t)
	crawler := &fakeCrawler{urls: []string{"https://example.com/", "https://example.com/about"}}
	reportDir := t.TempDir()

	s, err := NewScheduler(newTestGenerator(t, settings, crawler), DefaultCron, reportDir)
	require.NoError(t, err)

	t.Run("首次生成", func(t *testing.T) {
		require.NoError(t, s.RunOnce(context.Background()))

		content, err := os.ReadFile(settings.OutputPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "<loc>https://example.com/about</loc>")
		assert.NotContains(t, logs.String(), "将被覆盖")

		reports, err := filepath.Glob(filepath.Join(reportDir, "reports", "run_*.json"))
		require.NoError(t, err)
		assert.Len(t, reports, 1)
	})

	t.Run("已存在时记录覆盖", func(t *testing.T) {
		require.NoError(t, s.RunOnce(context.Background()))
		assert.Contains(t, logs.String(), "将被覆盖")
	})
}

func TestScheduler_RunOnceFailure(t *testing.T) {
	logs := captureLogs(t)

	settings := testSettings(t)
	crawler := &fakeCrawler{err: errors.New("connection refused")}

	s, err := NewScheduler(newTestGenerator(t, settings, crawler), DefaultCron, "")
	require.NoError(t, err)

	err = s.RunOnce(context.Background())
	require.Error(t, err)

	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), "connection refused")

	_, statErr := os.Stat(settings.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "失败时不应生成站点地图")
}

func TestScheduler_StartStopsWithContext(t *testing.T) {
	crawler := &fakeCrawler{}
	s, err := NewScheduler(newTestGenerator(t, testSettings(t), crawler), DefaultCron, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.Start(ctx))
}
