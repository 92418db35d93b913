package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestLogger(t *testing.T, level string) string {
	t.Helper()

	config := DefaultLogConfig()
	config.Level = level
	config.LogDir = filepath.Join(t.TempDir(), "logs")
	config.Compress = false
	config.NoColor = true

	prevLevel := zerolog.GlobalLevel()
	require.NoError(t, InitLogger(config))
	t.Cleanup(func() {
		Logger = zerolog.Logger{}
		zerolog.SetGlobalLevel(prevLevel)
	})
	return config.LogDir
}

func TestInitLogger(t *testing.T) {
	t.Run("创建日志目录并写入中文", func(t *testing.T) {
		dir := initTestLogger(t, "info")

		Infof("已写入站点地图: %s", "sitemap.xml")

		content, err := os.ReadFile(filepath.Join(dir, MainLogFile))
		require.NoError(t, err)
		assert.Contains(t, string(content), "已写入站点地图: sitemap.xml")
	})

	t.Run("低于级别的日志被过滤", func(t *testing.T) {
		dir := initTestLogger(t, "info")

		Debugf("调试信息 %d", 1)
		Warn("警告信息")

		content, err := os.ReadFile(filepath.Join(dir, MainLogFile))
		require.NoError(t, err)
		assert.NotContains(t, string(content), "调试信息")
		assert.Contains(t, string(content), "警告信息")
	})

	t.Run("无效级别回退到info", func(t *testing.T) {
		initTestLogger(t, "verbose")
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("错误日志只接收error级别", func(t *testing.T) {
		dir := initTestLogger(t, "debug")

		Info("普通信息不应进入错误日志")
		Errorf("写入失败: %s", "sitemap.xml")

		content, err := os.ReadFile(filepath.Join(dir, ErrorLogFile))
		require.NoError(t, err)
		assert.NotContains(t, string(content), "普通信息不应进入错误日志")
		assert.Contains(t, string(content), "sitemap.xml")
	})
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	assert.Equal(t, "info", config.Level)
	assert.Equal(t, "logs", config.LogDir)
	assert.Equal(t, 10, config.MaxSize)
	assert.Equal(t, 3, config.MaxBackups)
	assert.Equal(t, 28, config.MaxAge)
	assert.True(t, config.Compress)
}

func TestFilteredWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &FilteredWriter{Writer: &buf, MinLevel: zerolog.WarnLevel}

	n, err := w.Write([]byte("无级别\n"))
	require.NoError(t, err)
	assert.Equal(t, len("无级别\n"), n)

	_, _ = w.WriteLevel(zerolog.InfoLevel, []byte("info\n"))
	_, _ = w.WriteLevel(zerolog.ErrorLevel, []byte("error\n"))

	assert.Equal(t, "error\n", buf.String())
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { Logger = prev })

	Error(os.ErrNotExist, "读取站点地图失败")
	Debug("调试信息")
	component := Component("cron")
	component.Info().Msg("定时任务唤醒")

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error":"file does not exist"`)
	assert.Contains(t, out, "调试信息")
	assert.Contains(t, out, `"component":"cron"`)
}
