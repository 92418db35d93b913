package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/RecoveryAshes/SitemapRefresh/internal/config"
	"github.com/RecoveryAshes/SitemapRefresh/internal/core"
	"github.com/RecoveryAshes/SitemapRefresh/internal/records"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/jmoiron/sqlx"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  SitemapRefresh 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	fmt.Printf("✅ Go版本: %s\n", runtime.Version())
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 动态爬取需要 Chrome/Chromium
	if path, found := launcher.LookPath(); found {
		fmt.Printf("✅ Chrome已安装: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到Chrome - crawl.execute_javascript 将不可用")
		fmt.Println("   可通过 crawl.chrome_binary_path 指定路径")
	}

	// 检查配置文件
	fmt.Println()
	fmt.Println("检查配置文件...")
	if _, err := os.Stat(config.DefaultConfigFile); err != nil {
		fmt.Printf("⚠️  %s 不存在 - 请运行: sitemaprefresh init\n", config.DefaultConfigFile)
	} else {
		fmt.Printf("✅ %s 存在\n", config.DefaultConfigFile)
	}

	cfg, err := core.LoadConfig("")
	if err != nil {
		fmt.Printf("❌ 配置加载失败: %v\n", err)
		os.Exit(1)
	}

	if _, err := core.NewSettings(cfg); err != nil {
		fmt.Printf("❌ 配置校验失败: %v\n", err)
		allOK = false
	} else {
		fmt.Println("✅ 配置校验通过")
	}

	// 检查数据库驱动
	fmt.Println()
	fmt.Println("检查数据库...")
	if driver, err := records.NormalizeDriver(cfg.Database.Driver); err != nil {
		fmt.Printf("❌ %v\n", err)
		allOK = false
	} else if len(cfg.Records) == 0 {
		fmt.Printf("✅ 驱动 %s (未声明记录类型,不会连接数据库)\n", driver)
	} else if err := pingDatabase(driver, cfg.Database.DSN); err != nil {
		fmt.Printf("❌ 数据库连接失败: %v\n", err)
		allOK = false
	} else {
		fmt.Printf("✅ 数据库连接正常 (%s)\n", driver)
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'sitemaprefresh routes' 检查路由声明")
		fmt.Println("  2. 运行 'sitemaprefresh refresh --dry-run' 预览站点地图")
		os.Exit(0)
	} else {
		fmt.Println("❌ 环境验证失败,请解决上述问题。")
		os.Exit(1)
	}
}

// pingDatabase 检查数据库是否可以连接
func pingDatabase(driver, dsn string) error {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return err
	}
	return db.Close()
}
