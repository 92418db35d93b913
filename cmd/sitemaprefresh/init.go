package main

import (
	"github.com/RecoveryAshes/SitemapRefresh/internal/config"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "生成配置文件模板",
		Long:  "配置文件不存在时写入默认模板,已存在的文件不会被覆盖",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = config.DefaultConfigFile
			}

			created, err := config.EnsureConfigExists(path)
			if err != nil {
				return err
			}

			if created {
				utils.Infof("✅ 已生成配置文件: %s", path)
				utils.Info("请编辑 app.url、routes 和 records 后运行 sitemaprefresh refresh --dry-run")
			} else {
				utils.Infof("配置文件已存在: %s", path)
			}
			return nil
		},
	}
}
