package main

import (
	"os"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "列出配置的路由",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 构建路由表同时校验路由模板
			routeTable, err := routing.NewGinTable(appConfig.Routes)
			if err != nil {
				return err
			}
			renderRoutes(routeTable.Routes())
			return nil
		},
	}
}

// renderRoutes 输出路由表格
func renderRoutes(defs []routing.RouteDefinition) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"NAME", "PATH", "METHODS", "RECORDS"})

	for _, def := range defs {
		methods := def.Methods
		if len(methods) == 0 {
			methods = []string{"GET"}
		}

		params := make([]string, 0, len(def.Params))
		for param, record := range def.Params {
			params = append(params, param+"="+record)
		}

		t.AppendRow(table.Row{def.Name, def.Path, strings.Join(methods, ","), strings.Join(params, ",")})
	}

	t.Render()
}
