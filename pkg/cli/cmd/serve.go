package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LENAX/dag-engine/pkg/api"
	"github.com/LENAX/dag-engine/pkg/core/engine"
)

type serveOptions struct {
	host  string
	port  int
	crons []string
}

func newServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve <file.yaml>...",
		Short: "启动HTTP API服务",
		Long: `注册所有任务定义文件（以文件名作为DAG名称）并启动HTTP API。

示例：
  dagctl serve etl.yaml report.yaml --cron "report=0 0 8 * * *"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			// API需要事件流和最近结果
			cfg.DagEngine.Events.Enabled = true
			cfg.DagEngine.Storage.Cache.Enabled = true
			if opts.host != "" {
				cfg.DagEngine.Server.Host = opts.host
			}
			if opts.port > 0 {
				cfg.DagEngine.Server.Port = opts.port
			}

			eng, err := newEngine(g, cfg, args)
			if err != nil {
				return err
			}
			defer eng.Close()

			scheduler := engine.NewCronScheduler(eng)
			for _, spec := range opts.crons {
				name, expr, ok := strings.Cut(spec, "=")
				if !ok {
					return fmt.Errorf("--cron 参数格式应为 NAME=EXPR: %q", spec)
				}
				if err := scheduler.Register(name, expr); err != nil {
					return err
				}
			}
			scheduler.Start()
			defer scheduler.Stop()

			server := api.NewAPIServer(eng, scheduler, api.ServerConfigFrom(cfg), Version)
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "监听地址，默认取配置文件")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "监听端口，默认取配置文件")
	cmd.Flags().StringArrayVar(&opts.crons, "cron", nil, "定时调度 NAME=EXPR，可重复")
	return cmd
}
