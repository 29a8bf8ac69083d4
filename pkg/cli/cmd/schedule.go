package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/dag-engine/pkg/cli/output"
	"github.com/LENAX/dag-engine/pkg/core/engine"
)

func newScheduleCmd(g *globalOptions) *cobra.Command {
	var cronExpr string
	cmd := &cobra.Command{
		Use:   "schedule <file.yaml>",
		Short: "按Cron表达式周期执行DAG",
		Long:  `表达式支持秒级精度（6段）以及 @every 1m、@daily 等描述符。Ctrl+C 退出。`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := engine.ValidateCronExpr(cronExpr); err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			eng, err := newEngine(g, cfg, args)
			if err != nil {
				return err
			}
			defer eng.Close()

			name := dagName(args[0])
			scheduler := engine.NewCronScheduler(eng)
			if err := scheduler.Register(name, cronExpr); err != nil {
				return err
			}
			scheduler.OnResult(func(name string, r *engine.Result, err error) {
				if err != nil {
					printError(err)
					return
				}
				_ = printResult(g, r)
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler.Start()
			output.Info("已调度 %s: %s，按 Ctrl+C 退出", name, cronExpr)
			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron表达式（必填）")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}
