package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	istorage "github.com/LENAX/dag-engine/internal/storage"
	"github.com/LENAX/dag-engine/pkg/cli/output"
	"github.com/LENAX/dag-engine/pkg/config"
	"github.com/LENAX/dag-engine/pkg/storage"
)

type historyOptions struct {
	dag   string
	limit int
	run   string
}

func newHistoryCmd(g *globalOptions) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "查询运行历史（需要在配置文件中配置数据库）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			repo, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			if opts.run != "" {
				return showRun(g, repo, opts.run)
			}

			runs, err := repo.ListRuns(context.Background(), opts.dag, opts.limit)
			if err != nil {
				return err
			}
			if g.outputJSON {
				return output.PrintJSON(runs)
			}
			if len(runs) == 0 {
				output.Info("暂无运行记录")
				return nil
			}

			table := output.NewTable([]string{"RUN_ID", "DAG", "STATUS", "STARTED", "DURATION", "TASKS", "ERROR"})
			for _, r := range runs {
				table.AddRow([]string{
					r.ID,
					r.DagName,
					output.Status(r.Status),
					formatTime(r.StartedAt),
					r.Duration().String(),
					fmt.Sprintf("%d/%d/%d", r.TaskTotal, r.TaskFailed, r.TaskSkipped),
					r.ErrorMessage,
				})
			}
			table.Render()
			fmt.Printf("\n总计: %d 条记录（TASKS 为 总数/失败/跳过）\n", len(runs))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.dag, "dag", "", "只显示指定DAG")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 20, "最多显示条数")
	cmd.Flags().StringVar(&opts.run, "run", "", "显示指定运行的Task明细")
	return cmd
}

func openHistory(cfg *config.EngineConfig) (storage.RunRepository, error) {
	if !cfg.HistoryEnabled() {
		return nil, fmt.Errorf("未配置运行历史数据库（storage.database）")
	}
	db := cfg.DagEngine.Storage.Database
	return istorage.NewRunRepository(db.Type, db.DSN, istorage.PoolOptions{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	})
}

func showRun(g *globalOptions, repo storage.RunRepository, id string) error {
	run, err := repo.GetRun(context.Background(), id)
	if err != nil {
		return err
	}
	if g.outputJSON {
		return output.PrintJSON(run)
	}

	fmt.Printf("Run:      %s\n", run.ID)
	fmt.Printf("DAG:      %s\n", run.DagName)
	fmt.Printf("Status:   %s\n", output.Status(run.Status))
	fmt.Printf("Started:  %s\n", formatTime(run.StartedAt))
	fmt.Printf("Finished: %s\n", formatTime(run.FinishedAt))
	if run.ErrorMessage != "" {
		fmt.Printf("Error:    %s\n", run.ErrorMessage)
	}
	fmt.Println("\nTasks:")
	table := output.NewTable([]string{"ID", "TASK", "STATUS", "OUTPUT / ERROR"})
	for _, t := range run.Tasks {
		detail := t.Output
		if t.ErrorMsg != "" {
			detail = t.ErrorMsg
		}
		table.AddRow([]string{fmt.Sprint(t.TaskID), t.TaskName, output.Status(t.Status), detail})
	}
	table.Render()
	return nil
}
