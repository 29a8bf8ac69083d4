package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/dag-engine/pkg/cli/output"
	"github.com/LENAX/dag-engine/pkg/core/engine"
)

type runOptions struct {
	concurrency int
	failFast    bool
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <file.yaml>",
		Short: "执行DAG",
		Long:  `解析任务定义文件并执行，存在失败的Task时退出码为1。`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.DagEngine.Execution.MaxConcurrency = opts.concurrency
			}
			var extra []engine.Option
			if opts.failFast {
				extra = append(extra, engine.WithFailurePolicy(engine.FailFast))
			}

			eng, err := newEngine(g, cfg, args, extra...)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := eng.RunDag(ctx, dagName(args[0]))
			if err != nil {
				return err
			}
			if err := printResult(g, result); err != nil {
				return err
			}
			if !result.OK() {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "n", 0, "同时执行的Task上限，0表示不限制")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "任意Task失败后不再派发新的Task")
	return cmd
}

// runSummary JSON输出结构
type runSummary struct {
	RunID    string        `json:"run_id"`
	Dag      string        `json:"dag"`
	OK       bool          `json:"ok"`
	Duration string        `json:"duration"`
	Tasks    []taskSummary `json:"tasks"`
}

type taskSummary struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func summarize(r *engine.Result) runSummary {
	s := runSummary{
		RunID:    r.RunID,
		Dag:      r.DagName,
		OK:       r.OK(),
		Duration: r.Duration().String(),
		Tasks:    make([]taskSummary, 0, r.Len()),
	}
	for _, m := range r.Messages {
		t := taskSummary{
			ID:     uint64(m.TaskID),
			Name:   m.TaskName,
			Status: string(m.Status),
			Error:  m.ToErrorMessage(),
		}
		if m.IsSuccess() {
			t.Output = m.Output.String()
		}
		if d := m.Duration(); d > 0 {
			t.Duration = d.String()
		}
		s.Tasks = append(s.Tasks, t)
	}
	return s
}

func printResult(g *globalOptions, r *engine.Result) error {
	s := summarize(r)
	if g.outputJSON {
		return output.PrintJSON(s)
	}

	table := output.NewTable([]string{"ID", "TASK", "STATUS", "DURATION", "OUTPUT / ERROR"})
	for _, t := range s.Tasks {
		detail := t.Output
		if t.Error != "" {
			detail = t.Error
		}
		duration := t.Duration
		if duration == "" {
			duration = "-"
		}
		table.AddRow([]string{fmt.Sprint(t.ID), t.Name, output.Status(t.Status), duration, detail})
	}
	table.Render()
	fmt.Println()

	if r.OK() {
		output.Success("运行完成: RunID=%s, Task数=%d, 耗时=%s", r.RunID, r.Len(), s.Duration)
	} else {
		output.Error("运行存在失败: RunID=%s, 失败=%d, 跳过=%d", r.RunID, len(r.Failed()), len(r.Skipped()))
	}
	return nil
}
