package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LENAX/dag-engine/pkg/cli/output"
	"github.com/LENAX/dag-engine/pkg/core/task"
)

func newValidateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.yaml>",
		Short: "校验任务定义并打印拓扑层级",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			env, err := g.buildEnv()
			if err != nil {
				return err
			}
			d, _, err := loadDag(cfg, args[0], env)
			if err != nil {
				return err
			}
			order, err := d.TopologicalOrder()
			if err != nil {
				return err
			}

			levels := make([][]string, 0, len(order.Levels))
			for _, level := range order.Levels {
				names := make([]string, 0, len(level))
				for _, id := range level {
					t, _ := d.Task(id)
					names = append(names, task.NameOf(t))
				}
				levels = append(levels, names)
			}

			if g.outputJSON {
				return output.PrintJSON(map[string]any{
					"dag":    dagName(args[0]),
					"tasks":  d.Len(),
					"levels": levels,
				})
			}

			output.Success("%s 校验通过: Task数=%d, 层级数=%d", args[0], d.Len(), len(levels))
			for i, names := range levels {
				fmt.Printf("  L%d: %s\n", i, strings.Join(names, ", "))
			}
			return nil
		},
	}
}
