package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

// 全局参数
type globalOptions struct {
	configPath string
	outputJSON bool
	envs       []string
}

// errRunFailed 运行结束但存在失败的Task，只用于设置退出码
var errRunFailed = errors.New("run finished with failed tasks")

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "dagctl",
		Short: "DAG Engine CLI - 依赖图任务执行工具",
		Long: `dagctl 按YAML中声明的依赖关系并发执行任务。

支持的功能：
  - 校验任务定义并打印拓扑层级
  - 执行DAG，失败只影响其下游
  - 按Cron表达式周期执行
  - 启动HTTP API服务
  - 查询运行历史

使用示例：
  # 执行DAG
  dagctl run pipeline.yaml --concurrency 4

  # 校验DAG
  dagctl validate pipeline.yaml

  # 每5分钟执行一次
  dagctl schedule pipeline.yaml --cron "0 */5 * * * *"

  # 启动HTTP服务
  dagctl serve pipeline.yaml --port 8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "引擎配置文件路径")
	root.PersistentFlags().BoolVarP(&opts.outputJSON, "json", "j", false, "使用JSON格式输出")
	root.PersistentFlags().StringArrayVarP(&opts.envs, "env", "e", nil, "注入环境变量 KEY=VALUE，可重复")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newScheduleCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute 执行根命令
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			printError(err)
		}
		os.Exit(1)
	}
}
