package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/LENAX/dag-engine/pkg/cli/output"
	"github.com/LENAX/dag-engine/pkg/config"
	"github.com/LENAX/dag-engine/pkg/core/dag"
	"github.com/LENAX/dag-engine/pkg/core/engine"
	"github.com/LENAX/dag-engine/pkg/parser"
	"github.com/LENAX/dag-engine/pkg/utils"
)

func printError(err error) {
	output.Error("%v", err)
}

// loadConfig 读取配置文件，未指定时使用默认配置
func (o *globalOptions) loadConfig() (*config.EngineConfig, error) {
	cfg, err := config.LoadEngineConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return cfg, nil
}

// buildEnv 进程环境变量叠加 --env 参数
func (o *globalOptions) buildEnv() (*utils.EnvVar, error) {
	env := utils.NewEnvVar()
	for _, kv := range o.envs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--env 参数格式应为 KEY=VALUE: %q", kv)
		}
		env.Set(key, value)
	}
	return env, nil
}

// loadDag 解析任务定义文件并构建Dag
func loadDag(cfg *config.EngineConfig, path string, env *utils.EnvVar) (*dag.Dag, *parser.Definition, error) {
	p := &parser.YamlParser{DefaultTimeout: cfg.DagEngine.Execution.DefaultTaskTimeout}
	def, err := p.ParseFile(path, env)
	if err != nil {
		return nil, nil, err
	}
	d, err := def.Dag()
	if err != nil {
		return nil, nil, err
	}
	return d, def, nil
}

// dagName 以文件名（不含扩展名）作为DAG名称
func dagName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// newEngine 按配置创建Engine并注册所有任务定义文件
func newEngine(o *globalOptions, cfg *config.EngineConfig, files []string, extra ...engine.Option) (*engine.Engine, error) {
	env, err := o.buildEnv()
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewFromConfig(cfg, append([]engine.Option{engine.WithEnv(env)}, extra...)...)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		d, _, err := loadDag(cfg, file, env)
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		if err := eng.AppendDag(dagName(file), d); err != nil {
			eng.Close()
			return nil, err
		}
	}
	return eng, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
