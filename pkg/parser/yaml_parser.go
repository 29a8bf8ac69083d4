package parser

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LENAX/dag-engine/pkg/core/dag"
	"github.com/LENAX/dag-engine/pkg/core/task"
	"github.com/LENAX/dag-engine/pkg/utils"
)

// YamlTask YAML中的单个任务定义（对外导出）
type YamlTask struct {
	Name    string   `yaml:"name"`
	After   []string `yaml:"after"`
	Cmd     string   `yaml:"cmd"`
	Timeout string   `yaml:"timeout"`
}

// yamlDocument 根节点，dagrs 与 tasks 二选一
type yamlDocument struct {
	Dagrs map[string]*YamlTask `yaml:"dagrs"`
	Tasks map[string]*YamlTask `yaml:"tasks"`
}

// Definition 解析结果，保留定义key到Task的映射
type Definition struct {
	Tasks []task.Task
	keys  map[string]task.ID
}

// IDOf 按定义key查找Task ID
func (d *Definition) IDOf(key string) (task.ID, bool) {
	id, ok := d.keys[key]
	return id, ok
}

// Keys 按ID顺序返回所有定义key
func (d *Definition) Keys() []string {
	keys := make([]string, 0, len(d.keys))
	for k := range d.keys {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Compare(d.keys[a], d.keys[b])
	})
	return keys
}

// YamlParser YAML任务定义解析器（对外导出）
type YamlParser struct {
	// DefaultTimeout 未设置 timeout 的任务使用的超时，0表示不限制
	DefaultTimeout time.Duration
}

// NewYamlParser 创建YamlParser
func NewYamlParser() *YamlParser {
	return &YamlParser{}
}

var _ Parser = (*YamlParser)(nil)

// ParseTasks 解析任务定义文件（对外导出）
func (p *YamlParser) ParseTasks(path string, env *utils.EnvVar) ([]task.Task, error) {
	def, err := p.ParseFile(path, env)
	if err != nil {
		return nil, err
	}
	return def.Tasks, nil
}

// ParseFile 解析任务定义文件并返回完整的Definition
func (p *YamlParser) ParseFile(path string, env *utils.EnvVar) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFound{Path: path, Err: err}
		}
		return nil, &FileContentError{Path: path, Msg: "读取失败", Err: err}
	}
	def, err := p.parse(path, data, env)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [YamlParser] 已加载任务定义: Path=%s, Task数=%d", path, len(def.Tasks))
	return def, nil
}

// ParseBytes 解析内存中的YAML文档
func (p *YamlParser) ParseBytes(data []byte, env *utils.EnvVar) (*Definition, error) {
	return p.parse("", data, env)
}

// LoadDag 解析任务定义文件并构建Dag（对外导出）
// 图结构错误原样返回 *dag.DagError
func (p *YamlParser) LoadDag(path string, env *utils.EnvVar) (*dag.Dag, error) {
	def, err := p.ParseFile(path, env)
	if err != nil {
		return nil, err
	}
	return def.Dag()
}

// Dag 用解析出的Task构建Dag
func (d *Definition) Dag() (*dag.Dag, error) {
	g := dag.New()
	if err := g.InsertAll(d.Tasks...); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (p *YamlParser) parse(path string, data []byte, env *utils.EnvVar) (*Definition, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &FileContentError{Path: path, Msg: "文件为空"}
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &FileContentError{Path: path, Msg: "YAML格式错误", Err: err}
	}
	defs := doc.Dagrs
	if len(defs) == 0 {
		defs = doc.Tasks
	}
	if len(defs) == 0 {
		return nil, &FileContentError{Path: path, Msg: "未找到 dagrs 或 tasks 节点，或其中没有任务"}
	}

	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// 第一遍：校验并创建Task，ID按key排序分配
	tasks := make(map[string]*task.DefaultTask, len(keys))
	ids := make(map[string]task.ID, len(keys))
	for _, key := range keys {
		t, err := p.buildTask(key, defs[key], env)
		if err != nil {
			return nil, err
		}
		tasks[key] = t
		ids[key] = t.ID()
	}

	// 第二遍：after 引用转换为输入ID
	out := make([]task.Task, 0, len(keys))
	for _, key := range keys {
		after := defs[key].After
		inputs := make([]task.ID, 0, len(after))
		for _, ref := range after {
			if ref == key {
				return nil, &YamlTaskError{TaskKey: key, Msg: "不能依赖自身"}
			}
			id, ok := ids[ref]
			if !ok {
				return nil, &YamlTaskError{TaskKey: key, Msg: fmt.Sprintf("after 引用了不存在的任务 %q", ref)}
			}
			if !slices.Contains(inputs, id) {
				inputs = append(inputs, id)
			}
		}
		tasks[key].SetInputs(inputs...)
		out = append(out, tasks[key])
	}

	return &Definition{Tasks: out, keys: ids}, nil
}

func (p *YamlParser) buildTask(key string, def *YamlTask, env *utils.EnvVar) (*task.DefaultTask, error) {
	if def == nil {
		return nil, &YamlTaskError{TaskKey: key, Msg: "定义为空"}
	}
	if strings.TrimSpace(def.Name) == "" {
		return nil, &YamlTaskError{TaskKey: key, Msg: "缺少 name"}
	}
	if strings.TrimSpace(def.Cmd) == "" {
		return nil, &YamlTaskError{TaskKey: key, Msg: "缺少 cmd"}
	}

	// 占位符只在加载时展开一次，之后命令原样交给shell
	if env == nil {
		env = utils.NewEnvVar()
	}
	cmd, err := env.Expand(def.Cmd)
	if err != nil {
		return nil, err
	}

	timeout := p.DefaultTimeout
	if def.Timeout != "" {
		d, err := time.ParseDuration(def.Timeout)
		if err != nil {
			return nil, &YamlTaskError{TaskKey: key, Msg: fmt.Sprintf("timeout 无效 %q: %v", def.Timeout, err)}
		}
		if d < 0 {
			return nil, &YamlTaskError{TaskKey: key, Msg: "timeout 不能为负数"}
		}
		timeout = d
	}

	action := task.NewCommandAction(cmd).WithTimeout(timeout)
	action.Expanded = true
	return task.NewDefaultTask(def.Name, action), nil
}
