package parser

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dag-engine/pkg/core/dag"
	"github.com/LENAX/dag-engine/pkg/core/task"
	"github.com/LENAX/dag-engine/pkg/utils"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const diamond = `
dagrs:
  a:
    name: "Task A"
    cmd: echo a
  b:
    name: "Task B"
    after: [a]
    cmd: echo b
    timeout: 5s
  c:
    name: "Task C"
    after: [a]
    cmd: echo c
  d:
    name: "Task D"
    after: [c, b]
    cmd: echo d
`

func TestParseTasks_Diamond(t *testing.T) {
	p := &YamlParser{DefaultTimeout: time.Minute}
	def, err := p.ParseFile(writeFile(t, diamond), nil)
	require.NoError(t, err)
	require.Len(t, def.Tasks, 4)
	assert.Equal(t, []string{"a", "b", "c", "d"}, def.Keys())

	idA, _ := def.IDOf("a")
	idB, _ := def.IDOf("b")
	idC, _ := def.IDOf("c")
	idD, _ := def.IDOf("d")
	assert.Less(t, idA, idB)

	// 任务按key排序，after 的声明顺序保留
	assert.Equal(t, []task.ID{idC, idB}, def.Tasks[3].Inputs())
	assert.Equal(t, idD, def.Tasks[3].ID())
	assert.Equal(t, "Task D", task.NameOf(def.Tasks[3]))

	b := def.Tasks[1].(*task.DefaultTask).Action().(*task.CommandAction)
	assert.Equal(t, 5*time.Second, b.Timeout)
	c := def.Tasks[2].(*task.DefaultTask).Action().(*task.CommandAction)
	assert.Equal(t, time.Minute, c.Timeout)
}

func TestParseTasks_TasksAlias(t *testing.T) {
	doc := `
tasks:
  only:
    name: Only
    cmd: "true"
`
	tasks, err := NewYamlParser().ParseTasks(writeFile(t, doc), nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Empty(t, tasks[0].Inputs())
}

func TestParseTasks_EnvExpansion(t *testing.T) {
	doc := `
dagrs:
  greet:
    name: Greet
    cmd: echo ${GREETING}
`
	env := utils.NewIsolatedEnvVar()
	env.Set("GREETING", "hello")
	def, err := NewYamlParser().ParseBytes([]byte(doc), env)
	require.NoError(t, err)
	action := def.Tasks[0].(*task.DefaultTask).Action().(*task.CommandAction)
	assert.Equal(t, "echo hello", action.Command)

	_, err = NewYamlParser().ParseBytes([]byte(doc), utils.NewIsolatedEnvVar())
	var parseErr *utils.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Msg, "GREETING")
}

func TestParseTasks_FileErrors(t *testing.T) {
	p := NewYamlParser()

	_, err := p.ParseTasks(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	var notFound *FileNotFound
	require.ErrorAs(t, err, &notFound)

	_, err = p.ParseTasks(writeFile(t, "   \n"), nil)
	var content *FileContentError
	require.ErrorAs(t, err, &content)

	_, err = p.ParseTasks(writeFile(t, "dagrs: [unclosed"), nil)
	require.ErrorAs(t, err, &content)

	_, err = p.ParseTasks(writeFile(t, "other:\n  x: 1\n"), nil)
	require.ErrorAs(t, err, &content)
}

func TestParseTasks_TaskErrors(t *testing.T) {
	cases := map[string]struct {
		doc string
		key string
	}{
		"missing cmd": {
			doc: "dagrs:\n  a:\n    name: A\n",
			key: "a",
		},
		"missing name": {
			doc: "dagrs:\n  a:\n    cmd: echo\n",
			key: "a",
		},
		"unknown after": {
			doc: "dagrs:\n  a:\n    name: A\n    cmd: echo\n    after: [ghost]\n",
			key: "a",
		},
		"self after": {
			doc: "dagrs:\n  a:\n    name: A\n    cmd: echo\n    after: [a]\n",
			key: "a",
		},
		"bad timeout": {
			doc: "dagrs:\n  b:\n    name: B\n    cmd: echo\n    timeout: soon\n",
			key: "b",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewYamlParser().ParseBytes([]byte(tc.doc), nil)
			var taskErr *YamlTaskError
			require.ErrorAs(t, err, &taskErr)
			assert.Equal(t, tc.key, taskErr.TaskKey)
		})
	}
}

func TestLoadDag(t *testing.T) {
	g, err := NewYamlParser().LoadDag(writeFile(t, diamond), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Len(t, order.Levels, 3)
}

func TestLoadDag_Cycle(t *testing.T) {
	doc := `
dagrs:
  a:
    name: A
    after: [b]
    cmd: echo a
  b:
    name: B
    after: [a]
    cmd: echo b
`
	_, err := NewYamlParser().LoadDag(writeFile(t, doc), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dag.ErrCycle)
}

func TestParsedCommandRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	doc := `
dagrs:
  a:
    name: A
    cmd: echo hi
`
	def, err := NewYamlParser().ParseBytes([]byte(doc), nil)
	require.NoError(t, err)
	out, err := def.Tasks[0].Run(context.Background(), task.EmptyInput(), utils.NewIsolatedEnvVar())
	require.NoError(t, err)
	assert.Equal(t, "hi", out.String())
}

func TestParse_ShellVariablesEscaped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	doc := `
dagrs:
  loop:
    name: Loop
    cmd: for f in x y; do printf "%s-${SUFFIX} " $${f}; done
`
	env := utils.NewIsolatedEnvVar()
	env.Set("SUFFIX", "${NOT_A_VAR}")
	def, err := NewYamlParser().ParseBytes([]byte(doc), env)
	require.NoError(t, err)

	action := def.Tasks[0].(*task.DefaultTask).Action().(*task.CommandAction)
	assert.Equal(t, `for f in x y; do printf "%s-${NOT_A_VAR} " ${f}; done`, action.Command)
	assert.True(t, action.Expanded)

	// 运行时的env不再参与替换
	out, err := def.Tasks[0].Run(context.Background(), task.EmptyInput(), utils.NewIsolatedEnvVar())
	require.NoError(t, err)
	assert.Equal(t, "x- y-", out.String())
}
