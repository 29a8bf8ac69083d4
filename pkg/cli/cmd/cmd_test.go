package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dag-engine/pkg/parser"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(args ...string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func requireShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

const pipeline = `
dagrs:
  a:
    name: fetch
    cmd: echo ${SOURCE}
  b:
    name: transform
    after: [a]
    cmd: echo "got $1"
`

func TestValidateCmd(t *testing.T) {
	path := writeTemp(t, "pipeline.yaml", pipeline)
	assert.NoError(t, execute("validate", path, "--env", "SOURCE=db"))
	assert.NoError(t, execute("validate", path, "--env", "SOURCE=db", "--json"))
}

func TestValidateCmd_Errors(t *testing.T) {
	path := writeTemp(t, "pipeline.yaml", pipeline)

	// SOURCE 未定义
	t.Setenv("SOURCE", "")
	os.Unsetenv("SOURCE")
	err := execute("validate", path)
	require.Error(t, err)

	err = execute("validate", filepath.Join(t.TempDir(), "missing.yaml"))
	var notFound *parser.FileNotFound
	assert.ErrorAs(t, err, &notFound)

	assert.Error(t, execute("validate", path, "--env", "BROKEN"))
}

func TestRunCmd(t *testing.T) {
	requireShell(t)
	path := writeTemp(t, "pipeline.yaml", pipeline)
	assert.NoError(t, execute("run", path, "--env", "SOURCE=db", "--concurrency", "2"))
	assert.NoError(t, execute("run", path, "--env", "SOURCE=db", "--json"))
}

func TestRunCmd_FailureSetsExitError(t *testing.T) {
	requireShell(t)
	doc := `
dagrs:
  a:
    name: broken
    cmd: echo oops >&2; exit 3
  b:
    name: after-broken
    after: [a]
    cmd: echo never
`
	path := writeTemp(t, "broken.yaml", doc)
	err := execute("run", path, "--fail-fast")
	assert.ErrorIs(t, err, errRunFailed)
}

func TestRunCmd_RecordsHistory(t *testing.T) {
	requireShell(t)
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfgPath := writeTemp(t, "engine.yaml", fmt.Sprintf(`
dag-engine:
  storage:
    database:
      type: sqlite
      dsn: %s
`, dbPath))
	path := writeTemp(t, "pipeline.yaml", pipeline)

	require.NoError(t, execute("run", path, "-c", cfgPath, "-e", "SOURCE=db"))
	assert.NoError(t, execute("history", "-c", cfgPath, "--dag", "pipeline"))
	assert.NoError(t, execute("history", "-c", cfgPath, "--json"))
	assert.Error(t, execute("history", "-c", cfgPath, "--run", "no-such-run"))
}

func TestHistoryCmd_RequiresDatabase(t *testing.T) {
	assert.Error(t, execute("history"))
}

func TestScheduleCmd_InvalidCron(t *testing.T) {
	path := writeTemp(t, "pipeline.yaml", pipeline)
	assert.Error(t, execute("schedule", path, "--cron", "every tuesday"))
	assert.Error(t, execute("schedule", path))
}

func TestVersionCmd(t *testing.T) {
	assert.NoError(t, execute("version"))
}

func TestDagName(t *testing.T) {
	assert.Equal(t, "pipeline", dagName("/tmp/x/pipeline.yaml"))
	assert.Equal(t, "etl.v2", dagName("etl.v2.yml"))
}
