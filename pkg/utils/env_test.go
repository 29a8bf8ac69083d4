package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvVar_SetAndGet(t *testing.T) {
	env := NewIsolatedEnvVar()
	env.Set("NAME", "dag")

	value, ok := env.Get("NAME")
	require.True(t, ok)
	assert.Equal(t, "dag", value)

	_, ok = env.Get("MISSING")
	assert.False(t, ok)
}

func TestEnvVar_FallsBackToProcessEnv(t *testing.T) {
	t.Setenv("DAG_ENGINE_TEST_VAR", "from-process")
	env := NewEnvVar()

	value, ok := env.Get("DAG_ENGINE_TEST_VAR")
	require.True(t, ok)
	assert.Equal(t, "from-process", value)

	env.Set("DAG_ENGINE_TEST_VAR", "override")
	value, _ = env.Get("DAG_ENGINE_TEST_VAR")
	assert.Equal(t, "override", value)
}

func TestEnvVar_MustGetMissing(t *testing.T) {
	env := NewIsolatedEnvVar()
	_, err := env.MustGet("NOPE")
	require.Error(t, err)

	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestEnvVar_Expand(t *testing.T) {
	env := NewIsolatedEnvVar()
	env.Set("GREETING", "hello")
	env.Set("TARGET", "world")

	out, err := env.Expand("echo ${GREETING} ${TARGET}")
	require.NoError(t, err)
	assert.Equal(t, "echo hello world", out)

	out, err = env.Expand("no placeholders")
	require.NoError(t, err)
	assert.Equal(t, "no placeholders", out)
}

func TestEnvVar_ExpandMissing(t *testing.T) {
	env := NewIsolatedEnvVar()
	env.Set("A", "1")

	_, err := env.Expand("${A} ${B} ${C}")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Msg, "B")
	assert.Contains(t, parseErr.Msg, "C")
}

func TestEnvVar_NilGet(t *testing.T) {
	var env *EnvVar
	_, ok := env.Get("X")
	assert.False(t, ok)
}

func TestEnvVar_ExpandEscape(t *testing.T) {
	env := NewIsolatedEnvVar()
	env.Set("DIR", "/data")

	out, err := env.Expand("for f in ${DIR}/*; do echo $${f}; done")
	require.NoError(t, err)
	assert.Equal(t, "for f in /data/*; do echo ${f}; done", out)
}

func TestEnvVar_ExpandIsSinglePass(t *testing.T) {
	env := NewIsolatedEnvVar()
	env.Set("OUTER", "${INNER}")

	out, err := env.Expand("value=${OUTER}")
	require.NoError(t, err)
	assert.Equal(t, "value=${INNER}", out)
}
