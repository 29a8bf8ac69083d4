package task

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dag-engine/pkg/utils"
)

func TestAllocID_UniqueUnderConcurrency(t *testing.T) {
	const goroutines = 32
	const perGoroutine = 500

	var mu sync.Mutex
	seen := make(map[ID]struct{}, goroutines*perGoroutine)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]ID, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, AllocID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	_, zero := seen[0]
	assert.False(t, zero)
}

func TestAllocID_Monotonic(t *testing.T) {
	a := AllocID()
	b := AllocID()
	assert.Greater(t, uint64(b), uint64(a))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, ID(42), id)
	assert.Equal(t, "42", id.String())

	_, err = ParseID("abc")
	assert.Error(t, err)
}

func TestNameOf(t *testing.T) {
	s := NewSimple("", nil)
	assert.Equal(t, "task-"+s.ID().String(), NameOf(s))

	named := NewSimple("load", nil)
	assert.Equal(t, "load", NameOf(named))
	assert.Equal(t, "", NameOf(nil))
}

func TestInputAccessors(t *testing.T) {
	in := NewInput(
		InputItem{From: 7, Content: NewContent("a")},
		InputItem{From: 9, Content: NewContent(3)},
	)
	assert.Equal(t, 2, in.Len())

	c, ok := in.Get(1)
	require.True(t, ok)
	n, ok := ContentAs[int](c)
	require.True(t, ok)
	assert.Equal(t, 3, n)

	c, ok = in.From(7)
	require.True(t, ok)
	assert.Equal(t, "a", c.String())

	_, ok = in.Get(5)
	assert.False(t, ok)
	_, ok = in.From(100)
	assert.False(t, ok)

	assert.Equal(t, []any{"a", 3}, in.Values())
	assert.Equal(t, []string{"a", "3"}, in.Strings())

	var nilInput *Input
	assert.Equal(t, 0, nilInput.Len())
	assert.Nil(t, nilInput.Strings())
}

func TestOutput(t *testing.T) {
	out := NewOutput("done")
	assert.False(t, out.IsEmpty())
	assert.Equal(t, "done", out.Value())
	assert.Equal(t, "done", out.String())

	empty := EmptyOutput()
	assert.True(t, empty.IsEmpty())
	assert.Nil(t, empty.Value())

	var nilOut *Output
	assert.True(t, nilOut.IsEmpty())
	assert.Equal(t, "", nilOut.String())

	_, ok := ContentAs[int](NewOutput("x").Content())
	assert.False(t, ok)
}

func TestSimple_Run(t *testing.T) {
	s := NewSimpleFunc("hello", func(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
		assert.Equal(t, 0, in.Len())
		return NewOutput("hi"), nil
	})
	assert.Empty(t, s.Inputs())

	out, err := s.Run(context.Background(), NewInput(InputItem{From: 1, Content: NewContent("ignored")}), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.String())
}

func TestComplex_RequiresSteps(t *testing.T) {
	_, err := NewComplex("empty", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSteps))
}

func TestComplex_ChainsSteps(t *testing.T) {
	sum := ActionFunc(func(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
		total := 0
		for _, v := range in.Values() {
			total += v.(int)
		}
		return NewOutput(total), nil
	})
	double := ActionFunc(func(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
		c, _ := in.Get(0)
		v, _ := ContentAs[int](c)
		return NewOutput(v * 2), nil
	})

	c, err := NewComplex("calc", []ID{1, 2}, sum, double)
	require.NoError(t, err)
	assert.Equal(t, []ID{1, 2}, c.Inputs())
	assert.Equal(t, 2, c.Steps())

	in := NewInput(
		InputItem{From: 1, Content: NewContent(2)},
		InputItem{From: 2, Content: NewContent(5)},
	)
	out, err := c.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, 14, out.Value())
}

func TestComplex_StepFailureStops(t *testing.T) {
	calls := 0
	fail := ActionFunc(func(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
		calls++
		return nil, errors.New("boom")
	})
	never := ActionFunc(func(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
		calls++
		return EmptyOutput(), nil
	})

	c, err := NewComplex("fails", nil, fail, never)
	require.NoError(t, err)
	_, err = c.Run(context.Background(), EmptyInput(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0")
	assert.Equal(t, 1, calls)
}

func TestDefaultTask_Wiring(t *testing.T) {
	a := NewSimple("a", nil)
	b := NewSimple("b", nil)
	d := NewDefaultTaskWithFunc("join", func(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
		return NewOutput(in.Len()), nil
	})
	d.SetPredecessors(a, b)
	assert.Equal(t, []ID{a.ID(), b.ID()}, d.Inputs())

	inputs := d.Inputs()
	inputs[0] = 0
	assert.Equal(t, a.ID(), d.Inputs()[0])

	d.SetInputs(b.ID())
	assert.Equal(t, []ID{b.ID()}, d.Inputs())

	out, err := d.Run(context.Background(), NewInput(InputItem{From: b.ID(), Content: NewContent("x")}), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Value())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "plain", ErrorMessage(errors.New("plain")))

	cmdErr := &CommandError{Command: "false", ExitCode: 1, Stderr: "bad things", Err: errors.New("exit status 1")}
	assert.Equal(t, "bad things", ErrorMessage(cmdErr))
}

func TestCommandAction_Stdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	action := NewCommandAction(`echo "$1-$2"`)
	in := NewInput(
		InputItem{From: 1, Content: NewContent("left")},
		InputItem{From: 2, Content: NewContent("right")},
	)
	out, err := action.Run(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, "left-right", out.String())
}

func TestCommandAction_ExpandsEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	env := utils.NewIsolatedEnvVar()
	env.Set("WHO", "dag")
	out, err := NewCommandAction("echo hello ${WHO}").Run(context.Background(), EmptyInput(), env)
	require.NoError(t, err)
	assert.Equal(t, "hello dag", out.String())
}

func TestCommandAction_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	_, err := NewCommandAction("echo oops >&2; exit 3").Run(context.Background(), EmptyInput(), nil)
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "oops", cmdErr.ToErrorMessage())
}

func TestCommandAction_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	start := time.Now()
	_, err := NewCommandAction("sleep 5").WithTimeout(100*time.Millisecond).Run(context.Background(), EmptyInput(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandAction_ExpandedSkipsRuntimeEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	action := NewCommandAction("f=shell; echo ${f}")
	action.Expanded = true
	out, err := action.Run(context.Background(), EmptyInput(), utils.NewIsolatedEnvVar())
	require.NoError(t, err)
	assert.Equal(t, "shell", out.String())
}
