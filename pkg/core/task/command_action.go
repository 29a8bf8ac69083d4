package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/LENAX/dag-engine/pkg/utils"
)

// CommandAction 执行外部命令的Action（对外导出）
// 上游输入按顺序作为位置参数追加在命令之后，stdout（去除首尾空白）作为输出
type CommandAction struct {
	Command string
	Timeout time.Duration
	// Env 额外注入子进程的环境变量，形如 KEY=VALUE
	Env []string
	// Expanded 命令已在加载时展开，运行时不再替换 ${NAME}
	Expanded bool
}

// NewCommandAction 创建命令Action（对外导出）
func NewCommandAction(command string) *CommandAction {
	return &CommandAction{Command: command}
}

// WithTimeout 设置命令超时
func (a *CommandAction) WithTimeout(d time.Duration) *CommandAction {
	a.Timeout = d
	return a
}

// Run 执行命令
// 除非 Expanded 为真，命令中的 ${NAME} 会先用env展开
func (a *CommandAction) Run(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
	command := a.Command
	if env != nil && !a.Expanded {
		expanded, err := env.Expand(command)
		if err != nil {
			return nil, &CommandError{Command: a.Command, ExitCode: -1, Err: err}
		}
		command = expanded
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, shell(), shellArgs(command, in.Strings())...)
	// 子进程被杀后，残留的孙进程可能仍持有输出管道
	cmd.WaitDelay = time.Second
	if len(a.Env) > 0 {
		cmd.Env = append(cmd.Environ(), a.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{
			Command:  command,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			cmdErr.Err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return nil, cmdErr
	}

	return NewOutput(strings.TrimSpace(stdout.String())), nil
}

func shell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

// shellArgs 组装shell参数；sh -c 的第一个额外参数是 $0，之后才是 $1...
func shellArgs(command string, inputs []string) []string {
	if runtime.GOOS == "windows" {
		return append([]string{"/C", command}, inputs...)
	}
	args := []string{"-c", command, "sh"}
	return append(args, inputs...)
}

// CommandError 命令执行失败（对外导出）
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed (exit %d): %v", e.Command, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ToErrorMessage 优先返回stderr内容
func (e *CommandError) ToErrorMessage() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Error()
}
