package utils

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// placeholderPattern 匹配 ${NAME} 形式的占位符，以及转义写法 $${NAME}
var placeholderPattern = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// EnvVar 任务执行环境变量（对外导出）
// 先查找通过Set显式设置的值，找不到时回退到进程环境变量
// 并发安全，可在多个Task之间共享
type EnvVar struct {
	mu     sync.RWMutex
	values map[string]string
	// useProcessEnv 是否回退到进程环境变量
	useProcessEnv bool
}

// NewEnvVar 创建EnvVar实例（对外导出）
func NewEnvVar() *EnvVar {
	return &EnvVar{
		values:        make(map[string]string),
		useProcessEnv: true,
	}
}

// NewIsolatedEnvVar 创建不读取进程环境变量的EnvVar（对外导出，主要用于测试）
func NewIsolatedEnvVar() *EnvVar {
	return &EnvVar{
		values:        make(map[string]string),
		useProcessEnv: false,
	}
}

// Set 设置变量
func (e *EnvVar) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[name] = value
}

// Get 获取变量，第二个返回值表示是否存在
func (e *EnvVar) Get(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	e.mu.RLock()
	value, ok := e.values[name]
	e.mu.RUnlock()
	if ok {
		return value, true
	}
	if e.useProcessEnv {
		return os.LookupEnv(name)
	}
	return "", false
}

// MustGet 获取变量，不存在时返回ParseError
func (e *EnvVar) MustGet(name string) (string, error) {
	value, ok := e.Get(name)
	if !ok {
		return "", NewParseError("环境变量 %s 未定义", name)
	}
	return value, nil
}

// Expand 替换字符串中的 ${NAME} 占位符，只替换一遍，变量值中的占位符原样保留
// $${NAME} 输出字面量 ${NAME}，用于需要交给shell处理的变量
// 任意一个占位符无法解析时返回ParseError，列出所有缺失的变量名
func (e *EnvVar) Expand(s string) (string, error) {
	var missing []string
	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "$$") {
			return match[1:]
		}
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := e.Get(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return s, NewParseError("以下占位符未找到对应的环境变量: %v", missing)
	}
	return result, nil
}

// Keys 返回所有显式设置的变量名（升序）
func (e *EnvVar) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
