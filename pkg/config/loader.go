package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfig 返回应用了默认值的配置
func DefaultConfig() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadEngineConfig 加载配置文件（对外导出）
// 文件不存在时返回默认配置；读取后会应用默认值并校验
func LoadEngineConfig(path string) (*EngineConfig, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return ParseEngineConfig(data)
}

// ParseEngineConfig 从YAML内容解析配置
func ParseEngineConfig(data []byte) (*EngineConfig, error) {
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := ValidateEngineConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
