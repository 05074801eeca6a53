/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for the watchdog.
// config 包提供 watchdog 的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Environment variables / 环境变量
// 2. Configuration file / 配置文件
// 3. Default values / 默认值
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath       = "/etc/watchdog/config.yaml"
	DefaultWorkerDir        = "/opt/bot"
	DefaultWorkerCommand    = "python3"
	DefaultWorkerScript     = "tg_bot.py"
	DefaultMaxRestarts      = 10
	DefaultPollInterval     = 30 * time.Second
	DefaultLivenessMode     = LivenessModePattern
	DefaultNotifyEndpoint   = "https://api.telegram.org"
	DefaultParseMode        = "Markdown"
	DefaultNotifyTimeout    = 10 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 5 * time.Minute
	DefaultSinkPath         = DefaultWorkerDir + "/bot_monitor.log"
	DefaultLogLevel         = "info"
	DefaultLogMaxSize       = 100 // MB
	DefaultLogMaxBackups    = 3
	DefaultLogMaxAge        = 7 // days
	DefaultHTTPAddress      = ":9191"
	DefaultServiceName      = "watchdog"
)

// Liveness modes / 存活检测模式
const (
	LivenessModePattern = "pattern"
	LivenessModePIDFile = "pidfile"
)

// EnvPrefix is the prefix for environment overrides, e.g. WATCHDOG_SUPERVISOR_MAX_RESTARTS
// EnvPrefix 是环境变量覆盖的前缀
const EnvPrefix = "WATCHDOG"

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	v := newViper()

	// Set config file path / 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv(EnvPrefix + "_CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		v.SetConfigFile(DefaultConfigPath)
	}

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if we have defaults
		// 如果有默认值，配置文件未找到不是错误
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return unmarshal(v)
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(yamlData)); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return unmarshal(v)
}

// newViper builds a viper instance with defaults and env bindings
// newViper 创建带默认值和环境变量绑定的 viper 实例
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The worker bot reads its token from TELEGRAM_BOT_TOKEN, accept the same name
	// 工作进程从 TELEGRAM_BOT_TOKEN 读取 token，这里也接受同名变量
	_ = v.BindEnv("notify.token", EnvPrefix+"_NOTIFY_TOKEN", "TELEGRAM_BOT_TOKEN")

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Worker defaults / 工作进程默认值
	v.SetDefault("worker.dir", DefaultWorkerDir)
	v.SetDefault("worker.command", DefaultWorkerCommand)
	v.SetDefault("worker.args", []string{DefaultWorkerScript})
	v.SetDefault("worker.pattern", DefaultWorkerScript)

	// Supervisor defaults / 监管默认值
	v.SetDefault("supervisor.max_restarts", DefaultMaxRestarts)
	v.SetDefault("supervisor.poll_interval", DefaultPollInterval)

	// Liveness defaults / 存活检测默认值
	v.SetDefault("liveness.mode", DefaultLivenessMode)
	v.SetDefault("liveness.pid_file", "")

	// Notify defaults / 通知默认值
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.endpoint", DefaultNotifyEndpoint)
	v.SetDefault("notify.token", "")
	v.SetDefault("notify.chat_id", "")
	v.SetDefault("notify.parse_mode", DefaultParseMode)
	v.SetDefault("notify.timeout", DefaultNotifyTimeout)
	v.SetDefault("notify.breaker_threshold", DefaultBreakerThreshold)
	v.SetDefault("notify.breaker_cooldown", DefaultBreakerCooldown)

	v.SetDefault("sink.path", DefaultSinkPath)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.address", DefaultHTTPAddress)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", DefaultServiceName)
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	// Validate worker / 验证工作进程
	if c.Worker.Command == "" {
		return errors.New("worker.command is required")
	}
	if c.Worker.Pattern == "" {
		return errors.New("worker.pattern is required")
	}
	if c.Worker.Dir == "" {
		return errors.New("worker.dir is required")
	}

	// Validate restart policy / 验证重启策略
	if c.Supervisor.MaxRestarts < 1 {
		return errors.New("supervisor.max_restarts must be at least 1")
	}
	if c.Supervisor.PollInterval <= 0 {
		return errors.New("supervisor.poll_interval must be positive")
	}

	// Validate liveness mode / 验证存活检测模式
	switch c.Liveness.Mode {
	case LivenessModePattern:
	case LivenessModePIDFile:
		if c.Liveness.PIDFile == "" {
			return errors.New("liveness.pid_file is required in pidfile mode")
		}
	default:
		return fmt.Errorf("invalid liveness mode: %s (must be pattern or pidfile)", c.Liveness.Mode)
	}

	// Validate notifier / 验证通知
	if c.Notify.Enabled {
		if c.Notify.Token == "" {
			return errors.New("notify.token is required when notify is enabled")
		}
		if c.Notify.ChatID == "" {
			return errors.New("notify.chat_id is required when notify is enabled")
		}
		if c.Notify.Timeout <= 0 {
			return errors.New("notify.timeout must be positive")
		}
	}

	if c.Sink.Path == "" {
		return errors.New("sink.path is required")
	}

	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.HTTP.Enabled && c.HTTP.Address == "" {
		return errors.New("http.address is required when http is enabled")
	}

	return nil
}

// String returns a string representation of the config (for debugging), token masked
// String 返回配置的字符串表示（用于调试），token 已脱敏
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Worker.Dir: %s, Worker.Command: %s %v, Worker.Pattern: %s, MaxRestarts: %d, PollInterval: %v, Liveness: %s, Notify.Enabled: %t, Notify.Token: %s, Sink: %s}",
		c.Worker.Dir,
		c.Worker.Command,
		c.Worker.Args,
		c.Worker.Pattern,
		c.Supervisor.MaxRestarts,
		c.Supervisor.PollInterval,
		c.Liveness.Mode,
		c.Notify.Enabled,
		maskToken(c.Notify.Token),
		c.Sink.Path,
	)
}

// maskToken keeps the bot id part of a "<id>:<secret>" token
// maskToken 保留 "<id>:<secret>" 形式 token 的 id 部分
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if idx := strings.Index(token, ":"); idx > 0 {
		return token[:idx] + ":***"
	}
	return "***"
}
