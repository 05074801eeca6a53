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

package config

import "time"

// Config represents the watchdog configuration
// Config 表示 watchdog 配置
type Config struct {
	// Worker describes the supervised process / 被监管的工作进程
	Worker WorkerConfig `mapstructure:"worker"`

	// Supervisor holds the restart policy / 重启策略
	Supervisor SupervisorConfig `mapstructure:"supervisor"`

	// Liveness selects how the worker is detected / 存活检测方式
	Liveness LivenessConfig `mapstructure:"liveness"`

	// Notify configures the operator alert channel / 告警通知通道
	Notify NotifyConfig `mapstructure:"notify"`

	// Sink is the append-only worker log / 只追加的工作进程日志
	Sink SinkConfig `mapstructure:"sink"`

	// Log configures the watchdog's own diagnostics / watchdog 自身诊断日志
	Log LogConfig `mapstructure:"log"`

	// HTTP configures the optional status endpoint / 可选状态接口
	HTTP HTTPConfig `mapstructure:"http"`

	// Telemetry configures OpenTelemetry tracing / OpenTelemetry 追踪
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// WorkerConfig describes how to launch and recognize the worker
// WorkerConfig 描述如何启动和识别工作进程
type WorkerConfig struct {
	// Dir is the worker home directory, used as the working directory on launch
	// Dir 是工作进程主目录，启动时作为工作目录
	Dir string `mapstructure:"dir"`

	// Command is the executable to run / Command 是要执行的程序
	Command string `mapstructure:"command"`

	// Args are the command arguments / Args 是命令参数
	Args []string `mapstructure:"args"`

	// Pattern is matched against every process command line
	// Pattern 用于匹配进程命令行
	Pattern string `mapstructure:"pattern"`

	// Env holds extra KEY=VALUE environment entries, appended to the inherited environment
	// Env 是额外的 KEY=VALUE 环境变量，追加到继承的环境中
	Env []string `mapstructure:"env"`
}

// SupervisorConfig holds the bounded-retry policy
// SupervisorConfig 保存有限重试策略
type SupervisorConfig struct {
	MaxRestarts  int           `mapstructure:"max_restarts"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LivenessConfig selects the liveness strategy
// LivenessConfig 选择存活检测策略
type LivenessConfig struct {
	// Mode is "pattern" (scan the process table) or "pidfile"
	// Mode 为 "pattern"（扫描进程表）或 "pidfile"
	Mode string `mapstructure:"mode"`

	// PIDFile is written on every launch and read in pidfile mode
	// PIDFile 在每次启动时写入，pidfile 模式下读取
	PIDFile string `mapstructure:"pid_file"`
}

// NotifyConfig configures the Telegram-compatible messaging webhook
// NotifyConfig 配置 Telegram 兼容的消息 webhook
type NotifyConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Endpoint         string        `mapstructure:"endpoint"`
	Token            string        `mapstructure:"token"`
	ChatID           string        `mapstructure:"chat_id"`
	ParseMode        string        `mapstructure:"parse_mode"`
	Timeout          time.Duration `mapstructure:"timeout"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// SinkConfig configures the shared append-only log file
// SinkConfig 配置共享的只追加日志文件
type SinkConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level"`

	// File is the log file path, empty for stderr only
	// File 是日志文件路径，为空时仅输出到 stderr
	File string `mapstructure:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age"`
}

// HTTPConfig configures the status server
// HTTPConfig 配置状态服务
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// TelemetryConfig configures tracing export
// TelemetryConfig 配置追踪导出
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}
