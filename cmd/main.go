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

// Package main is the entry point of the watchdog supervisor.
// main 包是 watchdog 监管进程的入口点。
//
// The watchdog keeps exactly one worker process alive:
// watchdog 保持唯一一个工作进程存活：
// - Polls the process table for the worker / 轮询进程表查找工作进程
// - Relaunches it detached when absent / 缺失时以脱离会话方式重新启动
// - Alerts the operator over a Telegram bot / 通过 Telegram 机器人通知运维
// - Exits with status 1 after too many consecutive failures / 连续失败过多后以状态码 1 退出
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/seatunnel/watchdog/internal/config"
	"github.com/seatunnel/watchdog/internal/discovery"
	"github.com/seatunnel/watchdog/internal/logger"
	"github.com/seatunnel/watchdog/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// errNotRunning makes `check` exit non-zero / errNotRunning 使 `check` 以非零状态退出
var errNotRunning = errors.New("worker not running")

// shutdownTimeout bounds cleanup after the loop ends / 循环结束后清理的超时时间
const shutdownTimeout = 5 * time.Second

// rootCmd is the root command for the watchdog CLI
// rootCmd 是 watchdog CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "watchdog - keeps one worker process alive",
	Long: `watchdog supervises a single long-running worker process.
watchdog 监管一个长期运行的工作进程。

Every poll interval it scans the process table for the worker pattern; when the
worker is missing it logs, alerts, relaunches it and alerts again. After
max_restarts consecutive failures it sends a final alert and exits with status 1.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatchdog,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "watchdog\n")
		fmt.Fprintf(out, "  Version:    %s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// checkCmd runs one liveness check / checkCmd 执行一次存活检查
var checkCmd = &cobra.Command{
	Use:          "check",
	Short:        "Check once whether the worker is running / 检查一次工作进程是否在运行",
	SilenceUsage: true,
	RunE:         runCheck,
}

// notifyTestCmd sends one alert and reports the outcome
// notifyTestCmd 发送一条告警并报告结果
var notifyTestCmd = &cobra.Command{
	Use:          "notify-test [message]",
	Short:        "Send a test alert / 发送测试告警",
	SilenceUsage: true,
	RunE:         runNotifyTest,
}

// configFile is the path to the configuration file
// configFile 是配置文件的路径
var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(versionCmd, checkCmd, notifyTestCmd)
}

// loadConfig loads and validates configuration
// loadConfig 加载并验证配置
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runWatchdog is the main entry point of the supervisor
// runWatchdog 是监管进程的主入口点
func runWatchdog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Setup signal handling for graceful shutdown
	// 设置信号处理以实现优雅关闭
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wd, err := NewWatchdog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		wd.Shutdown(shutdownCtx)
	}()

	return wd.Run(ctx)
}

// runCheck reports the worker's liveness / runCheck 报告工作进程存活状态
func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var pids []string
	if cfg.Liveness.Mode == config.LivenessModePIDFile {
		info, err := discovery.NewPIDFileChecker(cfg.Liveness.PIDFile, cfg.Worker.Pattern, zap.NewNop()).Find(ctx)
		if err == nil {
			pids = append(pids, fmt.Sprint(info.PID))
		}
	} else {
		matches, err := discovery.NewPatternChecker(cfg.Worker.Pattern, zap.NewNop()).Find(ctx)
		if err != nil {
			return err
		}
		for _, m := range matches {
			pids = append(pids, fmt.Sprint(m.PID))
		}
	}

	if len(pids) == 0 {
		fmt.Fprintf(out, "worker %q is not running\n", cfg.Worker.Pattern)
		return errNotRunning
	}
	fmt.Fprintf(out, "worker %q is running (pid %s)\n", cfg.Worker.Pattern, strings.Join(pids, ", "))
	return nil
}

// runNotifyTest sends one alert through the configured endpoint
// runNotifyTest 通过配置的端点发送一条告警
func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Notify.Enabled {
		return errors.New("notify is disabled in configuration")
	}

	text := "🔔 watchdog test alert"
	if len(args) > 0 {
		text = strings.Join(args, " ")
	}

	if err := notify.NewTelegramNotifier(cfg.Notify, zap.NewNop()).Send(cmd.Context(), text); err != nil {
		return fmt.Errorf("alert not delivered: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "alert delivered")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
