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

// Package process launches the worker as a detached OS process.
// process 包以脱离会话的方式启动工作进程。
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/seatunnel/watchdog/internal/config"
	"go.uber.org/zap"
)

// Sentinel errors / 哨兵错误
var (
	// ErrInvalidWorkerDir is returned when the worker directory is not usable
	// ErrInvalidWorkerDir 表示工作目录不可用
	ErrInvalidWorkerDir = errors.New("invalid worker directory")

	// ErrLaunchFailed is returned when the worker could not be spawned
	// ErrLaunchFailed 表示工作进程无法启动
	ErrLaunchFailed = errors.New("failed to launch worker")
)

// OutputSource hands out append-mode handles for the worker's stdout and stderr
// OutputSource 为工作进程的 stdout/stderr 提供追加模式句柄
type OutputSource interface {
	OpenAppend() (*os.File, error)
}

// Launcher spawns the worker. It never waits for the worker or verifies that
// it stays up; the next liveness check decides that.
// Launcher 启动工作进程，不等待也不验证其是否持续运行，由下一次存活检查判断。
type Launcher struct {
	dir     string
	command string
	args    []string
	env     []string
	pidFile string
	output  OutputSource
	logger  *zap.Logger
}

// NewLauncher creates a launcher for the configured worker
// NewLauncher 为配置的工作进程创建启动器
func NewLauncher(cfg config.WorkerConfig, pidFile string, output OutputSource, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		dir:     cfg.Dir,
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		env:     append([]string(nil), cfg.Env...),
		pidFile: pidFile,
		output:  output,
		logger:  logger.Named("launcher"),
	}
}

// Launch starts one worker instance in the worker directory, in its own
// session, with stdout and stderr appended to the output source. It returns
// the new PID. The worker outlives ctx.
// Launch 在工作目录中以独立会话启动一个工作进程，stdout/stderr 追加到输出源，返回新 PID。
// 工作进程的生命周期不受 ctx 约束。
func (l *Launcher) Launch(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	info, err := os.Stat(l.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWorkerDir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: %s is not a directory", ErrInvalidWorkerDir, l.dir)
	}

	out, err := l.output.OpenAppend()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	// The child holds its own descriptor after Start / Start 之后子进程持有自己的描述符
	defer out.Close()

	cmd := exec.Command(l.command, l.args...)
	cmd.Dir = l.dir
	cmd.Stdin = nil
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Env = append(os.Environ(), l.env...)
	setDetachAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	pid := cmd.Process.Pid

	// Reap the child when it exits so it never lingers as a zombie
	// 子进程退出时回收，避免残留僵尸进程
	go func() {
		err := cmd.Wait()
		l.logger.Info("worker exited", zap.Int("pid", pid), zap.Error(err))
	}()

	if l.pidFile != "" {
		if err := writePIDFile(l.pidFile, pid); err != nil {
			l.logger.Warn("failed to write pid file", zap.String("pid_file", l.pidFile), zap.Error(err))
		}
	}

	l.logger.Info("worker launched",
		zap.Int("pid", pid),
		zap.String("command", l.command),
		zap.Strings("args", l.args),
		zap.String("dir", l.dir))
	return pid, nil
}

func writePIDFile(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
