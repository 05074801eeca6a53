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

package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ProcessLookup inspects one PID / ProcessLookup 检查单个 PID
type ProcessLookup func(ctx context.Context, pid int32) (ProcessInfo, error)

// PIDFileChecker trusts only the PID recorded at launch, and still requires
// its command line to match the pattern so a recycled PID is not mistaken
// for the worker.
// PIDFileChecker 仅信任启动时记录的 PID，并要求其命令行匹配模式，避免 PID 复用造成误判。
type PIDFileChecker struct {
	path    string
	pattern string
	lookup  ProcessLookup
	logger  *zap.Logger
}

// NewPIDFileChecker creates a pid file based checker
// NewPIDFileChecker 创建基于 pid 文件的检查器
func NewPIDFileChecker(path, pattern string, logger *zap.Logger) *PIDFileChecker {
	return NewPIDFileCheckerWithLookup(path, pattern, LookupProcess, logger)
}

// NewPIDFileCheckerWithLookup creates a checker with a custom PID lookup
// NewPIDFileCheckerWithLookup 创建使用自定义 PID 查询的检查器
func NewPIDFileCheckerWithLookup(path, pattern string, lookup ProcessLookup, logger *zap.Logger) *PIDFileChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PIDFileChecker{path: path, pattern: pattern, lookup: lookup, logger: logger.Named("discovery")}
}

// ReadPID reads the PID recorded in path / ReadPID 读取 path 中记录的 PID
func ReadPID(path string) (int32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNoPID
		}
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, ErrNoPID
	}
	pid, err := strconv.ParseInt(text, 10, 32)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file content %q", text)
	}
	return int32(pid), nil
}

// Find returns the recorded worker process if it is alive and still matches
// Find 返回记录的工作进程（若仍存活且匹配）
func (c *PIDFileChecker) Find(ctx context.Context) (ProcessInfo, error) {
	pid, err := ReadPID(c.path)
	if err != nil {
		return ProcessInfo{}, err
	}
	info, err := c.lookup(ctx, pid)
	if err != nil {
		return ProcessInfo{}, err
	}
	if info.Zombie || !MatchesPattern(info.Cmdline, c.pattern) {
		return ProcessInfo{}, fmt.Errorf("%w: pid %d", ErrProcessGone, pid)
	}
	return info, nil
}

// IsAlive implements LivenessChecker / IsAlive 实现 LivenessChecker
func (c *PIDFileChecker) IsAlive(ctx context.Context) bool {
	if _, err := c.Find(ctx); err != nil {
		c.logger.Debug("recorded worker not alive", zap.String("pid_file", c.path), zap.Error(err))
		return false
	}
	return true
}
