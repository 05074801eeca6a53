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
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// ProcessLister enumerates the live process table
// ProcessLister 枚举当前进程表
type ProcessLister func(ctx context.Context) ([]ProcessInfo, error)

// SystemProcesses lists host processes through gopsutil. Processes that exit
// while being inspected are skipped.
// SystemProcesses 通过 gopsutil 列出主机进程，检查期间退出的进程会被跳过。
func SystemProcesses(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		info, err := inspect(ctx, p)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// LookupProcess inspects a single PID / LookupProcess 检查单个 PID
func LookupProcess(ctx context.Context, pid int32) (ProcessInfo, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("%w: pid %d", ErrProcessGone, pid)
	}
	return inspect(ctx, p)
}

func inspect(ctx context.Context, p *process.Process) (ProcessInfo, error) {
	cmdline, err := p.CmdlineWithContext(ctx)
	if err != nil {
		return ProcessInfo{}, err
	}
	info := ProcessInfo{PID: p.Pid, Cmdline: cmdline}
	if status, err := p.StatusWithContext(ctx); err == nil {
		for _, s := range status {
			if s == process.Zombie {
				info.Zombie = true
			}
		}
	}
	return info, nil
}

// PatternChecker finds the worker by scanning every process command line
// PatternChecker 通过扫描所有进程命令行查找工作进程
type PatternChecker struct {
	pattern string
	list    ProcessLister
	selfPID int32
	logger  *zap.Logger
}

// NewPatternChecker creates a checker over the host process table
// NewPatternChecker 创建基于主机进程表的检查器
func NewPatternChecker(pattern string, logger *zap.Logger) *PatternChecker {
	return NewPatternCheckerWithLister(pattern, SystemProcesses, logger)
}

// NewPatternCheckerWithLister creates a checker over a custom process source
// NewPatternCheckerWithLister 创建基于自定义进程来源的检查器
func NewPatternCheckerWithLister(pattern string, list ProcessLister, logger *zap.Logger) *PatternChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternChecker{
		pattern: pattern,
		list:    list,
		selfPID: int32(os.Getpid()),
		logger:  logger.Named("discovery"),
	}
}

// Find returns the processes matching the pattern, excluding the supervisor
// itself and zombie entries.
// Find 返回匹配模式的进程，排除监管进程自身和僵尸进程。
func (c *PatternChecker) Find(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := c.list(ctx)
	if err != nil {
		return nil, err
	}

	var matches []ProcessInfo
	for _, p := range procs {
		if p.PID == c.selfPID || p.Zombie {
			continue
		}
		if MatchesPattern(p.Cmdline, c.pattern) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// IsAlive implements LivenessChecker. A failed scan counts as absent.
// IsAlive 实现 LivenessChecker，扫描失败视为不存在。
func (c *PatternChecker) IsAlive(ctx context.Context) bool {
	matches, err := c.Find(ctx)
	if err != nil {
		c.logger.Warn("process scan failed", zap.String("pattern", c.pattern), zap.Error(err))
		return false
	}
	if len(matches) > 1 {
		c.logger.Debug("multiple processes match worker pattern",
			zap.String("pattern", c.pattern), zap.Int("count", len(matches)))
	}
	return len(matches) > 0
}
