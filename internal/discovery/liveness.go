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

// Package discovery decides whether the worker process is currently running.
// discovery 包判断工作进程当前是否在运行。
//
// Liveness is re-derived from the live process table on every check; no
// process handle is held between checks.
// 每次检查都从进程表重新推导存活状态，检查之间不持有进程句柄。
package discovery

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors / 哨兵错误
var (
	// ErrNoPID is returned when the pid file is missing or empty
	// ErrNoPID 表示 pid 文件不存在或为空
	ErrNoPID = errors.New("no pid recorded")

	// ErrProcessGone is returned when the recorded PID no longer exists
	// ErrProcessGone 表示记录的 PID 已不存在
	ErrProcessGone = errors.New("recorded process not running")
)

// LivenessChecker reports whether the worker exists right now. It has no side effects.
// LivenessChecker 报告工作进程此刻是否存在，无副作用。
type LivenessChecker interface {
	IsAlive(ctx context.Context) bool
}

// LivenessFunc adapts a function to LivenessChecker
// LivenessFunc 将函数适配为 LivenessChecker
type LivenessFunc func(ctx context.Context) bool

// IsAlive implements LivenessChecker / IsAlive 实现 LivenessChecker
func (f LivenessFunc) IsAlive(ctx context.Context) bool {
	return f(ctx)
}

// ProcessInfo is one entry of the process table
// ProcessInfo 是进程表中的一项
type ProcessInfo struct {
	PID     int32  `json:"pid"`
	Cmdline string `json:"cmdline"`
	Zombie  bool   `json:"zombie"`
}

// MatchesPattern reports whether cmdline identifies the worker. It is a plain
// substring match, so an unrelated process sharing the substring also matches.
// MatchesPattern 判断命令行是否标识工作进程，使用子串匹配，包含相同子串的无关进程也会匹配。
func MatchesPattern(cmdline, pattern string) bool {
	if pattern == "" {
		return false
	}
	return strings.Contains(cmdline, pattern)
}
