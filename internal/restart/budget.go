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

// Package restart tracks the bounded-retry restart policy of the supervisor.
// restart 包跟踪监管进程的有限重试重启策略。
//
// This package provides:
// 此包提供：
// - Consecutive failure counting / 连续失败计数
// - Restart limit detection / 重启上限检测
// - Restart history tracking / 重启历史跟踪
package restart

import (
	"sync"
	"time"
)

// Default configuration values
// 默认配置值
const (
	DefaultMaxRestarts = 10 // 默认最大连续重启次数 / Default max consecutive restarts
	maxRecordedTimes   = 20 // 保留的重启时间数量 / Restart times kept in history
)

// History tracks restart history across the supervisor lifetime
// History 跟踪监管进程生命周期内的重启历史
type History struct {
	RestartCount int         `json:"restart_count"`
	LastRestart  time.Time   `json:"last_restart"`
	RestartTimes []time.Time `json:"restart_times"` // 最近的重启时间 / Most recent restart times
}

// Budget counts consecutive failed liveness checks against a ceiling.
// Invariant: 0 <= Consecutive() <= Max().
// Budget 统计连续失败的存活检查次数，不变量：0 <= Consecutive() <= Max()。
type Budget struct {
	max         int
	consecutive int
	history     History
	now         func() time.Time
	mu          sync.RWMutex
}

// NewBudget creates a budget allowing max consecutive failures. Values below 1 use the default.
// NewBudget 创建允许 max 次连续失败的预算，小于 1 时使用默认值。
func NewBudget(max int) *Budget {
	if max < 1 {
		max = DefaultMaxRestarts
	}
	return &Budget{max: max, now: time.Now}
}

// RecordFailure registers one absent check followed by a restart attempt.
// It returns the new consecutive count and whether the ceiling is reached.
// RecordFailure 记录一次缺失检查及其重启尝试，返回新的连续次数以及是否达到上限。
func (b *Budget) RecordFailure() (count int, exhausted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.consecutive < b.max {
		b.consecutive++
	}

	t := b.now()
	b.history.RestartCount++
	b.history.LastRestart = t
	b.history.RestartTimes = append(b.history.RestartTimes, t)
	if len(b.history.RestartTimes) > maxRecordedTimes {
		b.history.RestartTimes = b.history.RestartTimes[len(b.history.RestartTimes)-maxRecordedTimes:]
	}

	return b.consecutive, b.consecutive >= b.max
}

// RecordSuccess resets the consecutive counter after a healthy check
// RecordSuccess 在健康检查后重置连续计数
func (b *Budget) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
}

// Consecutive returns the current trailing failure count
// Consecutive 返回当前连续失败次数
func (b *Budget) Consecutive() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.consecutive
}

// Max returns the ceiling / Max 返回上限
func (b *Budget) Max() int {
	return b.max
}

// Exhausted reports whether the ceiling has been reached
// Exhausted 报告是否已达到上限
func (b *Budget) Exhausted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.consecutive >= b.max
}

// History returns a copy of the restart history
// History 返回重启历史的副本
func (b *Budget) History() History {
	b.mu.RLock()
	defer b.mu.RUnlock()

	h := b.history
	h.RestartTimes = append([]time.Time(nil), b.history.RestartTimes...)
	return h
}
