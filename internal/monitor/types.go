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

package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/seatunnel/watchdog/internal/restart"
)

// Sentinel errors / 哨兵错误
var (
	// ErrWorkerDown is the failure signal of HandleAbsence
	// ErrWorkerDown 是 HandleAbsence 返回的失败信号
	ErrWorkerDown = errors.New("worker not running")

	// ErrRestartLimitReached is the only error that escapes the supervision loop
	// ErrRestartLimitReached 是唯一会逃出监管循环的错误
	ErrRestartLimitReached = errors.New("restart limit reached")
)

// State represents the supervisor state
// State 表示监管状态
type State string

const (
	StateHealthy    State = "healthy"
	StateRestarting State = "restarting"
	StateHalted     State = "halted"
)

// EventType represents the type of supervision event
// EventType 表示监管事件类型
type EventType string

const (
	EventChecked          EventType = "checked"
	EventRestartAttempted EventType = "restart_attempted"
	EventHalted           EventType = "halted"
)

// Event is emitted for every check, restart attempt and halt
// Event 在每次检查、重启尝试和停止时发出
type Event struct {
	Type        EventType `json:"type"`
	State       State     `json:"state"`
	Alive       bool      `json:"alive"`
	Consecutive int       `json:"consecutive"`
	PID         int       `json:"pid,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventHandler is called synchronously for every event
// EventHandler 对每个事件同步调用
type EventHandler func(event *Event)

// Launcher starts one worker instance and returns its PID
// Launcher 启动一个工作进程实例并返回 PID
type Launcher interface {
	Launch(ctx context.Context) (int, error)
}

// LineWriter appends one timestamped line to the shared log sink
// LineWriter 向共享日志追加一行带时间戳的内容
type LineWriter interface {
	Line(msg string)
}

// Snapshot is a point-in-time view of the supervisor
// Snapshot 是监管状态的时间点视图
type Snapshot struct {
	Worker              string          `json:"worker"`
	State               State           `json:"state"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	MaxRestarts         int             `json:"max_restarts"`
	PollInterval        time.Duration   `json:"poll_interval"`
	Checks              uint64          `json:"checks"`
	LastCheck           time.Time       `json:"last_check"`
	LastPID             int             `json:"last_pid,omitempty"`
	History             restart.History `json:"history"`
}
