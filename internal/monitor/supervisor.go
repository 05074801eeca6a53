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

// Package monitor runs the supervision loop: poll liveness, restart the worker
// when absent, and halt after too many consecutive failures.
// monitor 包运行监管循环：轮询存活状态，缺失时重启工作进程，连续失败过多时停止。
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seatunnel/watchdog/internal/discovery"
	"github.com/seatunnel/watchdog/internal/notify"
	"github.com/seatunnel/watchdog/internal/restart"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// DefaultPollInterval is the default delay between checks
// DefaultPollInterval 是两次检查之间的默认间隔
const DefaultPollInterval = 30 * time.Second

// Sink lines / 日志行
const (
	lineRestarting   = "worker not running, restarting"
	lineLimitReached = "restart limit reached (%d), giving up"
)

// Alert texts, Markdown formatted / Markdown 格式的告警文本
const (
	alertDown      = "⚠️ Worker `%s` is down, restarting..."
	alertRestarted = "✅ Worker `%s` restarted"
	alertHalted    = "🛑 Worker `%s` failed %d times in a row, supervision halted. Manual intervention required."
)

// Settings holds the restart policy of a Supervisor
// Settings 保存 Supervisor 的重启策略
type Settings struct {
	// WorkerName names the worker in alerts / 告警中的工作进程名称
	WorkerName   string
	MaxRestarts  int
	PollInterval time.Duration
}

// Supervisor owns all supervision state. Run drives it from a single
// goroutine; Snapshot may be called concurrently.
// Supervisor 持有全部监管状态，Run 在单个 goroutine 中驱动，Snapshot 可并发调用。
type Supervisor struct {
	name     string
	interval time.Duration

	checker  discovery.LivenessChecker
	launcher Launcher
	notifier notify.Notifier
	sink     LineWriter
	budget   *restart.Budget

	logger       *otelzap.Logger
	tracer       trace.Tracer
	eventHandler EventHandler

	mu        sync.RWMutex
	state     State
	checks    uint64
	lastCheck time.Time
	lastPID   int
}

// NewSupervisor creates a supervisor. It starts in the Healthy state.
// NewSupervisor 创建监管器，初始状态为 Healthy。
func NewSupervisor(settings Settings, checker discovery.LivenessChecker, launcher Launcher,
	notifier notify.Notifier, sink LineWriter, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	interval := settings.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Supervisor{
		name:     settings.WorkerName,
		interval: interval,
		checker:  checker,
		launcher: launcher,
		notifier: notifier,
		sink:     sink,
		budget:   restart.NewBudget(settings.MaxRestarts),
		logger:   otelzap.New(logger.Named("supervisor")),
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		state:    StateHealthy,
	}
}

// SetTracer sets the tracer used for per-cycle spans
// SetTracer 设置每轮循环使用的追踪器
func (s *Supervisor) SetTracer(tracer trace.Tracer) {
	if tracer != nil {
		s.tracer = tracer
	}
}

// SetEventHandler sets the event handler
// SetEventHandler 设置事件处理器
func (s *Supervisor) SetEventHandler(handler EventHandler) {
	s.eventHandler = handler
}

// CheckLiveness reports whether the worker is running. No side effects.
// CheckLiveness 报告工作进程是否在运行，无副作用。
func (s *Supervisor) CheckLiveness(ctx context.Context) bool {
	return s.checker.IsAlive(ctx)
}

// HandlePresence is the healthy branch. It has no side effects and reports success.
// HandlePresence 是健康分支，无副作用，仅返回成功。
func (s *Supervisor) HandlePresence(context.Context) error {
	return nil
}

// markHealthy resets the failure counter after a positive check
// markHealthy 在检查到存活后重置失败计数
func (s *Supervisor) markHealthy(ctx context.Context) {
	s.budget.RecordSuccess()

	s.mu.Lock()
	recovered := s.state == StateRestarting
	s.state = StateHealthy
	s.mu.Unlock()

	if recovered {
		s.logger.Ctx(ctx).Info("worker recovered", zap.String("worker", s.name))
	}
}

// HandleAbsence runs the restart sequence in order: sink line, down alert,
// launch, restarted alert. Alert and launch failures are logged and never
// returned. It always returns ErrWorkerDown.
// HandleAbsence 按顺序执行重启：写日志、发送宕机告警、启动、发送已重启告警。
// 告警和启动失败只记录日志不返回，总是返回 ErrWorkerDown。
func (s *Supervisor) HandleAbsence(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateRestarting
	s.mu.Unlock()

	log := s.logger.Ctx(ctx)
	log.Warn("worker not running, restarting", zap.String("worker", s.name))

	s.sink.Line(lineRestarting)
	s.notifier.SendAlert(ctx, fmt.Sprintf(alertDown, s.name))

	event := &Event{Type: EventRestartAttempted, State: StateRestarting}
	pid, err := s.launcher.Launch(ctx)
	if err != nil {
		// Indistinguishable from "still down" at the next check
		// 下一次检查时与"仍未运行"无法区分
		log.Error("failed to launch worker", zap.String("worker", s.name), zap.Error(err))
		event.Error = err.Error()
	} else {
		event.PID = pid
		s.mu.Lock()
		s.lastPID = pid
		s.mu.Unlock()
	}

	s.notifier.SendAlert(ctx, fmt.Sprintf(alertRestarted, s.name))

	s.emit(event)
	return ErrWorkerDown
}

// RunOnce performs one check and its branch, without sleeping. It returns
// ErrRestartLimitReached when the budget is exhausted, nil otherwise.
// RunOnce 执行一次检查及其分支（不休眠），预算耗尽时返回 ErrRestartLimitReached，否则返回 nil。
func (s *Supervisor) RunOnce(ctx context.Context) error {
	if s.State() == StateHalted {
		return ErrRestartLimitReached
	}

	ctx, span := s.tracer.Start(ctx, "supervisor.cycle")
	defer span.End()

	alive := s.CheckLiveness(ctx)
	span.SetAttributes(attribute.Bool("worker.alive", alive))

	s.mu.Lock()
	s.checks++
	s.lastCheck = time.Now()
	s.mu.Unlock()

	if alive {
		_ = s.HandlePresence(ctx)
		s.markHealthy(ctx)
		s.emit(&Event{Type: EventChecked, State: StateHealthy, Alive: true})
		return nil
	}

	_ = s.HandleAbsence(ctx)

	count, exhausted := s.budget.RecordFailure()
	span.SetAttributes(attribute.Int("supervisor.consecutive_failures", count))
	s.emit(&Event{Type: EventChecked, State: StateRestarting, Alive: false, Consecutive: count})
	if !exhausted {
		return nil
	}

	s.halt(ctx, count)
	span.SetStatus(codes.Error, ErrRestartLimitReached.Error())
	return ErrRestartLimitReached
}

// halt enters the terminal state / halt 进入终止状态
func (s *Supervisor) halt(ctx context.Context, count int) {
	s.mu.Lock()
	s.state = StateHalted
	s.mu.Unlock()

	s.logger.Ctx(ctx).Error("restart limit reached, supervision halted",
		zap.String("worker", s.name), zap.Int("consecutive_failures", count))

	s.sink.Line(fmt.Sprintf(lineLimitReached, count))
	s.notifier.SendAlert(ctx, fmt.Sprintf(alertHalted, s.name, count))
	s.emit(&Event{Type: EventHalted, State: StateHalted, Consecutive: count})
}

// Run loops until the restart limit is reached or ctx is cancelled. It returns
// ErrRestartLimitReached on exhaustion and nil on cancellation.
// Run 循环直到达到重启上限或 ctx 被取消，耗尽时返回 ErrRestartLimitReached，取消时返回 nil。
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Ctx(ctx).Info("supervisor started",
		zap.String("worker", s.name),
		zap.Int("max_restarts", s.budget.Max()),
		zap.Duration("poll_interval", s.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		if ctx.Err() != nil {
			s.logger.Ctx(ctx).Info("supervisor stopped", zap.String("worker", s.name))
			return nil
		}

		if err := s.RunOnce(ctx); err != nil {
			return err
		}
		timer.Reset(s.interval)
	}
}

// State returns the current state / State 返回当前状态
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a copy of the supervision state
// Snapshot 返回监管状态的副本
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Worker:              s.name,
		State:               s.state,
		ConsecutiveFailures: s.budget.Consecutive(),
		MaxRestarts:         s.budget.Max(),
		PollInterval:        s.interval,
		Checks:              s.checks,
		LastCheck:           s.lastCheck,
		LastPID:             s.lastPID,
		History:             s.budget.History(),
	}
}

func (s *Supervisor) emit(event *Event) {
	if s.eventHandler == nil {
		return
	}
	event.Timestamp = time.Now()
	s.eventHandler(event)
}
