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

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/seatunnel/watchdog/internal/config"
	"github.com/seatunnel/watchdog/internal/discovery"
	"github.com/seatunnel/watchdog/internal/logsink"
	"github.com/seatunnel/watchdog/internal/metrics"
	"github.com/seatunnel/watchdog/internal/monitor"
	"github.com/seatunnel/watchdog/internal/notify"
	"github.com/seatunnel/watchdog/internal/otel_trace"
	"github.com/seatunnel/watchdog/internal/process"
	"github.com/seatunnel/watchdog/internal/status"
	"go.uber.org/zap"
)

// Watchdog wires the supervisor with its collaborators
// Watchdog 将监管器与其协作组件组装在一起
type Watchdog struct {
	// config holds the watchdog configuration
	// config 保存 watchdog 配置
	config *config.Config

	// runID identifies this supervisor run in logs and status
	// runID 在日志和状态中标识本次运行
	runID string

	logger     *zap.Logger
	sink       *logsink.Sink
	supervisor *monitor.Supervisor
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	tracing    *otel_trace.Provider
	status     *status.Server
}

// NewWatchdog creates a Watchdog with all components initialized
// NewWatchdog 创建一个初始化所有组件的 Watchdog 实例
func NewWatchdog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Watchdog, error) {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	// Open the shared log sink / 打开共享日志
	sink, err := logsink.Open(cfg.Sink.Path)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	m.MaxRestarts.Set(float64(cfg.Supervisor.MaxRestarts))

	notifier := notify.New(cfg.Notify, logger)
	if tn, ok := notifier.(*notify.TelegramNotifier); ok {
		tn.SetResultHook(m.ObserveAlert)
	}

	pidFile := ""
	if cfg.Liveness.Mode == config.LivenessModePIDFile {
		pidFile = cfg.Liveness.PIDFile
	}
	launcher := process.NewLauncher(cfg.Worker, pidFile, sink, logger)

	sup := monitor.NewSupervisor(monitor.Settings{
		WorkerName:   cfg.Worker.Pattern,
		MaxRestarts:  cfg.Supervisor.MaxRestarts,
		PollInterval: cfg.Supervisor.PollInterval,
	}, newLivenessChecker(cfg, logger), launcher, notifier, sink, logger)
	sup.SetEventHandler(m.Observe)

	tracing := otel_trace.Init(ctx, cfg.Telemetry, logger)
	sup.SetTracer(tracing.Tracer())

	w := &Watchdog{
		config:     cfg,
		runID:      runID,
		logger:     logger,
		sink:       sink,
		supervisor: sup,
		metrics:    m,
		registry:   registry,
		tracing:    tracing,
	}
	if cfg.HTTP.Enabled {
		w.status = status.NewServer(cfg.HTTP.Address, cfg.Telemetry.ServiceName, runID, sup, registry, logger)
	}
	return w, nil
}

// newLivenessChecker selects the liveness strategy
// newLivenessChecker 选择存活检测策略
func newLivenessChecker(cfg *config.Config, logger *zap.Logger) discovery.LivenessChecker {
	if cfg.Liveness.Mode == config.LivenessModePIDFile {
		return discovery.NewPIDFileChecker(cfg.Liveness.PIDFile, cfg.Worker.Pattern, logger)
	}
	return discovery.NewPatternChecker(cfg.Worker.Pattern, logger)
}

// Run starts the status server if enabled and blocks in the supervision loop.
// It returns monitor.ErrRestartLimitReached on exhaustion and nil on cancellation.
// Run 启动状态服务（若启用）并阻塞在监管循环中，耗尽时返回 monitor.ErrRestartLimitReached，取消时返回 nil。
func (w *Watchdog) Run(ctx context.Context) error {
	w.logger.Info("watchdog starting", zap.Stringer("config", w.config))

	if w.status != nil {
		if err := w.status.Start(ctx); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	err := w.supervisor.Run(ctx)
	if errors.Is(err, monitor.ErrRestartLimitReached) {
		w.logger.Error("supervision halted, manual intervention required",
			zap.Int("max_restarts", w.config.Supervisor.MaxRestarts))
	}
	return err
}

// Shutdown releases the sink and flushes traces
// Shutdown 释放日志文件并刷新追踪数据
func (w *Watchdog) Shutdown(ctx context.Context) {
	if err := w.tracing.Shutdown(ctx); err != nil {
		w.logger.Warn("failed to shutdown tracing", zap.Error(err))
	}
	if err := w.sink.Close(); err != nil {
		w.logger.Warn("failed to close sink", zap.Error(err))
	}
}
