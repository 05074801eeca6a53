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

// Package metrics exposes supervision counters for Prometheus.
// metrics 包向 Prometheus 暴露监管指标。
//
// Metrics:
//   - watchdog_checks_total{result}: liveness checks by outcome (alive, absent)
//   - watchdog_restarts_total{result}: restart attempts by launch outcome (launched, failed)
//   - watchdog_consecutive_failures: current trailing failure count
//   - watchdog_max_restarts: configured ceiling
//   - watchdog_state{state}: 1 for the current supervisor state
//   - watchdog_alerts_total{result}: alert deliveries (delivered, failed)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/seatunnel/watchdog/internal/monitor"
)

const namespace = "watchdog"

// Metrics holds the collectors of one supervisor
// Metrics 保存一个监管器的指标收集器
type Metrics struct {
	ChecksTotal         *prometheus.CounterVec
	RestartsTotal       *prometheus.CounterVec
	ConsecutiveFailures prometheus.Gauge
	MaxRestarts         prometheus.Gauge
	State               *prometheus.GaugeVec
	AlertsTotal         *prometheus.CounterVec
}

// New registers the collectors on reg
// New 在 reg 上注册指标收集器
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of worker liveness checks",
		}, []string{"result"}),
		RestartsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Total number of worker restart attempts",
		}, []string{"result"}),
		ConsecutiveFailures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Current number of consecutive failed liveness checks",
		}),
		MaxRestarts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_restarts",
			Help:      "Consecutive failures that halt supervision",
		}),
		State: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Supervisor state, 1 for the current state",
		}, []string{"state"}),
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Total number of operator alerts by delivery outcome",
		}, []string{"result"}),
	}
	m.setState(monitor.StateHealthy)
	return m
}

// Observe records a supervisor event; use it as the monitor.EventHandler
// Observe 记录监管事件，可作为 monitor.EventHandler 使用
func (m *Metrics) Observe(event *monitor.Event) {
	switch event.Type {
	case monitor.EventChecked:
		if event.Alive {
			m.ChecksTotal.WithLabelValues("alive").Inc()
		} else {
			m.ChecksTotal.WithLabelValues("absent").Inc()
		}
		m.ConsecutiveFailures.Set(float64(event.Consecutive))
	case monitor.EventRestartAttempted:
		if event.Error != "" {
			m.RestartsTotal.WithLabelValues("failed").Inc()
		} else {
			m.RestartsTotal.WithLabelValues("launched").Inc()
		}
	case monitor.EventHalted:
		m.ConsecutiveFailures.Set(float64(event.Consecutive))
	}
	m.setState(event.State)
}

// ObserveAlert records one alert outcome; use it as the notifier result hook
// ObserveAlert 记录一次告警结果，可作为通知器的结果回调
func (m *Metrics) ObserveAlert(err error) {
	if err != nil {
		m.AlertsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.AlertsTotal.WithLabelValues("delivered").Inc()
}

func (m *Metrics) setState(current monitor.State) {
	for _, s := range []monitor.State{monitor.StateHealthy, monitor.StateRestarting, monitor.StateHalted} {
		v := 0.0
		if s == current {
			v = 1
		}
		m.State.WithLabelValues(string(s)).Set(v)
	}
}
