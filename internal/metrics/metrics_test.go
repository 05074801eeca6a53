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

package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/seatunnel/watchdog/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe(&monitor.Event{Type: monitor.EventChecked, State: monitor.StateHealthy, Alive: true})
	m.Observe(&monitor.Event{Type: monitor.EventRestartAttempted, State: monitor.StateRestarting, PID: 42})
	m.Observe(&monitor.Event{Type: monitor.EventChecked, State: monitor.StateRestarting, Consecutive: 1})
	m.Observe(&monitor.Event{Type: monitor.EventRestartAttempted, State: monitor.StateRestarting, Error: "not found"})
	m.Observe(&monitor.Event{Type: monitor.EventChecked, State: monitor.StateRestarting, Consecutive: 2})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChecksTotal.WithLabelValues("alive")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChecksTotal.WithLabelValues("absent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RestartsTotal.WithLabelValues("launched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RestartsTotal.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConsecutiveFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("restarting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("healthy")))

	m.Observe(&monitor.Event{Type: monitor.EventHalted, State: monitor.StateHalted, Consecutive: 3})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConsecutiveFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("halted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("restarting")))
}

func TestObserveAlert(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveAlert(nil)
	m.ObserveAlert(nil)
	m.ObserveAlert(errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("failed")))
}

// TestExposition tests the registered metric names
// TestExposition 测试注册的指标名称
func TestExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.MaxRestarts.Set(10)

	expected := `
# HELP watchdog_max_restarts Consecutive failures that halt supervision
# TYPE watchdog_max_restarts gauge
watchdog_max_restarts 10
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "watchdog_max_restarts"))

	// Initial state is healthy / 初始状态为健康
	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("healthy")))
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
