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
	"testing"
	"time"

	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// **Feature: watchdog-supervisor, Property 1: Halt iff max consecutive failures**
//
// For any sequence of liveness outcomes, the supervisor halts if and only if
// max_restarts consecutive failures occur, and at the exact check that
// completes that run.
// 对于任意存活结果序列，当且仅当出现 max_restarts 次连续失败时监管停止，且恰好停在该次检查。
func TestProperty_HaltIffMaxConsecutiveFailures(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxRestarts := rapid.IntRange(1, 8).Draw(t, "maxRestarts")
		outcomes := rapid.SliceOfN(rapid.Bool(), 1, 60).Draw(t, "outcomes")

		rec := &recorder{}
		sup := NewSupervisor(Settings{WorkerName: "w", MaxRestarts: maxRestarts, PollInterval: time.Millisecond},
			&scriptedChecker{rec: rec, outcomes: outcomes}, &fakeLauncher{rec: rec},
			fakeNotifier{rec: rec}, fakeSink{rec: rec}, zap.NewNop())

		// Expected halt position / 预期停止位置
		haltAt, run := -1, 0
		for i, alive := range outcomes {
			if alive {
				run = 0
				continue
			}
			run++
			if run == maxRestarts {
				haltAt = i
				break
			}
		}

		for i := range outcomes {
			err := sup.RunOnce(context.Background())
			if i == haltAt {
				if !errors.Is(err, ErrRestartLimitReached) {
					t.Fatalf("expected halt at check %d, got %v", i, err)
				}
				break
			}
			if err != nil {
				t.Fatalf("unexpected halt at check %d (expected %d)", i, haltAt)
			}
		}

		// Every failure up to the halt produced one line and two alerts
		// 停止前每次失败产生一行日志和两条告警
		processed := len(outcomes)
		if haltAt >= 0 {
			processed = haltAt + 1
		}
		failures := 0
		for _, alive := range outcomes[:processed] {
			if !alive {
				failures++
			}
		}
		extra := 0
		if haltAt >= 0 {
			extra = 1
		}
		if got := rec.count("launch"); got != failures {
			t.Fatalf("launches: want %d, got %d", failures, got)
		}
		if got := rec.count("line:"); got != failures+extra {
			t.Fatalf("lines: want %d, got %d", failures+extra, got)
		}
		if got := rec.count("alert:"); got != 2*failures+extra {
			t.Fatalf("alerts: want %d, got %d", 2*failures+extra, got)
		}
		if c := sup.Snapshot().ConsecutiveFailures; c < 0 || c > maxRestarts {
			t.Fatalf("counter %d outside [0, %d]", c, maxRestarts)
		}
	})
}
