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

package restart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetCountsAndResets(t *testing.T) {
	b := NewBudget(3)
	assert.Equal(t, 3, b.Max())
	assert.Equal(t, 0, b.Consecutive())

	count, exhausted := b.RecordFailure()
	assert.Equal(t, 1, count)
	assert.False(t, exhausted)

	count, exhausted = b.RecordFailure()
	assert.Equal(t, 2, count)
	assert.False(t, exhausted)

	b.RecordSuccess()
	assert.Equal(t, 0, b.Consecutive())
	assert.False(t, b.Exhausted())

	for i := 1; i <= 3; i++ {
		count, exhausted = b.RecordFailure()
		assert.Equal(t, i, count)
	}
	assert.True(t, exhausted)
	assert.True(t, b.Exhausted())

	// Never exceeds the ceiling / 不会超过上限
	count, _ = b.RecordFailure()
	assert.Equal(t, 3, count)
}

func TestBudgetSingleAttempt(t *testing.T) {
	b := NewBudget(1)
	count, exhausted := b.RecordFailure()
	assert.Equal(t, 1, count)
	assert.True(t, exhausted)
}

func TestBudgetDefaultMax(t *testing.T) {
	assert.Equal(t, DefaultMaxRestarts, NewBudget(0).Max())
	assert.Equal(t, DefaultMaxRestarts, NewBudget(-4).Max())
}

// TestBudgetHistory tests restart history tracking
// TestBudgetHistory 测试重启历史跟踪
func TestBudgetHistory(t *testing.T) {
	b := NewBudget(100)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	b.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < maxRecordedTimes+5; i++ {
		b.RecordFailure()
		if i%7 == 0 {
			b.RecordSuccess()
		}
	}

	h := b.History()
	assert.Equal(t, maxRecordedTimes+5, h.RestartCount)
	assert.Equal(t, base.Add(time.Duration(maxRecordedTimes+5)*time.Second), h.LastRestart)
	require.Len(t, h.RestartTimes, maxRecordedTimes)
	assert.Equal(t, h.LastRestart, h.RestartTimes[len(h.RestartTimes)-1])

	// Returned history is a copy / 返回的历史是副本
	h.RestartTimes[0] = time.Time{}
	assert.NotEqual(t, time.Time{}, b.History().RestartTimes[0])
}
