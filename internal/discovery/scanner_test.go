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
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticLister(procs ...ProcessInfo) ProcessLister {
	return func(context.Context) ([]ProcessInfo, error) {
		return procs, nil
	}
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, MatchesPattern("python3 tg_bot.py", "tg_bot.py"))
	assert.True(t, MatchesPattern("/usr/bin/python3 /opt/bot/tg_bot.py --debug", "tg_bot.py"))
	assert.False(t, MatchesPattern("python3 bot.py", "tg_bot.py"))
	assert.False(t, MatchesPattern("python3 tg_bot.py", ""))

	// Substring semantics: an unrelated editor session also matches
	// 子串语义：无关的编辑器进程同样匹配
	assert.True(t, MatchesPattern("vim tg_bot.py", "tg_bot.py"))
}

// TestPatternCheckerIsAlive tests liveness over a fake process table
// TestPatternCheckerIsAlive 测试基于伪造进程表的存活检测
func TestPatternCheckerIsAlive(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	self := int32(os.Getpid())

	tests := []struct {
		name  string
		procs []ProcessInfo
		want  bool
	}{
		{name: "empty table", want: false},
		{name: "worker present", procs: []ProcessInfo{
			{PID: 1, Cmdline: "/sbin/init"},
			{PID: 4242, Cmdline: "python3 tg_bot.py"},
		}, want: true},
		{name: "only unrelated", procs: []ProcessInfo{{PID: 7, Cmdline: "python3 other.py"}}, want: false},
		{name: "self excluded", procs: []ProcessInfo{{PID: self, Cmdline: "watchdog --pattern tg_bot.py"}}, want: false},
		{name: "zombie excluded", procs: []ProcessInfo{{PID: 99, Cmdline: "python3 tg_bot.py", Zombie: true}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewPatternCheckerWithLister("tg_bot.py", staticLister(tt.procs...), logger)
			assert.Equal(t, tt.want, checker.IsAlive(context.Background()))
		})
	}
}

func TestPatternCheckerScanErrorIsAbsent(t *testing.T) {
	failing := func(context.Context) ([]ProcessInfo, error) {
		return nil, errors.New("permission denied")
	}
	checker := NewPatternCheckerWithLister("tg_bot.py", failing, nil)

	_, err := checker.Find(context.Background())
	assert.Error(t, err)
	assert.False(t, checker.IsAlive(context.Background()))
}

func TestPatternCheckerFindReturnsAllMatches(t *testing.T) {
	checker := NewPatternCheckerWithLister("tg_bot.py", staticLister(
		ProcessInfo{PID: 10, Cmdline: "python3 tg_bot.py"},
		ProcessInfo{PID: 11, Cmdline: "python3 tg_bot.py"},
		ProcessInfo{PID: 12, Cmdline: "bash"},
	), nil)

	matches, err := checker.Find(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, int32(10), matches[0].PID)
	assert.Equal(t, int32(11), matches[1].PID)
}

// TestSystemProcessesSeesChild tests the real process table scan
// TestSystemProcessesSeesChild 测试真实进程表扫描
func TestSystemProcessesSeesChild(t *testing.T) {
	sleepPath, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}

	cmd := exec.Command(sleepPath, "37.5")
	require.NoError(t, cmd.Start())
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	checker := NewPatternChecker("sleep 37.5", zap.NewNop())
	matches, err := checker.Find(context.Background())
	require.NoError(t, err)

	found := false
	for _, m := range matches {
		if m.PID == int32(cmd.Process.Pid) {
			found = true
		}
	}
	assert.True(t, found, "child %d not found in %v", cmd.Process.Pid, matches)
	assert.True(t, checker.IsAlive(context.Background()))

	info, err := LookupProcess(context.Background(), int32(cmd.Process.Pid))
	require.NoError(t, err)
	assert.Contains(t, info.Cmdline, "37.5")

	pidFile := filepath.Join(t.TempDir(), "worker.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644))
	assert.True(t, NewPIDFileChecker(pidFile, "sleep", nil).IsAlive(context.Background()))
}

func TestLivenessFunc(t *testing.T) {
	var checker LivenessChecker = LivenessFunc(func(context.Context) bool { return true })
	assert.True(t, checker.IsAlive(context.Background()))
}
