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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookup(table map[int32]ProcessInfo) ProcessLookup {
	return func(_ context.Context, pid int32) (ProcessInfo, error) {
		info, ok := table[pid]
		if !ok {
			return ProcessInfo{}, fmt.Errorf("%w: pid %d", ErrProcessGone, pid)
		}
		return info, nil
	}
}

func writePID(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.pid")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPID(t *testing.T) {
	pid, err := ReadPID(writePID(t, "1234\n"))
	require.NoError(t, err)
	assert.Equal(t, int32(1234), pid)

	_, err = ReadPID(filepath.Join(t.TempDir(), "missing.pid"))
	assert.ErrorIs(t, err, ErrNoPID)

	_, err = ReadPID(writePID(t, "  \n"))
	assert.ErrorIs(t, err, ErrNoPID)

	_, err = ReadPID(writePID(t, "abc"))
	assert.Error(t, err)

	_, err = ReadPID(writePID(t, "-5"))
	assert.Error(t, err)
}

// TestPIDFileCheckerIsAlive tests recorded-PID liveness
// TestPIDFileCheckerIsAlive 测试基于记录 PID 的存活检测
func TestPIDFileCheckerIsAlive(t *testing.T) {
	table := map[int32]ProcessInfo{
		100: {PID: 100, Cmdline: "python3 tg_bot.py"},
		200: {PID: 200, Cmdline: "postgres: writer"},
		300: {PID: 300, Cmdline: "python3 tg_bot.py", Zombie: true},
	}

	tests := []struct {
		name string
		pid  string
		want bool
	}{
		{name: "recorded worker alive", pid: "100", want: true},
		{name: "pid recycled by other program", pid: "200", want: false},
		{name: "zombie", pid: "300", want: false},
		{name: "process gone", pid: "400", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewPIDFileCheckerWithLookup(writePID(t, tt.pid), "tg_bot.py", fakeLookup(table), nil)
			assert.Equal(t, tt.want, checker.IsAlive(context.Background()))
		})
	}
}

func TestPIDFileCheckerMissingFile(t *testing.T) {
	checker := NewPIDFileCheckerWithLookup(filepath.Join(t.TempDir(), "none.pid"), "tg_bot.py", fakeLookup(nil), nil)
	_, err := checker.Find(context.Background())
	assert.ErrorIs(t, err, ErrNoPID)
	assert.False(t, checker.IsAlive(context.Background()))
}
