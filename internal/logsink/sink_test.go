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

package logsink

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} - (.*)$`)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// TestLineFormat tests the timestamp prefix of supervisor lines
// TestLineFormat 测试监管日志行的时间戳前缀
func TestLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot_monitor.log")

	sink, err := Open(path)
	require.NoError(t, err)
	sink.Line("worker not running, restarting")
	sink.Linef("restart limit reached (%d), giving up", 10)
	require.NoError(t, sink.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	m := linePattern.FindStringSubmatch(lines[0])
	require.NotNil(t, m, lines[0])
	assert.Equal(t, "worker not running, restarting", m[1])

	m = linePattern.FindStringSubmatch(lines[1])
	require.NotNil(t, m, lines[1])
	assert.Equal(t, "restart limit reached (10), giving up", m[1])
}

// TestAppendPreservesContent tests that reopening never truncates
// TestAppendPreservesContent 测试重新打开不会截断已有内容
func TestAppendPreservesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_monitor.log")
	require.NoError(t, os.WriteFile(path, []byte("previous content\n"), 0o644))

	sink, err := Open(path)
	require.NoError(t, err)

	// The worker handle and the sink share the file / 工作进程句柄与日志共享文件
	worker, err := sink.OpenAppend()
	require.NoError(t, err)
	_, err = worker.WriteString("worker output\n")
	require.NoError(t, err)
	require.NoError(t, worker.Close())

	sink.Line("supervisor line")
	require.NoError(t, sink.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "previous content", lines[0])
	assert.Equal(t, "worker output", lines[1])
	assert.Regexp(t, linePattern, lines[2])
	assert.Equal(t, path, sink.Path())
}

func TestCloseIsIdempotent(t *testing.T) {
	sink, err := Open(filepath.Join(t.TempDir(), "a.log"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.NoError(t, sink.Close())
}
