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

// Package logsink implements the append-only text log shared by the
// supervisor and the worker's redirected output.
// logsink 包实现监管进程与工作进程输出共享的只追加文本日志。
package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp prefix of every supervisor-authored line
// TimeLayout 是监管进程写入的每一行的时间戳前缀
const TimeLayout = "2006-01-02 15:04:05"

// fileMode for a newly created sink / 新建日志文件的权限
const fileMode = 0o644

// Sink is an append-only log file. It is never truncated or rotated.
// Sink 是只追加的日志文件，不会被截断或轮转。
type Sink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// Open opens (creating if needed) the sink at path in append mode
// Open 以追加模式打开（必要时创建）日志文件
func Open(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sink directory: %w", err)
	}

	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		ConsoleSeparator: " - ",
		LineEnding:       zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(file), zapcore.DebugLevel)

	return &Sink{
		path:   path,
		file:   file,
		logger: zap.New(core),
	}, nil
}

// Line appends "YYYY-MM-DD HH:MM:SS - msg". Write failures are reported on
// stderr by zap and never returned.
// Line 追加 "YYYY-MM-DD HH:MM:SS - msg"，写入失败由 zap 输出到 stderr，不向上返回。
func (s *Sink) Line(msg string) {
	s.logger.Info(msg)
}

// Linef is Line with formatting / Linef 为带格式化的 Line
func (s *Sink) Linef(format string, args ...any) {
	s.Line(fmt.Sprintf(format, args...))
}

// OpenAppend returns a fresh append-mode handle on the sink, suitable as a
// child process's stdout and stderr. The caller owns the handle.
// OpenAppend 返回日志文件新的追加模式句柄，可作为子进程的 stdout/stderr，由调用方负责关闭。
func (s *Sink) OpenAppend() (*os.File, error) {
	return openAppend(s.path)
}

// Path returns the sink file path / Path 返回日志文件路径
func (s *Sink) Path() string {
	return s.path
}

// Close flushes and closes the sink / Close 刷新并关闭日志文件
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	_ = s.logger.Sync()
	err := s.file.Close()
	s.file = nil
	return err
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink %s: %w", path, err)
	}
	return f, nil
}
