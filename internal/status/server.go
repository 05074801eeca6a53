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

// Package status serves the supervisor state over HTTP.
// status 包通过 HTTP 提供监管状态。
package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seatunnel/watchdog/internal/monitor"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// shutdownTimeout bounds graceful HTTP shutdown / 优雅关闭的超时时间
const shutdownTimeout = 5 * time.Second

// SnapshotSource provides the supervisor state
// SnapshotSource 提供监管状态
type SnapshotSource interface {
	Snapshot() monitor.Snapshot
}

// StatusResponse is the body of GET /status
// StatusResponse 是 GET /status 的响应体
type StatusResponse struct {
	RunID string `json:"run_id"`
	monitor.Snapshot
}

// Server is the read-only status endpoint
// Server 是只读的状态接口
type Server struct {
	addr     string
	engine   *gin.Engine
	source   SnapshotSource
	runID    string
	logger   *zap.Logger
	listener net.Listener
	srv      *http.Server
}

// NewServer creates the status server and its routes
// NewServer 创建状态服务及其路由
func NewServer(addr, serviceName, runID string, source SnapshotSource, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:   addr,
		source: source,
		runID:  runID,
		logger: logger.Named("status"),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName), s.loggerMiddleware())

	r.GET("/healthz", s.health)
	r.GET("/status", s.status)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler / Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until ctx is cancelled.
// Listen errors are returned synchronously.
// Start 监听配置的地址并提供服务直到 ctx 取消，监听错误同步返回。
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started / Addr 返回启动后实际绑定的地址
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// health handles GET /healthz. It fails once supervision has halted.
// health 处理 GET /healthz，监管停止后返回失败。
func (s *Server) health(c *gin.Context) {
	snap := s.source.Snapshot()
	if snap.State == monitor.StateHalted {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": string(snap.State)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": string(snap.State)})
}

// status handles GET /status / status 处理 GET /status
func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{RunID: s.runID, Snapshot: s.source.Snapshot()})
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
