/*
 * MIT License
 *
 * Copyright (c) 2025 linux.do
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package otel_trace sets up OpenTelemetry tracing with an OTLP gRPC exporter,
// falling back to a noop tracer when disabled or misconfigured.
// otel_trace 包使用 OTLP gRPC 导出器初始化 OpenTelemetry 追踪，禁用或配置错误时回退到空操作追踪器。
package otel_trace

import (
	"context"
	"fmt"

	"github.com/seatunnel/watchdog/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/seatunnel/watchdog"

// Provider owns the tracer and its shutdown
// Provider 持有追踪器及其关闭函数
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
	enabled  bool
}

// Noop returns a provider whose spans are never recorded
// Noop 返回不记录 span 的提供者
func Noop() *Provider {
	return &Provider{
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		shutdown: func(context.Context) error { return nil },
	}
}

// Init initializes tracing based on configuration. It also installs the
// global tracer provider and propagator so instrumented middleware share it.
// Init 根据配置初始化追踪，并设置全局追踪提供者和传播器，供中间件共享。
func Init(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("OpenTelemetry tracing is disabled")
		return Noop()
	}

	tp, err := newTracerProvider(ctx, cfg)
	if err != nil {
		logger.Warn("failed to init trace provider, using noop tracer", zap.Error(err))
		return Noop()
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(tp)

	logger.Info("OpenTelemetry tracing initialized", zap.String("endpoint", cfg.Endpoint))
	return &Provider{
		tracer:   tp.Tracer(instrumentationName),
		shutdown: tp.Shutdown,
		enabled:  true,
	}
}

func newTracerProvider(ctx context.Context, cfg config.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Tracer returns the tracer / Tracer 返回追踪器
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Enabled reports whether spans are exported / Enabled 报告是否导出 span
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Start starts a span / Start 开始一个 span
func (p *Provider) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes and stops the exporter / Shutdown 刷新并停止导出器
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
