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

// Package trace wires OpenTelemetry tracing for elasticmq-offline.
// trace 包为 elasticmq-offline 接入 OpenTelemetry 追踪。
package trace

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/seatunnelx/elasticmq-offline/internal/config"
)

const instrumentationName = "github.com/seatunnelx/elasticmq-offline"

var (
	mu      sync.RWMutex
	tracer  oteltrace.Tracer = noop.NewTracerProvider().Tracer("noop")
	enabled bool
)

// ShutdownFunc flushes and stops the tracer provider
// ShutdownFunc 刷新并关闭追踪提供者
type ShutdownFunc func(ctx context.Context) error

// Init initializes tracing from the telemetry configuration. When telemetry
// is disabled a noop tracer is installed.
// Init 根据遥测配置初始化追踪，禁用时使用空操作追踪器。
func Init(ctx context.Context, cfg config.TelemetryConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		setTracer(noop.NewTracerProvider().Tracer("noop"), false)
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	setTracer(provider.Tracer(instrumentationName), true)
	return provider.Shutdown, nil
}

// IsEnabled returns whether tracing is enabled
// IsEnabled 返回追踪是否已启用
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Start starts a span with the package tracer
// Start 使用包级追踪器开启 span
func Start(ctx context.Context, name string, opts ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	mu.RLock()
	t := tracer
	mu.RUnlock()
	return t.Start(ctx, name, opts...)
}

// SetTracerProvider installs tracer from provider, used by tests with an
// in-memory exporter
// SetTracerProvider 从 provider 安装追踪器，供测试使用内存导出器
func SetTracerProvider(provider oteltrace.TracerProvider) {
	setTracer(provider.Tracer(instrumentationName), true)
}

func setTracer(t oteltrace.Tracer, on bool) {
	mu.Lock()
	defer mu.Unlock()
	tracer = t
	enabled = on
}
