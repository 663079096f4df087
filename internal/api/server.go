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

// Package api serves the emulator status over HTTP.
// api 包通过 HTTP 提供模拟器状态。
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/seatunnelx/elasticmq-offline/docs"
	"github.com/seatunnelx/elasticmq-offline/internal/metrics"
)

// DefaultAddress is the default listen address / DefaultAddress 是默认监听地址
const DefaultAddress = "127.0.0.1:9326"

// ErrServerAlreadyRunning indicates Start was called twice
// ErrServerAlreadyRunning 表示重复调用 Start
var ErrServerAlreadyRunning = errors.New("api: server is already running")

// Options configures the HTTP server.
// Options 配置 HTTP 服务器。
type Options struct {
	// Address is the host:port to listen on / Address 是监听的 host:port
	Address string

	// ServiceName names the otelgin spans / ServiceName 是 otelgin span 的服务名
	ServiceName string

	// Registry is exposed on /metrics when set / 设置后在 /metrics 暴露
	Registry *prometheus.Registry

	// Swagger serves the API docs under /api/swagger / Swagger 开启 /api/swagger 文档
	Swagger bool
}

// Server is the status HTTP server.
// Server 是状态 HTTP 服务器。
type Server struct {
	opts   Options
	engine *gin.Engine
	logger *zap.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer builds the router for handler.
// NewServer 为 handler 构建路由。
func NewServer(opts Options, handler *Handler, logger *zap.Logger) *Server {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "elasticmq-offline"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		opts:   opts,
		engine: NewRouter(opts, handler, logger),
		logger: logger,
	}
}

// NewRouter registers the API routes on a fresh gin engine.
// NewRouter 在新的 gin 引擎上注册 API 路由。
func NewRouter(opts Options, handler *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(opts.ServiceName), loggerMiddleware(logger))

	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Registry)))
	}

	apiGroup := r.Group("/api")
	if opts.Swagger {
		apiGroup.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiV1Router := apiGroup.Group("/v1")
	{
		apiV1Router.GET("/health", handler.Health)
		apiV1Router.GET("/emulator", handler.Emulator)
		apiV1Router.POST("/hooks/:name", handler.InvokeHook)

		launchRouter := apiV1Router.Group("/launches")
		{
			launchRouter.GET("", handler.ListLaunches)
			launchRouter.GET("/:id", handler.GetLaunch)
		}
	}
	return r
}

// Start listens on the configured address and serves in the background.
// Start 监听配置的地址并在后台提供服务。
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ErrServerAlreadyRunning
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Address, err)
	}

	s.listener = listener
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server starting", zap.String("address", listener.Addr().String()))

	srv := s.srv
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, nil before Start.
// Addr 返回绑定地址，Start 之前为 nil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
// Shutdown 优雅地停止服务器。
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP server")
	return srv.Shutdown(ctx)
}
