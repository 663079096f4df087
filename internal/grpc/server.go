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

// Package grpc exposes the plugin hooks and emulator status over gRPC.
// grpc 包通过 gRPC 暴露插件钩子与模拟器状态。
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/seatunnelx/elasticmq-offline/internal/logger"
	"github.com/seatunnelx/elasticmq-offline/internal/plugin"
)

// Default configuration values for the gRPC server
// gRPC 服务器的默认配置值
const (
	// DefaultAddress is the default listen address.
	// DefaultAddress 是默认监听地址。
	DefaultAddress = "127.0.0.1:9325"

	// DefaultMaxRecvMsgSize is the default maximum receive message size (4MB).
	// DefaultMaxRecvMsgSize 是默认的最大接收消息大小（4MB）。
	DefaultMaxRecvMsgSize = 4 * 1024 * 1024

	// DefaultMaxSendMsgSize is the default maximum send message size (4MB).
	// DefaultMaxSendMsgSize 是默认的最大发送消息大小（4MB）。
	DefaultMaxSendMsgSize = 4 * 1024 * 1024
)

// Errors for gRPC server operations
// gRPC 服务器操作的错误定义
var (
	// ErrServerNotRunning indicates the server is not running.
	// ErrServerNotRunning 表示服务器未运行。
	ErrServerNotRunning = errors.New("grpc: server is not running")

	// ErrServerAlreadyRunning indicates the server is already running.
	// ErrServerAlreadyRunning 表示服务器已在运行。
	ErrServerAlreadyRunning = errors.New("grpc: server is already running")
)

// ServerConfig holds configuration for the gRPC server.
// ServerConfig 保存 gRPC 服务器的配置。
type ServerConfig struct {
	// Address is the host:port to listen on.
	// Address 是监听的 host:port。
	Address string

	// MaxRecvMsgSize is the maximum receive message size in bytes.
	// MaxRecvMsgSize 是最大接收消息大小（字节）。
	MaxRecvMsgSize int

	// MaxSendMsgSize is the maximum send message size in bytes.
	// MaxSendMsgSize 是最大发送消息大小（字节）。
	MaxSendMsgSize int
}

// Server serves the hook service.
// Server 提供钩子服务。
type Server struct {
	config     *ServerConfig
	plugin     *plugin.Plugin
	logger     *zap.Logger
	ctxLogger  *otelzap.Logger
	grpcServer *grpc.Server

	mu       sync.Mutex
	running  bool
	listener net.Listener
}

// NewServer creates a new gRPC server instance.
// NewServer 创建一个新的 gRPC 服务器实例。
func NewServer(config *ServerConfig, p *plugin.Plugin, log *zap.Logger) *Server {
	if config == nil {
		config = &ServerConfig{}
	}
	if config.Address == "" {
		config.Address = DefaultAddress
	}
	if config.MaxRecvMsgSize <= 0 {
		config.MaxRecvMsgSize = DefaultMaxRecvMsgSize
	}
	if config.MaxSendMsgSize <= 0 {
		config.MaxSendMsgSize = DefaultMaxSendMsgSize
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		config:    config,
		plugin:    p,
		logger:    log,
		ctxLogger: logger.NewContextual(log),
	}
}

// Start listens on the configured address and serves in the background.
// Start 监听配置的地址并在后台提供服务。
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	if err := s.Serve(listener); err != nil {
		listener.Close()
		return err
	}
	return nil
}

// Serve serves on an existing listener in the background.
// Serve 在已有监听器上后台提供服务。
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrServerAlreadyRunning
	}

	s.grpcServer = grpc.NewServer(s.buildServerOptions()...)
	RegisterHookServiceServer(s.grpcServer, s)
	s.listener = listener
	s.running = true

	s.logger.Info("gRPC server starting", zap.String("address", listener.Addr().String()))

	server := s.grpcServer
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("gRPC server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully stops the gRPC server.
// Stop 优雅地停止 gRPC 服务器。
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.logger.Info("Stopping gRPC server")
	s.grpcServer.GracefulStop()
	s.running = false
	s.logger.Info("gRPC server stopped")
}

// IsRunning returns whether the server is running.
// IsRunning 返回服务器是否正在运行。
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the listen address, or ErrServerNotRunning.
// Addr 返回监听地址，未运行时返回 ErrServerNotRunning。
func (s *Server) Addr() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, ErrServerNotRunning
	}
	return s.listener.Addr(), nil
}

func (s *Server) buildServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(s.config.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(s.config.MaxSendMsgSize),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			s.loggingUnaryInterceptor,
			s.recoveryUnaryInterceptor,
		),
	}
}

// loggingUnaryInterceptor logs unary RPC calls.
// loggingUnaryInterceptor 记录一元 RPC 调用。
func (s *Server) loggingUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	peerAddr := "unknown"
	if p, ok := peer.FromContext(ctx); ok {
		peerAddr = p.Addr.String()
	}

	resp, err := handler(ctx, req)

	duration := time.Since(start)
	if err != nil {
		s.ctxLogger.Ctx(ctx).Warn("gRPC unary call failed",
			zap.String("method", info.FullMethod),
			zap.String("peer", peerAddr),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		s.ctxLogger.Ctx(ctx).Debug("gRPC unary call completed",
			zap.String("method", info.FullMethod),
			zap.String("peer", peerAddr),
			zap.Duration("duration", duration),
		)
	}
	return resp, err
}

// recoveryUnaryInterceptor recovers from panics in unary handlers.
// recoveryUnaryInterceptor 从一元处理器的 panic 中恢复。
func (s *Server) recoveryUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("gRPC unary handler panic",
				zap.String("method", info.FullMethod),
				zap.Any("panic", r),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}
