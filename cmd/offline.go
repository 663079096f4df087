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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seatunnelx/elasticmq-offline/internal/api"
	"github.com/seatunnelx/elasticmq-offline/internal/config"
	hookgrpc "github.com/seatunnelx/elasticmq-offline/internal/grpc"
	"github.com/seatunnelx/elasticmq-offline/internal/ledger"
	"github.com/seatunnelx/elasticmq-offline/internal/metrics"
	"github.com/seatunnelx/elasticmq-offline/internal/plugin"
	"github.com/seatunnelx/elasticmq-offline/internal/process"
	"github.com/seatunnelx/elasticmq-offline/internal/shutdown"
	"github.com/seatunnelx/elasticmq-offline/internal/trace"
)

// shutdownTimeout bounds server and exporter shutdown
const shutdownTimeout = 10 * time.Second

// ErrAlreadyRunning indicates Run was called twice
// ErrAlreadyRunning 表示重复调用 Run
var ErrAlreadyRunning = errors.New("offline: already running")

// Offline wires the plugin, its termination guard and the optional ledger,
// metrics and control servers into one session.
// Offline 将插件、终止守卫以及可选的台账、指标与控制服务组装为一次会话。
type Offline struct {
	// config holds the loaded configuration / config 保存加载的配置
	config *config.Config

	// logger is the base logger / logger 是基础日志记录器
	logger *zap.Logger

	// out receives the human readable banner / out 接收面向用户的横幅输出
	out io.Writer

	// guard kills the emulator on every exit path / guard 在所有退出路径上终止模拟器
	guard *shutdown.Guard

	// plugin exposes the lifecycle hooks / plugin 暴露生命周期钩子
	plugin *plugin.Plugin

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	db   *gorm.DB
	repo *ledger.Repository

	grpcServer *hookgrpc.Server
	httpServer *api.Server

	// mu protects running, cancel and the servers / mu 保护 running、cancel 与服务实例
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewOffline creates an Offline session. A nil launcher spawns real processes.
// NewOffline 创建离线会话，launcher 为 nil 时启动真实进程。
func NewOffline(cfg *config.Config, launcher process.Launcher, log *zap.Logger) *Offline {
	if log == nil {
		log = zap.NewNop()
	}
	if launcher == nil {
		launcher = process.NewExecLauncher(log)
	}

	guard := shutdown.NewGuard(log)
	p := plugin.New(cfg, launcher, log, guard)

	registry := metrics.NewRegistry()
	m := metrics.New(registry)
	p.Manager().AddEventHandler(m.HandleEvent)

	return &Offline{
		config:   cfg,
		logger:   log,
		out:      os.Stdout,
		guard:    guard,
		plugin:   p,
		registry: registry,
		metrics:  m,
	}
}

// Run executes one offline session. With autoStart the start hook fires
// immediately, otherwise the hooks are driven through the control servers.
// The session ends on a termination signal, on Shutdown, or when the emulator
// reports a fatal error; the end hook then runs and the guard fires.
// Run 执行一次离线会话。autoStart 为 true 时立即触发启动钩子，否则通过控制服务驱动钩子。
// 会话在收到终止信号、调用 Shutdown 或模拟器报告致命错误时结束，随后执行结束钩子并触发守卫。
func (o *Offline) Run(ctx context.Context, autoStart bool) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	manager := o.plugin.Manager()
	fmt.Fprintln(o.out, "========================================")
	fmt.Fprintln(o.out, "  ElasticMQ Offline")
	fmt.Fprintln(o.out, "========================================")
	fmt.Fprintf(o.out, "Session: %s\n", manager.Session())
	fmt.Fprintf(o.out, "Stage: %s, Port: %d\n", manager.Options().Stage, manager.Port())

	// Step 1: Tracing / 步骤 1：追踪
	traceShutdown, err := trace.Init(ctx, o.config.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := traceShutdown(shutdownCtx); err != nil {
			o.logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	// Step 2: Launch ledger and orphan cleanup / 步骤 2：启动台账与遗留进程清理
	o.openLedger()
	defer o.closeLedger()
	o.reapOrphans(ctx)

	// Step 3: Control servers / 步骤 3：控制服务
	if err := o.startServers(ctx); err != nil {
		return err
	}
	defer o.stopServers()

	// Step 4: Hooks under the termination guard / 步骤 4：在终止守卫下执行钩子
	signals := o.guard.Listen(ctx)
	return o.guard.Run(func() error {
		if autoStart {
			if err := o.plugin.Invoke(ctx, plugin.HookBeforeOfflineStart); err != nil {
				return err
			}
		}

		var runErr error
		select {
		case sig := <-signals:
			fmt.Fprintf(o.out, "\nReceived signal: %v\n", sig)
		case <-ctx.Done():
		case runErr = <-manager.Errors():
			o.logger.Error("ElasticMQ process failed", zap.Error(runErr))
		}

		if err := o.plugin.Invoke(context.WithoutCancel(ctx), plugin.HookBeforeOfflineStartEnd); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	})
}

// Shutdown ends a running session.
// Shutdown 结束正在运行的会话。
func (o *Offline) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Plugin returns the session's plugin.
// Plugin 返回会话的插件。
func (o *Offline) Plugin() *plugin.Plugin {
	return o.plugin
}

func (o *Offline) grpcAddr() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.grpcServer == nil {
		return "", false
	}
	addr, err := o.grpcServer.Addr()
	if err != nil {
		return "", false
	}
	return addr.String(), true
}

func (o *Offline) httpAddr() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.httpServer == nil || o.httpServer.Addr() == nil {
		return "", false
	}
	return o.httpServer.Addr().String(), true
}

// openLedger opens the launch ledger. A ledger that cannot be opened is
// logged and the session continues without it.
func (o *Offline) openLedger() {
	if !o.config.Ledger.Enabled {
		return
	}
	db, err := ledger.Open(o.config.Ledger)
	if err != nil {
		o.logger.Warn("Launch ledger unavailable", zap.String("driver", o.config.Ledger.Driver), zap.Error(err))
		return
	}
	o.db = db
	o.repo = ledger.NewRepository(db)
	o.plugin.Manager().AddEventHandler(ledger.NewRecorder(o.repo, o.logger).HandleEvent)
}

func (o *Offline) closeLedger() {
	if o.db == nil {
		return
	}
	if err := ledger.Close(o.db); err != nil {
		o.logger.Warn("Failed to close launch ledger", zap.Error(err))
	}
}

// reapOrphans kills emulators left on this session's port by earlier sessions
func (o *Offline) reapOrphans(ctx context.Context) {
	manager := o.plugin.Manager()
	if o.repo == nil || manager.Options().NoStart || !manager.ShouldExecute() {
		return
	}
	reaped, err := ledger.NewReaper(o.repo, o.logger).ReapPort(ctx, manager.Session(), manager.Port())
	if err != nil {
		o.logger.Warn("Failed to reap orphaned emulators", zap.Error(err))
		return
	}
	if len(reaped) > 0 {
		fmt.Fprintf(o.out, "Reaped %d orphaned emulator(s) on port %d\n", len(reaped), manager.Port())
	}
}

func (o *Offline) startServers(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	srv := o.config.Server
	if srv.GRPC.Enabled {
		o.grpcServer = hookgrpc.NewServer(&hookgrpc.ServerConfig{Address: srv.GRPC.Address}, o.plugin, o.logger)
		if err := o.grpcServer.Start(ctx); err != nil {
			o.grpcServer = nil
			return fmt.Errorf("failed to start gRPC server: %w", err)
		}
		addr, _ := o.grpcServer.Addr()
		fmt.Fprintf(o.out, "gRPC hook service: %s\n", addr)
	}

	if srv.HTTP.Enabled {
		handler := api.NewHandler(o.plugin, o.repo)
		o.httpServer = api.NewServer(api.Options{
			Address:     srv.HTTP.Address,
			ServiceName: o.config.Telemetry.ServiceName,
			Registry:    o.registry,
			Swagger:     srv.HTTP.Swagger,
		}, handler, o.logger)
		if err := o.httpServer.Start(ctx); err != nil {
			o.httpServer = nil
			if o.grpcServer != nil {
				o.grpcServer.Stop()
				o.grpcServer = nil
			}
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		fmt.Fprintf(o.out, "HTTP status API: http://%s/api/v1/emulator\n", o.httpServer.Addr())
	}
	return nil
}

func (o *Offline) stopServers() {
	o.mu.Lock()
	grpcServer, httpServer := o.grpcServer, o.httpServer
	o.grpcServer, o.httpServer = nil, nil
	o.mu.Unlock()

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			o.logger.Warn("Failed to stop HTTP server", zap.Error(err))
		}
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}
}
