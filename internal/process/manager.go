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

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seatunnelx/elasticmq-offline/internal/trace"
)

// Log lines emitted by the manager
// 管理器输出的日志内容
const (
	msgNoStart       = "ElasticMq Offline - [noStart] options is true. Will not start."
	msgStageMismatch = "ElasticMq Offline - stage %q is not in custom.elasticmq.stages. Will not start."
	msgStarted       = "ElasticMq Offline - Started, visit: http://localhost:%d"
	msgClosed        = "ElasticMq Offline - Failed to start with code %d"
	msgStopped       = "ElasticMq Process - Stopped"
)

// errorBufferSize bounds the fatal error channel
const errorBufferSize = 8

// Options configures a Manager. It is copied at construction and never
// changed afterwards.
// Options 配置 Manager，构造时复制，之后不再变化。
type Options struct {
	// Stage is the active deployment stage / Stage 是当前部署阶段
	Stage string

	// Stages lists the stages the emulator runs for / Stages 列出需要启动模拟器的 stage
	Stages []string

	// NoStart suppresses the launch / NoStart 禁止启动
	NoStart bool

	// Port is the emulator port, 0 means DefaultPort / Port 是模拟器端口，0 表示默认端口
	Port int

	// BinDir is the working directory holding the jar / BinDir 是存放 jar 的工作目录
	BinDir string

	// Java is the java executable / Java 是 java 可执行文件
	Java string

	// Jar is the server jar / Jar 是服务 jar
	Jar string

	// SettleDelay is the pause after spawning, 0 means DefaultSettleDelay
	// SettleDelay 是启动后的等待时长，0 表示默认值
	SettleDelay time.Duration
}

// HookRegistrar accepts named termination hooks. shutdown.Guard implements it.
// HookRegistrar 接收具名终止钩子，shutdown.Guard 实现了该接口。
type HookRegistrar interface {
	Register(name string, fn func()) bool
}

// Manager is the emulator lifecycle manager
// Manager 是模拟器生命周期管理器
type Manager struct {
	opts     Options
	launcher Launcher
	logger   *zap.Logger
	session  string
	registry *Registry
	errs     chan error

	// mu protects handlers, sleeper and guard / mu 保护 handlers、sleeper 与 guard
	mu        sync.RWMutex
	handlers  []ProcessEventHandler
	sleeper   Sleeper
	guard     HookRegistrar
	guardOnce sync.Once
}

// NewManager creates a Manager with its own session id and registry
// NewManager 创建拥有独立会话 ID 与注册表的 Manager
func NewManager(opts Options, launcher Launcher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Stages = slices.Clone(opts.Stages)
	if opts.Java == "" {
		opts.Java = JavaCommand
	}
	if opts.Jar == "" {
		opts.Jar = ServerJar
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	session := uuid.NewString()
	return &Manager{
		opts:     opts,
		launcher: launcher,
		logger:   logger.With(zap.String("session", session)),
		session:  session,
		registry: NewRegistry(),
		errs:     make(chan error, errorBufferSize),
		sleeper:  sleepContext,
	}
}

// Session returns the unique id of this manager
// Session 返回该管理器的唯一 ID
func (m *Manager) Session() string {
	return m.session
}

// Options returns a copy of the manager options
// Options 返回管理器选项的副本
func (m *Manager) Options() Options {
	opts := m.opts
	opts.Stages = slices.Clone(m.opts.Stages)
	return opts
}

// SetSleeper replaces the settle delay implementation
// SetSleeper 替换等待实现
func (m *Manager) SetSleeper(s Sleeper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeper = s
}

// AddEventHandler registers a callback for process events
// AddEventHandler 注册进程事件回调
func (m *Manager) AddEventHandler(handler ProcessEventHandler) {
	if handler == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// BindGuard attaches the termination guard. The termination hook is
// registered with it on the first successful spawn and never again.
// BindGuard 绑定终止守卫，终止钩子在第一次成功启动时注册且只注册一次。
func (m *Manager) BindGuard(guard HookRegistrar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guard = guard
}

// Errors delivers asynchronous child faults (ErrProcessRuntime). A value on
// this channel is fatal for the host.
// Errors 传递子进程的异步故障（ErrProcessRuntime），收到的值对宿主来说是致命的。
func (m *Manager) Errors() <-chan error {
	return m.errs
}

// Port returns the configured port or DefaultPort
// Port 返回配置的端口或默认端口
func (m *Manager) Port() int {
	if m.opts.Port == 0 {
		return DefaultPort
	}
	return m.opts.Port
}

// ShouldExecute reports whether the active stage is one of the enabled stages.
// The match is exact.
// ShouldExecute 判断当前 stage 是否在启用列表中（精确匹配）。
func (m *Manager) ShouldExecute() bool {
	return len(m.opts.Stages) > 0 && slices.Contains(m.opts.Stages, m.opts.Stage)
}

// Start spawns the emulator unless it is suppressed or the stage does not
// match, then waits for the settle delay.
// Start 启动模拟器（除非被禁止或 stage 不匹配），然后等待稳定时长。
func (m *Manager) Start(ctx context.Context) error {
	ctx, span := trace.Start(ctx, "elasticmq.start")
	defer span.End()

	port := m.Port()
	span.SetAttributes(attribute.Int("elasticmq.port", port), attribute.String("elasticmq.stage", m.opts.Stage))

	if m.opts.NoStart {
		m.logger.Info(msgNoStart)
		m.emit(EventSkipped, m.pendingInfo(port, ""))
		return nil
	}
	if !m.ShouldExecute() {
		m.logger.Info(fmt.Sprintf(msgStageMismatch, m.opts.Stage))
		m.emit(EventSkipped, m.pendingInfo(port, ""))
		return nil
	}

	key := Key{Session: m.session, Port: port}
	if existing, ok := m.registry.Get(key); ok {
		if !existing.Exited() {
			return fmt.Errorf("%w: port %d, pid %d", ErrAlreadyRunning, port, existing.PID)
		}
		m.registry.RemoveIf(key, existing)
	}

	spec := m.launchSpec(port)
	proc, err := m.launcher.Launch(ctx, spec)
	if err == nil && (proc == nil || proc.PID() <= 0) {
		if proc != nil {
			_ = proc.Kill()
		}
		err = spawnError(nil)
	}
	if err != nil {
		err = spawnFailure(err)
		info := m.pendingInfo(port, err.Error())
		info.Command = spec.CommandLine()
		m.emit(EventFailed, info)
		recordSpanError(span, err)
		m.logger.Error("Failed to spawn elasticmq", zap.Int("port", port), zap.Error(err))
		return err
	}

	managed := newManagedProcess(key, proc, m.opts.Stage, spec)
	m.registry.Put(managed)
	m.bindTermination()

	m.logger.Info(fmt.Sprintf(msgStarted, port), zap.Int("port", port), zap.Int("pid", managed.PID))
	m.emit(EventStarted, managed.Info())

	// Started handlers finish before any exit of the child is reported.
	go m.watch(managed)
	span.SetAttributes(attribute.Int("elasticmq.pid", managed.PID))

	m.mu.RLock()
	sleep := m.sleeper
	m.mu.RUnlock()
	if err := sleep(ctx, m.opts.SettleDelay); err != nil {
		recordSpanError(span, err)
		return err
	}
	return nil
}

// Stop terminates the emulator for the configured port. It always logs the
// stopped line and never fails.
// Stop 终止配置端口上的模拟器，总是输出停止日志且不会失败。
func (m *Manager) Stop(ctx context.Context) error {
	_, span := trace.Start(ctx, "elasticmq.stop")
	defer span.End()

	killed := m.Terminate(m.Port())
	span.SetAttributes(attribute.Bool("elasticmq.killed", killed))
	m.logger.Info(msgStopped)
	return nil
}

// Terminate kills and forgets the emulator tracked for port. It reports
// whether a process was killed; calling it again is a no-op.
// Terminate 终止并移除 port 上跟踪的模拟器，返回是否终止了进程；重复调用无副作用。
func (m *Manager) Terminate(port int) bool {
	managed, ok := m.registry.Take(Key{Session: m.session, Port: port})
	if !ok {
		return false
	}
	if !managed.markKilled() {
		return false
	}
	// A reaped child's pid may already belong to another process.
	if managed.Exited() {
		m.logger.Debug("elasticmq process already exited, skipping kill",
			zap.Int("port", port), zap.Int("pid", managed.PID))
	} else if err := managed.proc.Kill(); err != nil && !managed.Exited() {
		m.logger.Warn("Failed to kill elasticmq process",
			zap.Int("port", port), zap.Int("pid", managed.PID), zap.Error(err))
	}
	m.emit(EventStopped, managed.Info())
	return true
}

// TerminateAll kills every emulator this manager tracks
// TerminateAll 终止该管理器跟踪的所有模拟器
func (m *Manager) TerminateAll() int {
	count := 0
	for _, managed := range m.registry.Snapshot() {
		if m.Terminate(managed.Key.Port) {
			count++
		}
	}
	return count
}

// Status returns the tracked emulators with resource usage
// Status 返回跟踪的模拟器及其资源使用情况
func (m *Manager) Status() []*ProcessInfo {
	entries := m.registry.Snapshot()
	out := make([]*ProcessInfo, 0, len(entries))
	for _, managed := range entries {
		info := managed.Info()
		if info.Status == StatusRunning {
			info.CPUUsage, info.MemoryUsage = sampleUsage(info.PID)
		}
		out = append(out, info)
	}
	return out
}

// Tracked reports whether an emulator is registered for port
// Tracked 判断 port 上是否登记了模拟器
func (m *Manager) Tracked(port int) bool {
	_, ok := m.registry.Get(Key{Session: m.session, Port: port})
	return ok
}

func (m *Manager) launchSpec(port int) *LaunchSpec {
	return &LaunchSpec{
		Command: m.opts.Java,
		Args:    []string{"-jar", m.opts.Jar},
		Dir:     m.opts.BinDir,
		Env:     os.Environ(),
		Port:    port,
	}
}

// bindTermination registers the termination hook with the guard once per
// manager lifetime.
func (m *Manager) bindTermination() {
	m.mu.RLock()
	guard := m.guard
	m.mu.RUnlock()
	if guard == nil {
		return
	}
	m.guardOnce.Do(func() {
		port := m.Port()
		guard.Register("elasticmq:"+Key{Session: m.session, Port: port}.String(), func() {
			m.Terminate(port)
		})
	})
}

// watch waits for the child to exit and reports how it ended
// watch 等待子进程退出并报告其结束方式
func (m *Manager) watch(managed *ManagedProcess) {
	code, err := managed.proc.Wait()
	if managed.markExited(code, err) {
		m.logger.Debug("elasticmq process exited after kill",
			zap.Int("port", managed.Key.Port), zap.Int("pid", managed.PID), zap.Int("code", code))
		return
	}

	if err != nil {
		fatal := fmt.Errorf("%w: pid %d: %v", ErrProcessRuntime, managed.PID, err)
		m.logger.Error("elasticmq process error", zap.Int("pid", managed.PID), zap.Error(err))
		m.emit(EventFailed, managed.Info())
		m.fatal(fatal)
		return
	}

	// The entry stays registered until Stop or a termination hook clears it.
	m.logger.Info(fmt.Sprintf(msgClosed, code),
		zap.Int("port", managed.Key.Port), zap.Int("pid", managed.PID), zap.Error(ErrUnexpectedClose))
	m.emit(EventCrashed, managed.Info())
}

func (m *Manager) fatal(err error) {
	select {
	case m.errs <- err:
	default:
		m.logger.Error("Dropping elasticmq process error, channel full", zap.Error(err))
	}
}

func (m *Manager) emit(event ProcessEvent, info *ProcessInfo) {
	m.mu.RLock()
	handlers := slices.Clone(m.handlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		handler(event, info)
	}
}

func (m *Manager) pendingInfo(port int, lastError string) *ProcessInfo {
	return &ProcessInfo{
		Session:   m.session,
		Port:      port,
		Stage:     m.opts.Stage,
		LastError: lastError,
	}
}

func spawnFailure(err error) error {
	if errors.Is(err, ErrSpawnFailure) {
		return err
	}
	return spawnError(err)
}

func recordSpanError(span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
