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

// Package plugin exposes the emulator lifecycle as named host hooks.
// plugin 包将模拟器生命周期暴露为具名的宿主钩子。
//
// The host fires "before:offline:start" when the offline session begins and
// "before:offline:start:end" when it ends.
// 宿主在离线会话开始时触发 "before:offline:start"，结束时触发 "before:offline:start:end"。
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/seatunnelx/elasticmq-offline/internal/config"
	"github.com/seatunnelx/elasticmq-offline/internal/logger"
	"github.com/seatunnelx/elasticmq-offline/internal/process"
	"github.com/seatunnelx/elasticmq-offline/internal/trace"
)

// Hook names fired by the host / 宿主触发的钩子名称
const (
	HookBeforeOfflineStart    = "before:offline:start"
	HookBeforeOfflineStartEnd = "before:offline:start:end"
)

// ErrUnknownHook indicates the host fired a hook this plugin does not handle
// ErrUnknownHook 表示宿主触发了插件不处理的钩子
var ErrUnknownHook = errors.New("plugin: unknown hook")

// HookFunc handles one lifecycle hook
// HookFunc 处理一个生命周期钩子
type HookFunc func(ctx context.Context) error

// Command describes a host CLI command contributed by the plugin
// Command 描述插件向宿主 CLI 贡献的命令
type Command struct {
	Usage           string   `json:"usage"`
	LifecycleEvents []string `json:"lifecycle_events"`
}

// Plugin binds the lifecycle hooks to a process manager
// Plugin 将生命周期钩子绑定到进程管理器
type Plugin struct {
	manager *process.Manager
	hooks   map[string]HookFunc
	log     *otelzap.Logger
}

// New creates the plugin from the configuration. The guard may be nil, in
// which case no termination hook is installed.
// New 根据配置创建插件；guard 为 nil 时不安装终止钩子。
func New(cfg *config.Config, launcher process.Launcher, log *zap.Logger, guard process.HookRegistrar) *Plugin {
	if log == nil {
		log = zap.NewNop()
	}
	manager := process.NewManager(OptionsFromConfig(cfg), launcher, log)
	if guard != nil {
		manager.BindGuard(guard)
	}

	p := &Plugin{
		manager: manager,
		log:     logger.NewContextual(log),
	}
	p.hooks = map[string]HookFunc{
		HookBeforeOfflineStart:    manager.Start,
		HookBeforeOfflineStartEnd: manager.Stop,
	}
	return p
}

// OptionsFromConfig maps the serverless configuration onto manager options
// OptionsFromConfig 将 serverless 配置映射为管理器选项
func OptionsFromConfig(cfg *config.Config) process.Options {
	if cfg == nil {
		return process.Options{}
	}
	emq := cfg.Custom.ElasticMQ
	return process.Options{
		Stage:       cfg.Provider.Stage,
		Stages:      emq.Stages,
		NoStart:     emq.Start.NoStart,
		Port:        emq.Start.Port,
		BinDir:      emq.Start.BinDir,
		Java:        emq.Start.Java,
		Jar:         emq.Start.Jar,
		SettleDelay: emq.Start.SettleDelay,
	}
}

// Hooks returns the handled hook names in sorted order
// Hooks 返回排序后的钩子名称
func (p *Plugin) Hooks() []string {
	names := make([]string, 0, len(p.hooks))
	for name := range p.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns the CLI commands contributed to the host. There are none.
// Commands 返回贡献给宿主的 CLI 命令（没有）。
func (p *Plugin) Commands() map[string]Command {
	return map[string]Command{}
}

// Manager returns the underlying process manager
// Manager 返回底层进程管理器
func (p *Plugin) Manager() *process.Manager {
	return p.manager
}

// Invoke runs the named hook
// Invoke 执行指定钩子
func (p *Plugin) Invoke(ctx context.Context, name string) error {
	hook, ok := p.hooks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHook, name)
	}

	ctx, span := trace.Start(ctx, "hook "+name)
	defer span.End()

	p.log.Ctx(ctx).Debug("Invoking hook", zap.String("hook", name))
	if err := hook(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.Ctx(ctx).Error("Hook failed", zap.String("hook", name), zap.Error(err))
		return err
	}
	return nil
}
