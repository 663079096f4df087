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

// Package shutdown runs registered termination hooks on every exit path of
// the host: normal return, requested exit, termination signals and panics.
// shutdown 包在宿主的所有退出路径上执行已注册的终止钩子：正常返回、请求退出、终止信号与 panic。
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"go.uber.org/zap"
)

// Exit reasons passed to Fire / 传给 Fire 的退出原因
const (
	ReasonExit          = "exit"
	ReasonRequestedExit = "requested exit"
	ReasonPanic         = "uncaught panic"
)

type namedHook struct {
	name string
	fn   func()
}

// Guard holds termination hooks keyed by name
// Guard 保存按名称区分的终止钩子
type Guard struct {
	logger *zap.Logger

	mu    sync.Mutex
	hooks []namedHook
	names map[string]struct{}

	listenOnce sync.Once
	signals    chan os.Signal
	forwarded  chan os.Signal
}

// NewGuard creates an empty guard
// NewGuard 创建空的守卫
func NewGuard(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		logger:    logger,
		names:     make(map[string]struct{}),
		signals:   make(chan os.Signal, len(Signals)),
		forwarded: make(chan os.Signal, len(Signals)),
	}
}

// Register adds a hook. A second hook with the same name is ignored and
// Register reports false.
// Register 添加钩子，同名钩子会被忽略并返回 false。
func (g *Guard) Register(name string, fn func()) bool {
	if fn == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.names[name]; ok {
		return false
	}
	g.names[name] = struct{}{}
	g.hooks = append(g.hooks, namedHook{name: name, fn: fn})
	return true
}

// Len returns the number of registered hooks
// Len 返回已注册钩子数量
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.hooks)
}

// Fire runs every hook in registration order. A panicking hook does not stop
// the others. Hooks must tolerate being fired more than once.
// Fire 按注册顺序执行所有钩子，单个钩子 panic 不影响其他钩子；钩子必须可重复执行。
func (g *Guard) Fire(reason string) int {
	g.mu.Lock()
	hooks := append([]namedHook(nil), g.hooks...)
	g.mu.Unlock()

	g.logger.Debug("Running termination hooks", zap.String("reason", reason), zap.Int("hooks", len(hooks)))
	for _, h := range hooks {
		g.runHook(h)
	}
	return len(hooks)
}

func (g *Guard) runHook(h namedHook) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Termination hook panicked", zap.String("hook", h.name), zap.Any("panic", r))
		}
	}()
	h.fn()
}

// Listen subscribes to the termination signals. Every received signal fires
// the hooks and is then forwarded on the returned channel so the caller can
// unwind. Listening stops when ctx is done.
// Listen 订阅终止信号。收到信号后执行钩子，再转发到返回的通道；ctx 结束时停止监听。
func (g *Guard) Listen(ctx context.Context) <-chan os.Signal {
	g.listenOnce.Do(func() {
		signal.Notify(g.signals, Signals...)
		go func() {
			defer signal.Stop(g.signals)
			for {
				select {
				case <-ctx.Done():
					return
				case sig := <-g.signals:
					g.Deliver(sig)
				}
			}
		}()
	})
	return g.forwarded
}

// Deliver handles sig as if it had been received from the OS
// Deliver 像收到操作系统信号一样处理 sig
func (g *Guard) Deliver(sig os.Signal) {
	g.logger.Info("Received signal", zap.String("signal", sig.String()))
	g.Fire("signal " + sig.String())
	select {
	case g.forwarded <- sig:
	default:
	}
}

// Run calls fn and fires the hooks however fn ends. A panic fires the hooks
// and is then re-raised.
// Run 调用 fn，无论以何种方式结束都会执行钩子；panic 会在执行钩子后重新抛出。
func (g *Guard) Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.Fire(ReasonPanic)
			panic(r)
		}
	}()

	err = fn()
	if err != nil {
		g.Fire(ReasonRequestedExit)
		return err
	}
	g.Fire(ReasonExit)
	return nil
}
