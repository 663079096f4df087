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
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type exitResult struct {
	code int
	err  error
}

// fakeProcess is an in-memory child process
type fakeProcess struct {
	pid  int
	exit chan exitResult
	once sync.Once

	mu    sync.Mutex
	kills int
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exit: make(chan exitResult, 1)}
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.finish(-1, nil)
	return nil
}

func (p *fakeProcess) Wait() (int, error) {
	r := <-p.exit
	return r.code, r.err
}

func (p *fakeProcess) finish(code int, err error) {
	p.once.Do(func() {
		p.exit <- exitResult{code: code, err: err}
	})
}

func (p *fakeProcess) killCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

// fakeLauncher records launch specs and hands out fake processes
type fakeLauncher struct {
	mu       sync.Mutex
	nextPID  int
	err      error
	zeroPID  bool
	exitCode *int
	specs    []*LaunchSpec
	procs    []*fakeProcess
}

func (l *fakeLauncher) Launch(_ context.Context, spec *LaunchSpec) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.specs = append(l.specs, spec)
	if l.err != nil {
		return nil, l.err
	}
	pid := 0
	if !l.zeroPID {
		l.nextPID++
		pid = 4000 + l.nextPID
	}
	p := newFakeProcess(pid)
	if l.exitCode != nil {
		p.finish(*l.exitCode, nil)
	}
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.specs)
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.procs) == 0 {
		return nil
	}
	return l.procs[len(l.procs)-1]
}

func (l *fakeLauncher) totalKills() int {
	l.mu.Lock()
	procs := append([]*fakeProcess(nil), l.procs...)
	l.mu.Unlock()
	total := 0
	for _, p := range procs {
		total += p.killCount()
	}
	return total
}

// fakeRegistrar counts hook registrations
type fakeRegistrar struct {
	mu    sync.Mutex
	hooks map[string]func()
	calls int
}

func (r *fakeRegistrar) Register(name string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.hooks == nil {
		r.hooks = make(map[string]func())
	}
	if _, ok := r.hooks[name]; ok {
		return false
	}
	r.hooks[name] = fn
	return true
}

func (r *fakeRegistrar) fire() {
	r.mu.Lock()
	hooks := make([]func(), 0, len(r.hooks))
	for _, fn := range r.hooks {
		hooks = append(hooks, fn)
	}
	r.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// eventLog collects manager events
type eventLog struct {
	mu     sync.Mutex
	events []ProcessEvent
	infos  []*ProcessInfo
}

func (e *eventLog) handle(event ProcessEvent, info *ProcessInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	e.infos = append(e.infos, info)
}

func (e *eventLog) list() []ProcessEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ProcessEvent(nil), e.events...)
}

// recordingSleeper records requested delays without sleeping
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

type harness struct {
	manager  *Manager
	launcher *fakeLauncher
	logs     *observer.ObservedLogs
	events   *eventLog
	sleeper  *recordingSleeper
}

func newHarness(opts Options) *harness {
	core, logs := observer.New(zapcore.DebugLevel)
	launcher := &fakeLauncher{}
	m := NewManager(opts, launcher, zap.New(core))
	sleeper := &recordingSleeper{}
	m.SetSleeper(sleeper.sleep)
	events := &eventLog{}
	m.AddEventHandler(events.handle)
	return &harness{manager: m, launcher: launcher, logs: logs, events: events, sleeper: sleeper}
}

func devOptions() Options {
	return Options{Stage: "dev", Stages: []string{"dev"}, BinDir: "/opt/elasticmq/bin"}
}
