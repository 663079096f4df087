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
	"fmt"
	"sort"
	"sync"
	"time"
)

// Key identifies one tracked emulator: the owning manager session and the port
// Key 标识一个被跟踪的模拟器：所属管理器会话与端口
type Key struct {
	Session string
	Port    int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Session, k.Port)
}

// ManagedProcess represents an emulator process owned by a Registry
// ManagedProcess 表示由注册表持有的模拟器进程
type ManagedProcess struct {
	Key       Key
	PID       int
	Stage     string
	Command   string
	StartTime time.Time

	proc   Process
	exited chan struct{}

	// mu protects the fields below / mu 保护以下字段
	mu        sync.RWMutex
	status    ProcessStatus
	exitCode  *int
	lastError string
	killed    bool
}

func newManagedProcess(key Key, proc Process, stage string, spec *LaunchSpec) *ManagedProcess {
	return &ManagedProcess{
		Key:       key,
		PID:       proc.PID(),
		Stage:     stage,
		Command:   spec.CommandLine(),
		StartTime: time.Now(),
		proc:      proc,
		exited:    make(chan struct{}),
		status:    StatusRunning,
	}
}

// markKilled records that the manager issued the kill; it reports false if
// the kill was already issued.
func (p *ManagedProcess) markKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.killed {
		return false
	}
	p.killed = true
	if p.status == StatusRunning {
		p.status = StatusStopped
	}
	return true
}

// markExited records the outcome of Wait and reports whether the manager had
// killed the process beforehand.
func (p *ManagedProcess) markExited(code int, err error) (killedByUs bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.exited:
		return p.killed
	default:
	}
	c := code
	p.exitCode = &c
	switch {
	case p.killed:
		p.status = StatusStopped
	case err != nil:
		p.status = StatusError
		p.lastError = err.Error()
	default:
		p.status = StatusCrashed
		p.lastError = fmt.Sprintf("exited with code %d", code)
	}
	close(p.exited)
	return p.killed
}

// Exited reports whether Wait has returned for this process
// Exited 表示该进程是否已退出
func (p *ManagedProcess) Exited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// Info returns a snapshot for external use
// Info 返回用于外部使用的快照
func (p *ManagedProcess) Info() *ProcessInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := &ProcessInfo{
		Session:   p.Key.Session,
		Port:      p.Key.Port,
		PID:       p.PID,
		Stage:     p.Stage,
		Command:   p.Command,
		Status:    p.status,
		StartTime: p.StartTime,
		LastError: p.lastError,
	}
	if p.exitCode != nil {
		c := *p.exitCode
		info.ExitCode = &c
	}
	if p.status == StatusRunning {
		info.Uptime = time.Since(p.StartTime)
	}
	return info
}

// Registry maps keys to owned emulator processes. Each Manager owns one.
// Registry 将键映射到持有的模拟器进程，每个 Manager 拥有一个。
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*ManagedProcess
}

// NewRegistry creates an empty registry
// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]*ManagedProcess)}
}

// Put stores p and returns the entry it replaced, if any
// Put 存储 p 并返回被替换的条目（如有）
func (r *Registry) Put(p *ManagedProcess) *ManagedProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.entries[p.Key]
	r.entries[p.Key] = p
	return prev
}

// Get looks up the entry for key
// Get 查找 key 对应的条目
func (r *Registry) Get(key Key) (*ManagedProcess, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[key]
	return p, ok
}

// Take removes and returns the entry for key. Only one caller observes a
// given entry.
// Take 移除并返回 key 对应的条目，同一条目只会被一个调用方获得。
func (r *Registry) Take(key Key) (*ManagedProcess, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	return p, ok
}

// RemoveIf deletes the entry for key only if it is still p
// RemoveIf 仅当 key 对应的条目仍为 p 时删除
func (r *Registry) RemoveIf(key Key, p *ManagedProcess) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] != p {
		return false
	}
	delete(r.entries, key)
	return true
}

// Len returns the number of tracked entries
// Len 返回跟踪的条目数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns the tracked entries ordered by port
// Snapshot 返回按端口排序的条目
func (r *Registry) Snapshot() []*ManagedProcess {
	r.mu.Lock()
	out := make([]*ManagedProcess, 0, len(r.entries))
	for _, p := range r.entries {
		out = append(out, p)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.Port < out[j].Key.Port })
	return out
}
