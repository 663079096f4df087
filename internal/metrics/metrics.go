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

// Package metrics exposes Prometheus metrics for emulator launches.
// metrics 包为模拟器启动暴露 Prometheus 指标。
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seatunnelx/elasticmq-offline/internal/process"
)

const namespace = "elasticmq_offline"

// Launch results used as the "result" label / 用作 "result" 标签的启动结果
const (
	ResultStarted = "started"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Metrics holds the emulator collectors. All methods are nil-safe: calls on a
// nil *Metrics are no-ops.
// Metrics 保存模拟器指标，所有方法对 nil 接收者安全。
type Metrics struct {
	// LaunchesTotal counts Start outcomes by result / 按结果统计启动次数
	LaunchesTotal *prometheus.CounterVec

	// Running is the number of emulators currently tracked as running / 当前运行中的模拟器数量
	Running prometheus.Gauge

	// KillsTotal counts kills issued by the manager / 管理器发出的终止次数
	KillsTotal prometheus.Counter

	// CrashesTotal counts unexpected exits / 意外退出次数
	CrashesTotal prometheus.Counter

	mu      sync.Mutex
	running map[process.Key]struct{}
}

// New creates the collectors and registers them with reg. If reg is nil the
// collectors are created but not registered.
// New 创建指标并注册到 reg；reg 为 nil 时只创建不注册。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LaunchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Total number of emulator start attempts by result",
		}, []string{"result"}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "Number of emulator processes currently running",
		}),
		KillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kills_total",
			Help:      "Total number of emulator processes killed by the manager",
		}),
		CrashesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crashes_total",
			Help:      "Total number of emulator processes that exited unexpectedly",
		}),
		running: make(map[process.Key]struct{}),
	}

	if reg != nil {
		reg.MustRegister(
			m.LaunchesTotal,
			m.Running,
			m.KillsTotal,
			m.CrashesTotal,
		)
	}
	return m
}

// NewRegistry returns a registry carrying the Go runtime and process collectors
// NewRegistry 返回包含 Go 运行时与进程指标的注册表
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format
// Handler 以 Prometheus 格式输出注册表
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// HandleEvent updates the collectors from a process event. It has the
// process.ProcessEventHandler signature.
// HandleEvent 根据进程事件更新指标，签名与 process.ProcessEventHandler 一致。
func (m *Metrics) HandleEvent(event process.ProcessEvent, info *process.ProcessInfo) {
	if m == nil || info == nil {
		return
	}
	key := process.Key{Session: info.Session, Port: info.Port}

	switch event {
	case process.EventStarted:
		m.LaunchesTotal.WithLabelValues(ResultStarted).Inc()
		m.markRunning(key)
	case process.EventSkipped:
		m.LaunchesTotal.WithLabelValues(ResultSkipped).Inc()
	case process.EventStopped:
		m.KillsTotal.Inc()
		m.markEnded(key)
	case process.EventCrashed:
		m.CrashesTotal.Inc()
		m.markEnded(key)
	case process.EventFailed:
		if info.PID == 0 {
			m.LaunchesTotal.WithLabelValues(ResultFailed).Inc()
		}
		m.markEnded(key)
	}
}

func (m *Metrics) markRunning(key process.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[key]; ok {
		return
	}
	m.running[key] = struct{}{}
	m.Running.Inc()
}

func (m *Metrics) markEnded(key process.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[key]; !ok {
		return
	}
	delete(m.running, key)
	m.Running.Dec()
}
