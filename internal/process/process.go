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

// Package process provides ElasticMQ emulator lifecycle management.
// process 包提供 ElasticMQ 模拟器的生命周期管理功能。
//
// This package provides:
// 此包提供：
// - Start, Stop and Terminate for one emulator per port / 每个端口一个模拟器的启动、停止与终止
// - A per manager registry of owned child processes / 每个管理器独立的子进程注册表
// - Lifecycle events and a fatal error channel / 生命周期事件与致命错误通道
// - Process status sampling / 进程状态采样
package process

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common errors for process management
// 进程管理的常见错误
var (
	// ErrSpawnFailure indicates the emulator process could not be created
	// ErrSpawnFailure 表示无法创建模拟器进程
	ErrSpawnFailure = errors.New("process: unable to start the ElasticMq Local process")

	// ErrProcessRuntime indicates the child reported an error after it was created
	// ErrProcessRuntime 表示子进程创建后报告了错误
	ErrProcessRuntime = errors.New("process: elasticmq process error")

	// ErrUnexpectedClose indicates the child exited while still tracked
	// ErrUnexpectedClose 表示子进程在被跟踪期间自行退出
	ErrUnexpectedClose = errors.New("process: elasticmq process closed unexpectedly")

	// ErrAlreadyRunning indicates a live emulator is already tracked for the port
	// ErrAlreadyRunning 表示该端口已有运行中的模拟器
	ErrAlreadyRunning = errors.New("process: elasticmq is already running on this port")
)

// Launch defaults / 启动默认值
const (
	// DefaultPort is the port used when none is configured
	// DefaultPort 是未配置端口时使用的端口
	DefaultPort = 9324

	// DefaultSettleDelay is how long Start waits after spawning (2 seconds)
	// DefaultSettleDelay 是启动后等待的时长（2秒）
	DefaultSettleDelay = 2 * time.Second

	// ServerJar is the emulator jar bundled in the bin directory
	// ServerJar 是 bin 目录中的模拟器 jar
	ServerJar = "elasticmq-server-0.15.7.jar"

	// JavaCommand is the default java executable
	// JavaCommand 是默认的 java 可执行文件
	JavaCommand = "java"
)

// ProcessStatus represents the status of a managed process
// ProcessStatus 表示托管进程的状态
type ProcessStatus string

const (
	// StatusRunning indicates the process is running
	// StatusRunning 表示进程正在运行
	StatusRunning ProcessStatus = "running"

	// StatusStopped indicates the process was killed by the manager
	// StatusStopped 表示进程已被管理器终止
	StatusStopped ProcessStatus = "stopped"

	// StatusCrashed indicates the process exited on its own
	// StatusCrashed 表示进程自行退出
	StatusCrashed ProcessStatus = "crashed"

	// StatusError indicates waiting on the process failed
	// StatusError 表示等待进程时出错
	StatusError ProcessStatus = "error"
)

// ProcessEvent represents a process lifecycle event
// ProcessEvent 表示进程生命周期事件
type ProcessEvent string

const (
	// EventStarted indicates the emulator has been spawned
	// EventStarted 表示模拟器已启动
	EventStarted ProcessEvent = "started"

	// EventStopped indicates the manager killed the emulator
	// EventStopped 表示管理器已终止模拟器
	EventStopped ProcessEvent = "stopped"

	// EventCrashed indicates the emulator exited unexpectedly
	// EventCrashed 表示模拟器意外退出
	EventCrashed ProcessEvent = "crashed"

	// EventSkipped indicates Start decided not to launch
	// EventSkipped 表示 Start 决定不启动
	EventSkipped ProcessEvent = "skipped"

	// EventFailed indicates a spawn failure or a runtime error
	// EventFailed 表示启动失败或运行时错误
	EventFailed ProcessEvent = "failed"
)

// ProcessEventHandler is a callback for process events
// ProcessEventHandler 是进程事件的回调
type ProcessEventHandler func(event ProcessEvent, info *ProcessInfo)

// ProcessInfo contains information about a process for external use
// ProcessInfo 包含用于外部使用的进程信息
type ProcessInfo struct {
	Session     string        `json:"session"`
	Port        int           `json:"port"`
	PID         int           `json:"pid"`
	Stage       string        `json:"stage"`
	Command     string        `json:"command"`
	Status      ProcessStatus `json:"status"`
	StartTime   time.Time     `json:"start_time"`
	Uptime      time.Duration `json:"uptime"`
	CPUUsage    float64       `json:"cpu_usage"`
	MemoryUsage int64         `json:"memory_usage"`
	ExitCode    *int          `json:"exit_code,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}

// LaunchSpec describes how to spawn the emulator
// LaunchSpec 描述如何启动模拟器
type LaunchSpec struct {
	// Command is the executable, normally java
	// Command 是可执行文件，通常为 java
	Command string

	// Args is the argument list, ["-jar", ServerJar]
	// Args 是参数列表
	Args []string

	// Dir is the working directory holding the jar
	// Dir 是存放 jar 的工作目录
	Dir string

	// Env is the child environment, nil inherits the parent's
	// Env 是子进程环境变量，nil 表示继承父进程
	Env []string

	// Port is the port the emulator is expected to listen on
	// Port 是模拟器预期监听的端口
	Port int
}

// CommandLine renders the command and its arguments as one string for logs and the ledger
// CommandLine 将启动描述渲染为字符串，用于日志和台账
func (s *LaunchSpec) CommandLine() string {
	line := s.Command
	for _, arg := range s.Args {
		line += " " + arg
	}
	return line
}

// Process is an owned handle to a spawned child
// Process 是已启动子进程的句柄
type Process interface {
	// PID returns the OS process id, 0 if none was obtained
	// PID 返回操作系统进程 ID，未获取时为 0
	PID() int

	// Kill sends a forceful, non-catchable kill
	// Kill 发送强制且不可捕获的终止信号
	Kill() error

	// Wait blocks until the child exits. It returns the exit code with a nil
	// error when the child exited (-1 when killed by a signal), and a non-nil
	// error only when waiting itself failed.
	// Wait 阻塞直到子进程退出。子进程退出时返回退出码和 nil 错误（被信号终止时为 -1），
	// 仅当等待本身失败时返回错误。
	Wait() (int, error)
}

// Launcher spawns emulator processes
// Launcher 负责启动模拟器进程
type Launcher interface {
	Launch(ctx context.Context, spec *LaunchSpec) (Process, error)
}

// Sleeper pauses for d or until ctx is done
// Sleeper 暂停 d 时长或直到 ctx 结束
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func spawnError(err error) error {
	if err == nil {
		return ErrSpawnFailure
	}
	return fmt.Errorf("%w: %v", ErrSpawnFailure, err)
}
