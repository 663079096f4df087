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

// Package ledger keeps a persistent record of every emulator launch so that
// emulators orphaned by a hard kill of the host can be found and reaped.
// ledger 包持久化记录每次模拟器启动，以便在宿主被强制终止后找到并清理遗留的模拟器。
package ledger

import (
	"time"
)

// LaunchStatus represents the recorded state of a launch.
// LaunchStatus 表示启动记录的状态。
type LaunchStatus string

const (
	// LaunchStatusRunning indicates the emulator is believed to be running.
	// LaunchStatusRunning 表示模拟器被认为正在运行。
	LaunchStatusRunning LaunchStatus = "running"
	// LaunchStatusStopped indicates the manager killed the emulator.
	// LaunchStatusStopped 表示管理器已终止模拟器。
	LaunchStatusStopped LaunchStatus = "stopped"
	// LaunchStatusCrashed indicates the emulator exited on its own.
	// LaunchStatusCrashed 表示模拟器自行退出。
	LaunchStatusCrashed LaunchStatus = "crashed"
	// LaunchStatusFailed indicates the spawn failed or the process reported an error.
	// LaunchStatusFailed 表示启动失败或进程报告错误。
	LaunchStatusFailed LaunchStatus = "failed"
	// LaunchStatusReaped indicates an orphan left by an earlier session was cleaned up.
	// LaunchStatusReaped 表示先前会话遗留的进程已被清理。
	LaunchStatusReaped LaunchStatus = "reaped"
)

// Launch is one emulator launch.
// Launch 表示一次模拟器启动。
type Launch struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Session   string       `gorm:"size:64;not null;index" json:"session"`
	Port      int          `gorm:"not null" json:"port"`
	PID       int          `gorm:"column:pid;index" json:"pid"`
	Stage     string       `gorm:"size:64" json:"stage"`
	Command   string       `gorm:"size:512" json:"command"`
	Status    LaunchStatus `gorm:"size:16;not null;index" json:"status"`
	ExitCode  *int         `json:"exit_code,omitempty"`
	LastError string       `gorm:"size:1024" json:"last_error,omitempty"`
	StartedAt time.Time    `gorm:"index" json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName specifies the table name for Launch.
// TableName 指定 Launch 的表名。
func (Launch) TableName() string {
	return "elasticmq_launches"
}

// LaunchFilter narrows List results.
// LaunchFilter 用于过滤 List 结果。
type LaunchFilter struct {
	Session string       `form:"session"`
	Status  LaunchStatus `form:"status"`
	Port    int          `form:"port"`
	Limit   int          `form:"limit"`
	Offset  int          `form:"offset"`
}
