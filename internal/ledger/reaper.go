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

package ledger

import (
	"context"
	"strings"

	psprocess "github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/seatunnelx/elasticmq-offline/internal/process"
)

// ProcessInspector looks at and kills OS processes.
// ProcessInspector 用于查看和终止操作系统进程。
type ProcessInspector interface {
	Alive(pid int) bool
	Cmdline(pid int) (string, error)
	Kill(pid int) error
}

// Reaper kills emulators recorded as running by sessions that are gone.
// Reaper 终止已结束会话记录为运行中的模拟器。
type Reaper struct {
	repo      *Repository
	inspector ProcessInspector
	logger    *zap.Logger
}

// NewReaper creates a Reaper backed by gopsutil.
// NewReaper 创建基于 gopsutil 的 Reaper。
func NewReaper(repo *Repository, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{repo: repo, inspector: gopsutilInspector{}, logger: logger}
}

// SetInspector replaces the process inspector.
// SetInspector 替换进程检查器。
func (r *Reaper) SetInspector(inspector ProcessInspector) {
	r.inspector = inspector
}

// Reap handles every running launch that does not belong to currentSession.
// A live process whose command line still names the server jar is killed;
// the record is marked reaped either way. The reaped records are returned.
// Reap 处理不属于 currentSession 的运行中记录：若进程存活且命令行包含服务 jar 则终止；
// 无论如何都将记录标记为 reaped，并返回这些记录。
func (r *Reaper) Reap(ctx context.Context, currentSession string) ([]*Launch, error) {
	return r.reap(ctx, currentSession, 0)
}

// ReapPort is Reap restricted to launches recorded on port.
// ReapPort 与 Reap 相同，但只处理记录在 port 上的启动。
func (r *Reaper) ReapPort(ctx context.Context, currentSession string, port int) ([]*Launch, error) {
	if port <= 0 || port > 65535 {
		return nil, ErrInvalidPort
	}
	return r.reap(ctx, currentSession, port)
}

func (r *Reaper) reap(ctx context.Context, currentSession string, port int) ([]*Launch, error) {
	running, err := r.repo.ListRunning(ctx)
	if err != nil {
		return nil, err
	}

	var reaped []*Launch
	for _, launch := range running {
		if launch.Session == currentSession || (port > 0 && launch.Port != port) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return reaped, err
		}

		note := "process already gone"
		if r.isEmulator(launch) {
			if err := r.inspector.Kill(launch.PID); err != nil {
				r.logger.Warn("Failed to kill orphaned elasticmq",
					zap.Int("pid", launch.PID), zap.Int("port", launch.Port), zap.Error(err))
				note = "kill failed: " + err.Error()
			} else {
				r.logger.Info("Killed orphaned elasticmq",
					zap.Int("pid", launch.PID), zap.Int("port", launch.Port), zap.String("session", launch.Session))
				note = "orphan killed"
			}
		}

		if err := r.repo.MarkEnded(ctx, launch.ID, LaunchStatusReaped, nil, note); err != nil {
			return reaped, err
		}
		launch.Status = LaunchStatusReaped
		launch.LastError = note
		reaped = append(reaped, launch)
	}
	return reaped, nil
}

func (r *Reaper) isEmulator(launch *Launch) bool {
	if launch.PID <= 0 || !r.inspector.Alive(launch.PID) {
		return false
	}
	cmdline, err := r.inspector.Cmdline(launch.PID)
	if err != nil {
		return false
	}
	return strings.Contains(cmdline, jarOf(launch.Command))
}

// jarOf returns the jar named in a recorded command line
func jarOf(command string) string {
	fields := strings.Fields(command)
	for i, f := range fields {
		if f == "-jar" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return process.ServerJar
}

type gopsutilInspector struct{}

func (gopsutilInspector) Alive(pid int) bool {
	return process.IsAlive(pid)
}

func (gopsutilInspector) Cmdline(pid int) (string, error) {
	p, err := psprocess.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Cmdline()
}

func (gopsutilInspector) Kill(pid int) error {
	p, err := psprocess.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}
