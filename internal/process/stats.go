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
	psprocess "github.com/shirou/gopsutil/v3/process"
)

// sampleUsage returns the CPU percentage and resident memory of pid, zero
// values when the process cannot be inspected
// sampleUsage 返回 pid 的 CPU 使用率和常驻内存，无法读取时返回零值
func sampleUsage(pid int) (float64, int64) {
	if pid <= 0 {
		return 0, 0
	}
	p, err := psprocess.NewProcess(int32(pid))
	if err != nil {
		return 0, 0
	}

	var cpu float64
	var rss int64
	if c, err := p.CPUPercent(); err == nil {
		cpu = c
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		rss = int64(mem.RSS)
	}
	return cpu, rss
}

// IsAlive reports whether pid refers to a running process
// IsAlive 判断 pid 是否对应运行中的进程
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	alive, err := psprocess.PidExists(int32(pid))
	return err == nil && alive
}
