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
	"slices"
	"testing"

	"pgregory.net/rapid"
)

var stageNames = []string{"dev", "Dev", "local", "prod", "staging", ""}

// Property: the stage predicate is exact membership in a non-empty stage list.
// 属性：stage 判断是对非空列表的精确成员检查。
func TestProperty_StageMatch(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		stages := rapid.SliceOfN(rapid.SampledFrom(stageNames), 0, 4).Draw(rt, "stages")
		stage := rapid.SampledFrom(stageNames).Draw(rt, "stage")

		m := NewManager(Options{Stage: stage, Stages: stages}, &fakeLauncher{}, nil)

		want := len(stages) > 0 && slices.Contains(stages, stage)
		if got := m.ShouldExecute(); got != want {
			rt.Fatalf("ShouldExecute(%q in %v) = %v, want %v", stage, stages, got, want)
		}
	})
}

// Property: Start spawns exactly one process when enabled and none otherwise,
// always with the same argument list.
// 属性：启用时 Start 恰好启动一个进程，否则不启动，参数列表固定。
func TestProperty_SpawnOnlyWhenEnabled(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		stages := rapid.SliceOfN(rapid.SampledFrom(stageNames), 0, 4).Draw(rt, "stages")
		stage := rapid.SampledFrom(stageNames).Draw(rt, "stage")
		noStart := rapid.Bool().Draw(rt, "noStart")
		port := rapid.SampledFrom([]int{0, 8000, 9324, 9400}).Draw(rt, "port")

		h := newHarness(Options{Stage: stage, Stages: stages, NoStart: noStart, Port: port})
		if err := h.manager.Start(context.Background()); err != nil {
			rt.Fatalf("Start failed: %v", err)
		}

		enabled := !noStart && len(stages) > 0 && slices.Contains(stages, stage)
		wantLaunches := 0
		if enabled {
			wantLaunches = 1
		}
		if got := h.launcher.launches(); got != wantLaunches {
			rt.Fatalf("launches = %d, want %d", got, wantLaunches)
		}
		if enabled {
			spec := h.launcher.specs[0]
			if !slices.Equal(spec.Args, []string{"-jar", ServerJar}) {
				rt.Fatalf("unexpected args %v", spec.Args)
			}
			wantPort := port
			if wantPort == 0 {
				wantPort = DefaultPort
			}
			if spec.Port != wantPort {
				rt.Fatalf("spec port = %d, want %d", spec.Port, wantPort)
			}
		}
		_ = h.manager.Stop(context.Background())
	})
}

// Property: across any sequence of start, stop, termination hook and crash
// events, no spawned process is killed twice and nothing stays tracked after
// a final stop.
// 属性：任意启动、停止、终止钩子与崩溃事件序列中，进程不会被重复终止；最终停止后不再跟踪任何进程。
func TestProperty_EveryHandleKilledOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(devOptions())
		registrar := &fakeRegistrar{}
		h.manager.BindGuard(registrar)

		ops := rapid.SliceOfN(rapid.SampledFrom([]string{"start", "stop", "signal", "crash"}), 1, 20).Draw(rt, "ops")
		for _, op := range ops {
			switch op {
			case "start":
				_ = h.manager.Start(context.Background())
			case "stop":
				_ = h.manager.Stop(context.Background())
			case "signal":
				registrar.fire()
			case "crash":
				if p := h.launcher.last(); p != nil {
					p.finish(1, nil)
				}
			}

			for i, p := range h.launcher.procs {
				if p.killCount() > 1 {
					rt.Fatalf("process %d killed %d times after %v", i, p.killCount(), op)
				}
			}
		}

		_ = h.manager.Stop(context.Background())
		if h.manager.Tracked(DefaultPort) {
			rt.Fatalf("port still tracked after final stop")
		}
		if registrar.calls > 1 {
			rt.Fatalf("termination hook registered %d times", registrar.calls)
		}
	})
}
