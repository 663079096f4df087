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
	"fmt"
	"os"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const helperEnv = "ELASTICMQ_OFFLINE_HELPER_PROCESS"

// TestHelperProcess is re-executed as a child by the launcher tests. It is
// not a real test.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	fmt.Println("elasticmq helper ready")
	if code, err := strconv.Atoi(mode); err == nil {
		os.Exit(code)
	}
	time.Sleep(time.Minute)
	os.Exit(0)
}

func helperSpec(mode string) *LaunchSpec {
	return &LaunchSpec{
		Command: os.Args[0],
		Args:    []string{"-test.run=^TestHelperProcess$"},
		Env:     append(os.Environ(), helperEnv+"="+mode),
		Port:    DefaultPort,
	}
}

func waitResult(t *testing.T, p Process) (int, error) {
	t.Helper()
	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := p.Wait()
		done <- result{code, err}
	}()
	select {
	case r := <-done:
		return r.code, r.err
	case <-time.After(10 * time.Second):
		t.Fatal("child did not exit")
		return 0, nil
	}
}

func TestExecLauncherKill(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process group kill is unix only")
	}
	core, logs := observer.New(zapcore.DebugLevel)
	launcher := NewExecLauncher(zap.New(core))

	p, err := launcher.Launch(context.Background(), helperSpec("sleep"))
	require.NoError(t, err)
	require.Greater(t, p.PID(), 0)

	require.Eventually(t, func() bool {
		return logs.FilterField(zap.String("line", "elasticmq helper ready")).Len() == 1
	}, 10*time.Second, 10*time.Millisecond)
	assert.True(t, IsAlive(p.PID()))

	require.NoError(t, p.Kill())
	code, err := waitResult(t, p)
	require.NoError(t, err)
	assert.Equal(t, -1, code)
}

func TestExecLauncherExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("helper re-exec is unix only")
	}
	launcher := NewExecLauncher(zap.NewNop())

	p, err := launcher.Launch(context.Background(), helperSpec("3"))
	require.NoError(t, err)

	code, err := waitResult(t, p)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestExecLauncherMissingBinary(t *testing.T) {
	launcher := NewExecLauncher(zap.NewNop())

	_, err := launcher.Launch(context.Background(), &LaunchSpec{
		Command: "elasticmq-offline-no-such-binary",
		Args:    []string{"-jar", ServerJar},
	})
	require.Error(t, err)
}

func TestExecLauncherCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecLauncher(nil).Launch(ctx, helperSpec("0"))
	require.ErrorIs(t, err, context.Canceled)
}

// TestManagerWithRealChild drives the manager end to end against a real child
func TestManagerWithRealChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("helper re-exec is unix only")
	}
	core, logs := observer.New(zapcore.InfoLevel)
	launcher := &helperLauncher{ExecLauncher: NewExecLauncher(zap.NewNop())}
	m := NewManager(Options{Stage: "dev", Stages: []string{"dev"}, SettleDelay: time.Millisecond}, launcher, zap.New(core))

	require.NoError(t, m.Start(context.Background()))
	status := m.Status()
	require.Len(t, status, 1)
	pid := status[0].PID

	require.NoError(t, m.Stop(context.Background()))
	require.Eventually(t, func() bool { return !IsAlive(pid) || isZombie(pid) }, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("ElasticMq Process - Stopped").Len())
	assert.Equal(t, 0, logs.FilterMessageSnippet("Failed to start with code").Len())
}

// helperLauncher swaps the java command for the test binary
type helperLauncher struct {
	*ExecLauncher
}

func (l *helperLauncher) Launch(ctx context.Context, spec *LaunchSpec) (Process, error) {
	child := helperSpec("sleep")
	child.Port = spec.Port
	return l.ExecLauncher.Launch(ctx, child)
}

func isZombie(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	return len(data) > 0 && containsState(string(data), 'Z')
}

func containsState(stat string, state byte) bool {
	// Format: pid (comm) state ...
	for i := len(stat) - 1; i >= 0; i-- {
		if stat[i] == ')' {
			return i+2 < len(stat) && stat[i+2] == state
		}
	}
	return false
}
