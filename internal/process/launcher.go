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
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// maxOutputLine bounds one line of emulator stdout kept for the debug log
const maxOutputLine = 1024 * 1024

// ExecLauncher spawns the emulator with os/exec
// ExecLauncher 使用 os/exec 启动模拟器
type ExecLauncher struct {
	logger *zap.Logger
	stderr io.Writer
}

// NewExecLauncher creates a launcher whose child stderr is the parent's stderr
// and whose stdout is drained into the debug log.
// NewExecLauncher 创建启动器：子进程 stderr 继承父进程，stdout 写入调试日志。
func NewExecLauncher(logger *zap.Logger) *ExecLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecLauncher{logger: logger, stderr: os.Stderr}
}

// Launch starts the child in its own process group. The child outlives ctx;
// it is only ended through Process.Kill.
// Launch 在独立进程组中启动子进程。子进程不受 ctx 影响，只能通过 Process.Kill 结束。
func (l *ExecLauncher) Launch(ctx context.Context, spec *LaunchSpec) (Process, error) {
	if spec == nil {
		return nil, errors.New("launch spec is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	setProcGroupAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, err
	}
	cmd.Stderr = l.stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, err
	}

	p := &execProcess{
		cmd:     cmd,
		stdin:   stdin,
		drained: make(chan struct{}),
	}
	go p.drain(stdout, l.logger.With(zap.Int("pid", cmd.Process.Pid)))
	return p, nil
}

// execProcess is the Process returned by ExecLauncher
type execProcess struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	drained   chan struct{}
	closeOnce sync.Once
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Kill() error {
	p.closeStdin()
	return killProcessGroup(p.cmd.Process)
}

func (p *execProcess) Wait() (int, error) {
	// Reads from the stdout pipe must finish before cmd.Wait closes it.
	<-p.drained
	err := p.cmd.Wait()
	p.closeStdin()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *execProcess) closeStdin() {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()
	})
}

func (p *execProcess) drain(r io.Reader, logger *zap.Logger) {
	defer close(p.drained)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
	for scanner.Scan() {
		logger.Debug("elasticmq", zap.String("line", scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("elasticmq stdout scan stopped", zap.Error(err))
		_, _ = io.Copy(io.Discard, r)
	}
}
