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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	alive    map[int]bool
	cmdlines map[int]string
	killErr  error
	killed   []int
}

func (f *fakeInspector) Alive(pid int) bool { return f.alive[pid] }

func (f *fakeInspector) Cmdline(pid int) (string, error) {
	cmd, ok := f.cmdlines[pid]
	if !ok {
		return "", errors.New("no such process")
	}
	return cmd, nil
}

func (f *fakeInspector) Kill(pid int) error {
	if f.killErr != nil {
		return f.killErr
	}
	f.killed = append(f.killed, pid)
	return nil
}

func TestReapKillsOrphansOfOtherSessions(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	command := "java -jar elasticmq-server-0.15.7.jar"

	orphan := &Launch{Session: "old", Port: 9324, PID: 100, Command: command}
	recycled := &Launch{Session: "old", Port: 9400, PID: 101, Command: command}
	gone := &Launch{Session: "older", Port: 9324, PID: 102, Command: command}
	mine := &Launch{Session: "current", Port: 9324, PID: 103, Command: command}
	for _, l := range []*Launch{orphan, recycled, gone, mine} {
		require.NoError(t, repo.Create(ctx, l))
	}

	inspector := &fakeInspector{
		alive: map[int]bool{100: true, 101: true, 103: true},
		cmdlines: map[int]string{
			100: "/usr/bin/java -jar elasticmq-server-0.15.7.jar",
			101: "/usr/sbin/sshd -D",
			103: "/usr/bin/java -jar elasticmq-server-0.15.7.jar",
		},
	}
	reaper := NewReaper(repo, nil)
	reaper.SetInspector(inspector)

	reaped, err := reaper.Reap(ctx, "current")
	require.NoError(t, err)
	assert.Len(t, reaped, 3)
	assert.Equal(t, []int{100}, inspector.killed)

	for _, l := range []*Launch{orphan, recycled, gone} {
		got, err := repo.Get(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, LaunchStatusReaped, got.Status)
	}
	got, err := repo.Get(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, "orphan killed", got.LastError)

	still, err := repo.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, LaunchStatusRunning, still.Status)

	// A second pass has nothing left to do.
	reaped, err = reaper.Reap(ctx, "current")
	require.NoError(t, err)
	assert.Empty(t, reaped)
}

func TestReapRecordsKillFailure(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	launch := &Launch{Session: "old", Port: 9324, PID: 100, Command: "java -jar elasticmq-server-0.15.7.jar"}
	require.NoError(t, repo.Create(ctx, launch))

	reaper := NewReaper(repo, nil)
	reaper.SetInspector(&fakeInspector{
		alive:    map[int]bool{100: true},
		cmdlines: map[int]string{100: "java -jar elasticmq-server-0.15.7.jar"},
		killErr:  errors.New("operation not permitted"),
	})

	reaped, err := reaper.Reap(ctx, "current")
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Contains(t, reaped[0].LastError, "operation not permitted")
}

func TestJarOf(t *testing.T) {
	assert.Equal(t, "custom.jar", jarOf("java -Xmx1g -jar custom.jar"))
	assert.Equal(t, "elasticmq-server-0.15.7.jar", jarOf(""))
	assert.Equal(t, "elasticmq-server-0.15.7.jar", jarOf("java -jar"))
}

func TestReapPortLeavesOtherPorts(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	command := "java -jar elasticmq-server-0.15.7.jar"

	onPort := &Launch{Session: "old", Port: 9324, PID: 100, Command: command}
	sibling := &Launch{Session: "other", Port: 9400, PID: 101, Command: command}
	for _, l := range []*Launch{onPort, sibling} {
		require.NoError(t, repo.Create(ctx, l))
	}

	inspector := &fakeInspector{
		alive:    map[int]bool{100: true, 101: true},
		cmdlines: map[int]string{100: command, 101: command},
	}
	reaper := NewReaper(repo, nil)
	reaper.SetInspector(inspector)

	_, err := reaper.ReapPort(ctx, "current", 0)
	assert.ErrorIs(t, err, ErrInvalidPort)

	reaped, err := reaper.ReapPort(ctx, "current", 9324)
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Equal(t, onPort.ID, reaped[0].ID)
	assert.Equal(t, []int{100}, inspector.killed)

	got, err := repo.Get(ctx, sibling.ID)
	require.NoError(t, err)
	assert.Equal(t, LaunchStatusRunning, got.Status)
}
