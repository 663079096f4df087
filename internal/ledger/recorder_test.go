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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatunnelx/elasticmq-offline/internal/process"
)

func startedInfo(session string, port, pid int) *process.ProcessInfo {
	return &process.ProcessInfo{
		Session:   session,
		Port:      port,
		PID:       pid,
		Stage:     "dev",
		Command:   "java -jar elasticmq-server-0.15.7.jar",
		Status:    process.StatusRunning,
		StartTime: time.Now(),
	}
}

func TestRecorderStartStop(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	rec.HandleEvent(process.EventStarted, startedInfo("s", 9324, 42))

	running, err := repo.ListRunning(ctx)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, 42, running[0].PID)
	assert.Equal(t, "dev", running[0].Stage)
	assert.Equal(t, "java -jar elasticmq-server-0.15.7.jar", running[0].Command)

	rec.HandleEvent(process.EventStopped, startedInfo("s", 9324, 42))

	got, err := repo.Get(ctx, running[0].ID)
	require.NoError(t, err)
	assert.Equal(t, LaunchStatusStopped, got.Status)
	assert.NotNil(t, got.EndedAt)
}

func TestRecorderCrashThenStopKeepsCrashed(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	rec.HandleEvent(process.EventStarted, startedInfo("s", 9324, 42))

	crashed := startedInfo("s", 9324, 42)
	code := 1
	crashed.Status = process.StatusCrashed
	crashed.ExitCode = &code
	crashed.LastError = "exited with code 1"
	rec.HandleEvent(process.EventCrashed, crashed)
	rec.HandleEvent(process.EventStopped, crashed)

	all, _, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, LaunchStatusCrashed, all[0].Status)
	require.NotNil(t, all[0].ExitCode)
	assert.Equal(t, 1, *all[0].ExitCode)
}

func TestRecorderSpawnFailure(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	rec := NewRecorder(repo, nil)

	rec.HandleEvent(process.EventFailed, &process.ProcessInfo{
		Session:   "s",
		Port:      9324,
		Stage:     "dev",
		LastError: "process: unable to start the ElasticMq Local process",
	})

	all, _, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, LaunchStatusFailed, all[0].Status)
	assert.Contains(t, all[0].LastError, "unable to start")
	assert.Equal(t, 0, all[0].PID)
}

func TestRecorderIgnoresSkippedAndNil(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	rec := NewRecorder(repo, nil)

	rec.HandleEvent(process.EventSkipped, &process.ProcessInfo{Session: "s", Port: 9324})
	rec.HandleEvent(process.EventStarted, nil)

	_, total, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
