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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seatunnelx/elasticmq-offline/internal/process"
)

const recordTimeout = 5 * time.Second

// Recorder writes process events into the ledger. Its HandleEvent method is a
// process.ProcessEventHandler.
// Recorder 将进程事件写入台账，HandleEvent 可作为 process.ProcessEventHandler 使用。
type Recorder struct {
	repo   *Repository
	logger *zap.Logger

	mu  sync.Mutex
	ids map[process.Key]uint
}

// NewRecorder creates a Recorder.
// NewRecorder 创建 Recorder。
func NewRecorder(repo *Repository, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{repo: repo, logger: logger, ids: make(map[process.Key]uint)}
}

// HandleEvent records one process event.
// HandleEvent 记录一个进程事件。
func (r *Recorder) HandleEvent(event process.ProcessEvent, info *process.ProcessInfo) {
	if info == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	key := process.Key{Session: info.Session, Port: info.Port}
	var err error
	switch event {
	case process.EventStarted:
		err = r.started(ctx, key, info)
	case process.EventStopped:
		err = r.ended(ctx, key, LaunchStatusStopped, info, true)
	case process.EventCrashed:
		err = r.ended(ctx, key, LaunchStatusCrashed, info, false)
	case process.EventFailed:
		if _, ok := r.lookup(key); ok {
			err = r.ended(ctx, key, LaunchStatusFailed, info, false)
		} else {
			err = r.failedSpawn(ctx, info)
		}
	}

	if err != nil && !errors.Is(err, ErrLaunchNotRunning) {
		r.logger.Warn("Failed to record launch event",
			zap.String("event", string(event)), zap.Int("port", info.Port), zap.Error(err))
	}
}

func (r *Recorder) started(ctx context.Context, key process.Key, info *process.ProcessInfo) error {
	launch := &Launch{
		Session:   info.Session,
		Port:      info.Port,
		PID:       info.PID,
		Stage:     info.Stage,
		Command:   info.Command,
		Status:    LaunchStatusRunning,
		StartedAt: info.StartTime,
	}
	if err := r.repo.Create(ctx, launch); err != nil {
		return err
	}
	r.mu.Lock()
	r.ids[key] = launch.ID
	r.mu.Unlock()
	return nil
}

func (r *Recorder) ended(ctx context.Context, key process.Key, status LaunchStatus, info *process.ProcessInfo, forget bool) error {
	id, ok := r.lookup(key)
	if !ok {
		return nil
	}
	if forget {
		r.mu.Lock()
		delete(r.ids, key)
		r.mu.Unlock()
	}
	return r.repo.MarkEnded(ctx, id, status, info.ExitCode, info.LastError)
}

func (r *Recorder) failedSpawn(ctx context.Context, info *process.ProcessInfo) error {
	now := time.Now()
	return r.repo.Create(ctx, &Launch{
		Session:   info.Session,
		Port:      info.Port,
		Stage:     info.Stage,
		Command:   info.Command,
		Status:    LaunchStatusFailed,
		LastError: info.LastError,
		StartedAt: now,
		EndedAt:   &now,
	})
}

func (r *Recorder) lookup(key process.Key) (uint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[key]
	return id, ok
}
