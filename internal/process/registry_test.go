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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(session string, port, pid int) *ManagedProcess {
	spec := &LaunchSpec{Command: JavaCommand, Args: []string{"-jar", ServerJar}, Port: port}
	return newManagedProcess(Key{Session: session, Port: port}, newFakeProcess(pid), "dev", spec)
}

func TestRegistryPutGetTake(t *testing.T) {
	r := NewRegistry()
	a := newEntry("s1", 9324, 10)

	assert.Nil(t, r.Put(a))
	got, ok := r.Get(a.Key)
	require.True(t, ok)
	assert.Same(t, a, got)

	taken, ok := r.Take(a.Key)
	require.True(t, ok)
	assert.Same(t, a, taken)

	_, ok = r.Take(a.Key)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryKeysIncludeSession(t *testing.T) {
	r := NewRegistry()
	r.Put(newEntry("s1", 9324, 10))
	r.Put(newEntry("s2", 9324, 11))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "s1/9324", Key{Session: "s1", Port: 9324}.String())
}

func TestRegistryRemoveIf(t *testing.T) {
	r := NewRegistry()
	a := newEntry("s1", 9324, 10)
	b := newEntry("s1", 9324, 11)
	r.Put(a)

	assert.False(t, r.RemoveIf(a.Key, b))
	assert.True(t, r.RemoveIf(a.Key, a))
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySnapshotOrdered(t *testing.T) {
	r := NewRegistry()
	r.Put(newEntry("s", 9400, 1))
	r.Put(newEntry("s", 8000, 2))
	r.Put(newEntry("s", 9324, 3))

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []int{8000, 9324, 9400}, []int{snap[0].Key.Port, snap[1].Key.Port, snap[2].Key.Port})
}

func TestRegistryTakeConcurrent(t *testing.T) {
	r := NewRegistry()
	entry := newEntry("s", 9324, 1)
	r.Put(entry)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Take(entry.Key); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestManagedProcessExitStates(t *testing.T) {
	crashed := newEntry("s", 9324, 1)
	assert.False(t, crashed.markExited(2, nil))
	assert.True(t, crashed.Exited())
	info := crashed.Info()
	assert.Equal(t, StatusCrashed, info.Status)
	require.NotNil(t, info.ExitCode)
	assert.Equal(t, 2, *info.ExitCode)

	failed := newEntry("s", 9325, 2)
	failed.markExited(-1, errors.New("wait failed"))
	assert.Equal(t, StatusError, failed.Info().Status)
	assert.Equal(t, "wait failed", failed.Info().LastError)

	killed := newEntry("s", 9326, 3)
	assert.True(t, killed.markKilled())
	assert.False(t, killed.markKilled())
	assert.True(t, killed.markExited(-1, nil))
	assert.Equal(t, StatusStopped, killed.Info().Status)
}
