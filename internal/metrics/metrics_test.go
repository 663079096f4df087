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

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatunnelx/elasticmq-offline/internal/process"
)

func info(pid int) *process.ProcessInfo {
	return &process.ProcessInfo{Session: "s", Port: 9324, PID: pid}
}

func TestHandleEventCounts(t *testing.T) {
	m := New(nil)

	m.HandleEvent(process.EventSkipped, info(0))
	m.HandleEvent(process.EventStarted, info(10))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Running))

	m.HandleEvent(process.EventCrashed, info(10))
	m.HandleEvent(process.EventStopped, info(10))

	assert.Equal(t, float64(0), testutil.ToFloat64(m.Running))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CrashesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.KillsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LaunchesTotal.WithLabelValues(ResultStarted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LaunchesTotal.WithLabelValues(ResultSkipped)))

	m.HandleEvent(process.EventFailed, info(0))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LaunchesTotal.WithLabelValues(ResultFailed)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.Running))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.HandleEvent(process.EventStarted, info(1))
	})
}

func TestHandlerExposesSeries(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.HandleEvent(process.EventStarted, info(10))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "elasticmq_offline_running 1")
	assert.Contains(t, string(body), `elasticmq_offline_launches_total{result="started"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
