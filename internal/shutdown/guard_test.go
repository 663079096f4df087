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

package shutdown

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegisterDeduplicatesByName(t *testing.T) {
	g := NewGuard(nil)
	var calls int32

	assert.True(t, g.Register("elasticmq:9324", func() { atomic.AddInt32(&calls, 1) }))
	assert.False(t, g.Register("elasticmq:9324", func() { atomic.AddInt32(&calls, 100) }))
	assert.False(t, g.Register("nil", nil))
	assert.Equal(t, 1, g.Len())

	assert.Equal(t, 1, g.Fire(ReasonExit))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFireSurvivesPanickingHook(t *testing.T) {
	g := NewGuard(nil)
	var order []string
	g.Register("first", func() { order = append(order, "first") })
	g.Register("boom", func() { panic("boom") })
	g.Register("last", func() { order = append(order, "last") })

	assert.NotPanics(t, func() { g.Fire(ReasonExit) })
	assert.Equal(t, []string{"first", "last"}, order)
}

func TestRunFiresOnNormalReturn(t *testing.T) {
	g := NewGuard(nil)
	var fired int32
	g.Register("hook", func() { atomic.AddInt32(&fired, 1) })

	require.NoError(t, g.Run(func() error { return nil }))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestRunFiresOnRequestedExit(t *testing.T) {
	g := NewGuard(nil)
	var fired int32
	g.Register("hook", func() { atomic.AddInt32(&fired, 1) })

	want := errors.New("exit status 2")
	err := g.Run(func() error { return want })
	assert.ErrorIs(t, err, want)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestRunFiresOnPanicAndRepanics(t *testing.T) {
	g := NewGuard(nil)
	var fired int32
	g.Register("hook", func() { atomic.AddInt32(&fired, 1) })

	assert.PanicsWithValue(t, "uncaught", func() {
		_ = g.Run(func() error { panic("uncaught") })
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestDeliverFiresAndForwards(t *testing.T) {
	g := NewGuard(nil)
	var fired int32
	g.Register("hook", func() { atomic.AddInt32(&fired, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	forwarded := g.Listen(ctx)
	g.Deliver(syscall.SIGTERM)

	select {
	case sig := <-forwarded:
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(time.Second):
		t.Fatal("signal was not forwarded")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestListenReturnsSameChannel(t *testing.T) {
	g := NewGuard(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := g.Listen(ctx)
	b := g.Listen(ctx)
	assert.Equal(t, a, b)
}

func TestSignalsIncludeInterruptAndTerminate(t *testing.T) {
	assert.Contains(t, Signals, os.Signal(syscall.SIGTERM))
	assert.GreaterOrEqual(t, len(Signals), 2)
}

// Property: the guard keeps one hook per distinct name and Fire runs each
// kept hook exactly once.
// 属性：每个不同名称只保留一个钩子，Fire 对每个钩子恰好执行一次。
func TestProperty_RegisterDistinctNames(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		names := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d"}), 0, 12).Draw(rt, "names")

		g := NewGuard(nil)
		counts := make(map[string]int)
		distinct := make(map[string]struct{})
		for _, name := range names {
			n := name
			distinct[n] = struct{}{}
			g.Register(n, func() { counts[n]++ })
		}

		if g.Len() != len(distinct) {
			rt.Fatalf("Len = %d, want %d", g.Len(), len(distinct))
		}
		g.Fire(ReasonExit)
		for name := range distinct {
			if counts[name] != 1 {
				rt.Fatalf("hook %q ran %d times", name, counts[name])
			}
		}
	})
}
