package cmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestErrMap(t *testing.T) {
	m := NewErrMap[string, string](DefaultShardCount, StringHash)
	assert.True(t, m.Add("a", "b"))
	err := fmt.Errorf("it broke")
	m.SetError("c", err)
	v, err2 := m.Get("a")
	assert.Equal(t, "b", v)
	assert.NoError(t, err2)
	_, err2 = m.Get("c")
	assert.Equal(t, err, err2)
}

func TestErrWait(t *testing.T) {
	m := NewErrMap[string, string](DefaultShardCount, StringHash)
	v, ch, first, err := m.GetOrWait("false")
	assert.Equal(t, "", v)
	assert.True(t, first)
	assert.NoError(t, err)
	go func() {
		m.SetError("false", fmt.Errorf("it broke"))
	}()
	<-ch
	v, ch, first, err = m.GetOrWait("false")
	assert.Equal(t, "", v)
	assert.Nil(t, ch)
	assert.False(t, first)
	assert.Error(t, err)
}

func TestGetOrComputeRunsOnce(t *testing.T) {
	m := NewErrMap[string, string](DefaultShardCount, StringHash)
	var calls int64
	var start sync.WaitGroup
	start.Add(1)
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			start.Wait()
			v, err := m.GetOrCompute("echo hi", func() (string, error) {
				atomic.AddInt64(&calls, 1)
				return "hi", nil
			})
			if v != "hi" {
				return fmt.Errorf("unexpected value %s", v)
			}
			return err
		})
	}
	start.Done()
	assert.NoError(t, g.Wait())
	assert.EqualValues(t, 1, calls)
	assert.Equal(t, 1, m.Len())
}

func TestGetOrComputeError(t *testing.T) {
	m := NewErrMap[string, string](DefaultShardCount, StringHash)
	_, err := m.GetOrCompute("exit 1", func() (string, error) { return "", fmt.Errorf("failed") })
	assert.Error(t, err)
	_, err = m.GetOrCompute("exit 1", func() (string, error) { return "ok", nil })
	assert.Error(t, err, "errors are cached too")
}
