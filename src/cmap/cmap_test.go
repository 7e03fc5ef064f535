package cmap

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	m := New[string, string](DefaultShardCount, StringHash)
	assert.True(t, m.Add("echo hello", "hello"))
	assert.True(t, m.Add("pwd", "/tmp"))
	assert.Equal(t, "hello", m.Get("echo hello"))
	assert.Equal(t, "/tmp", m.Get("pwd"))
	assert.Equal(t, 2, m.Len())
}

func TestWait(t *testing.T) {
	m := New[string, string](DefaultShardCount, StringHash)
	v, ch, first := m.GetOrWait("uname")
	assert.Equal(t, "", v)
	assert.True(t, first)
	go func() {
		m.Set("uname", "Linux")
	}()
	<-ch
	v, ch, first = m.GetOrWait("uname")
	assert.Nil(t, ch)
	assert.Equal(t, "Linux", v)
	assert.False(t, first)
}

func TestSecondWaiterIsNotFirst(t *testing.T) {
	m := New[string, string](DefaultShardCount, StringHash)
	_, ch1, first1 := m.GetOrWait("x")
	_, ch2, first2 := m.GetOrWait("x")
	assert.True(t, first1)
	assert.False(t, first2)
	assert.NotNil(t, ch2)
	assert.Equal(t, 0, m.Len())
	m.Set("x", "y")
	<-ch1
	<-ch2
	assert.Equal(t, "y", m.Get("x"))
}

func TestReAdd(t *testing.T) {
	m := New[string, string](DefaultShardCount, StringHash)
	assert.True(t, m.Add("a", "1"))
	assert.False(t, m.Add("a", "1"))
	m.Set("a", "2")
	v, ch, first := m.GetOrWait("a")
	assert.Nil(t, ch)
	assert.Equal(t, "2", v)
	assert.False(t, first)
}

func TestShardCount(t *testing.T) {
	New[string, string](4, StringHash)
	assert.Panics(t, func() {
		New[string, string](3, StringHash)
	})
}

func TestSingleShard(t *testing.T) {
	m := New[string, int](1, StringHash)
	for i := 0; i < 100; i++ {
		m.Set(strconv.Itoa(i), i)
	}
	for i := 0; i < 100; i++ {
		assert.Equal(t, i, m.Get(strconv.Itoa(i)))
	}
}

func TestJoinKey(t *testing.T) {
	assert.NotEqual(t, JoinKey("a", "bc"), JoinKey("ab", "c"))
	assert.Equal(t, JoinKey("!", "src", "ls"), JoinKey("!", "src", "ls"))
	assert.Equal(t, StringHash(JoinKey("x", "y")), StringHash(JoinKey("x", "y")))
}
