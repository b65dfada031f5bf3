package caching

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrLoad(t *testing.T) {
	c := NewCache(time.Minute)
	calls := 0
	load := func() (any, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrLoad("stats", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.GetOrLoad("stats", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, calls)

	c.Delete("stats")
	v, _ = c.GetOrLoad("stats", load)
	assert.Equal(t, 2, v)
}

func TestFailedLoadIsNotCached(t *testing.T) {
	c := NewCache(time.Minute)

	_, err := c.GetOrLoad("stats", func() (any, error) { return nil, errors.New("down") })
	assert.Error(t, err)

	v, err := c.GetOrLoad("stats", func() (any, error) { return "up", nil })
	require.NoError(t, err)
	assert.Equal(t, "up", v)
}

func TestLoadsOfDifferentKeysDoNotBlock(t *testing.T) {
	c := NewCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan any)
	go func() {
		v, _ := c.GetOrLoad("slow", func() (any, error) {
			close(started)
			<-release
			return "slow", nil
		})
		done <- v
	}()
	<-started

	v, err := c.GetOrLoad("fast", func() (any, error) { return "fast", nil })
	require.NoError(t, err)
	assert.Equal(t, "fast", v)

	var calls atomic.Int32
	shared := make(chan any)
	go func() {
		v, _ := c.GetOrLoad("slow", func() (any, error) {
			calls.Add(1)
			return "second", nil
		})
		shared <- v
	}()

	close(release)
	assert.Equal(t, "slow", <-done)
	assert.Equal(t, "slow", <-shared)
	assert.Zero(t, calls.Load(), "a concurrent miss reuses the in-flight or cached load")
}
